package ltdb

import (
	"strings"
	"sync"
)

// AttrFlag tags a schema entry's mutability and lifetime contract.
type AttrFlag uint8

const (
	// AttrFlagNone is the default: mutable, caller-owned name lifetime.
	AttrFlagNone AttrFlag = 0
	// AttrFlagFixed marks an entry add/remove must silently ignore.
	AttrFlagFixed AttrFlag = 1 << 0
	// AttrFlagAllocated marks an entry whose name string the registry
	// must copy rather than borrow, because the caller's string may not
	// outlive the call (e.g. a name parsed out of an @ATTRIBUTES value).
	AttrFlagAllocated AttrFlag = 1 << 1
	// AttrFlagReserved marks a well-known metadata attribute.
	AttrFlagReserved AttrFlag = 1 << 2
)

// Syntax is the capability record described in §9: the four syntax
// functions are the sole polymorphism point for attribute handling.
type Syntax struct {
	Name            string
	CaseInsensitive bool

	// ReadLDIF converts an LDIF-textual representation to the in-memory
	// byte form. WriteLDIF is its inverse.
	ReadLDIF  func(in []byte) ([]byte, error)
	WriteLDIF func(in []byte) ([]byte, error)

	// Canonicalize produces the form used for comparison and index keys.
	Canonicalize func(in []byte) []byte

	// Compare returns zero for equality, matching the Compare contract
	// used throughout the Mutation Engine and Index Manager.
	Compare func(a, b []byte) int
}

// schemaEntry pairs a syntax with its registry bookkeeping.
type schemaEntry struct {
	name   string
	flags  AttrFlag
	syntax *Syntax
}

// Registry is the sorted attribute-name -> syntax table described in
// §4.3. It is safe for concurrent read access; mutation is serialized by
// the caller (the Cache/Meta Loader holds the connection's write lock
// while reloading).
type Registry struct {
	mu      sync.RWMutex
	entries []schemaEntry // sorted by case-insensitive name, "*" first if present
}

// NewRegistry returns an empty registry seeded with the well-known
// attributes and the default octet-string syntax.
func NewRegistry() *Registry {
	r := &Registry{}
	r.seedWellknown()
	return r
}

// add inserts name keeping sort order. If name is already present and
// not fixed, it is replaced; if fixed, the call is silently ignored. If
// AttrFlagAllocated is set the name string is copied, matching
// ldb_schema_attribute_add_with_syntax's talloc_strdup behavior.
func (r *Registry) add(name string, flags AttrFlag, syn *Syntax) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lname := strings.ToLower(name)

	for i := range r.entries {
		cmp := attrCmp(lname, r.entries[i].name)
		if cmp != 0 {
			continue
		}
		if r.entries[i].flags&AttrFlagFixed != 0 {
			return
		}
		r.entries[i] = schemaEntry{name: allocName(lname, flags), flags: flags, syntax: syn}
		return
	}

	entry := schemaEntry{name: allocName(lname, flags), flags: flags, syntax: syn}
	r.entries = append(r.entries, entry)
	r.sortLocked()
}

func allocName(name string, flags AttrFlag) string {
	// Go strings are immutable; "copy vs borrow" only matters for the
	// caller's lifetime guarantee in the original C API. We keep the
	// flag so the contract documented in §9 is still observable.
	return name
}

func (r *Registry) sortLocked() {
	// Insertion sort: entries lists are small (tens of attributes) and
	// this keeps "*" pinned first per the invariant in §3/§4.3.
	for i := 1; i < len(r.entries); i++ {
		for j := i; j > 0 && lessEntry(r.entries[j], r.entries[j-1]); j-- {
			r.entries[j], r.entries[j-1] = r.entries[j-1], r.entries[j]
		}
	}
}

func lessEntry(a, b schemaEntry) bool {
	if a.name == "*" {
		return b.name != "*"
	}
	if b.name == "*" {
		return false
	}
	return a.name < b.name
}

// remove deletes name while preserving sort order. A no-op on fixed
// entries or on a miss.
func (r *Registry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lname := strings.ToLower(name)
	for i := range r.entries {
		if attrCmp(lname, r.entries[i].name) != 0 {
			continue
		}
		if r.entries[i].flags&AttrFlagFixed != 0 {
			return
		}
		r.entries = append(r.entries[:i], r.entries[i+1:]...)
		return
	}
}

// lookup performs a binary search (skipping a leading wildcard entry, if
// present) for name's syntax. On a miss it returns the wildcard entry's
// syntax if one is registered, else the built-in octet-string default.
func (r *Registry) lookup(name string) *Syntax {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lname := strings.ToLower(name)

	def := syntaxOctetString
	b := 0
	if len(r.entries) > 0 && r.entries[0].name == "*" {
		def = r.entries[0].syntax
		b = 1
	}

	e := len(r.entries) - 1
	for b <= e {
		i := (b + e) / 2
		cmp := attrCmp(lname, r.entries[i].name)
		switch {
		case cmp == 0:
			return r.entries[i].syntax
		case cmp < 0:
			e = i - 1
		default:
			b = i + 1
		}
	}
	return def
}

// lookupFlags reports the stored flags for name, or AttrFlagNone on a
// miss, used by the Cache/Meta Loader to decide whether a reload must
// preserve a fixed entry.
func (r *Registry) lookupFlags(name string) AttrFlag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lname := strings.ToLower(name)
	for _, e := range r.entries {
		if e.name == lname {
			return e.flags
		}
	}
	return AttrFlagNone
}

// removeAllocated drops every non-fixed entry, the step the Cache/Meta
// Loader takes before re-populating the registry from a fresh
// @ATTRIBUTES read so stale allocated entries do not linger.
func (r *Registry) removeAllocated() {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.flags&AttrFlagFixed != 0 {
			kept = append(kept, e)
		}
	}
	r.entries = kept
}

func attrCmp(a, b string) int {
	// Both sides are already lower-cased by callers; strings.Compare is
	// then a correct case-insensitive ordinal comparison.
	return strings.Compare(a, b)
}

// seedWellknown installs dn, distinguishedName, cn, dc, ou, objectClass
// per ldb_setup_wellknown_attributes, plus the supplemented entryUUID
// and timestamp attributes from SPEC_FULL §4.3.
func (r *Registry) seedWellknown() {
	wellknown := []struct {
		name string
		syn  *Syntax
	}{
		{"dn", syntaxDN},
		{"distinguishedname", syntaxDN},
		{"cn", syntaxDirectoryString},
		{"dc", syntaxDirectoryString},
		{"ou", syntaxDirectoryString},
		{"objectclass", syntaxObjectClass},
		{"entryuuid", syntaxUUID},
		{"createtimestamp", syntaxGeneralizedTime},
		{"modifytimestamp", syntaxGeneralizedTime},
	}
	for _, wk := range wellknown {
		r.add(wk.name, AttrFlagFixed|AttrFlagReserved, wk.syn)
	}
}
