package ltdb

import (
	"strings"
)

// specialPrefix marks the well-known and reserved metadata DNs: @BASEINFO,
// @ATTRIBUTES, @INDEXLIST, and anything an implementation reserves for its
// own bookkeeping. Special DNs are never case-folded in their local part.
const specialPrefix = "@"

// indexKeyPrefix namespaces every index record so a ScanPrefix over one
// attribute's records never collides with primary records, whose keys
// always start with "DN=".
const indexKeyPrefix = "@INDEX:"

// oneLevelKeyPrefix namespaces the one-level parent-linkage index used for
// subtree scoping (index_one, §4.5).
const oneLevelKeyPrefix = "@ONE:"

// isSpecialDN reports whether dn names one of the reserved metadata
// records (its first RDN component begins with '@').
func isSpecialDN(dn string) bool {
	return strings.HasPrefix(dn, specialPrefix)
}

// casefoldDN case-folds a DN's attribute names and, for attributes whose
// syntax is case-insensitive, their values too. Case-sensitive attribute
// values are preserved verbatim. Special DNs pass through untouched: a
// DN beginning with '@' is never folded.
func (r *Registry) casefoldDN(dn string) string {
	if isSpecialDN(dn) {
		return dn
	}

	components := splitDN(dn)
	folded := make([]string, len(components))
	for i, comp := range components {
		folded[i] = r.casefoldRDN(comp)
	}
	return strings.Join(folded, ",")
}

// casefoldRDN folds a single "attr=value" (or "attr=value+attr2=value2")
// RDN component.
func (r *Registry) casefoldRDN(rdn string) string {
	parts := strings.Split(rdn, "+")
	folded := make([]string, len(parts))
	for i, part := range parts {
		attr, value, ok := splitAttrValue(part)
		if !ok {
			folded[i] = strings.ToLower(strings.TrimSpace(part))
			continue
		}
		attr = strings.ToLower(strings.TrimSpace(attr))
		syn := r.lookup(attr)
		canon := []byte(strings.TrimSpace(value))
		if syn.CaseInsensitive {
			canon = syn.Canonicalize(canon)
		}
		folded[i] = attr + "=" + string(canon)
	}
	return strings.Join(folded, "+")
}

func splitAttrValue(rdn string) (attr, value string, ok bool) {
	idx := strings.IndexByte(rdn, '=')
	if idx < 0 {
		return "", "", false
	}
	return rdn[:idx], rdn[idx+1:], true
}

// splitDN splits a DN into its RDN components, respecting escaped commas
// (a backslash-escaped comma does not terminate a component).
func splitDN(dn string) []string {
	var out []string
	start := 0
	escaped := false
	for i := 0; i < len(dn); i++ {
		switch {
		case escaped:
			escaped = false
		case dn[i] == '\\':
			escaped = true
		case dn[i] == ',':
			out = append(out, dn[start:i])
			start = i + 1
		}
	}
	out = append(out, dn[start:])
	for i, comp := range out {
		out[i] = strings.TrimSpace(comp)
	}
	return out
}

// primaryKey produces the bytes "DN=" ++ casefold_dn(dn) ++ 0x00, the sole
// key under which an entry's record is stored.
func (r *Registry) primaryKey(dn string) []byte {
	folded := r.casefoldDN(dn)
	key := make([]byte, 0, 3+len(folded)+1)
	key = append(key, "DN="...)
	key = append(key, folded...)
	key = append(key, 0x00)
	return key
}

// sameDN reports whether two DNs name the same entry under the
// directory's casefolding equivalence — the sole definition of "same DN"
// used throughout the Mutation Engine.
func (r *Registry) sameDN(a, b string) bool {
	return r.casefoldDN(a) == r.casefoldDN(b)
}

// indexKey canonicalizes value under attr's syntax and composes a key
// that places every record for one attribute contiguously, so a prefix
// scan on indexKeyPrefix+attr+":" enumerates them all.
func (r *Registry) indexKey(attr string, value []byte) []byte {
	attr = strings.ToLower(attr)
	syn := r.lookup(attr)
	canon := syn.Canonicalize(value)

	key := make([]byte, 0, len(indexKeyPrefix)+len(attr)+1+len(canon))
	key = append(key, indexKeyPrefix...)
	key = append(key, attr...)
	key = append(key, ':')
	key = append(key, canon...)
	return key
}

// indexAttrPrefix returns the prefix that bounds every index record for
// one attribute, used to drive a full reindex scan.
func indexAttrPrefix(attr string) []byte {
	return []byte(indexKeyPrefix + strings.ToLower(attr) + ":")
}

// oneLevelKey composes the parent-linkage index key for parentDN.
func (r *Registry) oneLevelKey(parentDN string) []byte {
	return []byte(oneLevelKeyPrefix + r.casefoldDN(parentDN))
}

// parentDN returns the DN of dn's immediate parent, or "" if dn has no
// parent (a single-component DN, e.g. a root entry).
func parentDN(dn string) string {
	components := splitDN(dn)
	if len(components) <= 1 {
		return ""
	}
	return strings.Join(components[1:], ",")
}
