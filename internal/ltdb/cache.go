package ltdb

import (
	"hash/crc32"
	"strings"
)

// Well-known special DNs (§3, §6).
const (
	dnBaseInfo   = "@BASEINFO"
	dnAttributes = "@ATTRIBUTES"
	dnIndexList  = "@INDEXLIST"
)

// @ATTRIBUTES value grammar tokens (SPEC_FULL §3).
const (
	flagCaseInsensitive = "CASE_INSENSITIVE"
	flagCaseSensitive   = "CASE_SENSITIVE"
	flagInteger         = "INTEGER"
	flagUnique          = "UNIQUE"
)

// @INDEXLIST's multi-valued attribute naming which attributes are
// indexed, mirroring ldb's @IDXATTR convention.
const indexListAttr = "@IDXATTR"

// loadCache is the Cache/Meta Loader (§4.4): invoked before every
// mutation and search, it reloads @BASEINFO/@ATTRIBUTES/@INDEXLIST only
// when they have changed since the last load, detected first via the
// sequence number and, failing that, via a content hash of the two
// schema-affecting records.
func (db *DB) loadCache() error {
	seq, _, err := db.readBaseInfo()
	if err != nil {
		return err
	}

	if db.metaHashSet && seq == db.lastSeq {
		return nil
	}

	attrsRaw, err := db.get(db.registry.primaryKey(dnAttributes))
	if err != nil {
		return err
	}
	indexRaw, err := db.get(db.registry.primaryKey(dnIndexList))
	if err != nil {
		return err
	}

	hash := crc32.ChecksumIEEE(append(append([]byte{}, attrsRaw...), indexRaw...))
	if db.metaHashSet && hash == db.metaHash {
		db.lastSeq = seq
		return nil
	}

	if err := db.rebuildFromAttributes(attrsRaw); err != nil {
		return err
	}
	if err := db.rebuildFromIndexList(indexRaw); err != nil {
		return err
	}

	db.metaHash = hash
	db.metaHashSet = true
	db.lastSeq = seq
	return nil
}

func (db *DB) rebuildFromAttributes(raw []byte) error {
	db.registry.removeAllocated()
	if raw == nil {
		return nil
	}
	entry, err := unpack(raw)
	if err != nil {
		return err
	}

	for _, el := range entry.Elements {
		syn, err := syntaxForFlags(el.Values)
		if err != nil {
			return err
		}
		db.registry.add(el.Name, AttrFlagAllocated, syn)
		if hasFlag(el.Values, flagUnique) {
			db.unique[strings.ToLower(el.Name)] = true
		}
	}
	return nil
}

func (db *DB) rebuildFromIndexList(raw []byte) error {
	if raw == nil {
		return nil
	}
	entry, err := unpack(raw)
	if err != nil {
		return err
	}

	el := entry.Element(indexListAttr)
	if el == nil {
		return nil
	}

	indexed := make(map[string]bool, len(el.Values))
	for _, v := range el.Values {
		indexed[strings.ToLower(string(v))] = true
	}
	db.indexed = indexed
	return nil
}

// validateAttributeFlags checks that every value attached to an
// @ATTRIBUTES element is one of the recognized grammar tokens.
func validateAttributeFlags(values [][]byte) error {
	_, err := syntaxForFlags(values)
	return err
}

func hasFlag(values [][]byte, token string) bool {
	for _, v := range values {
		if strings.EqualFold(string(v), token) {
			return true
		}
	}
	return false
}

// syntaxForFlags maps an @ATTRIBUTES element's flag tokens to a concrete
// Syntax, rejecting anything outside the grammar with
// *invalid-attribute-syntax* (§4.6, Special-DN validation).
func syntaxForFlags(values [][]byte) (*Syntax, error) {
	caseInsensitive := false
	integer := false

	for _, v := range values {
		switch strings.ToUpper(string(v)) {
		case flagCaseInsensitive:
			caseInsensitive = true
		case flagCaseSensitive:
			caseInsensitive = false
		case flagInteger:
			integer = true
		case flagUnique:
			// handled by the caller; not a syntax choice
		default:
			return nil, ErrInvalidSyntax
		}
	}

	switch {
	case integer:
		return syntaxInteger, nil
	case caseInsensitive:
		return syntaxDirectoryString, nil
	default:
		return syntaxOctetString, nil
	}
}

var syntaxInteger = &Syntax{
	Name:            "integer",
	CaseInsensitive: false,
	ReadLDIF:        identityLDIF,
	WriteLDIF:       identityLDIF,
	Canonicalize:    func(in []byte) []byte { return append([]byte(nil), in...) },
	Compare:         func(a, b []byte) int { return compareASCIIInt(a, b) },
}

func compareASCIIInt(a, b []byte) int {
	// Left-pad shorter operand conceptually by comparing numerically via
	// length-then-lexical, since both are canonical decimal ASCII.
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(string(a), string(b))
}
