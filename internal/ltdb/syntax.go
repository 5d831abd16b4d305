package ltdb

import (
	"bytes"
	"strings"

	"github.com/KilimcininKorOglu/oba/internal/schema"
)

// The built-in syntaxes below are the capability records seeded by
// seedWellknown and returned as the default on a registry miss. Their
// validators are borrowed from internal/schema/syntax.go rather than
// reimplemented, since that package already encodes the directory's
// well-known value grammars.

func identityLDIF(in []byte) ([]byte, error) { return in, nil }

func validatingLDIF(valid func([]byte) bool) func([]byte) ([]byte, error) {
	return func(in []byte) ([]byte, error) {
		if !valid(in) {
			return nil, ErrInvalidSyntax
		}
		return in, nil
	}
}

// syntaxOctetString is the default syntax: no canonicalization, binary
// compare, per ldb_syntax_default / ldb_comparison_binary.
var syntaxOctetString = &Syntax{
	Name:            "octetString",
	CaseInsensitive: false,
	ReadLDIF:        identityLDIF,
	WriteLDIF:       identityLDIF,
	Canonicalize:    func(in []byte) []byte { return append([]byte(nil), in...) },
	Compare:         bytes.Compare,
}

var syntaxDirectoryString = &Syntax{
	Name:            "directoryString",
	CaseInsensitive: true,
	ReadLDIF:        validatingLDIF(schema.ValidateDirectoryString),
	WriteLDIF:       identityLDIF,
	Canonicalize:    caseFoldBytes,
	Compare:         func(a, b []byte) int { return bytes.Compare(caseFoldBytes(a), caseFoldBytes(b)) },
}

// syntaxDN canonicalizes a DN value the same way the Key Encoder folds a
// primary key's DN, so "dn"-valued attributes compare consistently with
// primaryKey's own equivalence.
var syntaxDN = &Syntax{
	Name:            "dn",
	CaseInsensitive: true,
	ReadLDIF:        identityLDIF,
	WriteLDIF:       identityLDIF,
	Canonicalize:    func(in []byte) []byte { return caseFoldBytes(in) },
	Compare:         func(a, b []byte) int { return bytes.Compare(caseFoldBytes(a), caseFoldBytes(b)) },
}

var syntaxObjectClass = &Syntax{
	Name:            "objectClass",
	CaseInsensitive: true,
	ReadLDIF:        identityLDIF,
	WriteLDIF:       identityLDIF,
	Canonicalize:    caseFoldBytes,
	Compare:         func(a, b []byte) int { return bytes.Compare(caseFoldBytes(a), caseFoldBytes(b)) },
}

// syntaxUUID canonicalizes to lowercase, matching RFC 4530's
// case-insensitive entryUUID comparison.
var syntaxUUID = &Syntax{
	Name:            "uuid",
	CaseInsensitive: true,
	ReadLDIF:        identityLDIF,
	WriteLDIF:       identityLDIF,
	Canonicalize:    caseFoldBytes,
	Compare:         func(a, b []byte) int { return bytes.Compare(caseFoldBytes(a), caseFoldBytes(b)) },
}

// syntaxGeneralizedTime is lexically ordered because the format is
// fixed-width ("20060102150405Z"), so a byte compare is already a
// correct time compare.
var syntaxGeneralizedTime = &Syntax{
	Name:            "generalizedTime",
	CaseInsensitive: false,
	ReadLDIF:        identityLDIF,
	WriteLDIF:       identityLDIF,
	Canonicalize:    func(in []byte) []byte { return append([]byte(nil), in...) },
	Compare:         bytes.Compare,
}

func caseFoldBytes(in []byte) []byte {
	return []byte(strings.ToLower(string(in)))
}
