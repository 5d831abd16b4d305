package ltdb

import (
	"sort"
	"strings"
)

// DumpEntries returns every primary entry in the database, keyed by the
// casefolded DN recovered from its storage key. It is a diagnostic
// primitive for operators inspecting a store file offline, not part of
// the backend capability set the Request Dispatcher exposes (§6).
func (db *DB) DumpEntries() ([]*Entry, error) {
	if err := db.loadCache(); err != nil {
		return nil, err
	}

	raw, err := db.scanPrefix([]byte("DN="))
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(raw))
	for key, value := range raw {
		dn := decodePrimaryKeyDN(key)
		if isSpecialDN(dn) {
			continue
		}
		entry, err := unpack(value)
		if err != nil {
			return nil, err
		}
		entry.DN = dn
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].DN < entries[j].DN })
	return entries, nil
}

// decodePrimaryKeyDN strips the "DN=" prefix and trailing NUL byte a
// primary key (§6, Registry.primaryKey) is wrapped in, recovering the
// casefolded DN it was stored under.
func decodePrimaryKeyDN(key string) string {
	dn := strings.TrimPrefix(key, "DN=")
	return strings.TrimSuffix(dn, "\x00")
}
