package ltdb

import (
	"encoding/binary"
	"strings"
)

// encodeDNList serializes an ordered DN list to the byte form stored as
// an index record's value.
func encodeDNList(dns []string) []byte {
	size := 4
	for _, dn := range dns {
		size += 4 + len(dn)
	}
	buf := make([]byte, size)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(dns)))
	off += 4
	for _, dn := range dns {
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(dn)))
		off += 4
		off += copy(buf[off:], dn)
	}
	return buf
}

func decodeDNList(data []byte) []string {
	if len(data) < 4 {
		return nil
	}
	off := 0
	count := binary.LittleEndian.Uint32(data[off:])
	off += 4
	dns := make([]string, 0, count)
	for i := uint32(0); i < count && off+4 <= len(data); i++ {
		l := binary.LittleEndian.Uint32(data[off:])
		off += 4
		if off+int(l) > len(data) {
			break
		}
		dns = append(dns, string(data[off:off+int(l)]))
		off += int(l)
	}
	return dns
}

func containsDN(dns []string, dn string) bool {
	for _, d := range dns {
		if d == dn {
			return true
		}
	}
	return false
}

func removeDN(dns []string, dn string) ([]string, bool) {
	for i, d := range dns {
		if d == dn {
			return append(dns[:i:i], dns[i+1:]...), true
		}
	}
	return dns, false
}

// indexAdd is index_add (§4.5): for every element of entry whose
// attribute is in the indexed set, append entry.DN to that value's
// index record. A UNIQUE-flagged attribute additionally refuses to add
// a second, different DN to a value it already lists.
func (db *DB) indexAdd(entry *Entry) error {
	for _, el := range entry.Elements {
		lname := strings.ToLower(el.Name)
		if !db.indexed[lname] {
			continue
		}
		for _, v := range el.Values {
			if err := db.indexAddOne(lname, v, entry.DN); err != nil {
				return err
			}
		}
	}
	return nil
}

func (db *DB) indexAddOne(attr string, value []byte, dn string) error {
	attr = strings.ToLower(attr)
	if !db.indexed[attr] {
		return nil
	}
	key := db.registry.indexKey(attr, value)
	raw, err := db.get(key)
	if err != nil {
		return err
	}
	dns := decodeDNList(raw)

	if db.unique[attr] && len(dns) > 0 && !containsDN(dns, dn) {
		return ErrAttributeOrValue
	}
	if containsDN(dns, dn) {
		return nil
	}
	dns = append(dns, dn)
	return db.mustTxn().Put(key, encodeDNList(dns), false)
}

// indexDel is index_del (§4.5), the inverse of indexAdd.
func (db *DB) indexDel(entry *Entry) error {
	for _, el := range entry.Elements {
		lname := strings.ToLower(el.Name)
		if !db.indexed[lname] {
			continue
		}
		for _, v := range el.Values {
			if err := db.indexDelValue(entry.DN, lname, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// indexDelValue is index_del_value: remove one DN from one index
// record, deleting the record entirely if the list becomes empty.
func (db *DB) indexDelValue(dn, attr string, value []byte) error {
	attr = strings.ToLower(attr)
	if !db.indexed[attr] {
		return nil
	}
	key := db.registry.indexKey(attr, value)
	raw, err := db.get(key)
	if err != nil {
		return err
	}
	dns := decodeDNList(raw)
	dns, found := removeDN(dns, dn)
	if !found {
		return nil
	}
	if len(dns) == 0 {
		return db.mustTxn().Delete(key)
	}
	return db.mustTxn().Put(key, encodeDNList(dns), false)
}

// indexOne is index_one(entry, delta): maintain the one-level
// parent-linkage record used for subtree scoping. delta is +1 on add,
// -1 on delete.
func (db *DB) indexOne(entry *Entry, delta int) error {
	parent := parentDN(entry.DN)
	if parent == "" {
		return nil
	}
	key := db.registry.oneLevelKey(parent)
	raw, err := db.get(key)
	if err != nil {
		return err
	}
	dns := decodeDNList(raw)

	if delta > 0 {
		if containsDN(dns, entry.DN) {
			return nil
		}
		dns = append(dns, entry.DN)
		return db.mustTxn().Put(key, encodeDNList(dns), false)
	}

	dns, found := removeDN(dns, entry.DN)
	if !found {
		return nil
	}
	if len(dns) == 0 {
		return db.mustTxn().Delete(key)
	}
	return db.mustTxn().Put(key, encodeDNList(dns), false)
}

// reindexAll rebuilds every index and one-level record from scratch by
// scanning all non-special primary records, triggered when @ATTRIBUTES
// or @INDEXLIST changes (§4.6, ltdb_modified).
func (db *DB) reindexAll() error {
	old, err := db.scanPrefix([]byte(indexKeyPrefix))
	if err != nil {
		return err
	}
	for k := range old {
		if err := db.mustTxn().Delete([]byte(k)); err != nil {
			return err
		}
	}
	oldOne, err := db.scanPrefix([]byte(oneLevelKeyPrefix))
	if err != nil {
		return err
	}
	for k := range oldOne {
		if err := db.mustTxn().Delete([]byte(k)); err != nil {
			return err
		}
	}

	records, err := db.scanPrefix([]byte("DN="))
	if err != nil {
		return err
	}
	for k, raw := range records {
		dn := strings.TrimSuffix(strings.TrimPrefix(k, "DN="), "\x00")
		if isSpecialDN(dn) {
			continue
		}
		entry, err := unpack(raw)
		if err != nil {
			return err
		}
		entry.DN = dn
		if err := db.indexAdd(entry); err != nil {
			return err
		}
		if err := db.indexOne(entry, +1); err != nil {
			return err
		}
	}
	return nil
}
