package ltdb

import (
	"github.com/google/uuid"
)

// ModType is the tag on a single Modify operation element (§4.6).
type ModType int

const (
	ModAdd ModType = iota
	ModReplace
	ModDelete
)

// Modification is one element of a Modify request.
type Modification struct {
	Type   ModType
	Name   string
	Values [][]byte
}

// Add implements the Mutation Engine's add path (§4.6 Add).
func (db *DB) Add(entry *Entry) error {
	return db.withTxn(func() error {
		if err := db.validateSpecialDN(entry.DN, entry); err != nil {
			return err
		}
		if err := db.loadCache(); err != nil {
			return err
		}
		return db.addEntryInternal(entry)
	})
}

// addEntryInternal performs steps 3-6 of Add: pack and insert the
// primary record, maintain the index with rollback on failure, update
// the one-level link, and bump the sequence number. It is also reused
// by Rename's add-then-delete path.
func (db *DB) addEntryInternal(entry *Entry) error {
	if !isSpecialDN(entry.DN) {
		stampNewEntry(entry)
	}

	key := db.registry.primaryKey(entry.DN)
	if err := db.mustTxn().Put(key, pack(entry), true); err != nil {
		return ErrEntryAlreadyExists
	}

	if err := db.indexAdd(entry); err != nil {
		db.mustTxn().Delete(key) // roll back the primary insert
		return err
	}

	if err := db.indexOne(entry, +1); err != nil {
		return err
	}

	return db.modified(entry.DN)
}

func stampNewEntry(entry *Entry) {
	if entry.Element(attrEntryUUID) == nil {
		entry.SetElement(attrEntryUUID, []byte(uuid.New().String()))
	}
	now := []byte(nowGeneralizedTime())
	if entry.Element(attrCreateTimestamp) == nil {
		entry.SetElement(attrCreateTimestamp, now)
	}
	entry.SetElement(attrEntryModifyTimestamp, now)
}

const (
	attrEntryUUID            = "entryUUID"
	attrCreateTimestamp      = "createTimestamp"
	attrEntryModifyTimestamp = "modifyTimestamp"
)

func nowGeneralizedTime() string {
	return timeNowUTC().Format(generalizedTimeFormat)
}

// Delete implements the Mutation Engine's delete path (§4.6 Delete).
func (db *DB) Delete(dn string) error {
	return db.withTxn(func() error {
		if err := db.loadCache(); err != nil {
			return err
		}
		return db.deleteEntryInternal(dn)
	})
}

func (db *DB) deleteEntryInternal(dn string) error {
	key := db.registry.primaryKey(dn)
	raw, err := db.get(key)
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrNoSuchObject
	}
	entry, err := unpack(raw)
	if err != nil {
		return err
	}
	entry.DN = dn

	if err := db.mustTxn().Delete(key); err != nil {
		return err
	}

	if err := db.indexOne(entry, -1); err != nil {
		return err
	}
	if err := db.indexDel(entry); err != nil {
		return err
	}

	return db.modified(dn)
}

// Modify implements the Mutation Engine's modify path (§4.6 Modify).
// The entire operation runs inside one transaction; any error aborts
// that transaction, so a failed modify always leaves the store
// byte-identical to its pre-state (§8, testable property 5).
func (db *DB) Modify(dn string, mods []Modification) error {
	return db.withTxn(func() error {
		if err := db.loadCache(); err != nil {
			return err
		}

		key := db.registry.primaryKey(dn)
		raw, err := db.get(key)
		if err != nil {
			return err
		}
		if raw == nil {
			return ErrNoSuchObject
		}
		entry, err := unpack(raw)
		if err != nil {
			return err
		}
		entry.DN = dn

		for _, mod := range mods {
			if err := db.applyModification(entry, mod); err != nil {
				return err
			}
		}

		entry.SetElement(attrEntryModifyTimestamp, []byte(nowGeneralizedTime()))
		if err := db.mustTxn().Put(key, pack(entry), false); err != nil {
			return err
		}

		return db.modified(dn)
	})
}

func (db *DB) applyModification(entry *Entry, mod Modification) error {
	switch mod.Type {
	case ModAdd:
		return db.applyAdd(entry, mod)
	case ModReplace:
		return db.applyReplace(entry, mod)
	case ModDelete:
		return db.applyDelete(entry, mod)
	default:
		return ErrProtocol
	}
}

func (db *DB) applyAdd(entry *Entry, mod Modification) error {
	syn := db.registry.lookup(mod.Name)
	existing := entry.Element(mod.Name)

	for i, v := range mod.Values {
		if existing != nil {
			for _, ev := range existing.Values {
				if syn.Compare(ev, v) == 0 {
					return ErrAttributeOrValue
				}
			}
		}
		for j := 0; j < i; j++ {
			if syn.Compare(mod.Values[j], v) == 0 {
				return ErrAttributeOrValue
			}
		}
	}

	if existing == nil {
		entry.Elements = append(entry.Elements, Element{Name: mod.Name, Values: mod.Values})
	} else {
		existing.Values = append(existing.Values, mod.Values...)
	}

	return db.indexAddValues(mod.Name, mod.Values, entry.DN)
}

func (db *DB) applyReplace(entry *Entry, mod Modification) error {
	syn := db.registry.lookup(mod.Name)

	for i := range mod.Values {
		for j := 0; j < i; j++ {
			if syn.Compare(mod.Values[j], mod.Values[i]) == 0 {
				return ErrAttributeOrValue
			}
		}
	}

	if existing := entry.Element(mod.Name); existing != nil {
		for _, v := range existing.Values {
			if err := db.indexDelValue(entry.DN, mod.Name, v); err != nil {
				return err
			}
		}
		entry.RemoveElement(mod.Name)
	}

	if len(mod.Values) == 0 {
		return nil
	}

	entry.Elements = append(entry.Elements, Element{Name: mod.Name, Values: mod.Values})
	return db.indexAddValues(mod.Name, mod.Values, entry.DN)
}

func (db *DB) applyDelete(entry *Entry, mod Modification) error {
	existing := entry.Element(mod.Name)

	if len(mod.Values) == 0 {
		if existing == nil {
			return ErrNoSuchAttribute
		}
		for _, v := range existing.Values {
			if err := db.indexDelValue(entry.DN, mod.Name, v); err != nil {
				return err
			}
		}
		entry.RemoveElement(mod.Name)
		return nil
	}

	if existing == nil {
		return ErrNoSuchAttribute
	}

	syn := db.registry.lookup(mod.Name)
	for _, v := range mod.Values {
		idx := -1
		for i, ev := range existing.Values {
			if syn.Compare(ev, v) == 0 {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrNoSuchAttribute
		}
		existing.Values = append(existing.Values[:idx], existing.Values[idx+1:]...)
		if err := db.indexDelValue(entry.DN, mod.Name, v); err != nil {
			return err
		}
	}

	if len(existing.Values) == 0 {
		entry.RemoveElement(mod.Name)
	}
	return nil
}

func (db *DB) indexAddValues(attr string, values [][]byte, dn string) error {
	for _, v := range values {
		if err := db.indexAddOne(attr, v, dn); err != nil {
			return err
		}
	}
	return nil
}

// Rename implements the Mutation Engine's rename path (§4.6 Rename).
func (db *DB) Rename(oldDN, newDN string) error {
	return db.withTxn(func() error {
		if err := db.loadCache(); err != nil {
			return err
		}

		oldKey := db.registry.primaryKey(oldDN)
		raw, err := db.get(oldKey)
		if err != nil {
			return err
		}
		if raw == nil {
			return ErrNoSuchObject
		}
		entry, err := unpack(raw)
		if err != nil {
			return err
		}
		entry.DN = newDN

		if db.registry.sameDN(oldDN, newDN) {
			return db.renameCaseOnly(oldDN, entry)
		}
		return db.renameCrossDN(oldDN, newDN, entry)
	})
}

// renameCaseOnly is the delete-then-add path: the only one that
// tolerates transient non-existence, since an add-first would collide
// on the identical folded key.
func (db *DB) renameCaseOnly(oldDN string, entry *Entry) error {
	if err := db.deleteEntryInternal(oldDN); err != nil {
		return err
	}
	return db.addEntryInternal(entry)
}

// renameCrossDN is the add-then-delete path. If the delete of the old
// DN fails after the new one was added, it attempts a compensating
// delete of the newly-added record; if that also fails, it reports
// operations-error and relies on the surrounding transaction to roll
// back (§4.6 Rename, §9 Open Question (b)).
func (db *DB) renameCrossDN(oldDN, newDN string, entry *Entry) error {
	if err := db.addEntryInternal(entry); err != nil {
		return err
	}

	if err := db.deleteEntryInternal(oldDN); err != nil {
		if compErr := db.deleteEntryInternal(newDN); compErr != nil {
			return ErrOperations
		}
		return err
	}
	return nil
}

// validateSpecialDN enforces the @ATTRIBUTES value grammar (§4.6,
// Special-DN validation): every element's values must match the
// attribute-flags grammar, or the add fails with
// *invalid-attribute-syntax*.
func (db *DB) validateSpecialDN(dn string, entry *Entry) error {
	if !db.registry.sameDN(dn, dnAttributes) {
		return nil
	}
	for _, el := range entry.Elements {
		if err := validateAttributeFlags(el.Values); err != nil {
			return err
		}
	}
	return nil
}
