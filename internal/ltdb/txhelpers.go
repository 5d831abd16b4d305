package ltdb

import (
	"errors"

	"github.com/KilimcininKorOglu/oba/internal/storage/kvstore"
)

// get reads key using the currently open transaction if there is one,
// otherwise it opens a short-lived read-only transaction just for this
// call. Returns (nil, nil) on a miss so callers that treat "absent" as
// a valid state (e.g. the Sequence Tracker on a missing @BASEINFO)
// don't have to special-case kvstore.ErrNotFound.
func (db *DB) get(key []byte) ([]byte, error) {
	if db.tx != nil {
		v, err := db.tx.Get(key)
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return v, err
	}

	tx, err := db.store.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	v, err := tx.Get(key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// scanPrefix behaves like get but for prefix scans.
func (db *DB) scanPrefix(prefix []byte) (map[string][]byte, error) {
	if db.tx != nil {
		return db.tx.ScanPrefix(prefix)
	}

	tx, err := db.store.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	return tx.ScanPrefix(prefix)
}

// mustTxn returns the open write transaction, which every mutation
// helper below assumes is present (callers always go through withTxn).
func (db *DB) mustTxn() *kvstore.Txn {
	return db.tx
}
