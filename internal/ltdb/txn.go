package ltdb

// Begin, Commit, and Abort are the Transaction Coordinator (§4.7): thin
// pass-throughs to the KV Engine that only actually open or close an
// underlying transaction at nesting depth 0/1, mirroring
// ltdb_start_trans / ltdb_end_trans / ltdb_del_trans.

// Begin opens (or joins, if already inside one) a transaction. Every
// external mutation request runs inside a transaction opened by the
// caller or, if none is open, by the dispatcher itself.
func (db *DB) Begin() error {
	if db.txDepth == 0 {
		if db.readOnly {
			return ErrInsufficientAccess
		}
		tx, err := db.store.Begin(true)
		if err != nil {
			return wrapErr(ErrOperations.Code, "begin transaction", err)
		}
		db.tx = tx
	}
	db.txDepth++
	return nil
}

// Commit ends the current transaction. Only the outermost Commit
// actually commits the underlying KV transaction; nested calls just
// decrement the counter.
func (db *DB) Commit() error {
	if db.txDepth == 0 {
		return ErrOperations
	}
	db.txDepth--
	if db.txDepth > 0 {
		return nil
	}
	tx := db.tx
	db.tx = nil
	if err := tx.Commit(); err != nil {
		return wrapErr(ErrOperations.Code, "commit transaction", err)
	}
	return nil
}

// Abort rolls back the current transaction regardless of nesting depth:
// a failure anywhere in a nested call sequence must discard the entire
// outer unit of work, never just the innermost piece.
func (db *DB) Abort() error {
	if db.txDepth == 0 {
		return ErrOperations
	}
	tx := db.tx
	db.tx = nil
	db.txDepth = 0
	if tx == nil {
		return nil
	}
	if err := tx.Rollback(); err != nil {
		return wrapErr(ErrOperations.Code, "abort transaction", err)
	}
	return nil
}

// withTxn runs fn inside a transaction, beginning one if the caller has
// not already opened one, and commits or aborts it to match fn's
// outcome. This is the shape every mutation entry point (Add, Delete,
// Modify, Rename) uses so partial application is impossible externally.
func (db *DB) withTxn(fn func() error) error {
	owned := db.txDepth == 0
	if err := db.Begin(); err != nil {
		return err
	}

	err := fn()
	if err != nil {
		if owned {
			db.Abort()
		} else {
			db.txDepth--
		}
		return err
	}

	if owned {
		return db.Commit()
	}
	db.txDepth--
	return nil
}
