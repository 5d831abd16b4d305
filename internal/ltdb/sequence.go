package ltdb

import (
	"strconv"
	"time"
)

// Element names inside @BASEINFO.
const (
	attrSequenceNumber  = "sequenceNumber"
	attrModifyTimestamp = "modifyTimestamp"
)

// generalizedTimeFormat matches the fixed-width, lexically-ordered
// format used throughout the directory for timestamps.
const generalizedTimeFormat = "20060102150405Z"

// SeqMode selects which value the sequence-number query returns.
type SeqMode int

const (
	// SeqHighest returns the current persisted sequence number.
	SeqHighest SeqMode = iota
	// SeqNext returns current+1 without persisting a change.
	SeqNext
	// SeqHighestTimestamp returns the generalized time parsed from
	// @BASEINFO.modifyTimestamp, as a Unix-ish sortable integer.
	SeqHighestTimestamp
)

// readBaseInfo reads @BASEINFO.sequenceNumber and .modifyTimestamp. A
// missing @BASEINFO returns (0, "", nil): never an error (§4.8).
func (db *DB) readBaseInfo() (seq uint64, timestamp string, err error) {
	raw, err := db.get(db.registry.primaryKey(dnBaseInfo))
	if err != nil {
		return 0, "", err
	}
	if raw == nil {
		return 0, "", nil
	}

	entry, err := unpack(raw)
	if err != nil {
		return 0, "", err
	}

	if el := entry.Element(attrSequenceNumber); el != nil && len(el.Values) > 0 {
		seq, _ = strconv.ParseUint(string(el.Values[0]), 10, 64)
	}
	if el := entry.Element(attrModifyTimestamp); el != nil && len(el.Values) > 0 {
		timestamp = string(el.Values[0])
	}
	return seq, timestamp, nil
}

// writeBaseInfo persists seq and timestamp back to @BASEINFO, using an
// insert-only write the first time the record is created and an
// overwrite thereafter.
func (db *DB) writeBaseInfo(seq uint64, timestamp string) error {
	entry := NewEntry(dnBaseInfo)
	entry.SetElement(attrSequenceNumber, []byte(strconv.FormatUint(seq, 10)))
	entry.SetElement(attrModifyTimestamp, []byte(timestamp))

	key := db.registry.primaryKey(dnBaseInfo)
	existing, err := db.get(key)
	if err != nil {
		return err
	}
	return db.mustTxn().Put(key, pack(entry), existing == nil)
}

// SequenceNumber answers the Request Dispatcher's sequence_number query
// (§4.8). A missing @BASEINFO yields zero for every mode, never an
// error.
func (db *DB) SequenceNumber(mode SeqMode) (uint64, error) {
	seq, timestamp, err := db.readBaseInfo()
	if err != nil {
		return 0, err
	}

	switch mode {
	case SeqNext:
		return seq + 1, nil
	case SeqHighestTimestamp:
		if timestamp == "" {
			return 0, nil
		}
		t, err := time.Parse(generalizedTimeFormat, timestamp)
		if err != nil {
			return 0, nil
		}
		return uint64(t.Unix()), nil
	default:
		return seq, nil
	}
}

// modified is ltdb_modified (§4.6): after a successful mutation on any
// DN other than @BASEINFO, bump the sequence number and refresh the
// timestamp; if the mutated DN is @ATTRIBUTES or @INDEXLIST, trigger a
// full reindex since the schema/index declarations themselves changed.
func (db *DB) modified(dn string) error {
	if db.registry.sameDN(dn, dnBaseInfo) {
		return nil
	}

	seq, _, err := db.readBaseInfo()
	if err != nil {
		return err
	}
	now := timeNowUTC().Format(generalizedTimeFormat)
	if err := db.writeBaseInfo(seq+1, now); err != nil {
		return err
	}
	db.lastSeq = seq + 1

	if db.registry.sameDN(dn, dnAttributes) || db.registry.sameDN(dn, dnIndexList) {
		db.metaHashSet = false
		if err := db.loadCache(); err != nil {
			return err
		}
		return db.reindexAll()
	}

	return nil
}
