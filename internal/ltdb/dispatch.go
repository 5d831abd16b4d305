package ltdb

// OpCode names one of the backend's exposed capabilities (§6, Backend
// capability set exposed).
type OpCode string

const (
	OpAdd              OpCode = "add"
	OpModify           OpCode = "modify"
	OpDelete           OpCode = "delete"
	OpRename           OpCode = "rename"
	OpSearch           OpCode = "search"
	OpSequenceNumber   OpCode = "sequence_number"
	OpStartTransaction OpCode = "start_transaction"
	OpEndTransaction   OpCode = "end_transaction"
	OpDelTransaction   OpCode = "del_transaction"
	OpWait             OpCode = "wait"
)

// Control mirrors an LDAP request control: an identifier plus whether
// the client marked it critical.
type Control struct {
	OID      string
	Critical bool
}

// Request is one dispatched operation. Only the fields relevant to Op
// need to be populated.
type Request struct {
	Op       OpCode
	Controls []Control

	DN    string
	NewDN string
	Entry *Entry
	Mods  []Modification
	Attr  string
	Value []byte
	Mode  SeqMode
}

// State is the request handle's lifecycle (§4.9): INIT until the
// backend finishes, DONE thereafter. The backend completes
// synchronously, so a Handle is always observed in state Done by the
// time Dispatch returns it.
type State int

const (
	StateInit State = iota
	StateDone
)

// Handle is the async-shaped but synchronous completion handle (§4.9).
// wait() simply returns the stored status; Result carries whatever
// payload the operation produced (an *Entry for a DN lookup, a []string
// of DNs for an index probe, a uint64 for a sequence-number query).
type Handle struct {
	state  State
	status error
	Result any
}

// Wait returns the stored status. Since every operation here completes
// synchronously before Dispatch returns, Wait never blocks.
func (h *Handle) Wait() error {
	return h.status
}

// State reports the handle's lifecycle state.
func (h *Handle) State() State {
	return h.state
}

// Dispatch is the Request Dispatcher (§4.8): it rejects any request
// bearing an unrecognized critical control, routes recognized
// operations, and otherwise returns *operations-error. This backend
// implements no controls of its own, so any critical control is by
// definition unrecognized.
func (db *DB) Dispatch(req *Request) *Handle {
	h := &Handle{state: StateInit}

	for _, c := range req.Controls {
		if c.Critical {
			h.status = ErrUnsupportedCritical
			h.state = StateDone
			return h
		}
	}

	switch req.Op {
	case OpAdd:
		h.status = db.Add(req.Entry)
	case OpModify:
		h.status = db.Modify(req.DN, req.Mods)
	case OpDelete:
		h.status = db.Delete(req.DN)
	case OpRename:
		h.status = db.Rename(req.DN, req.NewDN)
	case OpSearch:
		if req.Attr != "" {
			dns, err := db.IndexProbe(req.Attr, req.Value)
			h.Result, h.status = dns, err
		} else {
			entry, err := db.Lookup(req.DN)
			h.Result, h.status = entry, err
		}
	case OpSequenceNumber:
		seq, err := db.SequenceNumber(req.Mode)
		h.Result, h.status = seq, err
	case OpStartTransaction:
		h.status = db.Begin()
	case OpEndTransaction:
		h.status = db.Commit()
	case OpDelTransaction:
		h.status = db.Abort()
	case OpWait:
		// no-op: every operation above already ran to completion.
	default:
		h.status = ErrOperations
	}

	h.state = StateDone
	return h
}

// Lookup is the point-lookup-by-DN primitive the backend exposes to the
// (out-of-scope) filter evaluator above it.
func (db *DB) Lookup(dn string) (*Entry, error) {
	if err := db.loadCache(); err != nil {
		return nil, err
	}
	raw, err := db.get(db.registry.primaryKey(dn))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNoSuchObject
	}
	entry, err := unpack(raw)
	if err != nil {
		return nil, err
	}
	entry.DN = dn
	return entry, nil
}

// IndexProbe is the (attribute, value) index-probe primitive the
// backend exposes; compound filter evaluation lives above it.
func (db *DB) IndexProbe(attr string, value []byte) ([]string, error) {
	if err := db.loadCache(); err != nil {
		return nil, err
	}
	raw, err := db.get(db.registry.indexKey(attr, value))
	if err != nil {
		return nil, err
	}
	return decodeDNList(raw), nil
}
