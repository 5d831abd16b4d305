package kvstore

import (
	"sort"
	"strings"
	"sync"

	"github.com/KilimcininKorOglu/oba/internal/storage"
)

type pendingOp struct {
	key     []byte
	value   []byte
	deleted bool
}

// Txn is a single atomic unit of work against a Store. Writes are buffered
// in memory and only touch the page file and catalog during Commit, so a
// Rollback (or a process exit before Commit) leaves the store exactly as
// it was before Begin.
type Txn struct {
	store    *Store
	writable bool
	id       uint64
	order    []string
	pending  map[string]*pendingOp
	done     bool
	mu       sync.Mutex
}

// Begin starts a transaction. Writable transactions take the store's
// writer lock for their entire lifetime, matching the whole-database
// locking the underlying primitive is expected to provide; read-only
// transactions take the shared lock instead.
func (s *Store) Begin(writable bool) (*Txn, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	s.mu.RUnlock()

	if writable && s.opts.ReadOnly {
		return nil, ErrReadOnly
	}

	if writable {
		s.mu.Lock()
	} else {
		s.mu.RLock()
	}

	s.nextTx++
	return &Txn{
		store:    s,
		writable: writable,
		id:       s.nextTx,
		pending:  make(map[string]*pendingOp),
	}, nil
}

func (t *Txn) unlock() {
	if t.writable {
		t.store.mu.Unlock()
	} else {
		t.store.mu.RUnlock()
	}
}

// Get returns the current value for key, honoring this transaction's own
// uncommitted writes.
func (t *Txn) Get(key []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if op, ok := t.pending[string(key)]; ok {
		if op.deleted {
			return nil, ErrNotFound
		}
		return append([]byte(nil), op.value...), nil
	}

	head, ok := t.store.catalog[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	_, value, err := readChain(t.store.pm, head)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put stages a write. If insertOnly is set, Put fails with ErrKeyExists
// when the key is already visible to this transaction.
func (t *Txn) Put(key, value []byte, insertOnly bool) error {
	if !t.writable {
		return ErrReadOnly
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if insertOnly {
		exists := false
		if op, ok := t.pending[string(key)]; ok {
			exists = !op.deleted
		} else if _, ok := t.store.catalog[string(key)]; ok {
			exists = true
		}
		if exists {
			return ErrKeyExists
		}
	}

	k := string(key)
	if _, exists := t.pending[k]; !exists {
		t.order = append(t.order, k)
	}
	t.pending[k] = &pendingOp{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	}
	return nil
}

// Delete stages a removal. It fails with ErrNotFound if the key is not
// visible to this transaction.
func (t *Txn) Delete(key []byte) error {
	if !t.writable {
		return ErrReadOnly
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	k := string(key)
	if op, ok := t.pending[k]; ok {
		if op.deleted {
			return ErrNotFound
		}
	} else if _, ok := t.store.catalog[k]; !ok {
		return ErrNotFound
	}

	if _, exists := t.pending[k]; !exists {
		t.order = append(t.order, k)
	}
	t.pending[k] = &pendingOp{key: append([]byte(nil), key...), deleted: true}
	return nil
}

// ScanPrefix returns every key/value pair whose key begins with prefix,
// merging this transaction's pending writes over the committed catalog.
// Results are sorted by key so callers get a deterministic order for
// prefix-contiguous index records.
func (t *Txn) ScanPrefix(prefix []byte) (map[string][]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string][]byte)
	p := string(prefix)

	for k, head := range t.store.catalog {
		if !strings.HasPrefix(k, p) {
			continue
		}
		if _, staged := t.pending[k]; staged {
			continue
		}
		_, value, err := readChain(t.store.pm, head)
		if err != nil {
			return nil, err
		}
		out[k] = value
	}

	for k, op := range t.pending {
		if !strings.HasPrefix(k, p) {
			continue
		}
		if op.deleted {
			delete(out, k)
			continue
		}
		out[k] = append([]byte(nil), op.value...)
	}

	return out, nil
}

// SortedKeys is a convenience helper for callers that need deterministic
// iteration order over a ScanPrefix result.
func SortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Commit applies every staged write to the page file in program order and
// releases the transaction's lock. A failure partway through leaves the
// catalog only as far updated as the pages that were successfully
// written; the underlying primitive's own durability story is out of
// scope here, matching the contract that the key/value store is assumed.
func (t *Txn) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	defer t.unlock()

	if !t.writable || len(t.order) == 0 {
		return nil
	}

	var walTxID uint64
	if t.store.wal != nil {
		walTxID = t.id
		begin := storage.NewWALRecord(t.store.wal.CurrentLSN()+1, walTxID, storage.WALBegin)
		if _, err := t.store.wal.Append(begin); err != nil {
			return err
		}
	}

	for _, k := range t.order {
		op := t.pending[k]
		if err := t.applyOp(op); err != nil {
			return err
		}
		if t.store.wal != nil {
			rec := storage.NewWALUpdateRecord(t.store.wal.CurrentLSN()+1, walTxID, 0, 0, nil, encodeWALPayload(op))
			if _, err := t.store.wal.Append(rec); err != nil {
				return err
			}
		}
	}

	if t.store.wal != nil {
		commit := storage.NewWALRecord(t.store.wal.CurrentLSN()+1, walTxID, storage.WALCommit)
		if _, err := t.store.wal.Append(commit); err != nil {
			return err
		}
		if !t.store.opts.NoSync {
			if err := t.store.wal.Sync(); err != nil {
				return err
			}
		}
	}

	return nil
}

func (t *Txn) applyOp(op *pendingOp) error {
	k := string(op.key)
	if op.deleted {
		head, ok := t.store.catalog[k]
		if !ok {
			return nil
		}
		if err := freeChain(t.store.pm, head); err != nil {
			return err
		}
		delete(t.store.catalog, k)
		return nil
	}

	if oldHead, ok := t.store.catalog[k]; ok {
		if err := freeChain(t.store.pm, oldHead); err != nil {
			return err
		}
	}
	head, err := writeChain(t.store.pm, op.key, op.value)
	if err != nil {
		return err
	}
	t.store.catalog[k] = head
	return nil
}

// Rollback discards every staged write. Because nothing touches the page
// file until Commit, this is always safe and always exact.
func (t *Txn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.unlock()

	if t.store.wal != nil && t.writable && len(t.order) > 0 {
		abort := storage.NewWALRecord(t.store.wal.CurrentLSN()+1, t.id, storage.WALAbort)
		t.store.wal.Append(abort)
	}
	return nil
}

func encodeWALPayload(op *pendingOp) []byte {
	if op.deleted {
		return append([]byte{0}, op.key...)
	}
	buf := make([]byte, 0, 1+len(op.key)+len(op.value))
	buf = append(buf, 1)
	buf = append(buf, op.key...)
	return append(buf, op.value...)
}
