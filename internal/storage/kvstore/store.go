// Package kvstore implements a single-file, hash-bucketed key/value store
// with atomic transactions on top of the page manager and write-ahead log
// from the parent storage package. It plays the role of the primitive
// on-disk store that higher-level directory semantics are built against:
// opaque []byte keys and values, point lookups, prefix scans, and
// transactions that either fully apply or leave the store untouched.
package kvstore

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/KilimcininKorOglu/oba/internal/storage"
)

// DefaultNumBuckets matches the historical tdb default hash table size.
const DefaultNumBuckets = 10000

var (
	// ErrNotFound is returned when a key has no record.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrKeyExists is returned by an insert-only Put when the key is already present.
	ErrKeyExists = errors.New("kvstore: key already exists")
	// ErrReadOnly is returned when a mutation is attempted against a read-only store.
	ErrReadOnly = errors.New("kvstore: store is read-only")
	// ErrClosed is returned once the store has been closed.
	ErrClosed = errors.New("kvstore: store is closed")
)

// Options configures how a Store is opened.
type Options struct {
	// Path is the directory that holds the store's data and WAL files.
	Path string

	// NumBuckets is the nominal hash table size. It only affects the
	// reported Stats(); the catalog itself grows without resizing.
	NumBuckets int

	// ReadOnly opens the underlying page file O_RDONLY and rejects writes
	// with ErrReadOnly.
	ReadOnly bool

	// NoSync skips fsync on commit, trading durability for throughput.
	NoSync bool

	// NoMmap is accepted for interface compatibility with the historical
	// tdb open flags; this store never mmaps pages, so it is a no-op.
	NoMmap bool

	// CreateIfMissing creates the backing files when they do not exist.
	// Defaults to true.
	CreateIfMissing bool
}

func (o Options) dataPath() string { return filepath.Join(o.Path, "store.db") }
func (o Options) walPath() string  { return filepath.Join(o.Path, "store.wal") }

// Store is a hash-bucketed key/value store backed by a page file and WAL.
// A single writer lock serializes committing transactions; readers take a
// shared lock so they see a consistent snapshot of the catalog for the
// duration of their transaction.
type Store struct {
	mu      sync.RWMutex
	pm      *storage.PageManager
	wal     *storage.WAL
	catalog map[string]storage.PageID // key -> head page of its record chain
	opts    Options
	nextTx  uint64
	closed  bool
}

// Open opens or creates a store rooted at opts.Path.
func Open(opts Options) (*Store, error) {
	if opts.NumBuckets == 0 {
		opts.NumBuckets = DefaultNumBuckets
	}
	if !opts.ReadOnly {
		if err := os.MkdirAll(opts.Path, 0755); err != nil {
			return nil, err
		}
	}

	createIfNew := opts.CreateIfMissing
	if !opts.ReadOnly {
		createIfNew = true
	}

	pm, err := storage.OpenPageManager(opts.dataPath(), storage.Options{
		CreateIfNew: createIfNew,
		ReadOnly:    opts.ReadOnly,
		SyncOnWrite: !opts.NoSync,
	})
	if err != nil {
		return nil, err
	}

	var wal *storage.WAL
	if !opts.ReadOnly {
		wal, err = storage.OpenWAL(opts.walPath())
		if err != nil {
			pm.Close()
			return nil, err
		}
	}

	s := &Store{
		pm:      pm,
		wal:     wal,
		catalog: make(map[string]storage.PageID),
		opts:    opts,
	}

	if err := s.rebuildCatalog(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// rebuildCatalog scans every allocated page for record heads, the same
// full-scan strategy the attribute index metadata loader uses to recover
// its state without a separate directory structure.
func (s *Store) rebuildCatalog() error {
	total := s.pm.TotalPages()
	for id := uint64(1); id < total; id++ {
		page, err := s.pm.ReadPage(storage.PageID(id))
		if err != nil {
			return err
		}
		if page.Header.PageType != storage.PageTypeData {
			continue
		}
		key, _, err := decodeHead(page)
		if err != nil {
			continue
		}
		s.catalog[string(key)] = page.Header.PageID
	}
	return nil
}

// Close flushes and closes the underlying page file and WAL.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var firstErr error
	if s.wal != nil {
		if err := s.wal.Close(); err != nil {
			firstErr = err
		}
	}
	if err := s.pm.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Stats reports basic size information about the store.
type Stats struct {
	Keys       int
	TotalPages uint64
	FreePages  uint64
	NumBuckets int
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Keys:       len(s.catalog),
		TotalPages: s.pm.TotalPages(),
		FreePages:  s.pm.FreePageCount(),
		NumBuckets: s.opts.NumBuckets,
	}
}
