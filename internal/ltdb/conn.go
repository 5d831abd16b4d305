package ltdb

import (
	"strings"

	"github.com/KilimcininKorOglu/oba/internal/storage/kvstore"
)

// OpenFlags mirrors the open flags in §6 of the external interface.
type OpenFlags struct {
	ReadOnly bool
	NoSync   bool
	NoMmap   bool
}

// DB is a single ltdb-style database handle: the unit of lifecycle for
// the schema registry and the transaction-depth counter (§9, Global
// state). All mutation and search entry points hang off it.
type DB struct {
	store    *kvstore.Store
	registry *Registry
	indexed  map[string]bool // lower-cased indexed attribute names
	unique   map[string]bool // lower-cased UNIQUE-flagged attribute names

	readOnly bool

	txDepth int
	tx      *kvstore.Txn

	metaHash    uint32
	metaHashSet bool
	lastSeq     uint64
}

// Open parses a "tdb://<path>" or bare-path URL and opens (creating if
// missing, per the default open flags) the database at that location.
func Open(url string, flags OpenFlags) (*DB, error) {
	path, err := parseURL(url)
	if err != nil {
		return nil, err
	}

	store, err := kvstore.Open(kvstore.Options{
		Path:             path,
		NumBuckets:       kvstore.DefaultNumBuckets,
		ReadOnly:         flags.ReadOnly,
		NoSync:           flags.NoSync,
		NoMmap:           flags.NoMmap,
		CreateIfMissing:  true,
	})
	if err != nil {
		return nil, err
	}

	return &DB{
		store:    store,
		registry: NewRegistry(),
		indexed:  defaultIndexedAttrs(),
		unique:   make(map[string]bool),
		readOnly: flags.ReadOnly,
	}, nil
}

// Close closes the underlying KV engine.
func (db *DB) Close() error {
	return db.store.Close()
}

// parseURL accepts "tdb://<path>" or a bare path; any other scheme is
// rejected, per §6.
func parseURL(url string) (string, error) {
	if strings.HasPrefix(url, "tdb://") {
		return strings.TrimPrefix(url, "tdb://"), nil
	}
	if strings.Contains(url, "://") {
		return "", wrapErr(ErrOperations.Code, "unsupported URL scheme", nil)
	}
	return url, nil
}

func defaultIndexedAttrs() map[string]bool {
	return map[string]bool{
		"objectclass": true,
		"uid":         true,
		"cn":          true,
		"sn":          true,
		"mail":        true,
		"memberof":    true,
	}
}
