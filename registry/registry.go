// Package registry is a bbolt-backed catalog that caches, per mindset model
// name, which chain file backs it, that file's content hash, and its last
// known trust score. It is purely an accelerator: a stale or missing entry
// is always repaired by re-loading and re-verifying the chain file itself,
// never trusted on its own.
package registry

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/dreamer-coding/fossil-jellyfish/chain"
	"github.com/dreamer-coding/fossil-jellyfish/mindset"
)

var bucketModels = []byte("models_by_name")

// Record is the cached state the registry keeps per model name.
type Record struct {
	ChainPath      string  `json:"chain_path"`
	ContentHash    string  `json:"content_hash"`
	TrustScore     float64 `json:"trust_score"`
	LastLoadedUnix uint64  `json:"last_loaded_unix"`
}

// Registry wraps a single bbolt database. A *Registry must not be shared
// across goroutines for writes without external synchronization; bbolt
// itself allows any number of concurrent readers.
type Registry struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt database at path with the
// registry's bucket, mirroring the teacher's store.Open pattern of
// ensuring buckets exist up front.
func Open(path string) (*Registry, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, chain.NewError(chain.ErrIOFailure, fmt.Sprintf("open registry: %v", err))
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketModels)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, chain.NewError(chain.ErrIOFailure, fmt.Sprintf("create bucket: %v", err))
	}
	return &Registry{db: db}, nil
}

// Close releases the underlying bbolt database.
func (r *Registry) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Put upserts rec under name in a single write transaction.
func (r *Registry) Put(name string, rec Record) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return chain.NewError(chain.ErrInvalidArgument, err.Error())
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketModels).Put([]byte(name), val)
	})
}

// Get reads the record cached for name. found is false if there is none.
func (r *Registry) Get(name string) (rec Record, found bool, err error) {
	err = r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketModels).Get([]byte(name))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return Record{}, false, chain.NewError(chain.ErrParseFailure, err.Error())
	}
	return rec, found, nil
}

// Refresh recomputes trust_score and content_hash for model against the
// currently loaded chain c and its backing chainPath, then stores the
// result. now is the caller's wall-clock reading, passed explicitly so
// tests can control it.
func (r *Registry) Refresh(model *mindset.Model, c *chain.Chain, chainPath string, now uint64) error {
	if model == nil || c == nil {
		return chain.NewError(chain.ErrInvalidArgument, "nil model or chain")
	}
	contentHash, err := mindset.HashChainFile(chainPath)
	if err != nil {
		return err
	}
	rec := Record{
		ChainPath:      chainPath,
		ContentHash:    contentHash,
		TrustScore:     c.TrustScore(),
		LastLoadedUnix: now,
	}
	return r.Put(model.Name, rec)
}
