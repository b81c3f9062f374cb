package engine

import (
	"os"
	"path/filepath"
	"time"

	"github.com/downfa11-org/go-kvs/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// BoltFile is the database file name used inside a data directory.
const BoltFile = "kvs.bolt"

var boltBucket = []byte("kvs")

// BoltEngine implements KvsEngine on top of a bbolt database. Every write is
// its own transaction, which bbolt commits durably before returning.
type BoltEngine struct {
	db *bolt.DB
}

var _ types.KvsEngine = (*BoltEngine)(nil)

// OpenBolt opens or creates the bbolt database in dir. timeout bounds the wait
// for the file lock held by another process; zero waits forever.
func OpenBolt(dir string, timeout time.Duration) (*BoltEngine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.IOError("create data directory", err)
	}
	db, err := bolt.Open(filepath.Join(dir, BoltFile), 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, types.IOError("open bolt database", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, types.StringError(err.Error())
	}
	return &BoltEngine{db: db}, nil
}

func (e *BoltEngine) Set(key, value string) error {
	err := e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return types.StringError(err.Error())
	}
	return nil
}

func (e *BoltEngine) Get(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := e.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(boltBucket).Get([]byte(key)); v != nil {
			// v is only valid inside the transaction
			value, found = string(v), true
		}
		return nil
	})
	if err != nil {
		return "", false, types.StringError(err.Error())
	}
	return value, found, nil
}

func (e *BoltEngine) Remove(key string) error {
	err := e.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if b.Get([]byte(key)) == nil {
			return types.ErrKeyNotFound
		}
		return b.Delete([]byte(key))
	})
	switch {
	case err == nil:
		return nil
	case err == types.ErrKeyNotFound:
		return err
	default:
		return types.StringError(err.Error())
	}
}

func (e *BoltEngine) Close() error {
	if err := e.db.Close(); err != nil {
		return types.IOError("close bolt database", err)
	}
	return nil
}
