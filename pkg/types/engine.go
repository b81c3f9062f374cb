package types

// KvsEngine is the storage contract shared by the log-structured store and
// the bbolt-backed engine. Implementations are safe for concurrent use.
type KvsEngine interface {
	// Set stores value under key, overwriting any previous value.
	Set(key, value string) error

	// Get returns the value of key. A missing key yields ok == false and a nil error.
	Get(key string) (value string, ok bool, err error)

	// Remove deletes key, returning ErrKeyNotFound if it is absent.
	Remove(key string) error

	Close() error
}

// Engine names as recorded in the data directory marker file.
const (
	EngineKvs  = "kvs"
	EngineBolt = "bolt"
)

// Cloner is implemented by engines whose handles carry per-consumer state.
// Servers hand each worker its own clone and close it when done.
type Cloner interface {
	CloneEngine() KvsEngine
}
