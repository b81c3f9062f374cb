package types

// RequestKind selects the engine operation a request maps onto.
type RequestKind uint8

const (
	RequestGet RequestKind = iota + 1
	RequestSet
	RequestRemove
)

func (k RequestKind) String() string {
	switch k {
	case RequestGet:
		return "get"
	case RequestSet:
		return "set"
	case RequestRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Request is one client call as framed on the wire.
type Request struct {
	ID    string      `msgpack:"id"`
	Kind  RequestKind `msgpack:"kind"`
	Key   string      `msgpack:"key"`
	Value string      `msgpack:"value,omitempty"`
}

// ResponseStatus distinguishes the outcomes a client must render differently.
type ResponseStatus uint8

const (
	StatusOK          ResponseStatus = iota + 1 // success; Value set for a found Get
	StatusNotFound                              // Get of an absent key
	StatusKeyNotFound                           // Remove of an absent key
	StatusError                                 // any other failure, described by Error
)

// Response answers exactly one Request with the same ID.
type Response struct {
	ID     string         `msgpack:"id"`
	Status ResponseStatus `msgpack:"status"`
	Value  string         `msgpack:"value,omitempty"`
	Error  string         `msgpack:"error,omitempty"`
}
