package types

import (
	"errors"
	"fmt"
)

var (
	// ErrIO marks failures of the underlying file or network.
	ErrIO = errors.New("io error")

	// ErrSerialization marks encode/decode failures on the log or the wire.
	ErrSerialization = errors.New("serialization error")

	// ErrCorruptLog is returned when a segment holds truncated or malformed commands.
	ErrCorruptLog = fmt.Errorf("%w: corrupt log", ErrSerialization)

	// ErrKeyNotFound is returned when removing a key that does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnexpectedCommandType means the index pointed at a record that is not a Set.
	// It indicates a corrupted log or a program bug.
	ErrUnexpectedCommandType = errors.New("unexpected command type")

	// ErrWrongEngine is returned when a data directory was created by another engine.
	ErrWrongEngine = errors.New("wrong engine")

	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("engine closed")
)

// StringError carries a failure reported by a collaborator as plain text.
type StringError string

func (e StringError) Error() string { return string(e) }

// KindError attaches one of the sentinel kinds to an underlying cause,
// so both errors.Is(err, ErrIO) and errors.Is(err, os.ErrNotExist) hold.
type KindError struct {
	Kind error
	Op   string
	Err  error
}

func (e *KindError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *KindError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IOError wraps err as an ErrIO failure of op. A nil err yields nil.
func IOError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: ErrIO, Op: op, Err: err}
}

// CorruptLogError wraps err as an ErrCorruptLog failure of op.
func CorruptLogError(op string, err error) error {
	return &KindError{Kind: ErrCorruptLog, Op: op, Err: err}
}

// SerializationError wraps err as an ErrSerialization failure of op. A nil err yields nil.
func SerializationError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: ErrSerialization, Op: op, Err: err}
}
