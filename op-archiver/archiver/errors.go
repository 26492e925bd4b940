package archiver

import (
	"errors"
	"fmt"

	"github.com/mantlenetworkio/op-archiver/op-archiver/archiver/store"
)

var (
	ErrAlreadyStarted = errors.New("archiver already started")
	ErrNotStarted     = errors.New("archiver not started")
	ErrStopped        = errors.New("archiver stopped")
)

// TransportError wraps a failure to talk to the L1 node. It is transient:
// the failed range is fetched again on the next tick.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("l1 %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError reports malformed calldata, logs or unverified-data blobs.
// The offending log is skipped.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// SequenceGapError is returned when a block does not extend the stored chain.
type SequenceGapError = store.SequenceGapError

func IsTransportError(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr)
}

func IsDecodeError(err error) bool {
	var derr *DecodeError
	return errors.As(err, &derr)
}

func IsSequenceGapError(err error) bool {
	var gerr *SequenceGapError
	return errors.As(err, &gerr)
}
