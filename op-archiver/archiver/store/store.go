// Package store keeps the archived L2 blocks, their unverified data and the L1 scan cursors.
package store

import (
	"errors"
	"fmt"

	"github.com/mantlenetworkio/op-archiver/op-archiver/l2"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidRange = errors.New("invalid range")
	ErrClosed       = errors.New("store closed")
)

// SequenceGapError is returned by AppendBlock when the block does not directly extend the stored chain.
type SequenceGapError struct {
	Expected uint64
	Got      uint64
}

func (e *SequenceGapError) Error() string {
	return fmt.Sprintf("block %d does not extend chain, expected block %d", e.Got, e.Expected)
}

// CursorID identifies the L1 scan cursor of one event stream.
type CursorID byte

const (
	L2BlockProcessedCursor CursorID = iota + 1
	UnverifiedDataCursor
)

func (c CursorID) String() string {
	switch c {
	case L2BlockProcessedCursor:
		return "l2_block_processed"
	case UnverifiedDataCursor:
		return "unverified_data"
	default:
		return fmt.Sprintf("cursor(%d)", byte(c))
	}
}

// Store holds the archived data. Implementations serialize writes and serve
// point-in-time consistent reads without blocking on the network.
type Store interface {
	// AppendBlock stores the block if it is number BlockHeight()+1,
	// and returns a *SequenceGapError otherwise.
	AppendBlock(block *l2.Block) error
	// PutUnverifiedData upserts the unverified data of an L2 block.
	PutUnverifiedData(data *l2.UnverifiedData) error

	// BlockHeight is the number of contiguous blocks stored, starting at 1.
	BlockHeight() uint64
	// LatestUnverifiedDataBlockNum is the highest L2 block number with unverified data.
	LatestUnverifiedDataBlockNum() uint64

	GetBlock(num uint64) (*l2.Block, error)
	// GetBlocks returns up to limit consecutive blocks starting at from.
	GetBlocks(from uint64, limit int) ([]*l2.Block, error)
	GetUnverifiedData(num uint64) (*l2.UnverifiedData, error)

	// Cursor returns the next L1 block to scan for the stream, or ErrNotFound if it was never set.
	Cursor(id CursorID) (uint64, error)
	SetCursor(id CursorID, next uint64) error

	Close() error
}

func checkAppend(height uint64, block *l2.Block) error {
	if block == nil {
		return errors.New("nil block")
	}
	if got := block.BlockNumber(); got != height+1 {
		return &SequenceGapError{Expected: height + 1, Got: got}
	}
	return nil
}

// blockRange clamps a GetBlocks request against the current height.
// It returns the inclusive range to read, and ok=false when nothing is to be read.
func blockRange(height uint64, from uint64, limit int) (first, last uint64, ok bool, err error) {
	if from == 0 {
		return 0, 0, false, fmt.Errorf("%w: blocks start at 1", ErrInvalidRange)
	}
	if limit <= 0 || from > height {
		return 0, 0, false, nil
	}
	last = from + uint64(limit) - 1
	if last > height || last < from {
		last = height
	}
	return from, last, true, nil
}
