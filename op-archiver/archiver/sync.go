package archiver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/mantlenetworkio/op-archiver/op-archiver/archiver/store"
	"github.com/mantlenetworkio/op-archiver/op-archiver/l2"
)

// EventSource is what the sync loop reads from L1. *L1Source implements it.
type EventSource interface {
	LatestL1BlockNumber(ctx context.Context) (uint64, error)
	L2BlockProcessedEvents(ctx context.Context, from, to uint64) ([]L2BlockProcessedEvent, error)
	UnverifiedDataEvents(ctx context.Context, from, to uint64) ([]UnverifiedDataEvent, error)
	GetTransaction(ctx context.Context, hash common.Hash) (*types.Transaction, error)
}

type Metrics interface {
	SourceMetrics
	RecordBlockHeight(height uint64)
	RecordUnverifiedDataHeight(num uint64)
	RecordL1Cursor(stream string, next uint64)
	RecordSequenceGap()
	RecordTransportError(stream string)
	RecordStreamSync(stream string) (onDone func(err error))
	RecordRef(layer string, name string, num uint64, h common.Hash)
}

type StreamState int32

const (
	StreamIdle StreamState = iota
	StreamPolling
	StreamProcessing
	StreamStopped
)

func (s StreamState) String() string {
	switch s {
	case StreamIdle:
		return "idle"
	case StreamPolling:
		return "polling"
	case StreamProcessing:
		return "processing"
	case StreamStopped:
		return "stopped"
	default:
		return fmt.Sprintf("StreamState(%d)", int32(s))
	}
}

// StreamStatus is a snapshot of the progress of one event stream.
type StreamStatus struct {
	State  StreamState
	Cursor uint64
}

// stream is the L1 cursor and state of one event stream. The sync loop is the only writer.
type stream struct {
	id     store.CursorID
	log    log.Logger
	state  atomic.Int32
	cursor atomic.Uint64
	// chunk fetches the events of [from, to] and processes them in order.
	chunk func(ctx context.Context, st *stream, from, to uint64) error
}

func (st *stream) setState(s StreamState) {
	st.state.Store(int32(s))
}

func (st *stream) status() StreamStatus {
	return StreamStatus{State: StreamState(st.state.Load()), Cursor: st.cursor.Load()}
}

// syncLoop advances the two event streams. Calls to tick must not overlap.
type syncLoop struct {
	log     log.Logger
	source  EventSource
	store   store.Store
	metrics Metrics

	maxBlockRange uint64

	blocks         *stream
	unverifiedData *stream

	l1Head atomic.Uint64
}

func newSyncLoop(logger log.Logger, source EventSource, st store.Store, m Metrics, startBlock, maxBlockRange uint64) (*syncLoop, error) {
	sl := &syncLoop{
		log:           logger,
		source:        source,
		store:         st,
		metrics:       m,
		maxBlockRange: maxBlockRange,
	}
	sl.blocks = &stream{id: store.L2BlockProcessedCursor, chunk: sl.blocksChunk}
	sl.unverifiedData = &stream{id: store.UnverifiedDataCursor, chunk: sl.unverifiedDataChunk}
	for _, s := range sl.streams() {
		s.log = logger.New("stream", s.id)
		next, err := st.Cursor(s.id)
		if errors.Is(err, store.ErrNotFound) {
			next = startBlock
		} else if err != nil {
			return nil, fmt.Errorf("failed to load %s cursor: %w", s.id, err)
		}
		s.cursor.Store(next)
		m.RecordL1Cursor(s.id.String(), next)
		s.log.Info("Loaded L1 cursor", "next", next)
	}
	m.RecordBlockHeight(st.BlockHeight())
	m.RecordUnverifiedDataHeight(st.LatestUnverifiedDataBlockNum())
	return sl, nil
}

func (sl *syncLoop) streams() []*stream {
	return []*stream{sl.blocks, sl.unverifiedData}
}

// tick reads the L1 head once and brings both streams up to it.
// The streams run concurrently, and a failure of one does not interrupt the other.
func (sl *syncLoop) tick(ctx context.Context) error {
	head, err := sl.source.LatestL1BlockNumber(ctx)
	if err != nil {
		if ctx.Err() == nil {
			sl.log.Warn("Failed to read L1 head, skipping tick", "err", err)
		}
		return err
	}
	sl.l1Head.Store(head)
	sl.metrics.RecordRef("l1", "head", head, common.Hash{})

	var g errgroup.Group
	for _, s := range sl.streams() {
		g.Go(func() error {
			return sl.runStream(ctx, s, head)
		})
	}
	return g.Wait()
}

func (sl *syncLoop) runStream(ctx context.Context, st *stream, head uint64) (err error) {
	done := sl.metrics.RecordStreamSync(st.id.String())
	defer func() {
		st.setState(StreamIdle)
		done(err)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			st.log.Debug("Stream sync interrupted", "err", err)
		case IsTransportError(err):
			sl.metrics.RecordTransportError(st.id.String())
			st.log.Warn("L1 request failed, retrying next tick", "cursor", st.cursor.Load(), "err", err)
		default:
			st.log.Error("Stream sync failed", "cursor", st.cursor.Load(), "err", err)
		}
	}()

	for from := st.cursor.Load(); from <= head; from = st.cursor.Load() {
		if err := ctx.Err(); err != nil {
			return err
		}
		to := head
		if sl.maxBlockRange > 0 && head-from >= sl.maxBlockRange {
			to = from + sl.maxBlockRange - 1
		}
		if err := st.chunk(ctx, st, from, to); err != nil {
			return err
		}
		if err := sl.store.SetCursor(st.id, to+1); err != nil {
			return fmt.Errorf("failed to persist cursor: %w", err)
		}
		st.cursor.Store(to + 1)
		sl.metrics.RecordL1Cursor(st.id.String(), to+1)
		st.log.Debug("Scanned L1 range", "from", from, "to", to)
	}
	return nil
}

// blocksChunk archives the blocks processed by the rollup in [from, to].
// Once the logs are fetched, processing no longer observes ctx cancellation so the chunk completes.
func (sl *syncLoop) blocksChunk(ctx context.Context, st *stream, from, to uint64) error {
	st.setState(StreamPolling)
	events, err := sl.source.L2BlockProcessedEvents(ctx, from, to)
	if err != nil {
		return err
	}
	st.setState(StreamProcessing)
	ctx = context.WithoutCancel(ctx)
	for _, ev := range events {
		if err := sl.processBlock(ctx, st, ev); err != nil {
			return err
		}
	}
	return nil
}

func (sl *syncLoop) processBlock(ctx context.Context, st *stream, ev L2BlockProcessedEvent) error {
	lgr := st.log.New("l2_block", ev.L2BlockNum, "l1_block", ev.L1Block, "tx", ev.TxHash)
	height := sl.store.BlockHeight()
	switch {
	case ev.L2BlockNum <= height:
		lgr.Debug("Skipping already archived block", "height", height)
		return nil
	case ev.L2BlockNum > height+1:
		sl.metrics.RecordSequenceGap()
		lgr.Warn("Dropping block that does not extend the archive", "err", &SequenceGapError{Expected: height + 1, Got: ev.L2BlockNum})
		return nil
	}

	tx, err := sl.source.GetTransaction(ctx, ev.TxHash)
	if err != nil {
		return err
	}
	block, err := DecodeBlockFromTransaction(tx)
	if err == nil && block.BlockNumber() != ev.L2BlockNum {
		err = &DecodeError{What: "rollup calldata", Err: fmt.Errorf("calldata holds block %d, event reports %d", block.Number, ev.L2BlockNum)}
	}
	if err != nil {
		sl.metrics.RecordDecodeError(st.id.String())
		lgr.Warn("Skipping undecodable block", "err", err)
		return nil
	}
	if err := sl.store.AppendBlock(block); err != nil {
		if IsSequenceGapError(err) {
			sl.metrics.RecordSequenceGap()
			lgr.Warn("Dropping block that does not extend the archive", "err", err)
			return nil
		}
		return fmt.Errorf("failed to store block %d: %w", block.Number, err)
	}
	sl.metrics.RecordBlockHeight(block.BlockNumber())
	sl.metrics.RecordRef("l2", "block_height", block.BlockNumber(), ev.TxHash)
	lgr.Info("Archived L2 block")
	return nil
}

// unverifiedDataChunk stores the unverified data emitted in [from, to].
func (sl *syncLoop) unverifiedDataChunk(ctx context.Context, st *stream, from, to uint64) error {
	st.setState(StreamPolling)
	events, err := sl.source.UnverifiedDataEvents(ctx, from, to)
	if err != nil {
		return err
	}
	st.setState(StreamProcessing)
	for _, ev := range events {
		if err := sl.processUnverifiedData(st, ev); err != nil {
			return err
		}
	}
	return nil
}

func (sl *syncLoop) processUnverifiedData(st *stream, ev UnverifiedDataEvent) error {
	lgr := st.log.New("l2_block", ev.L2BlockNum, "l1_block", ev.L1Block, "sender", ev.Sender)
	preimages, err := DecodeUnverifiedData(ev.Data)
	if err != nil {
		sl.metrics.RecordDecodeError(st.id.String())
		lgr.Warn("Skipping undecodable unverified data", "err", err)
		return nil
	}
	data := &l2.UnverifiedData{
		BlockNumber:   ev.L2BlockNum,
		Sender:        ev.Sender,
		L1BlockNumber: ev.L1Block,
		Preimages:     preimages,
	}
	if err := sl.store.PutUnverifiedData(data); err != nil {
		return fmt.Errorf("failed to store unverified data of block %d: %w", ev.L2BlockNum, err)
	}
	sl.metrics.RecordUnverifiedDataHeight(sl.store.LatestUnverifiedDataBlockNum())
	lgr.Info("Archived unverified data", "preimages", len(preimages))
	return nil
}
