package archiver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/op-archiver/op-archiver/archiver/store"
	"github.com/mantlenetworkio/op-archiver/op-archiver/l2"
	"github.com/mantlenetworkio/op-archiver/op-service/tasks"
)

var ErrNotFound = store.ErrNotFound

type Config struct {
	PollInterval time.Duration
	// L1StartBlock is where both streams start scanning when the store has no cursor yet.
	L1StartBlock uint64
	// MaxBlockRange caps the number of L1 blocks per log query. 0 means no cap.
	MaxBlockRange uint64
}

func (c Config) Check() error {
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	return nil
}

type lifecycle int

const (
	lifecycleNew lifecycle = iota
	lifecycleRunning
	lifecycleStopped
)

// SyncStatus is a snapshot of the progress of the archiver.
type SyncStatus struct {
	L1Head         uint64
	Blocks         StreamStatus
	UnverifiedData StreamStatus
}

// Archiver rebuilds the L2 chain history from L1 and serves it from its store.
// The read methods are safe to call at any time, including before Start and after Stop.
type Archiver struct {
	log   log.Logger
	store store.Store
	sync  *syncLoop

	poller *tasks.Poller

	mu    sync.Mutex
	state lifecycle
}

func New(logger log.Logger, m Metrics, source EventSource, st store.Store, cfg Config) (*Archiver, error) {
	return newArchiver(logger, m, source, st, cfg, clock.New())
}

func newArchiver(logger log.Logger, m Metrics, source EventSource, st store.Store, cfg Config, cl clock.Clock) (*Archiver, error) {
	if source == nil || st == nil || m == nil {
		return nil, errors.New("source, store and metrics are required")
	}
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid archiver config: %w", err)
	}
	sl, err := newSyncLoop(logger, source, st, m, cfg.L1StartBlock, cfg.MaxBlockRange)
	if err != nil {
		return nil, err
	}
	a := &Archiver{
		log:   logger,
		store: st,
		sync:  sl,
	}
	a.poller = tasks.NewPoller(func(ctx context.Context) {
		_ = a.sync.tick(ctx) // failures are logged per stream, and retried next tick
	}, cl, cfg.PollInterval)
	return a, nil
}

// Start begins syncing. With runInBackground false, the first catch-up to the
// current L1 head completes before Start returns. If that catch-up fails, the
// archiver is not started and Start may be retried.
func (a *Archiver) Start(ctx context.Context, runInBackground bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case lifecycleRunning:
		return ErrAlreadyStarted
	case lifecycleStopped:
		return ErrStopped
	}
	if runInBackground {
		a.poller.RunOnStart()
	} else {
		a.log.Info("Catching up with L1")
		if err := a.sync.tick(ctx); err != nil {
			return fmt.Errorf("initial catch-up failed: %w", err)
		}
	}
	a.poller.Start()
	a.state = lifecycleRunning
	a.log.Info("Archiver started", "block_height", a.BlockHeight(),
		"latest_unverified_data", a.LatestUnverifiedDataBlockNum())
	return nil
}

// Stop cancels the wait for the next tick and any in-flight log query, lets a
// chunk that is being processed complete, and returns once no background work is left.
func (a *Archiver) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case lifecycleNew:
		return ErrNotStarted
	case lifecycleStopped:
		return ErrStopped
	}
	a.poller.Stop()
	for _, s := range a.sync.streams() {
		s.setState(StreamStopped)
	}
	a.state = lifecycleStopped
	a.log.Info("Archiver stopped", "block_height", a.BlockHeight(),
		"latest_unverified_data", a.LatestUnverifiedDataBlockNum())
	return nil
}

func (a *Archiver) Stopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == lifecycleStopped
}

func (a *Archiver) BlockHeight() uint64 {
	return a.store.BlockHeight()
}

func (a *Archiver) LatestUnverifiedDataBlockNum() uint64 {
	return a.store.LatestUnverifiedDataBlockNum()
}

// GetBlock returns ErrNotFound if the block is not archived.
func (a *Archiver) GetBlock(num uint64) (*l2.Block, error) {
	return a.store.GetBlock(num)
}

// GetBlocks returns up to limit consecutive archived blocks starting at from.
func (a *Archiver) GetBlocks(from uint64, limit int) ([]*l2.Block, error) {
	return a.store.GetBlocks(from, limit)
}

// GetUnverifiedData returns ErrNotFound if no unverified data is archived for the block.
func (a *Archiver) GetUnverifiedData(num uint64) (*l2.UnverifiedData, error) {
	return a.store.GetUnverifiedData(num)
}

func (a *Archiver) SyncStatus() SyncStatus {
	return SyncStatus{
		L1Head:         a.sync.l1Head.Load(),
		Blocks:         a.sync.blocks.status(),
		UnverifiedData: a.sync.unverifiedData.status(),
	}
}
