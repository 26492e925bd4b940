package archiver

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/mantlenetworkio/op-archiver/op-archiver/archiver/store"
	"github.com/mantlenetworkio/op-archiver/op-archiver/bindings"
)

// L1Client is the subset of the L1 RPC the archiver needs. *ethclient.Client implements it.
type L1Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
}

type SourceMetrics interface {
	RecordL1Request(method string) func(err error)
	RecordDecodeError(stream string)
}

// L2BlockProcessedEvent is a decoded Rollup L2BlockProcessed log.
type L2BlockProcessedEvent struct {
	L1Block    uint64
	L2BlockNum uint64
	TxHash     common.Hash
}

// UnverifiedDataEvent is a decoded UnverifiedDataEmitter UnverifiedData log.
type UnverifiedDataEvent struct {
	L1Block    uint64
	L2BlockNum uint64
	Sender     common.Address
	Data       []byte
}

type SourceConfig struct {
	RollupAddress                common.Address
	UnverifiedDataEmitterAddress common.Address

	// CallTimeout bounds each L1 request.
	CallTimeout time.Duration
	// RateLimit is the number of L1 requests per second, 0 disables the limit.
	RateLimit float64
	RateBurst int
	// TxCacheSize is the number of rollup transactions kept by hash.
	TxCacheSize int
}

// L1Source fetches and decodes the archiver events from an L1 node.
// Every client failure is returned as a *TransportError.
type L1Source struct {
	log     log.Logger
	client  L1Client
	metrics SourceMetrics
	cfg     SourceConfig

	limiter *rate.Limiter
	txCache *lru.Cache[common.Hash, *types.Transaction]
}

func NewL1Source(logger log.Logger, client L1Client, m SourceMetrics, cfg SourceConfig) (*L1Source, error) {
	if cfg.CallTimeout <= 0 {
		return nil, errors.New("call timeout must be positive")
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	size := cfg.TxCacheSize
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[common.Hash, *types.Transaction](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create tx cache: %w", err)
	}
	return &L1Source{
		log:     logger,
		client:  client,
		metrics: m,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		txCache: cache,
	}, nil
}

// request waits for the rate limiter and runs fn with a per-call timeout.
func (s *L1Source) request(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return &TransportError{Op: method, Err: err}
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	done := s.metrics.RecordL1Request(method)
	err := fn(cctx)
	done(err)
	if err != nil {
		return &TransportError{Op: method, Err: err}
	}
	return nil
}

func (s *L1Source) LatestL1BlockNumber(ctx context.Context) (uint64, error) {
	var num uint64
	err := s.request(ctx, "eth_blockNumber", func(ctx context.Context) (err error) {
		num, err = s.client.BlockNumber(ctx)
		return err
	})
	return num, err
}

// GetLogs returns the logs of one event of a contract in [from, to], ordered by
// L1 block, transaction index and log index. Removed logs are left out.
func (s *L1Source) GetLogs(ctx context.Context, contract common.Address, eventID common.Hash, from, to uint64) ([]types.Log, error) {
	if from > to {
		return nil, fmt.Errorf("invalid log range [%d, %d]", from, to)
	}
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{eventID}},
	}
	var logs []types.Log
	err := s.request(ctx, "eth_getLogs", func(ctx context.Context) (err error) {
		logs, err = s.client.FilterLogs(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	logs = slices.DeleteFunc(logs, func(l types.Log) bool { return l.Removed })
	slices.SortStableFunc(logs, func(a, b types.Log) int {
		if a.BlockNumber != b.BlockNumber {
			return cmp.Compare(a.BlockNumber, b.BlockNumber)
		}
		if a.TxIndex != b.TxIndex {
			return cmp.Compare(a.TxIndex, b.TxIndex)
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return logs, nil
}

func (s *L1Source) L2BlockProcessedEvents(ctx context.Context, from, to uint64) ([]L2BlockProcessedEvent, error) {
	logs, err := s.GetLogs(ctx, s.cfg.RollupAddress, bindings.L2BlockProcessedTopic, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]L2BlockProcessedEvent, 0, len(logs))
	for _, l := range logs {
		num, err := bindings.ParseL2BlockProcessed(l)
		if err == nil && !num.IsUint64() {
			err = fmt.Errorf("block number %v out of range", num)
		}
		if err != nil {
			s.dropLog(store.L2BlockProcessedCursor, l, err)
			continue
		}
		out = append(out, L2BlockProcessedEvent{
			L1Block:    l.BlockNumber,
			L2BlockNum: num.Uint64(),
			TxHash:     l.TxHash,
		})
	}
	return out, nil
}

func (s *L1Source) UnverifiedDataEvents(ctx context.Context, from, to uint64) ([]UnverifiedDataEvent, error) {
	logs, err := s.GetLogs(ctx, s.cfg.UnverifiedDataEmitterAddress, bindings.UnverifiedDataTopic, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]UnverifiedDataEvent, 0, len(logs))
	for _, l := range logs {
		num, sender, data, err := bindings.ParseUnverifiedData(l)
		if err == nil && !num.IsUint64() {
			err = fmt.Errorf("block number %v out of range", num)
		}
		if err != nil {
			s.dropLog(store.UnverifiedDataCursor, l, err)
			continue
		}
		out = append(out, UnverifiedDataEvent{
			L1Block:    l.BlockNumber,
			L2BlockNum: num.Uint64(),
			Sender:     sender,
			Data:       data,
		})
	}
	return out, nil
}

func (s *L1Source) dropLog(stream store.CursorID, l types.Log, err error) {
	s.log.Warn("Dropping malformed log", "stream", stream, "l1_block", l.BlockNumber, "tx", l.TxHash, "index", l.Index, "err", err)
	s.metrics.RecordDecodeError(stream.String())
}

// GetTransaction fetches a mined transaction by hash. Results are cached.
func (s *L1Source) GetTransaction(ctx context.Context, hash common.Hash) (*types.Transaction, error) {
	if tx, ok := s.txCache.Get(hash); ok {
		return tx, nil
	}
	var tx *types.Transaction
	err := s.request(ctx, "eth_getTransactionByHash", func(ctx context.Context) error {
		t, pending, err := s.client.TransactionByHash(ctx, hash)
		if err != nil {
			return err
		}
		if pending {
			return fmt.Errorf("transaction %s is still pending", hash)
		}
		tx = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.txCache.Add(hash, tx)
	return tx, nil
}
