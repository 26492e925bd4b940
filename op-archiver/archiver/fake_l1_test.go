package archiver

import (
	"context"
	"math/big"
	"slices"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/mantlenetworkio/op-archiver/op-archiver/bindings"
	"github.com/mantlenetworkio/op-archiver/op-archiver/l2"
)

var (
	rollupAddr  = common.HexToAddress("0x9ac6f7e5a8d2b6a0a7b5b0d9c8e1e4f2b3c4d5e6")
	emitterAddr = common.HexToAddress("0x1f2e3d4c5b6a79880706f5e4d3c2b1a098765432")
	senderAddr  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

type logRange struct {
	Contract common.Address
	From, To uint64
}

// fakeL1 serves a scripted chain of logs and transactions.
type fakeL1 struct {
	mu sync.Mutex

	head uint64
	logs []types.Log
	txs  map[common.Hash]*types.Transaction

	headErr error
	logsErr map[common.Address]error

	// txFetched, if set, is signalled on every transaction fetch, which then waits for txGate.
	txFetched chan common.Hash
	txGate    chan struct{}

	calls     []string
	logRanges []logRange
	nonce     uint64
}

func newFakeL1(head uint64) *fakeL1 {
	return &fakeL1{
		head:    head,
		txs:     make(map[common.Hash]*types.Transaction),
		logsErr: make(map[common.Address]error),
	}
}

func (f *fakeL1) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "eth_blockNumber")
	if f.headErr != nil {
		return 0, f.headErr
	}
	return f.head, nil
}

func (f *fakeL1) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "eth_getLogs")
	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	f.logRanges = append(f.logRanges, logRange{Contract: q.Addresses[0], From: from, To: to})
	if err := f.logsErr[q.Addresses[0]]; err != nil {
		return nil, err
	}
	var out []types.Log
	for _, l := range f.logs {
		if l.BlockNumber < from || l.BlockNumber > to {
			continue
		}
		if !slices.Contains(q.Addresses, l.Address) {
			continue
		}
		if len(l.Topics) == 0 || !slices.Contains(q.Topics[0], l.Topics[0]) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeL1) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "eth_getTransactionByHash")
	tx, ok := f.txs[hash]
	fetched, gate := f.txFetched, f.txGate
	f.mu.Unlock()
	if fetched != nil {
		fetched <- hash
		<-gate
	}
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, false, nil
}

func (f *fakeL1) setHead(head uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = head
}

func (f *fakeL1) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeL1) countCalls(method string) (n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeL1) rangesOf(contract common.Address) (out []logRange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.logRanges {
		if r.Contract == contract {
			out = append(out, r)
		}
	}
	return out
}

// addRollupTx adds a transaction with the given calldata, and the L2BlockProcessed log it emitted.
func (f *fakeL1) addRollupTx(l1Block uint64, l2BlockNum uint64, calldata []byte) common.Hash {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonce++
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    f.nonce,
		To:       &rollupAddr,
		Gas:      1_000_000,
		GasPrice: big.NewInt(1),
		Data:     calldata,
	})
	f.txs[tx.Hash()] = tx
	lg := bindings.L2BlockProcessedLog(rollupAddr, l2BlockNum)
	lg.BlockNumber = l1Block
	lg.TxHash = tx.Hash()
	lg.Index = uint(len(f.logs))
	f.logs = append(f.logs, lg)
	return tx.Hash()
}

func (f *fakeL1) addBlock(t *testing.T, l1Block uint64, block *l2.Block) common.Hash {
	calldata, err := bindings.PackProcess([]byte{}, block.Encode())
	require.NoError(t, err)
	return f.addRollupTx(l1Block, block.BlockNumber(), calldata)
}

func (f *fakeL1) addUnverifiedData(t *testing.T, l1Block uint64, l2BlockNum uint64, blob []byte) {
	lg, err := bindings.UnverifiedDataLog(emitterAddr, l2BlockNum, senderAddr, blob)
	require.NoError(t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	lg.BlockNumber = l1Block
	lg.Index = uint(len(f.logs))
	f.logs = append(f.logs, lg)
}
