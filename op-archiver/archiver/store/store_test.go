package store

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/mantlenetworkio/op-archiver/op-archiver/l2"
	"github.com/mantlenetworkio/op-archiver/op-service/testlog"
)

func newPebbleStore(t *testing.T, fs vfs.FS) *PebbleStore {
	s, err := OpenPebbleStore(testlog.Logger(t, log.LevelInfo), "archive", &pebble.Options{FS: fs})
	require.NoError(t, err)
	return s
}

func TestStores(t *testing.T) {
	impls := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"pebble": func(t *testing.T) Store { return newPebbleStore(t, vfs.NewMem()) },
	}
	for name, mk := range impls {
		t.Run(name, func(t *testing.T) {
			t.Run("Empty", func(t *testing.T) { testEmpty(t, mk(t)) })
			t.Run("AppendContiguous", func(t *testing.T) { testAppendContiguous(t, mk(t)) })
			t.Run("SequenceGap", func(t *testing.T) { testSequenceGap(t, mk(t)) })
			t.Run("GetBlocks", func(t *testing.T) { testGetBlocks(t, mk(t)) })
			t.Run("UnverifiedData", func(t *testing.T) { testUnverifiedData(t, mk(t)) })
			t.Run("Cursors", func(t *testing.T) { testCursors(t, mk(t)) })
			t.Run("ConcurrentReads", func(t *testing.T) { testConcurrentReads(t, mk(t)) })
			t.Run("Closed", func(t *testing.T) { testClosed(t, mk(t)) })
		})
	}
}

func appendBlocks(t *testing.T, s Store, rng *rand.Rand, from, to uint32) []*l2.Block {
	var out []*l2.Block
	for n := from; n <= to; n++ {
		b := l2.RandomBlock(rng, n)
		require.NoError(t, s.AppendBlock(b))
		out = append(out, b)
	}
	return out
}

func testEmpty(t *testing.T, s Store) {
	defer s.Close()
	require.Zero(t, s.BlockHeight())
	require.Zero(t, s.LatestUnverifiedDataBlockNum())
	_, err := s.GetBlock(1)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetUnverifiedData(1)
	require.ErrorIs(t, err, ErrNotFound)
	blocks, err := s.GetBlocks(1, 10)
	require.NoError(t, err)
	require.Empty(t, blocks)
}

func testAppendContiguous(t *testing.T, s Store) {
	defer s.Close()
	rng := rand.New(rand.NewSource(1))
	blocks := appendBlocks(t, s, rng, 1, 3)
	require.EqualValues(t, 3, s.BlockHeight())
	for _, b := range blocks {
		got, err := s.GetBlock(b.BlockNumber())
		require.NoError(t, err)
		require.Equal(t, b, got)
	}
	_, err := s.GetBlock(0)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetBlock(4)
	require.ErrorIs(t, err, ErrNotFound)
}

func testSequenceGap(t *testing.T, s Store) {
	defer s.Close()
	rng := rand.New(rand.NewSource(2))
	appendBlocks(t, s, rng, 1, 2)

	err := s.AppendBlock(l2.RandomBlock(rng, 4))
	var gapErr *SequenceGapError
	require.ErrorAs(t, err, &gapErr)
	require.EqualValues(t, 3, gapErr.Expected)
	require.EqualValues(t, 4, gapErr.Got)

	// duplicates are rejected the same way
	require.ErrorAs(t, s.AppendBlock(l2.RandomBlock(rng, 2)), &gapErr)
	require.EqualValues(t, 2, s.BlockHeight())

	require.Error(t, s.AppendBlock(nil))
}

func testGetBlocks(t *testing.T, s Store) {
	defer s.Close()
	rng := rand.New(rand.NewSource(3))
	blocks := appendBlocks(t, s, rng, 1, 5)

	got, err := s.GetBlocks(2, 2)
	require.NoError(t, err)
	require.Equal(t, blocks[1:3], got)

	got, err = s.GetBlocks(4, 100)
	require.NoError(t, err)
	require.Equal(t, blocks[3:], got)

	got, err = s.GetBlocks(6, 1)
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = s.GetBlocks(1, 0)
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = s.GetBlocks(0, 1)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func testUnverifiedData(t *testing.T, s Store) {
	defer s.Close()
	sender := common.HexToAddress("0x1111")
	first := &l2.UnverifiedData{BlockNumber: 7, Sender: sender, L1BlockNumber: 102, Preimages: [][]byte{{1, 2}, {3}}}
	require.NoError(t, s.PutUnverifiedData(first))
	require.EqualValues(t, 7, s.LatestUnverifiedDataBlockNum())
	require.Zero(t, s.BlockHeight(), "independent of block progress")

	lower := &l2.UnverifiedData{BlockNumber: 2, Sender: sender, L1BlockNumber: 103, Preimages: [][]byte{{}}}
	require.NoError(t, s.PutUnverifiedData(lower))
	require.EqualValues(t, 7, s.LatestUnverifiedDataBlockNum(), "watermark does not decrease")

	got, err := s.GetUnverifiedData(2)
	require.NoError(t, err)
	require.Equal(t, lower, got)

	replaced := &l2.UnverifiedData{BlockNumber: 7, Sender: common.HexToAddress("0x2222"), L1BlockNumber: 110, Preimages: [][]byte{{9}}}
	require.NoError(t, s.PutUnverifiedData(replaced))
	got, err = s.GetUnverifiedData(7)
	require.NoError(t, err)
	require.Equal(t, replaced, got)
}

func testCursors(t *testing.T, s Store) {
	defer s.Close()
	_, err := s.Cursor(L2BlockProcessedCursor)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetCursor(L2BlockProcessedCursor, 1001))
	require.NoError(t, s.SetCursor(UnverifiedDataCursor, 103))

	next, err := s.Cursor(L2BlockProcessedCursor)
	require.NoError(t, err)
	require.EqualValues(t, 1001, next)
	next, err = s.Cursor(UnverifiedDataCursor)
	require.NoError(t, err)
	require.EqualValues(t, 103, next)
}

func testConcurrentReads(t *testing.T, s Store) {
	defer s.Close()
	rng := rand.New(rand.NewSource(4))
	blocks := make([]*l2.Block, 50)
	for i := range blocks {
		blocks[i] = l2.RandomBlock(rng, uint32(i+1))
	}

	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for {
				select {
				case <-done:
					return
				default:
				}
				h := s.BlockHeight()
				if h < last {
					t.Errorf("height decreased from %d to %d", last, h)
					return
				}
				last = h
				if h > 0 {
					b, err := s.GetBlock(h)
					if err != nil || b.BlockNumber() != h {
						t.Errorf("inconsistent read of block %d: %v", h, err)
						return
					}
				}
			}
		}()
	}
	for _, b := range blocks {
		require.NoError(t, s.AppendBlock(b))
	}
	close(done)
	wg.Wait()
	require.EqualValues(t, 50, s.BlockHeight())
}

func testClosed(t *testing.T, s Store) {
	rng := rand.New(rand.NewSource(5))
	appendBlocks(t, s, rng, 1, 1)
	require.NoError(t, s.Close())
	require.EqualValues(t, 1, s.BlockHeight(), "watermarks survive close")
	require.ErrorIs(t, s.AppendBlock(l2.RandomBlock(rng, 2)), ErrClosed)
	require.ErrorIs(t, s.SetCursor(UnverifiedDataCursor, 1), ErrClosed)
	require.ErrorIs(t, s.PutUnverifiedData(&l2.UnverifiedData{BlockNumber: 1}), ErrClosed)
}

func TestPebbleStoreReopen(t *testing.T) {
	fs := vfs.NewMem()
	rng := rand.New(rand.NewSource(6))

	s := newPebbleStore(t, fs)
	blocks := appendBlocks(t, s, rng, 1, 3)
	ud := &l2.UnverifiedData{BlockNumber: 9, Sender: common.HexToAddress("0x3333"), L1BlockNumber: 1100, Preimages: [][]byte{{1}, {2, 3}}}
	require.NoError(t, s.PutUnverifiedData(ud))
	require.NoError(t, s.SetCursor(L2BlockProcessedCursor, 2501))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	s = newPebbleStore(t, fs)
	defer s.Close()
	require.EqualValues(t, 3, s.BlockHeight())
	require.EqualValues(t, 9, s.LatestUnverifiedDataBlockNum())
	got, err := s.GetBlocks(1, 3)
	require.NoError(t, err)
	require.Equal(t, blocks, got)
	gotUD, err := s.GetUnverifiedData(9)
	require.NoError(t, err)
	require.Equal(t, ud, gotUD)
	next, err := s.Cursor(L2BlockProcessedCursor)
	require.NoError(t, err)
	require.EqualValues(t, 2501, next)

	require.NoError(t, s.AppendBlock(l2.RandomBlock(rng, 4)))
	require.EqualValues(t, 4, s.BlockHeight())
}

func TestCursorIDString(t *testing.T) {
	require.Equal(t, "l2_block_processed", L2BlockProcessedCursor.String())
	require.Equal(t, "unverified_data", UnverifiedDataCursor.String())
}
