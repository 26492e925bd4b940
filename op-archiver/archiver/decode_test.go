package archiver

import (
	"io"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/mantlenetworkio/op-archiver/op-archiver/bindings"
	"github.com/mantlenetworkio/op-archiver/op-archiver/l2"
	"github.com/mantlenetworkio/op-archiver/op-service/testutils"
)

func makeTx(nonce uint64, data []byte) *types.Transaction {
	rollup := common.HexToAddress("0x9ac6f7e5a8d2b6a0a7b5b0d9c8e1e4f2b3c4d5e6")
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &rollup,
		Gas:      1_000_000,
		GasPrice: big.NewInt(1),
		Data:     data,
	})
}

func makeRollupTx(t *testing.T, block *l2.Block) *types.Transaction {
	calldata, err := bindings.PackProcess([]byte{}, block.Encode())
	require.NoError(t, err)
	return makeTx(uint64(block.Number), calldata)
}

func TestDecodeBlockFromTransaction(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	block := l2.RandomBlock(rng, 3)
	got, err := DecodeBlockFromTransaction(makeRollupTx(t, block))
	require.NoError(t, err)
	require.Equal(t, block, got)
}

func TestDecodeBlockFromTransactionErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	t.Run("selector mismatch", func(t *testing.T) {
		_, err := DecodeBlockFromTransaction(makeTx(0, []byte{0xde, 0xad, 0xbe, 0xef, 0x00}))
		require.True(t, IsDecodeError(err))
		require.ErrorContains(t, err, "not a process call")
	})
	t.Run("short calldata", func(t *testing.T) {
		_, err := DecodeBlockFromTransaction(makeTx(0, []byte{0x01}))
		require.True(t, IsDecodeError(err))
	})
	t.Run("malformed abi", func(t *testing.T) {
		calldata, err := bindings.PackProcess([]byte{}, []byte{1})
		require.NoError(t, err)
		_, err = DecodeBlockFromTransaction(makeTx(0, calldata[:len(calldata)-40]))
		require.True(t, IsDecodeError(err))
	})
	t.Run("malformed block", func(t *testing.T) {
		enc := l2.RandomBlock(rng, 1).Encode()
		calldata, err := bindings.PackProcess([]byte{}, enc[:len(enc)-1])
		require.NoError(t, err)
		_, err = DecodeBlockFromTransaction(makeTx(0, calldata))
		require.True(t, IsDecodeError(err))
		require.ErrorIs(t, err, l2.ErrTruncated)
	})
}

func TestDecodeUnverifiedData(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var preimages [][]byte
	for i := 0; i < 16; i++ {
		preimages = append(preimages, testutils.RandomData(rng, 144))
	}
	blob := EncodeUnverifiedData(preimages)
	require.Len(t, blob, 16*(4+144))

	got, err := DecodeUnverifiedData(blob)
	require.NoError(t, err)
	require.Equal(t, preimages, got)

	got, err = DecodeUnverifiedData(nil)
	require.NoError(t, err)
	require.Empty(t, got)

	zero, err := DecodeUnverifiedData([]byte{0, 0, 0, 0})
	require.NoError(t, err)
	require.Equal(t, [][]byte{{}}, zero)
}

func TestDecodeUnverifiedDataTruncated(t *testing.T) {
	blob := EncodeUnverifiedData([][]byte{{1, 2, 3}, {4, 5, 6}})

	_, err := DecodeUnverifiedData(blob[:len(blob)-1])
	require.True(t, IsDecodeError(err))
	require.ErrorContains(t, err, "exceeds blob")

	_, err = DecodeUnverifiedData(blob[:9])
	require.True(t, IsDecodeError(err))
	require.ErrorContains(t, err, "shorter than a length prefix")

	_, err = DecodeUnverifiedData([]byte{0xff, 0xff, 0xff, 0xff})
	require.True(t, IsDecodeError(err))
}

func TestPreimageIterRestartable(t *testing.T) {
	blob := EncodeUnverifiedData([][]byte{{1}, {2, 2}})
	it := NewPreimageIter(blob)
	for round := 0; round < 2; round++ {
		p, err := it.Next()
		require.NoError(t, err)
		require.Equal(t, []byte{1}, p)
		p, err = it.Next()
		require.NoError(t, err)
		require.Equal(t, []byte{2, 2}, p)
		_, err = it.Next()
		require.Equal(t, io.EOF, err)
		it.Reset()
	}
}
