package archiver

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mantlenetworkio/op-archiver/op-archiver/bindings"
	"github.com/mantlenetworkio/op-archiver/op-archiver/l2"
)

const preimageLengthSize = 4

// DecodeBlockFromTransaction recovers the L2 block submitted by a Rollup process(bytes,bytes) call.
func DecodeBlockFromTransaction(tx *types.Transaction) (*l2.Block, error) {
	data := tx.Data()
	if len(data) < 4 || !bytes.Equal(data[:4], bindings.ProcessSelector) {
		return nil, &DecodeError{What: "rollup calldata", Err: fmt.Errorf("tx %s is not a process call", tx.Hash())}
	}
	_, encoded, err := bindings.UnpackProcess(data)
	if err != nil {
		return nil, &DecodeError{What: "rollup calldata", Err: err}
	}
	block, err := l2.DecodeBlock(encoded)
	if err != nil {
		return nil, &DecodeError{What: "l2 block", Err: err}
	}
	return block, nil
}

// PreimageIter lazily walks the length-prefixed preimages of an unverified-data blob.
type PreimageIter struct {
	blob []byte
	off  int
}

func NewPreimageIter(blob []byte) *PreimageIter {
	return &PreimageIter{blob: blob}
}

// Next returns the next preimage, or io.EOF once the blob is exhausted.
// The returned slice aliases the blob.
func (it *PreimageIter) Next() ([]byte, error) {
	rem := len(it.blob) - it.off
	if rem == 0 {
		return nil, io.EOF
	}
	if rem < preimageLengthSize {
		return nil, &DecodeError{What: "unverified data", Err: fmt.Errorf("%d trailing bytes at offset %d, shorter than a length prefix", rem, it.off)}
	}
	size := binary.BigEndian.Uint32(it.blob[it.off:])
	start := it.off + preimageLengthSize
	if uint64(size) > uint64(len(it.blob)-start) {
		return nil, &DecodeError{What: "unverified data", Err: fmt.Errorf("preimage of %d bytes at offset %d exceeds blob of %d bytes", size, it.off, len(it.blob))}
	}
	it.off = start + int(size)
	return it.blob[start:it.off], nil
}

// Reset restarts the iteration from the first preimage.
func (it *PreimageIter) Reset() {
	it.off = 0
}

// DecodeUnverifiedData splits an unverified-data blob into its preimages.
func DecodeUnverifiedData(blob []byte) ([][]byte, error) {
	it := NewPreimageIter(blob)
	var out [][]byte
	for {
		p, err := it.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, bytes.Clone(p))
	}
}

// EncodeUnverifiedData is the inverse of DecodeUnverifiedData.
func EncodeUnverifiedData(preimages [][]byte) []byte {
	var out []byte
	for _, p := range preimages {
		out = binary.BigEndian.AppendUint32(out, uint32(len(p)))
		out = append(out, p...)
	}
	return out
}
