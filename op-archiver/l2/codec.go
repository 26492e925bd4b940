package l2

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const (
	snapshotSize     = common.HashLength + 4
	writeSize        = 2 * common.HashLength
	contractDataSize = common.HashLength + common.AddressLength
)

var (
	ErrTruncated     = errors.New("truncated block encoding")
	ErrTrailingBytes = errors.New("trailing bytes after block encoding")
)

// Encode serializes the block. All integers are big-endian.
func (b *Block) Encode() []byte {
	out := make([]byte, 0, b.encodedSize())
	out = binary.BigEndian.AppendUint32(out, b.Number)

	out = appendSnapshot(out, b.StartPrivateDataTreeSnapshot)
	out = appendSnapshot(out, b.StartNullifierTreeSnapshot)
	out = appendSnapshot(out, b.StartContractTreeSnapshot)
	out = append(out, b.StartPublicDataTreeRoot[:]...)

	out = appendSnapshot(out, b.EndPrivateDataTreeSnapshot)
	out = appendSnapshot(out, b.EndNullifierTreeSnapshot)
	out = appendSnapshot(out, b.EndContractTreeSnapshot)
	out = append(out, b.EndPublicDataTreeRoot[:]...)

	out = appendHashes(out, b.NewCommitments)
	out = appendHashes(out, b.NewNullifiers)
	out = binary.BigEndian.AppendUint32(out, uint32(len(b.NewPublicDataWrites)))
	for _, w := range b.NewPublicDataWrites {
		out = append(out, w.LeafIndex[:]...)
		out = append(out, w.NewValue[:]...)
	}
	out = appendHashes(out, b.NewL2ToL1Msgs)
	out = appendHashes(out, b.NewContracts)
	out = binary.BigEndian.AppendUint32(out, uint32(len(b.NewContractData)))
	for _, c := range b.NewContractData {
		out = append(out, c.ContractAddress[:]...)
		out = append(out, c.PortalContractAddress[:]...)
	}
	return out
}

func (b *Block) encodedSize() int {
	return 4 + 6*snapshotSize + 2*common.HashLength + 6*4 +
		common.HashLength*(len(b.NewCommitments)+len(b.NewNullifiers)+len(b.NewL2ToL1Msgs)+len(b.NewContracts)) +
		writeSize*len(b.NewPublicDataWrites) +
		contractDataSize*len(b.NewContractData)
}

func appendSnapshot(out []byte, s AppendOnlyTreeSnapshot) []byte {
	out = append(out, s.Root[:]...)
	return binary.BigEndian.AppendUint32(out, s.NextAvailableLeafIndex)
}

func appendHashes(out []byte, hashes []common.Hash) []byte {
	out = binary.BigEndian.AppendUint32(out, uint32(len(hashes)))
	for _, h := range hashes {
		out = append(out, h[:]...)
	}
	return out
}

// DecodeBlock parses an encoded block. The input must be consumed exactly.
func DecodeBlock(data []byte) (*Block, error) {
	r := &reader{data: data}
	var b Block
	b.Number = r.uint32()

	b.StartPrivateDataTreeSnapshot = r.snapshot()
	b.StartNullifierTreeSnapshot = r.snapshot()
	b.StartContractTreeSnapshot = r.snapshot()
	b.StartPublicDataTreeRoot = r.hash()

	b.EndPrivateDataTreeSnapshot = r.snapshot()
	b.EndNullifierTreeSnapshot = r.snapshot()
	b.EndContractTreeSnapshot = r.snapshot()
	b.EndPublicDataTreeRoot = r.hash()

	b.NewCommitments = r.hashes()
	b.NewNullifiers = r.hashes()
	if n := r.count(writeSize); n > 0 {
		b.NewPublicDataWrites = make([]PublicDataWrite, n)
		for i := range b.NewPublicDataWrites {
			b.NewPublicDataWrites[i] = PublicDataWrite{LeafIndex: r.hash(), NewValue: r.hash()}
		}
	}
	b.NewL2ToL1Msgs = r.hashes()
	b.NewContracts = r.hashes()
	if n := r.count(contractDataSize); n > 0 {
		b.NewContractData = make([]ContractData, n)
		for i := range b.NewContractData {
			b.NewContractData[i] = ContractData{ContractAddress: r.hash(), PortalContractAddress: r.address()}
		}
	}

	if r.err != nil {
		return nil, r.err
	}
	if rem := len(data) - r.off; rem > 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingBytes, rem)
	}
	return &b, nil
}

// reader reads fixed width fields and latches the first error.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.data)-r.off < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, len(r.data)-r.off)
		return nil
	}
	out := r.data[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) uint32() uint32 {
	v := r.take(4)
	if v == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v)
}

func (r *reader) hash() (h common.Hash) {
	copy(h[:], r.take(common.HashLength))
	return
}

func (r *reader) address() (a common.Address) {
	copy(a[:], r.take(common.AddressLength))
	return
}

func (r *reader) snapshot() AppendOnlyTreeSnapshot {
	return AppendOnlyTreeSnapshot{Root: r.hash(), NextAvailableLeafIndex: r.uint32()}
}

// count reads a vector length, rejecting lengths that cannot fit in the remaining input.
func (r *reader) count(elemSize int) int {
	n := int(r.uint32())
	if r.err == nil && n > (len(r.data)-r.off)/elemSize {
		r.err = fmt.Errorf("%w: vector of %d elements of %d bytes at offset %d", ErrTruncated, n, elemSize, r.off)
		return 0
	}
	return n
}

func (r *reader) hashes() []common.Hash {
	n := r.count(common.HashLength)
	if n == 0 {
		return nil
	}
	out := make([]common.Hash, n)
	for i := range out {
		out[i] = r.hash()
	}
	return out
}
