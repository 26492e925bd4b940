package l2

import (
	"github.com/ethereum/go-ethereum/common"
)

// AppendOnlyTreeSnapshot is the root of an append-only merkle tree together with the
// index of the next leaf that will be inserted.
type AppendOnlyTreeSnapshot struct {
	Root                   common.Hash
	NextAvailableLeafIndex uint32
}

// PublicDataWrite is a single update of the public data tree.
type PublicDataWrite struct {
	LeafIndex common.Hash
	NewValue  common.Hash
}

// ContractData links a deployed L2 contract to its L1 portal.
type ContractData struct {
	ContractAddress       common.Hash
	PortalContractAddress common.Address
}

// Block is an L2 block as committed to the rollup contract.
// Blocks are treated as immutable once decoded.
type Block struct {
	Number uint32

	StartPrivateDataTreeSnapshot AppendOnlyTreeSnapshot
	StartNullifierTreeSnapshot   AppendOnlyTreeSnapshot
	StartContractTreeSnapshot    AppendOnlyTreeSnapshot
	StartPublicDataTreeRoot      common.Hash

	EndPrivateDataTreeSnapshot AppendOnlyTreeSnapshot
	EndNullifierTreeSnapshot   AppendOnlyTreeSnapshot
	EndContractTreeSnapshot    AppendOnlyTreeSnapshot
	EndPublicDataTreeRoot      common.Hash

	NewCommitments      []common.Hash
	NewNullifiers       []common.Hash
	NewPublicDataWrites []PublicDataWrite
	NewL2ToL1Msgs       []common.Hash
	NewContracts        []common.Hash
	NewContractData     []ContractData
}

// BlockNumber returns the block number widened to the width used by the store and the events.
func (b *Block) BlockNumber() uint64 {
	return uint64(b.Number)
}

// UnverifiedData is the auxiliary payload published for an L2 block, split into its preimages.
type UnverifiedData struct {
	BlockNumber   uint64
	Sender        common.Address
	L1BlockNumber uint64
	Preimages     [][]byte
}
