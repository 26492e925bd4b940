package l2

import (
	"math/rand"

	"github.com/mantlenetworkio/op-archiver/op-service/testutils"
)

func randomSnapshot(rng *rand.Rand) AppendOnlyTreeSnapshot {
	return AppendOnlyTreeSnapshot{Root: testutils.RandomHash(rng), NextAvailableLeafIndex: rng.Uint32()}
}

// RandomBlock creates a block with the given number and random contents, for testing.
func RandomBlock(rng *rand.Rand, number uint32) *Block {
	b := &Block{
		Number:                       number,
		StartPrivateDataTreeSnapshot: randomSnapshot(rng),
		StartNullifierTreeSnapshot:   randomSnapshot(rng),
		StartContractTreeSnapshot:    randomSnapshot(rng),
		StartPublicDataTreeRoot:      testutils.RandomHash(rng),
		EndPrivateDataTreeSnapshot:   randomSnapshot(rng),
		EndNullifierTreeSnapshot:     randomSnapshot(rng),
		EndContractTreeSnapshot:      randomSnapshot(rng),
		EndPublicDataTreeRoot:        testutils.RandomHash(rng),
		NewCommitments:               testutils.RandomHashes(rng, 4),
		NewNullifiers:                testutils.RandomHashes(rng, 4),
		NewL2ToL1Msgs:                testutils.RandomHashes(rng, 2),
		NewContracts:                 testutils.RandomHashes(rng, 1),
	}
	for i := 0; i < 2; i++ {
		b.NewPublicDataWrites = append(b.NewPublicDataWrites, PublicDataWrite{
			LeafIndex: testutils.RandomHash(rng),
			NewValue:  testutils.RandomHash(rng),
		})
	}
	b.NewContractData = []ContractData{{
		ContractAddress:       testutils.RandomHash(rng),
		PortalContractAddress: testutils.RandomAddress(rng),
	}}
	return b
}
