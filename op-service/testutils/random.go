package testutils

import (
	"math/rand"

	"github.com/ethereum/go-ethereum/common"
)

func RandomBool(rng *rand.Rand) bool {
	return rng.Intn(2) == 1
}

func RandomHash(rng *rand.Rand) (out common.Hash) {
	rng.Read(out[:])
	return
}

func RandomAddress(rng *rand.Rand) (out common.Address) {
	rng.Read(out[:])
	return
}

func RandomData(rng *rand.Rand, size int) []byte {
	out := make([]byte, size)
	rng.Read(out)
	return out
}

func RandomHashes(rng *rand.Rand, n int) []common.Hash {
	out := make([]common.Hash, n)
	for i := range out {
		out[i] = RandomHash(rng)
	}
	return out
}
