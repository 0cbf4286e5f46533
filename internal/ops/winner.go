package ops

import (
	"math/rand/v2"

	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/follower"
)

// SelectWinner draws one candidate uniformly at random. rng may be nil,
// in which case the runtime's shared generator is used; pass a seeded
// generator for reproducible draws.
func SelectWinner(candidates []follower.Record, rng *rand.Rand) (follower.Record, error) {
	if len(candidates) == 0 {
		return follower.Record{}, errors.NewEmptyCandidateSet("there are no candidates to pick from", "")
	}
	var i int
	if rng != nil {
		i = rng.IntN(len(candidates))
	} else {
		i = rand.IntN(len(candidates))
	}
	return candidates[i], nil
}

// NewSeededRand returns a deterministic generator for the given seed.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
