package services

import (
	"hash/fnv"
	"math/rand"
)

// Shuffle returns a new slice with the items permuted by a PRNG seeded with
// seed. The same seed always yields the same permutation, which is how every
// player sees a stable personal question order across page reloads. The input
// is never mutated.
func Shuffle[T any](items []T, seed int64) []T {
	out := make([]T, len(items))
	copy(out, items)

	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// ShuffleSeed derives a stable seed from a player token.
func ShuffleSeed(playerID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(playerID))
	return int64(h.Sum64())
}
