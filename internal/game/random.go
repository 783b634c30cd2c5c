package game

import (
	"hash/fnv"
	"math/rand"
)

// DeterministicSeedValue derives a stable int64 seed from a root seed and a
// subsystem label, so separate subsystems draw from independent streams that
// replay identically for the same root seed.
func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

// NewDeterministicRNG builds a rand.Rand seeded from the root seed and label.
func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(DeterministicSeedValue(rootSeed, label)))
}

// subsystemRNG returns the world-scoped stream for the given label.
func (w *World) subsystemRNG(label string) *rand.Rand {
	return NewDeterministicRNG(w.config.Seed, label)
}
