package solver

import "math/rand/v2"

// defaultSeed replaces a zero seed so the zero Options stay reproducible.
const defaultSeed uint64 = 1

// NewRand returns a PCG generator. A *rand.Rand is not safe for concurrent
// use; every restart gets its own.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = defaultSeed
	}
	return rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb))
}

// DeriveSeed mixes a parent seed with a stream number (SplitMix64
// finaliser), giving each restart an independent stream.
func DeriveSeed(parent, stream uint64) uint64 {
	x := parent ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
