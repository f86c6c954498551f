package sim

import (
	"hash/fnv"
	mrand "math/rand"
	mrand2 "math/rand/v2"
)

// SimulationKey uniquely identifies the master seed of a batch. Two batches
// with the same SimulationKey, same model, and same run count MUST produce
// bit-for-bit identical RunResults (§5 Ordering guarantee).
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a master seed.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// mixSeed derives the per-run seed from the batch's master seed and run
// index (§4.5: seed_i = mix(base_seed, i)). The mixer folds the run index
// through FNV-1a so nearby indices don't produce trivially-correlated
// seeds, then XORs it into the master seed — the same shape as the
// subsystem-isolation mixer this is grounded on.
func mixSeed(base SimulationKey, runIndex int) int64 {
	h := fnv.New64a()
	var buf [8]byte
	v := uint64(runIndex)
	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}
	h.Write(buf[:])
	return int64(base) ^ int64(h.Sum64())
}

// legacyRNG wraps math/rand (v1): the frozen oracle the v1 schema engine
// must reproduce byte-for-byte (§4.1, §9). Its NormFloat64/Float64 stream
// must never change shape, or golden snapshots break.
type legacyRNG struct {
	r *mrand.Rand
}

func newLegacyRNG(seed int64) *legacyRNG {
	return &legacyRNG{r: mrand.New(mrand.NewSource(seed))}
}

func (l *legacyRNG) normFloat64() float64 { return l.r.NormFloat64() }
func (l *legacyRNG) float64() float64     { return l.r.Float64() }

// extendedRNG wraps math/rand/v2's PCG, a splittable 64-bit generator
// (§4.1, §9 "e.g. a splittable 64-bit generator"). Seeded with the per-run
// seed as the state and mixSeed(seed, 1) as the stream selector, so every
// run gets an independent, portable stream with no cross-run state
// leakage (§5).
type extendedRNG struct {
	r *mrand2.Rand
}

func newExtendedRNG(seed int64) *extendedRNG {
	seq := mixSeed(SimulationKey(seed), 1) // stream selector, decorrelated from seed
	return &extendedRNG{r: mrand2.New(mrand2.NewPCG(uint64(seed), uint64(seq)))}
}

func (e *extendedRNG) normFloat64() float64 { return e.r.NormFloat64() }
func (e *extendedRNG) float64() float64     { return e.r.Float64() }

// runRNG is the minimal surface the sampler needs from either engine's RNG.
type runRNG interface {
	normFloat64() float64
	float64() float64
}
