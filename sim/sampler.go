package sim

import "math"

// sample draws a nonnegative duration (ms) from dist using rng. It is a
// pure function of (dist, rng-state): calling it advances rng's stream by
// exactly one draw (Fixed excepted, which advances it by zero), so the
// same (dist, seed, call-order) always reproduces the same value (§4.1).
func sample(dist DurationDist, rng runRNG) float64 {
	switch dist.Kind {
	case DistFixed:
		return dist.Value

	case DistNormal:
		v := dist.Mean + dist.Std*rng.normFloat64()
		if v < 0 {
			v = 0
		}
		if dist.HasMin && v < dist.Min {
			v = dist.Min
		}
		return v

	case DistLognormal:
		v := math.Exp(dist.Mu + dist.Sigma*rng.normFloat64())
		return v

	default:
		// Unreachable for a Model built via NewModel/NewFixed/NewNormal/
		// NewLognormal. An unknown Kind samples as 0; callers only reject
		// negative samples, so it is not reported as an error.
		return 0
	}
}
