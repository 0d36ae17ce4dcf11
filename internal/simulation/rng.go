package simulation

// Sampling uses explicit derived streams instead of a shared generator: the
// run seed and trial index fix a per-trial state, and every draw inside a
// trial is keyed by entity name. Consuming one draw never shifts another, so
// trials are reproducible under any scheduling order and adding or removing
// one risk leaves every other sample in the trial untouched.

const (
	splitmixGamma = 0x9E3779B97F4A7C15
	splitmixMul1  = 0xBF58476D1CE4E5B9
	splitmixMul2  = 0x94D049BB133111EB

	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// mix64 is the splitmix64 finalizer.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= splitmixMul1
	x ^= x >> 27
	x *= splitmixMul2
	x ^= x >> 31
	return x
}

// trialStream derives the base stream state for one trial of a run.
func trialStream(seed int64, trial int) uint64 {
	return mix64(uint64(seed) + splitmixGamma*uint64(trial+1))
}

// unitFor returns a uniform float64 in [0,1) for a named draw within a trial.
func unitFor(stream uint64, name string) float64 {
	v := mix64(stream ^ fnv64(name))
	return float64(v>>11) / (1 << 53)
}

func fnv64(s string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}
