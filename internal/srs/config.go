package srs

// Config tunes the SM-2 updater and the priority ranking. The exact quality
// derivation and the priority weights are configuration, not fixed law.
type Config struct {
	// InitialEase seeds a fresh record.
	InitialEase float64
	// MinEase is the hard floor for the easiness factor.
	MinEase float64
	// IncorrectPenalty is subtracted from the ease factor on a miss.
	IncorrectPenalty float64

	// DefaultQuality is used when no timing signal is available.
	DefaultQuality int
	// FastResponseMs and SlowResponseMs bound the timing-based quality
	// adjustment: faster than Fast bumps quality, slower than Slow drops it.
	FastResponseMs int64
	SlowResponseMs int64
	// StreakQualityBonus is the correct-streak length that earns +1 quality.
	StreakQualityBonus int

	// Priority weights: overdueDays*W1 + incorrectStreak*W2 - ease*W3.
	OverdueWeight   float64
	IncorrectWeight float64
	EaseWeight      float64

	// BatchSize caps a review batch when the caller passes no limit.
	BatchSize int
}

// DefaultConfig mirrors the canonical SM-2 constants.
func DefaultConfig() Config {
	return Config{
		InitialEase:        2.5,
		MinEase:            1.3,
		IncorrectPenalty:   0.2,
		DefaultQuality:     4,
		FastResponseMs:     5000,
		SlowResponseMs:     30000,
		StreakQualityBonus: 3,
		OverdueWeight:      1.0,
		IncorrectWeight:    2.0,
		EaseWeight:         0.5,
		BatchSize:          20,
	}
}
