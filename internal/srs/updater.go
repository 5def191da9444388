// Package srs implements the SM-2 derived mastery trajectory and the due
// question scheduler. Everything here is pure: the clock is always passed in.
package srs

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// Updater applies the spaced-repetition update rule to a performance record.
type Updater struct {
	cfg Config
}

func NewUpdater(cfg Config) *Updater {
	return &Updater{cfg: cfg}
}

// Record is the scheduling state the updater operates on. It deliberately
// carries no identity so the function stays a pure value transform.
type Record struct {
	EaseFactor     float64
	IntervalDays   int
	Repetitions    int
	CorrectStreak  int
	IncorrectStrk  int
	TotalAttempts  int
	CorrectCount   int
	AvgResponseMs  float64
	PriorityScore  float64
	LastReviewedAt time.Time
	NextReviewAt   time.Time
}

// NewRecord returns the fresh default a first response starts from.
func (u *Updater) NewRecord() Record {
	return Record{
		EaseFactor:   u.cfg.InitialEase,
		IntervalDays: 1,
	}
}

// Apply produces the updated record for one submission event. Identical
// inputs always yield identical outputs; now is the only time source.
func (u *Updater) Apply(rec Record, isCorrect bool, responseTimeMs int64, now time.Time) Record {
	prevNextReview := rec.NextReviewAt

	if isCorrect {
		rec.Repetitions++
		rec.CorrectStreak++
		rec.IncorrectStrk = 0

		quality := u.Quality(isCorrect, responseTimeMs, rec.CorrectStreak)
		rec.EaseFactor = clampEase(rec.EaseFactor+easeDelta(quality), u.cfg.MinEase)

		switch {
		case rec.Repetitions == 1:
			rec.IntervalDays = 1
		case rec.Repetitions == 2:
			rec.IntervalDays = 6
		default:
			rec.IntervalDays = int(math.Round(float64(rec.IntervalDays) * rec.EaseFactor))
		}
	} else {
		rec.Repetitions = 0
		rec.IncorrectStrk++
		rec.CorrectStreak = 0
		rec.IntervalDays = 1
		rec.EaseFactor = clampEase(rec.EaseFactor-u.cfg.IncorrectPenalty, u.cfg.MinEase)
	}

	rec.LastReviewedAt = now
	rec.NextReviewAt = now.Add(time.Duration(rec.IntervalDays) * day)

	overdue := overdueDays(prevNextReview, now)
	rec.PriorityScore = overdue*u.cfg.OverdueWeight +
		float64(rec.IncorrectStrk)*u.cfg.IncorrectWeight -
		rec.EaseFactor*u.cfg.EaseWeight

	rec.TotalAttempts++
	if isCorrect {
		rec.CorrectCount++
	}
	// Incremental mean keeps the rolling average exact without history.
	rec.AvgResponseMs += (float64(responseTimeMs) - rec.AvgResponseMs) / float64(rec.TotalAttempts)

	return rec
}

// Quality derives the 0-5 SM-2 quality proxy from correctness, response
// speed and streak length. Without a timing signal it is the configured
// default for correct answers and 2 for misses.
func (u *Updater) Quality(isCorrect bool, responseTimeMs int64, correctStreak int) int {
	if !isCorrect {
		return 2
	}
	q := u.cfg.DefaultQuality
	if responseTimeMs > 0 {
		if responseTimeMs <= u.cfg.FastResponseMs {
			q++
		} else if responseTimeMs >= u.cfg.SlowResponseMs {
			q--
		}
	}
	if correctStreak >= u.cfg.StreakQualityBonus {
		q++
	}
	if q > 5 {
		q = 5
	}
	if q < 3 {
		q = 3
	}
	return q
}

// easeDelta is the SM-2 ease adjustment for a given quality.
func easeDelta(quality int) float64 {
	diff := float64(5 - quality)
	return 0.1 - diff*(0.08+diff*0.02)
}

func clampEase(ease, floor float64) float64 {
	if ease < floor {
		return floor
	}
	return ease
}

func overdueDays(nextReview, now time.Time) float64 {
	if nextReview.IsZero() || !now.After(nextReview) {
		return 0
	}
	return now.Sub(nextReview).Hours() / 24
}
