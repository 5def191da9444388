package srs

import (
	"sort"
	"time"
)

// Candidate is one pool entry the scheduler can rank: a question id plus its
// scheduling state, or a never-attempted question with no record yet.
type Candidate struct {
	QuestionID     string
	Topic          string
	NeverAttempted bool
	PriorityScore  float64
	NextReviewAt   time.Time
	IncorrectStrk  int
}

// Scheduler is a pure read-then-rank operation over a snapshot of the pool.
// It holds no state and gives no consistency guarantee across calls.
type Scheduler struct {
	cfg Config
}

func NewScheduler(cfg Config) *Scheduler {
	return &Scheduler{cfg: cfg}
}

// SelectDue filters the pool to due questions (nextReviewAt <= now, or never
// attempted) and returns at most limit question ids ranked by urgency.
// Never-attempted questions are maximally due: they outrank every scored
// record regardless of how overdue it is. Within a tier the order is
// priority score descending, then next review date ascending, then pool
// order for full determinism. An empty result is a normal outcome.
func (s *Scheduler) SelectDue(pool []Candidate, topic string, limit int, now time.Time) []string {
	if limit <= 0 {
		limit = s.cfg.BatchSize
	}

	type ranked struct {
		Candidate
		pos int
	}

	due := make([]ranked, 0, len(pool))
	for i, c := range pool {
		if topic != "" && c.Topic != topic {
			continue
		}
		if !s.isDue(c, now) {
			continue
		}
		due = append(due, ranked{Candidate: c, pos: i})
	}

	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if a.NeverAttempted != b.NeverAttempted {
			return a.NeverAttempted
		}
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if !a.NextReviewAt.Equal(b.NextReviewAt) {
			return a.NextReviewAt.Before(b.NextReviewAt)
		}
		return a.pos < b.pos
	})

	if len(due) > limit {
		due = due[:limit]
	}
	ids := make([]string, len(due))
	for i, c := range due {
		ids[i] = c.QuestionID
	}
	return ids
}

func (s *Scheduler) isDue(c Candidate, now time.Time) bool {
	if c.NeverAttempted {
		return true
	}
	return !c.NextReviewAt.After(now)
}
