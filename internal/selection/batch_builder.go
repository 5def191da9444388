// Package selection assembles review batches: a mix of questions that are
// due for review and questions the user has never seen, in a configurable
// ratio.
package selection

import (
	"context"
	"fmt"
	"math"
	"time"

	"quiz-engine/internal/models"
	"quiz-engine/internal/srs"
)

// DefaultNewRatio is the share of a batch reserved for never-attempted
// questions when the session settings do not say otherwise.
const DefaultNewRatio = 0.3

// QuestionSource provides the authored catalog, optionally narrowed by topic.
type QuestionSource interface {
	FindByTopic(ctx context.Context, topic string) ([]models.Question, error)
}

// PerformanceSource provides the user's scheduling state.
type PerformanceSource interface {
	FindByUser(ctx context.Context, userID, topic string) ([]models.PerformanceRecord, error)
}

// BatchResult is one assembled batch with its composition breakdown.
type BatchResult struct {
	QuestionIDs []string
	ReviewCount int
	NewCount    int
}

type BatchBuilder struct {
	questions QuestionSource
	records   PerformanceSource
	scheduler *srs.Scheduler
	clock     func() time.Time
}

func NewBatchBuilder(questions QuestionSource, records PerformanceSource, scheduler *srs.Scheduler) *BatchBuilder {
	return &BatchBuilder{
		questions: questions,
		records:   records,
		scheduler: scheduler,
		clock:     time.Now,
	}
}

// Build assembles a batch of up to size question ids for the user. newRatio
// is the target share of never-attempted questions; when either side of the
// split runs short the other side fills the gap, so a thin pool still yields
// the biggest batch it can.
func (b *BatchBuilder) Build(ctx context.Context, userID, topic string, size int, newRatio float64) (*BatchResult, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	if newRatio < 0 || newRatio > 1 {
		newRatio = DefaultNewRatio
	}

	catalog, err := b.questions.FindByTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("load question catalog: %w", err)
	}
	records, err := b.records.FindByUser(ctx, userID, topic)
	if err != nil {
		return nil, fmt.Errorf("load performance records: %w", err)
	}

	attempted := make(map[string]models.PerformanceRecord, len(records))
	for _, rec := range records {
		attempted[rec.QuestionID] = rec
	}

	var reviewPool []srs.Candidate
	var newPool []string
	for _, q := range catalog {
		rec, ok := attempted[q.ID]
		if !ok {
			newPool = append(newPool, q.ID)
			continue
		}
		reviewPool = append(reviewPool, srs.Candidate{
			QuestionID:    rec.QuestionID,
			Topic:         rec.Topic,
			PriorityScore: rec.PriorityScore,
			NextReviewAt:  rec.NextReviewAt,
			IncorrectStrk: rec.IncorrectStrk,
		})
	}

	newTarget := int(math.Round(float64(size) * newRatio))
	reviewTarget := size - newTarget

	due := b.scheduler.SelectDue(reviewPool, topic, len(reviewPool), b.clock())
	review := due
	if len(review) > reviewTarget {
		review = review[:reviewTarget]
	}
	fresh := newPool
	if len(fresh) > newTarget {
		fresh = fresh[:newTarget]
	}

	// Backfill whichever side came up short.
	if shortfall := reviewTarget - len(review); shortfall > 0 {
		extra := newPool[len(fresh):]
		if len(extra) > shortfall {
			extra = extra[:shortfall]
		}
		fresh = append(fresh, extra...)
	}
	if shortfall := newTarget - len(fresh); shortfall > 0 {
		extra := due[len(review):]
		if len(extra) > shortfall {
			extra = extra[:shortfall]
		}
		review = append(review, extra...)
	}

	ids := make([]string, 0, len(review)+len(fresh))
	ids = append(ids, review...)
	ids = append(ids, fresh...)
	return &BatchResult{
		QuestionIDs: ids,
		ReviewCount: len(review),
		NewCount:    len(fresh),
	}, nil
}
