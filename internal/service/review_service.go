package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"quiz-engine/internal/adaptive"
	"quiz-engine/internal/apperr"
	"quiz-engine/internal/event"
	"quiz-engine/internal/models"
	"quiz-engine/internal/selection"
	"quiz-engine/internal/srs"
)

// ReviewStats summarises a user's review workload and mastery.
type ReviewStats struct {
	TotalTracked int     `json:"total_tracked"`
	DueNow       int     `json:"due_now"`
	DueToday     int     `json:"due_today"`
	DueThisWeek  int     `json:"due_this_week"`
	AvgEase      float64 `json:"avg_ease_factor"`
	Accuracy     float64 `json:"accuracy"`
	Mastered     int     `json:"mastered"`
	Struggling   int     `json:"struggling"`
}

// Mastery thresholds: an interval of three weeks means the question has
// survived several successful reviews; two misses in a row flags trouble.
const (
	masteredIntervalDays = 21
	strugglingStreak     = 2
)

// ReviewRecordSource is the record access the review queries need: the due
// slice for queue assembly, the full set for stats.
type ReviewRecordSource interface {
	FindByUser(ctx context.Context, userID, topic string) ([]models.PerformanceRecord, error)
	FindDue(ctx context.Context, userID, topic string, before time.Time, limit int64) ([]models.PerformanceRecord, error)
}

// ReviewService answers "what should this user study now": the ranked due
// queue, workload statistics, and assembled review sessions.
type ReviewService struct {
	records   ReviewRecordSource
	questions QuestionSource
	scheduler *srs.Scheduler
	builder   *selection.BatchBuilder
	sessions  *adaptive.Manager
	events    EventSink
	log       *zap.Logger
	clock     func() time.Time
}

func NewReviewService(
	records ReviewRecordSource,
	questions QuestionSource,
	scheduler *srs.Scheduler,
	builder *selection.BatchBuilder,
	sessions *adaptive.Manager,
	events EventSink,
	log *zap.Logger,
) *ReviewService {
	return &ReviewService{
		records:   records,
		questions: questions,
		scheduler: scheduler,
		builder:   builder,
		sessions:  sessions,
		events:    events,
		log:       log,
		clock:     time.Now,
	}
}

// DueQuestions returns the user's ranked due queue, hydrated with redacted
// question content so answer keys never leave the service. The store filters
// to due records, so the queue never loads the user's full history.
func (s *ReviewService) DueQuestions(ctx context.Context, userID, topic string, limit int) ([]models.ReviewQuestion, error) {
	if userID == "" {
		return nil, apperr.Validation("user id is required")
	}
	now := s.clock()
	records, err := s.records.FindDue(ctx, userID, topic, now, 0)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "load due records")
	}

	byQuestion := make(map[string]models.PerformanceRecord, len(records))
	pool := make([]srs.Candidate, 0, len(records))
	for _, rec := range records {
		byQuestion[rec.QuestionID] = rec
		pool = append(pool, srs.Candidate{
			QuestionID:    rec.QuestionID,
			Topic:         rec.Topic,
			PriorityScore: rec.PriorityScore,
			NextReviewAt:  rec.NextReviewAt,
			IncorrectStrk: rec.IncorrectStrk,
		})
	}

	ids := s.scheduler.SelectDue(pool, topic, limit, now)
	if len(ids) == 0 {
		return nil, nil
	}
	questions, err := s.questions.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "hydrate due questions")
	}

	hydrated := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		hydrated[q.ID] = q
	}
	out := make([]models.ReviewQuestion, 0, len(ids))
	for _, id := range ids {
		q, ok := hydrated[id]
		if !ok {
			// Catalog drifted since the record was written; skip, don't fail.
			s.log.Warn("due question missing from catalog", zap.String("question_id", id))
			continue
		}
		rec := byQuestion[id]
		out = append(out, models.ReviewQuestion{
			Question:      q.Redacted(),
			EaseFactor:    rec.EaseFactor,
			IntervalDays:  rec.IntervalDays,
			Repetitions:   rec.Repetitions,
			PriorityScore: rec.PriorityScore,
			NextReviewAt:  rec.NextReviewAt,
		})
	}
	return out, nil
}

// Stats aggregates the user's review workload in one pass over the records.
func (s *ReviewService) Stats(ctx context.Context, userID, topic string) (*ReviewStats, error) {
	if userID == "" {
		return nil, apperr.Validation("user id is required")
	}
	records, err := s.records.FindByUser(ctx, userID, topic)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "load performance records")
	}

	now := s.clock()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
	endOfWeek := now.Add(7 * 24 * time.Hour)

	stats := &ReviewStats{TotalTracked: len(records)}
	var easeSum float64
	var attempts, correct int
	for _, rec := range records {
		easeSum += rec.EaseFactor
		attempts += rec.TotalAttempts
		correct += rec.CorrectCount

		if !rec.NextReviewAt.After(now) {
			stats.DueNow++
		}
		if !rec.NextReviewAt.After(endOfDay) {
			stats.DueToday++
		}
		if !rec.NextReviewAt.After(endOfWeek) {
			stats.DueThisWeek++
		}
		if rec.IntervalDays >= masteredIntervalDays {
			stats.Mastered++
		}
		if rec.IncorrectStrk >= strugglingStreak {
			stats.Struggling++
		}
	}
	if len(records) > 0 {
		stats.AvgEase = easeSum / float64(len(records))
	}
	if attempts > 0 {
		stats.Accuracy = float64(correct) / float64(attempts)
	}
	return stats, nil
}

// CreateSession assembles a review batch and freezes it as an adaptive
// session. The new-question share comes from the settings map when present.
func (s *ReviewService) CreateSession(ctx context.Context, userID, topic string, size int, settings map[string]any) (*models.AdaptiveSession, error) {
	if size <= 0 || size > adaptive.MaxSessionQuestions {
		return nil, apperr.Validation("session size must be between 1 and %d, got %d",
			adaptive.MaxSessionQuestions, size)
	}

	newRatio := selection.DefaultNewRatio
	if v, ok := settings["new_ratio"].(float64); ok {
		newRatio = v
	}
	batch, err := s.builder.Build(ctx, userID, topic, size, newRatio)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "assemble review batch")
	}
	if len(batch.QuestionIDs) == 0 {
		return nil, apperr.NotFound("no questions available for topic %q", topic)
	}

	session, err := s.sessions.Create(ctx, userID, topic, batch.QuestionIDs, settings)
	if err != nil {
		return nil, err
	}
	if s.events != nil {
		if err := s.events.Publish(event.SessionCreated, map[string]interface{}{
			"session_id":   session.ID,
			"user_id":      userID,
			"topic":        topic,
			"review_count": batch.ReviewCount,
			"new_count":    batch.NewCount,
		}); err != nil {
			s.log.Warn("publish event failed", zap.String("type", event.SessionCreated), zap.Error(err))
		}
	}
	return session, nil
}

// CompleteSession marks the session done and emits the completion event.
func (s *ReviewService) CompleteSession(ctx context.Context, userID, sessionID string) (*models.AdaptiveSession, error) {
	session, err := s.sessions.Complete(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if s.events != nil {
		if err := s.events.Publish(event.SessionCompleted, map[string]interface{}{
			"session_id": session.ID,
			"user_id":    userID,
		}); err != nil {
			s.log.Warn("publish event failed", zap.String("type", event.SessionCompleted), zap.Error(err))
		}
	}
	return session, nil
}

// GetSession and ListSessions pass through to the session manager.
func (s *ReviewService) GetSession(ctx context.Context, userID, sessionID string) (*models.AdaptiveSession, error) {
	return s.sessions.Get(ctx, userID, sessionID)
}

func (s *ReviewService) ListSessions(ctx context.Context, userID string, f models.SessionFilter) ([]models.AdaptiveSession, error) {
	return s.sessions.List(ctx, userID, f)
}
