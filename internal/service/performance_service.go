package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"quiz-engine/internal/apperr"
	"quiz-engine/internal/models"
	"quiz-engine/internal/srs"
)

// PerformanceStore is the durable side of the scheduling state.
type PerformanceStore interface {
	FindByUserAndQuestion(ctx context.Context, userID, questionID string) (*models.PerformanceRecord, error)
	FindByUser(ctx context.Context, userID, topic string) ([]models.PerformanceRecord, error)
	Upsert(ctx context.Context, rec *models.PerformanceRecord) error
}

// ResponseStore records every submission event.
type ResponseStore interface {
	Create(ctx context.Context, response *models.QuestionResponse) error
}

// PerformanceService applies the spaced-repetition update rule to durable
// records and keeps the response log. Re-answering the same question simply
// runs the rule again with the new outcome.
type PerformanceService struct {
	records   PerformanceStore
	responses ResponseStore
	updater   *srs.Updater
	clock     func() time.Time
}

func NewPerformanceService(records PerformanceStore, responses ResponseStore, updater *srs.Updater) *PerformanceService {
	return &PerformanceService{
		records:   records,
		responses: responses,
		updater:   updater,
		clock:     time.Now,
	}
}

// RecordResponse persists the submission and advances the user's scheduling
// state for the question. The first response creates the record.
func (s *PerformanceService) RecordResponse(ctx context.Context, userID, attemptID string, question models.Question, payload models.AnswerPayload, isCorrect bool, responseTimeMs int64) (*models.PerformanceRecord, error) {
	if userID == "" || question.ID == "" {
		return nil, apperr.Validation("user id and question id are required")
	}

	now := s.clock()
	resp := &models.QuestionResponse{
		ID:             uuid.NewString(),
		UserID:         userID,
		QuestionID:     question.ID,
		AttemptID:      attemptID,
		Payload:        payload,
		IsCorrect:      isCorrect,
		ResponseTimeMs: responseTimeMs,
		SubmittedAt:    now,
	}
	if err := s.responses.Create(ctx, resp); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "record response for question %s", question.ID)
	}

	existing, err := s.records.FindByUserAndQuestion(ctx, userID, question.ID)
	var state srs.Record
	switch {
	case err == nil:
		state = toSchedulingState(existing)
	case errors.Is(err, mongo.ErrNoDocuments):
		state = s.updater.NewRecord()
	default:
		return nil, apperr.Wrap(apperr.KindPersistence, err, "load record for question %s", question.ID)
	}

	state = s.updater.Apply(state, isCorrect, responseTimeMs, now)

	rec := &models.PerformanceRecord{
		UserID:     userID,
		QuestionID: question.ID,
		Topic:      question.Topic,
	}
	fromSchedulingState(rec, state)
	if err := s.records.Upsert(ctx, rec); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "save record for question %s", question.ID)
	}
	return rec, nil
}

func toSchedulingState(rec *models.PerformanceRecord) srs.Record {
	return srs.Record{
		EaseFactor:     rec.EaseFactor,
		IntervalDays:   rec.IntervalDays,
		Repetitions:    rec.Repetitions,
		CorrectStreak:  rec.CorrectStreak,
		IncorrectStrk:  rec.IncorrectStrk,
		TotalAttempts:  rec.TotalAttempts,
		CorrectCount:   rec.CorrectCount,
		AvgResponseMs:  rec.AvgResponseMs,
		PriorityScore:  rec.PriorityScore,
		LastReviewedAt: rec.LastReviewedAt,
		NextReviewAt:   rec.NextReviewAt,
	}
}

func fromSchedulingState(rec *models.PerformanceRecord, state srs.Record) {
	rec.EaseFactor = state.EaseFactor
	rec.IntervalDays = state.IntervalDays
	rec.Repetitions = state.Repetitions
	rec.CorrectStreak = state.CorrectStreak
	rec.IncorrectStrk = state.IncorrectStrk
	rec.TotalAttempts = state.TotalAttempts
	rec.CorrectCount = state.CorrectCount
	rec.AvgResponseMs = state.AvgResponseMs
	rec.PriorityScore = state.PriorityScore
	rec.LastReviewedAt = state.LastReviewedAt
	rec.NextReviewAt = state.NextReviewAt
}
