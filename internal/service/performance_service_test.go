package service

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"quiz-engine/internal/models"
	"quiz-engine/internal/srs"
)

type memPerformanceStore struct {
	records    map[string]*models.PerformanceRecord
	upserts    int
	dueQueries int
}

func newMemPerformanceStore() *memPerformanceStore {
	return &memPerformanceStore{records: make(map[string]*models.PerformanceRecord)}
}

func perfKey(userID, questionID string) string { return userID + "/" + questionID }

func (m *memPerformanceStore) FindByUserAndQuestion(_ context.Context, userID, questionID string) (*models.PerformanceRecord, error) {
	rec, ok := m.records[perfKey(userID, questionID)]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *rec
	return &cp, nil
}

func (m *memPerformanceStore) FindByUser(_ context.Context, userID, topic string) ([]models.PerformanceRecord, error) {
	var out []models.PerformanceRecord
	for _, rec := range m.records {
		if rec.UserID != userID {
			continue
		}
		if topic != "" && rec.Topic != topic {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (m *memPerformanceStore) FindDue(_ context.Context, userID, topic string, before time.Time, limit int64) ([]models.PerformanceRecord, error) {
	m.dueQueries++
	var out []models.PerformanceRecord
	for _, rec := range m.records {
		if rec.UserID != userID {
			continue
		}
		if topic != "" && rec.Topic != topic {
			continue
		}
		if rec.NextReviewAt.After(before) {
			continue
		}
		out = append(out, *rec)
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (m *memPerformanceStore) Upsert(_ context.Context, rec *models.PerformanceRecord) error {
	cp := *rec
	m.records[perfKey(rec.UserID, rec.QuestionID)] = &cp
	m.upserts++
	return nil
}

type memResponseStore struct {
	responses []models.QuestionResponse
}

func (m *memResponseStore) Create(_ context.Context, resp *models.QuestionResponse) error {
	m.responses = append(m.responses, *resp)
	return nil
}

func testQuestion() models.Question {
	return models.Question{ID: "q1", Topic: "go", Type: models.SingleSelection,
		Options: []models.Option{{ID: "a"}}, CorrectOptionID: "a"}
}

func TestRecordResponseCreatesRecordOnFirstAnswer(t *testing.T) {
	records := newMemPerformanceStore()
	responses := &memResponseStore{}
	svc := NewPerformanceService(records, responses, srs.NewUpdater(srs.DefaultConfig()))
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	rec, err := svc.RecordResponse(context.Background(), "u1", "att-1", testQuestion(),
		models.AnswerPayload{OptionID: "a"}, true, 4000)
	if err != nil {
		t.Fatalf("RecordResponse: %v", err)
	}
	if rec.Repetitions != 1 || rec.IntervalDays != 1 {
		t.Errorf("reps=%d interval=%d, want 1/1 for a first correct answer",
			rec.Repetitions, rec.IntervalDays)
	}
	if rec.Topic != "go" {
		t.Errorf("Topic = %q, want copied from the question", rec.Topic)
	}
	if !rec.NextReviewAt.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("NextReviewAt = %v, want one day out", rec.NextReviewAt)
	}
	if len(responses.responses) != 1 {
		t.Fatalf("responses logged = %d, want 1", len(responses.responses))
	}
	if got := responses.responses[0]; got.AttemptID != "att-1" || !got.IsCorrect {
		t.Errorf("response log entry = %+v", got)
	}
}

func TestRecordResponseAdvancesExistingRecord(t *testing.T) {
	records := newMemPerformanceStore()
	svc := NewPerformanceService(records, &memResponseStore{}, srs.NewUpdater(srs.DefaultConfig()))
	ctx := context.Background()

	q := testQuestion()
	if _, err := svc.RecordResponse(ctx, "u1", "a1", q, models.AnswerPayload{OptionID: "a"}, true, 4000); err != nil {
		t.Fatalf("first: %v", err)
	}
	rec, err := svc.RecordResponse(ctx, "u1", "a1", q, models.AnswerPayload{OptionID: "a"}, true, 4000)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if rec.Repetitions != 2 || rec.IntervalDays != 6 {
		t.Errorf("reps=%d interval=%d, want 2/6 on the second correct answer",
			rec.Repetitions, rec.IntervalDays)
	}
	if rec.TotalAttempts != 2 {
		t.Errorf("TotalAttempts = %d, want 2", rec.TotalAttempts)
	}
}

func TestRecordResponseMissResetsSchedule(t *testing.T) {
	records := newMemPerformanceStore()
	svc := NewPerformanceService(records, &memResponseStore{}, srs.NewUpdater(srs.DefaultConfig()))
	ctx := context.Background()

	q := testQuestion()
	for i := 0; i < 3; i++ {
		if _, err := svc.RecordResponse(ctx, "u1", "a1", q, models.AnswerPayload{OptionID: "a"}, true, 4000); err != nil {
			t.Fatalf("correct %d: %v", i, err)
		}
	}
	rec, err := svc.RecordResponse(ctx, "u1", "a1", q, models.AnswerPayload{OptionID: "b"}, false, 20000)
	if err != nil {
		t.Fatalf("miss: %v", err)
	}
	if rec.Repetitions != 0 || rec.IntervalDays != 1 || rec.IncorrectStrk != 1 {
		t.Errorf("reps=%d interval=%d incorrect=%d, want 0/1/1 after a miss",
			rec.Repetitions, rec.IntervalDays, rec.IncorrectStrk)
	}
}

func TestRecordResponseIsPerUser(t *testing.T) {
	records := newMemPerformanceStore()
	svc := NewPerformanceService(records, &memResponseStore{}, srs.NewUpdater(srs.DefaultConfig()))
	ctx := context.Background()

	q := testQuestion()
	if _, err := svc.RecordResponse(ctx, "u1", "a1", q, models.AnswerPayload{OptionID: "a"}, true, 0); err != nil {
		t.Fatalf("u1: %v", err)
	}
	rec, err := svc.RecordResponse(ctx, "u2", "a2", q, models.AnswerPayload{OptionID: "a"}, true, 0)
	if err != nil {
		t.Fatalf("u2: %v", err)
	}
	if rec.TotalAttempts != 1 {
		t.Errorf("u2 TotalAttempts = %d, want an independent record", rec.TotalAttempts)
	}
}
