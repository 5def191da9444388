package service

import (
	"context"
	"math"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"quiz-engine/internal/adaptive"
	"quiz-engine/internal/apperr"
	"quiz-engine/internal/models"
	"quiz-engine/internal/selection"
	"quiz-engine/internal/srs"
)

var reviewNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type memSessionStore struct {
	sessions map[string]*models.AdaptiveSession
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*models.AdaptiveSession)}
}

func (m *memSessionStore) Create(_ context.Context, s *models.AdaptiveSession) error {
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessionStore) FindByID(_ context.Context, userID, id string) (*models.AdaptiveSession, error) {
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, mongo.ErrNoDocuments
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionStore) List(_ context.Context, userID string, _ models.SessionFilter) ([]models.AdaptiveSession, error) {
	var out []models.AdaptiveSession
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSessionStore) MarkCompleted(_ context.Context, userID, id string, at time.Time) (bool, error) {
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID || s.CompletedAt != nil {
		return false, nil
	}
	s.CompletedAt = &at
	return true, nil
}

type topicQuestionStore struct {
	questions map[string]models.Question
}

func (m *topicQuestionStore) FindByIDs(_ context.Context, ids []string) ([]models.Question, error) {
	var out []models.Question
	for _, id := range ids {
		if q, ok := m.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *topicQuestionStore) FindByTopic(_ context.Context, topic string) ([]models.Question, error) {
	var out []models.Question
	for _, q := range m.questions {
		if topic == "" || q.Topic == topic {
			out = append(out, q)
		}
	}
	return out, nil
}

func newReviewFixture(records *memPerformanceStore, questions *topicQuestionStore) *ReviewService {
	scheduler := srs.NewScheduler(srs.DefaultConfig())
	builder := selection.NewBatchBuilder(questions, records, scheduler)
	manager := adaptive.NewManager(newMemSessionStore(), questions)
	svc := NewReviewService(records, questions, scheduler, builder, manager, &memEventSink{}, zap.NewNop())
	svc.clock = func() time.Time { return reviewNow }
	return svc
}

func reviewQuestionStore() *topicQuestionStore {
	yes := true
	qs := map[string]models.Question{}
	for _, id := range []string{"q1", "q2", "q3", "q4"} {
		qs[id] = models.Question{ID: id, Topic: "go", Type: models.YesNo, CorrectBool: &yes, Prompt: "p-" + id}
	}
	return &topicQuestionStore{questions: qs}
}

func TestDueQuestionsRankedAndRedacted(t *testing.T) {
	records := newMemPerformanceStore()
	records.records[perfKey("u1", "q1")] = &models.PerformanceRecord{
		UserID: "u1", QuestionID: "q1", Topic: "go",
		NextReviewAt: reviewNow.Add(-48 * time.Hour), PriorityScore: 5, EaseFactor: 2.1,
	}
	records.records[perfKey("u1", "q2")] = &models.PerformanceRecord{
		UserID: "u1", QuestionID: "q2", Topic: "go",
		NextReviewAt: reviewNow, PriorityScore: 1, EaseFactor: 2.5,
	}
	records.records[perfKey("u1", "q3")] = &models.PerformanceRecord{
		UserID: "u1", QuestionID: "q3", Topic: "go",
		NextReviewAt: reviewNow.Add(72 * time.Hour), PriorityScore: 9,
	}
	svc := newReviewFixture(records, reviewQuestionStore())

	due, err := svc.DueQuestions(context.Background(), "u1", "go", 10)
	if err != nil {
		t.Fatalf("DueQuestions: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("due = %d, want 2 (q3 is in the future)", len(due))
	}
	if due[0].Question.ID != "q1" {
		t.Errorf("first due = %s, want the higher priority q1", due[0].Question.ID)
	}
	for _, rq := range due {
		if rq.Question.CorrectBool != nil {
			t.Errorf("question %s still carries its answer key", rq.Question.ID)
		}
		if rq.Question.Prompt == "" {
			t.Errorf("question %s lost its content", rq.Question.ID)
		}
	}
	if due[0].EaseFactor != 2.1 {
		t.Errorf("EaseFactor = %v, want scheduling state joined in", due[0].EaseFactor)
	}
}

func TestDueQuestionsUsesDueQuery(t *testing.T) {
	records := newMemPerformanceStore()
	records.records[perfKey("u1", "q1")] = &models.PerformanceRecord{
		UserID: "u1", QuestionID: "q1", Topic: "go",
		NextReviewAt: reviewNow.Add(-time.Hour),
	}
	svc := newReviewFixture(records, reviewQuestionStore())

	if _, err := svc.DueQuestions(context.Background(), "u1", "go", 10); err != nil {
		t.Fatalf("DueQuestions: %v", err)
	}
	if records.dueQueries != 1 {
		t.Errorf("due queries = %d, want the queue assembled from the filtered lookup", records.dueQueries)
	}
}

func TestDueQuestionsEmptyForNewUser(t *testing.T) {
	svc := newReviewFixture(newMemPerformanceStore(), reviewQuestionStore())
	due, err := svc.DueQuestions(context.Background(), "fresh-user", "", 10)
	if err != nil {
		t.Fatalf("DueQuestions: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("due = %d, want none without records", len(due))
	}
}

func TestStatsAggregation(t *testing.T) {
	records := newMemPerformanceStore()
	records.records[perfKey("u1", "q1")] = &models.PerformanceRecord{
		UserID: "u1", QuestionID: "q1", Topic: "go", EaseFactor: 2.5,
		IntervalDays: 30, TotalAttempts: 10, CorrectCount: 9,
		NextReviewAt: reviewNow.Add(-time.Hour),
	}
	records.records[perfKey("u1", "q2")] = &models.PerformanceRecord{
		UserID: "u1", QuestionID: "q2", Topic: "go", EaseFactor: 1.3,
		IntervalDays: 1, IncorrectStrk: 3, TotalAttempts: 10, CorrectCount: 3,
		NextReviewAt: reviewNow.Add(4 * 24 * time.Hour),
	}
	svc := newReviewFixture(records, reviewQuestionStore())

	stats, err := svc.Stats(context.Background(), "u1", "go")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalTracked != 2 {
		t.Errorf("TotalTracked = %d, want 2", stats.TotalTracked)
	}
	if stats.DueNow != 1 {
		t.Errorf("DueNow = %d, want 1", stats.DueNow)
	}
	if stats.DueThisWeek != 2 {
		t.Errorf("DueThisWeek = %d, want 2", stats.DueThisWeek)
	}
	if stats.Mastered != 1 || stats.Struggling != 1 {
		t.Errorf("mastered/struggling = %d/%d, want 1/1", stats.Mastered, stats.Struggling)
	}
	if math.Abs(stats.AvgEase-1.9) > 1e-9 {
		t.Errorf("AvgEase = %v, want 1.9", stats.AvgEase)
	}
	if stats.Accuracy != 0.6 {
		t.Errorf("Accuracy = %v, want 0.6", stats.Accuracy)
	}
}

func TestCreateSessionAssemblesBatch(t *testing.T) {
	records := newMemPerformanceStore()
	records.records[perfKey("u1", "q1")] = &models.PerformanceRecord{
		UserID: "u1", QuestionID: "q1", Topic: "go",
		NextReviewAt: reviewNow.Add(-time.Hour),
	}
	svc := newReviewFixture(records, reviewQuestionStore())

	session, err := svc.CreateSession(context.Background(), "u1", "go", 4,
		map[string]any{"new_ratio": 0.5})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if len(session.QuestionIDs) != 4 {
		t.Errorf("batch = %v, want 4 questions", session.QuestionIDs)
	}
	if session.Completed() {
		t.Error("new session must not be completed")
	}

	// The frozen batch is retrievable and owner-scoped.
	got, err := svc.GetSession(context.Background(), "u1", session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(got.QuestionIDs) != 4 {
		t.Errorf("retrieved batch = %v", got.QuestionIDs)
	}
}

func TestCreateSessionEmptyPool(t *testing.T) {
	svc := newReviewFixture(newMemPerformanceStore(), &topicQuestionStore{questions: map[string]models.Question{}})
	if _, err := svc.CreateSession(context.Background(), "u1", "go", 5, nil); !apperr.IsNotFound(err) {
		t.Errorf("err = %v, want not-found for an empty pool", err)
	}
}

func TestCreateSessionBadSize(t *testing.T) {
	svc := newReviewFixture(newMemPerformanceStore(), reviewQuestionStore())
	if _, err := svc.CreateSession(context.Background(), "u1", "go", 0, nil); !apperr.IsValidation(err) {
		t.Errorf("size 0: err = %v, want validation", err)
	}
	if _, err := svc.CreateSession(context.Background(), "u1", "go", 999, nil); !apperr.IsValidation(err) {
		t.Errorf("size 999: err = %v, want validation", err)
	}
}

func TestCompleteSessionIdempotent(t *testing.T) {
	svc := newReviewFixture(newMemPerformanceStore(), reviewQuestionStore())
	session, err := svc.CreateSession(context.Background(), "u1", "go", 3, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	first, err := svc.CompleteSession(context.Background(), "u1", session.ID)
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	second, err := svc.CompleteSession(context.Background(), "u1", session.ID)
	if err != nil {
		t.Fatalf("second CompleteSession: %v", err)
	}
	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Errorf("timestamps differ: %v vs %v", second.CompletedAt, first.CompletedAt)
	}
}
