package adaptive

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"quiz-engine/internal/apperr"
	"quiz-engine/internal/models"
)

type fakeSessionStore struct {
	sessions map[string]*models.AdaptiveSession
	created  int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.AdaptiveSession)}
}

func (f *fakeSessionStore) Create(_ context.Context, s *models.AdaptiveSession) error {
	cp := *s
	f.sessions[s.ID] = &cp
	f.created++
	return nil
}

func (f *fakeSessionStore) FindByID(_ context.Context, userID, id string) (*models.AdaptiveSession, error) {
	s, ok := f.sessions[id]
	if !ok || s.UserID != userID {
		return nil, mongo.ErrNoDocuments
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) List(_ context.Context, userID string, filter models.SessionFilter) ([]models.AdaptiveSession, error) {
	var out []models.AdaptiveSession
	for _, s := range f.sessions {
		if s.UserID != userID {
			continue
		}
		if filter.Topic != "" && s.Topic != filter.Topic {
			continue
		}
		if filter.Completed != nil && s.Completed() != *filter.Completed {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSessionStore) MarkCompleted(_ context.Context, userID, id string, at time.Time) (bool, error) {
	s, ok := f.sessions[id]
	if !ok || s.UserID != userID || s.CompletedAt != nil {
		return false, nil
	}
	s.CompletedAt = &at
	return true, nil
}

type fakeCatalog struct {
	questions map[string]models.Question
}

func (f *fakeCatalog) FindByIDs(_ context.Context, ids []string) ([]models.Question, error) {
	var out []models.Question
	for _, id := range ids {
		if q, ok := f.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func yes() *bool { b := true; return &b }

func catalogWith(ids ...string) *fakeCatalog {
	c := &fakeCatalog{questions: make(map[string]models.Question)}
	for _, id := range ids {
		c.questions[id] = models.Question{ID: id, Type: models.YesNo, CorrectBool: yes()}
	}
	return c
}

func TestCreateSession(t *testing.T) {
	store := newFakeSessionStore()
	m := NewManager(store, catalogWith("q1", "q2", "q3"))

	s, err := m.Create(context.Background(), "u1", "go",
		[]string{"q1", "q2", "q3"}, map[string]any{"new_ratio": 0.3})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.ID == "" {
		t.Error("session id was not assigned")
	}
	if s.Completed() {
		t.Error("new session must not be completed")
	}
	if len(s.QuestionIDs) != 3 {
		t.Errorf("QuestionIDs = %v, want the frozen batch", s.QuestionIDs)
	}
	if store.created != 1 {
		t.Errorf("store writes = %d, want 1", store.created)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	big := make([]string, MaxSessionQuestions+1)
	for i := range big {
		big[i] = string(rune('a' + i%26))
	}

	cases := []struct {
		name string
		ids  []string
	}{
		{"empty batch", nil},
		{"oversized batch", big},
		{"duplicate id", []string{"q1", "q1"}},
		{"blank id", []string{"q1", ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeSessionStore()
			m := NewManager(store, catalogWith("q1", "q2"))

			_, err := m.Create(context.Background(), "u1", "", tc.ids, nil)
			if !apperr.IsValidation(err) {
				t.Errorf("err = %v, want validation error", err)
			}
			if store.created != 0 {
				t.Error("rejected create must not write anything")
			}
		})
	}
}

func TestCreateSessionUnknownQuestion(t *testing.T) {
	store := newFakeSessionStore()
	m := NewManager(store, catalogWith("q1"))

	_, err := m.Create(context.Background(), "u1", "", []string{"q1", "ghost"}, nil)
	if !apperr.IsNotFound(err) {
		t.Errorf("err = %v, want not-found", err)
	}
	if store.created != 0 {
		t.Error("a missing question must not leave a partial session")
	}
}

func TestCreateSessionMalformedQuestion(t *testing.T) {
	store := newFakeSessionStore()
	catalog := catalogWith("q1")
	// Single-selection with no options is not servable.
	catalog.questions["broken"] = models.Question{ID: "broken", Type: models.SingleSelection}
	m := NewManager(store, catalog)

	_, err := m.Create(context.Background(), "u1", "", []string{"q1", "broken"}, nil)
	if !apperr.IsValidation(err) {
		t.Errorf("err = %v, want validation error", err)
	}
	if store.created != 0 {
		t.Error("a malformed question must not leave a partial session")
	}
}

func TestGetIsOwnerScoped(t *testing.T) {
	store := newFakeSessionStore()
	m := NewManager(store, catalogWith("q1"))

	s, err := m.Create(context.Background(), "u1", "", []string{"q1"}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := m.Get(context.Background(), "u1", s.ID); err != nil {
		t.Errorf("owner Get: %v", err)
	}
	if _, err := m.Get(context.Background(), "u2", s.ID); !apperr.IsNotFound(err) {
		t.Errorf("other user's Get: err = %v, want not-found", err)
	}
	if _, err := m.Get(context.Background(), "u1", "missing"); !apperr.IsNotFound(err) {
		t.Errorf("missing Get: err = %v, want not-found", err)
	}
}

func TestListFilters(t *testing.T) {
	store := newFakeSessionStore()
	m := NewManager(store, catalogWith("q1"))
	ctx := context.Background()

	a, _ := m.Create(ctx, "u1", "go", []string{"q1"}, nil)
	if _, err := m.Create(ctx, "u1", "sql", []string{"q1"}, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.Complete(ctx, "u1", a.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	byTopic, err := m.List(ctx, "u1", models.SessionFilter{Topic: "go"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byTopic) != 1 || byTopic[0].Topic != "go" {
		t.Errorf("topic filter returned %+v", byTopic)
	}

	done := true
	completed, err := m.List(ctx, "u1", models.SessionFilter{Completed: &done})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != a.ID {
		t.Errorf("completed filter returned %+v", completed)
	}

	other, err := m.List(ctx, "u2", models.SessionFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("another user sees %d sessions, want 0", len(other))
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	store := newFakeSessionStore()
	m := NewManager(store, catalogWith("q1"))
	ctx := context.Background()

	s, err := m.Create(ctx, "u1", "", []string{"q1"}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, err := m.Complete(ctx, "u1", s.ID)
	if err != nil {
		t.Fatalf("first Complete: %v", err)
	}
	if !first.Completed() {
		t.Fatal("session should be completed")
	}

	second, err := m.Complete(ctx, "u1", s.ID)
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Errorf("second completion moved the timestamp: %v vs %v",
			second.CompletedAt, first.CompletedAt)
	}
}

func TestCompleteUnknownSession(t *testing.T) {
	m := NewManager(newFakeSessionStore(), catalogWith("q1"))
	if _, err := m.Complete(context.Background(), "u1", "missing"); !apperr.IsNotFound(err) {
		t.Errorf("err = %v, want not-found", err)
	}
}
