// Package adaptive manages review sessions: named batches of questions
// assembled for one user, frozen at creation and completed exactly once.
package adaptive

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"quiz-engine/internal/apperr"
	"quiz-engine/internal/models"
)

const (
	MinSessionQuestions = 1
	MaxSessionQuestions = 50
)

// SessionStore is the persistence surface the manager needs.
type SessionStore interface {
	Create(ctx context.Context, session *models.AdaptiveSession) error
	FindByID(ctx context.Context, userID, id string) (*models.AdaptiveSession, error)
	List(ctx context.Context, userID string, f models.SessionFilter) ([]models.AdaptiveSession, error)
	MarkCompleted(ctx context.Context, userID, id string, at time.Time) (bool, error)
}

// QuestionCatalog resolves question ids against the authored catalog.
type QuestionCatalog interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Question, error)
}

type Manager struct {
	sessions SessionStore
	catalog  QuestionCatalog
	clock    func() time.Time
}

func NewManager(sessions SessionStore, catalog QuestionCatalog) *Manager {
	return &Manager{sessions: sessions, catalog: catalog, clock: time.Now}
}

// Create validates the batch end to end before anything is written, so a
// rejected request never leaves a partial session behind.
func (m *Manager) Create(ctx context.Context, userID, topic string, questionIDs []string, settings map[string]any) (*models.AdaptiveSession, error) {
	if userID == "" {
		return nil, apperr.Validation("user id is required")
	}
	if len(questionIDs) < MinSessionQuestions || len(questionIDs) > MaxSessionQuestions {
		return nil, apperr.Validation("session needs between %d and %d questions, got %d",
			MinSessionQuestions, MaxSessionQuestions, len(questionIDs))
	}
	seen := make(map[string]bool, len(questionIDs))
	for _, id := range questionIDs {
		if id == "" {
			return nil, apperr.Validation("question ids must be non-empty")
		}
		if seen[id] {
			return nil, apperr.Validation("duplicate question id %s", id)
		}
		seen[id] = true
	}

	questions, err := m.catalog.FindByIDs(ctx, questionIDs)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "look up session questions")
	}
	found := make(map[string]bool, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, apperr.Validation("question %s is malformed: %v", q.ID, err)
		}
		found[q.ID] = true
	}
	for _, id := range questionIDs {
		if !found[id] {
			return nil, apperr.NotFound("question %s does not exist", id)
		}
	}

	session := &models.AdaptiveSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		Topic:       topic,
		QuestionIDs: questionIDs,
		Settings:    settings,
		CreatedAt:   m.clock(),
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "create session")
	}
	return session, nil
}

// Get returns the session only to its owner. A session that exists but
// belongs to someone else is indistinguishable from one that never did.
func (m *Manager) Get(ctx context.Context, userID, id string) (*models.AdaptiveSession, error) {
	if userID == "" || id == "" {
		return nil, apperr.Validation("user id and session id are required")
	}
	session, err := m.sessions.FindByID(ctx, userID, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("session %s not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "load session %s", id)
	}
	return session, nil
}

func (m *Manager) List(ctx context.Context, userID string, f models.SessionFilter) ([]models.AdaptiveSession, error) {
	if userID == "" {
		return nil, apperr.Validation("user id is required")
	}
	sessions, err := m.sessions.List(ctx, userID, f)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "list sessions")
	}
	return sessions, nil
}

// Complete marks the session done. Completing an already-completed session
// succeeds without touching the original timestamp.
func (m *Manager) Complete(ctx context.Context, userID, id string) (*models.AdaptiveSession, error) {
	session, err := m.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return session, nil
	}
	now := m.clock()
	set, err := m.sessions.MarkCompleted(ctx, userID, id, now)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "complete session %s", id)
	}
	if set {
		session.CompletedAt = &now
		return session, nil
	}
	// Lost the race to another completion; re-read for the real timestamp.
	return m.Get(ctx, userID, id)
}
