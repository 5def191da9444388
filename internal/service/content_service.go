package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"quiz-engine/internal/apperr"
	"quiz-engine/internal/models"
)

// QuestionCatalogStore is the writable side of the authored catalog.
type QuestionCatalogStore interface {
	FindByID(ctx context.Context, id string) (*models.Question, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Question, error)
	FindByTopic(ctx context.Context, topic string) ([]models.Question, error)
	Create(ctx context.Context, question *models.Question) error
}

// QuizStore is the writable side of authored quizzes.
type QuizStore interface {
	FindByID(ctx context.Context, id string) (*models.Quiz, error)
	FindByTopic(ctx context.Context, topic string) ([]models.Quiz, error)
	Create(ctx context.Context, quiz *models.Quiz) error
}

// ContentService manages authored questions and quizzes.
type ContentService struct {
	questions QuestionCatalogStore
	quizzes   QuizStore
	clock     func() time.Time
}

func NewContentService(questions QuestionCatalogStore, quizzes QuizStore) *ContentService {
	return &ContentService{questions: questions, quizzes: quizzes, clock: time.Now}
}

func (s *ContentService) CreateQuestion(ctx context.Context, q *models.Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if err := q.Validate(); err != nil {
		return apperr.Validation("invalid question: %v", err)
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "create question")
	}
	return nil
}

// GetQuestion returns the redacted form: answer keys stay server-side.
func (s *ContentService) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	q, err := s.questions.FindByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("question %s not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "load question %s", id)
	}
	redacted := q.Redacted()
	return &redacted, nil
}

func (s *ContentService) ListQuestions(ctx context.Context, topic string) ([]models.Question, error) {
	questions, err := s.questions.FindByTopic(ctx, topic)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "list questions")
	}
	out := make([]models.Question, len(questions))
	for i, q := range questions {
		out[i] = q.Redacted()
	}
	return out, nil
}

func (s *ContentService) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	if len(quiz.QuestionIDs) == 0 {
		return apperr.Validation("quiz needs at least one question")
	}
	questions, err := s.questions.FindByIDs(ctx, quiz.QuestionIDs)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "resolve quiz questions")
	}
	if len(questions) != len(quiz.QuestionIDs) {
		return apperr.Validation("quiz references questions that do not exist")
	}
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	quiz.CreatedAt = s.clock()
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "create quiz")
	}
	return nil
}

func (s *ContentService) GetQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	quiz, err := s.quizzes.FindByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("quiz %s not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "load quiz %s", id)
	}
	return quiz, nil
}

func (s *ContentService) ListQuizzes(ctx context.Context, topic string) ([]models.Quiz, error) {
	quizzes, err := s.quizzes.FindByTopic(ctx, topic)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "list quizzes")
	}
	return quizzes, nil
}
