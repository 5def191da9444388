package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"quiz-engine/internal/apperr"
	"quiz-engine/internal/engine"
	"quiz-engine/internal/event"
	"quiz-engine/internal/models"
)

// QuizSource resolves authored quizzes.
type QuizSource interface {
	FindByID(ctx context.Context, id string) (*models.Quiz, error)
}

// QuestionSource resolves catalog questions by id.
type QuestionSource interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Question, error)
}

// ResultStore persists completed-attempt summaries.
type ResultStore interface {
	Create(ctx context.Context, result *models.QuizResult) error
}

// SnapshotStore saves and restores in-flight attempt state.
type SnapshotStore interface {
	Save(ctx context.Context, userID, quizID string, st engine.State) error
	Load(ctx context.Context, userID, quizID string) (engine.State, error)
	Delete(ctx context.Context, userID, quizID string) error
}

// SessionSource resolves adaptive review sessions for their owner.
type SessionSource interface {
	FindByID(ctx context.Context, userID, id string) (*models.AdaptiveSession, error)
}

// EventSink publishes domain events; a nil sink disables publishing.
type EventSink interface {
	Publish(eventType string, payload interface{}) error
}

// AttemptDefaults configure machine behaviour not carried by the quiz itself.
type AttemptDefaults struct {
	PassingScore              int
	AutoAdvance               bool
	AllowBackNav              bool
	AutoCompleteOnAllAnswered bool
	ExpiryCompletes           bool
}

type liveAttempt struct {
	id      string
	userID  string
	quizID  string
	machine *engine.Machine
	timer   *engine.Timer
	byID    map[string]models.Question

	mu    sync.Mutex
	final *engine.State
}

// setFinal records the completed-state snapshot handed to OnComplete.
func (a *liveAttempt) setFinal(st engine.State) {
	a.mu.Lock()
	a.final = &st
	a.mu.Unlock()
}

func (a *liveAttempt) finalState() (engine.State, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.final == nil {
		return engine.State{}, false
	}
	return *a.final, true
}

// AttemptService owns every live attempt in the process: a registry of state
// machines keyed by attempt id, each driven by its own one-second timer.
type AttemptService struct {
	quizzes     QuizSource
	questions   QuestionSource
	sessions    SessionSource
	results     ResultStore
	performance *PerformanceService
	snapshots   SnapshotStore
	events      EventSink
	defaults    AttemptDefaults
	log         *zap.Logger
	clock       func() time.Time

	mu   sync.Mutex
	live map[string]*liveAttempt
}

func NewAttemptService(
	quizzes QuizSource,
	questions QuestionSource,
	sessions SessionSource,
	results ResultStore,
	performance *PerformanceService,
	snapshots SnapshotStore,
	events EventSink,
	defaults AttemptDefaults,
	log *zap.Logger,
) *AttemptService {
	return &AttemptService{
		quizzes:     quizzes,
		questions:   questions,
		sessions:    sessions,
		results:     results,
		performance: performance,
		snapshots:   snapshots,
		events:      events,
		defaults:    defaults,
		log:         log,
		clock:       time.Now,
		live:        make(map[string]*liveAttempt),
	}
}

// StartQuiz begins a new attempt over an authored quiz.
func (s *AttemptService) StartQuiz(ctx context.Context, userID, quizID string) (string, engine.State, error) {
	if userID == "" || quizID == "" {
		return "", engine.State{}, apperr.Validation("user id and quiz id are required")
	}
	quiz, err := s.quizzes.FindByID(ctx, quizID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", engine.State{}, apperr.NotFound("quiz %s not found", quizID)
	}
	if err != nil {
		return "", engine.State{}, apperr.Wrap(apperr.KindPersistence, err, "load quiz %s", quizID)
	}

	cfg := engine.Config{
		TimeLimitSeconds:          quiz.TimeLimitS,
		PassingScore:              quiz.PassingPct,
		AutoAdvance:               s.defaults.AutoAdvance,
		AllowBackNav:              s.defaults.AllowBackNav,
		AutoCompleteOnAllAnswered: s.defaults.AutoCompleteOnAllAnswered,
		ExpiryCompletes:           s.defaults.ExpiryCompletes,
	}
	if cfg.PassingScore == 0 {
		cfg.PassingScore = s.defaults.PassingScore
	}
	return s.startAttempt(ctx, userID, quizID, quiz.QuestionIDs, cfg)
}

// StartSession begins an attempt over an adaptive review session's batch.
// Review attempts are untimed.
func (s *AttemptService) StartSession(ctx context.Context, userID, sessionID string) (string, engine.State, error) {
	if userID == "" || sessionID == "" {
		return "", engine.State{}, apperr.Validation("user id and session id are required")
	}
	session, err := s.sessions.FindByID(ctx, userID, sessionID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", engine.State{}, apperr.NotFound("session %s not found", sessionID)
	}
	if err != nil {
		return "", engine.State{}, apperr.Wrap(apperr.KindPersistence, err, "load session %s", sessionID)
	}

	cfg := engine.Config{
		PassingScore:              s.defaults.PassingScore,
		AutoAdvance:               s.defaults.AutoAdvance,
		AllowBackNav:              s.defaults.AllowBackNav,
		AutoCompleteOnAllAnswered: s.defaults.AutoCompleteOnAllAnswered,
	}
	applySessionSettings(&cfg, session.Settings)
	return s.startAttempt(ctx, userID, sessionID, session.QuestionIDs, cfg)
}

func (s *AttemptService) startAttempt(ctx context.Context, userID, quizID string, questionIDs []string, cfg engine.Config) (string, engine.State, error) {
	questions, err := s.questions.FindByIDs(ctx, questionIDs)
	if err != nil {
		return "", engine.State{}, apperr.Wrap(apperr.KindPersistence, err, "load attempt questions")
	}
	if len(questions) != len(questionIDs) {
		return "", engine.State{}, apperr.Validation("quiz %s references questions that do not exist", quizID)
	}

	attemptID := uuid.NewString()
	machine := engine.NewMachine(quizID, questions, cfg, s.clock)
	att := s.register(attemptID, userID, quizID, machine, questions)

	if err := machine.Start(); err != nil {
		s.Discard(userID, attemptID)
		return "", engine.State{}, err
	}
	att.timer.Start()

	s.publish(event.AttemptStarted, map[string]interface{}{
		"attempt_id": attemptID,
		"quiz_id":    quizID,
		"user_id":    userID,
	})
	return attemptID, machine.Snapshot(), nil
}

// Restore rebuilds a live attempt from the saved snapshot for the quiz.
func (s *AttemptService) Restore(ctx context.Context, userID, quizID string) (string, engine.State, error) {
	st, err := s.snapshots.Load(ctx, userID, quizID)
	if err != nil {
		return "", engine.State{}, err
	}
	attemptID := uuid.NewString()
	machine := engine.Restore(st, s.clock)
	att := s.register(attemptID, userID, quizID, machine, st.Questions)
	if st.Status == engine.StatusInProgress {
		att.timer.Start()
	}
	return attemptID, machine.Snapshot(), nil
}

func (s *AttemptService) register(attemptID, userID, quizID string, machine *engine.Machine, questions []models.Question) *liveAttempt {
	byID := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	att := &liveAttempt{
		id:      attemptID,
		userID:  userID,
		quizID:  quizID,
		machine: machine,
		byID:    byID,
	}
	att.timer = engine.NewTimer(0, func() { _ = machine.Tick() }, nil)
	machine.OnComplete = func(st engine.State) {
		// Runs on the machine's dispatch goroutine; persistence moves off it.
		att.setFinal(st)
		go s.finalize(att, st)
	}

	s.mu.Lock()
	s.live[attemptID] = att
	s.mu.Unlock()
	return att
}

func (s *AttemptService) attempt(userID, attemptID string) (*liveAttempt, error) {
	s.mu.Lock()
	att, ok := s.live[attemptID]
	s.mu.Unlock()
	if !ok || att.userID != userID {
		return nil, apperr.NotFound("attempt %s not found", attemptID)
	}
	return att, nil
}

// State returns the current projection of a live attempt.
func (s *AttemptService) State(userID, attemptID string) (engine.State, error) {
	att, err := s.attempt(userID, attemptID)
	if err != nil {
		return engine.State{}, err
	}
	return att.machine.Snapshot(), nil
}

// SubmitAnswer evaluates the answer in the attempt's machine and, when the
// attempt accepted it, records the response durably and advances the user's
// scheduling state.
func (s *AttemptService) SubmitAnswer(ctx context.Context, userID, attemptID, questionID string, payload models.AnswerPayload, timeSpentMs int64) (engine.SubmitResult, error) {
	att, err := s.attempt(userID, attemptID)
	if err != nil {
		return engine.SubmitResult{}, err
	}
	res, err := att.machine.SubmitAnswer(questionID, payload, timeSpentMs)
	if err != nil {
		return engine.SubmitResult{}, err
	}

	question := att.byID[questionID]
	if _, perr := s.performance.RecordResponse(ctx, userID, attemptID, question, payload, res.IsCorrect, timeSpentMs); perr != nil {
		// The attempt already accepted the answer; surface the failure on the
		// attempt state rather than rolling the submission back.
		s.log.Error("record response failed",
			zap.String("attempt_id", attemptID),
			zap.String("question_id", questionID),
			zap.Error(perr))
		att.machine.RecordError(perr.Error())
	}

	s.publish(event.AnswerSubmitted, map[string]interface{}{
		"attempt_id":  attemptID,
		"question_id": questionID,
		"is_correct":  res.IsCorrect,
	})
	return res, nil
}

func (s *AttemptService) Next(userID, attemptID string) error {
	att, err := s.attempt(userID, attemptID)
	if err != nil {
		return err
	}
	return att.machine.Next()
}

func (s *AttemptService) Previous(userID, attemptID string) error {
	att, err := s.attempt(userID, attemptID)
	if err != nil {
		return err
	}
	return att.machine.Previous()
}

func (s *AttemptService) NavigateTo(userID, attemptID string, index int) error {
	att, err := s.attempt(userID, attemptID)
	if err != nil {
		return err
	}
	return att.machine.NavigateTo(index)
}

func (s *AttemptService) Flag(userID, attemptID, questionID string, flagged bool) error {
	att, err := s.attempt(userID, attemptID)
	if err != nil {
		return err
	}
	return att.machine.Flag(questionID, flagged)
}

func (s *AttemptService) Pause(userID, attemptID string) error {
	att, err := s.attempt(userID, attemptID)
	if err != nil {
		return err
	}
	if err := att.machine.Pause(); err != nil {
		return err
	}
	att.timer.Pause()
	return nil
}

func (s *AttemptService) Resume(userID, attemptID string) error {
	att, err := s.attempt(userID, attemptID)
	if err != nil {
		return err
	}
	if err := att.machine.Resume(); err != nil {
		return err
	}
	att.timer.Resume()
	return nil
}

func (s *AttemptService) Complete(userID, attemptID string) (engine.State, error) {
	att, err := s.attempt(userID, attemptID)
	if err != nil {
		return engine.State{}, err
	}
	if err := att.machine.Complete(); err != nil {
		return engine.State{}, err
	}
	// OnComplete ran inside the same dispatched action, so the final snapshot
	// is already captured; finalize may have closed the machine by now.
	st, ok := att.finalState()
	if !ok {
		return engine.State{}, apperr.Persistence("attempt %s completed without a final state", attemptID)
	}
	return st, nil
}

// SaveProgress snapshots the attempt so it can be restored later.
func (s *AttemptService) SaveProgress(ctx context.Context, userID, attemptID string) error {
	att, err := s.attempt(userID, attemptID)
	if err != nil {
		return err
	}
	return s.snapshots.Save(ctx, userID, att.quizID, att.machine.Snapshot())
}

// Discard drops the live attempt without completing it.
func (s *AttemptService) Discard(userID, attemptID string) {
	s.mu.Lock()
	att, ok := s.live[attemptID]
	if ok && att.userID == userID {
		delete(s.live, attemptID)
	}
	s.mu.Unlock()
	if ok && att.userID == userID {
		att.timer.Stop()
		att.machine.Close()
	}
}

// finalize destroys the live attempt, persists its result and clears its
// snapshot. It runs off the machine's dispatch goroutine. The registry entry
// and the dispatch goroutine are released before any I/O so a finished
// attempt never outlives its completion.
func (s *AttemptService) finalize(att *liveAttempt, st engine.State) {
	att.timer.Stop()
	s.mu.Lock()
	delete(s.live, att.id)
	s.mu.Unlock()
	att.machine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	correct := 0
	for _, a := range st.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	result := &models.QuizResult{
		ID:             uuid.NewString(),
		AttemptID:      att.id,
		QuizID:         att.quizID,
		UserID:         att.userID,
		Score:          st.Score,
		Passed:         st.Passed,
		CorrectCount:   correct,
		TotalQuestions: len(st.Questions),
		ElapsedSeconds: st.ElapsedSeconds,
		CompletionType: st.CompletionType,
		CompletedAt:    st.CompletedAt,
	}
	if err := s.results.Create(ctx, result); err != nil {
		s.log.Error("persist result failed", zap.String("attempt_id", att.id), zap.Error(err))
	}
	if err := s.snapshots.Delete(ctx, att.userID, att.quizID); err != nil && !apperr.IsNotFound(err) {
		s.log.Warn("clear snapshot failed", zap.String("attempt_id", att.id), zap.Error(err))
	}

	s.publish(event.AttemptCompleted, map[string]interface{}{
		"attempt_id":      att.id,
		"quiz_id":         att.quizID,
		"user_id":         att.userID,
		"score":           st.Score,
		"passed":          st.Passed,
		"completion_type": st.CompletionType,
	})
}

func (s *AttemptService) publish(eventType string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(eventType, payload); err != nil {
		s.log.Warn("publish event failed", zap.String("type", eventType), zap.Error(err))
	}
}

// applySessionSettings overrides attempt behaviour from the session's
// settings map. Unknown keys and wrong types are ignored.
func applySessionSettings(cfg *engine.Config, settings map[string]any) {
	if settings == nil {
		return
	}
	if v, ok := settings["auto_advance"].(bool); ok {
		cfg.AutoAdvance = v
	}
	if v, ok := settings["allow_back_nav"].(bool); ok {
		cfg.AllowBackNav = v
	}
	if v, ok := settings["auto_complete"].(bool); ok {
		cfg.AutoCompleteOnAllAnswered = v
	}
	switch v := settings["time_limit_seconds"].(type) {
	case int:
		cfg.TimeLimitSeconds = v
	case float64:
		cfg.TimeLimitSeconds = int(v)
	}
}
