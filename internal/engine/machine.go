// Package engine drives one quiz attempt from start to completion. Every
// action — user-initiated or tick-initiated — funnels through a single
// ordered request queue per attempt, so no two actions ever interleave.
package engine

import (
	"math"
	"time"

	"quiz-engine/internal/apperr"
	"quiz-engine/internal/evaluator"
	"quiz-engine/internal/models"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
)

// Completion types recorded when an attempt reaches Completed.
const (
	CompletionManual  = "manual"
	CompletionAuto    = "auto"
	CompletionExpired = "expired"
)

// Config fixes attempt behaviour at creation time.
type Config struct {
	TimeLimitSeconds int
	PassingScore     int
	AutoAdvance      bool
	AllowBackNav     bool
	// AutoCompleteOnAllAnswered completes the attempt once every question
	// has a stored answer.
	AutoCompleteOnAllAnswered bool
	// ExpiryCompletes chooses the time-limit policy: auto-submit when true,
	// a terminal expired marker when false. Both end the attempt.
	ExpiryCompletes bool
}

// State is the read-only projection handed to the UI layer.
type State struct {
	QuizID           string                       `json:"quiz_id"`
	Questions        []models.Question            `json:"questions"`
	CurrentIndex     int                          `json:"current_index"`
	Answers          map[string]models.UserAnswer `json:"answers"`
	Flagged          map[string]bool              `json:"flagged"`
	Status           Status                       `json:"status"`
	ElapsedSeconds   int                          `json:"elapsed_seconds"`
	RemainingSeconds int                          `json:"remaining_seconds"`
	StartedAt        time.Time                    `json:"started_at"`
	CompletedAt      time.Time                    `json:"completed_at"`
	CompletionType   string                       `json:"completion_type"`
	Score            int                          `json:"score"`
	Passed           bool                         `json:"passed"`
	ProgressPct      int                          `json:"progress_pct"`
	LastError        string                       `json:"last_error,omitempty"`
	Config           Config                       `json:"config"`
}

// SubmitResult is returned to the caller of SubmitAnswer.
type SubmitResult struct {
	IsCorrect bool
	Score     float64
	Answer    models.UserAnswer
	Completed bool
}

type request struct {
	apply func() error
	reply chan error
}

// Machine owns the state of one attempt. Construct with NewMachine, drive
// with the action methods, release with Close.
type Machine struct {
	quizID    string
	questions []models.Question
	byID      map[string]int
	cfg       Config
	clock     func() time.Time

	// OnComplete is invoked from the dispatch goroutine when the attempt
	// completes; it must not call back into the machine.
	OnComplete func(State)

	reqs   chan request
	closed chan struct{}

	// The fields below are touched only by the dispatch goroutine.
	status         Status
	index          int
	answers        map[string]models.UserAnswer
	flagged        map[string]bool
	elapsedS       int
	startedAt      time.Time
	completedAt    time.Time
	completionType string
	lastErr        string
}

func NewMachine(quizID string, questions []models.Question, cfg Config, clock func() time.Time) *Machine {
	if clock == nil {
		clock = time.Now
	}
	byID := make(map[string]int, len(questions))
	for i, q := range questions {
		byID[q.ID] = i
	}
	m := &Machine{
		quizID:    quizID,
		questions: questions,
		byID:      byID,
		cfg:       cfg,
		clock:     clock,
		reqs:      make(chan request),
		closed:    make(chan struct{}),
		status:    StatusNotStarted,
		answers:   make(map[string]models.UserAnswer),
		flagged:   make(map[string]bool),
	}
	go m.dispatch()
	return m
}

// Restore rebuilds a machine from a saved state projection, picking the
// attempt up exactly where the snapshot left it.
func Restore(st State, clock func() time.Time) *Machine {
	m := NewMachine(st.QuizID, st.Questions, st.Config, clock)
	_ = m.do(func() error {
		m.status = st.Status
		m.index = st.CurrentIndex
		for id, a := range st.Answers {
			m.answers[id] = a
		}
		for id := range st.Flagged {
			m.flagged[id] = true
		}
		m.elapsedS = st.ElapsedSeconds
		m.startedAt = st.StartedAt
		m.completedAt = st.CompletedAt
		m.completionType = st.CompletionType
		return nil
	})
	return m
}

func (m *Machine) dispatch() {
	for {
		select {
		case <-m.closed:
			return
		case req := <-m.reqs:
			err := req.apply()
			if err != nil {
				m.lastErr = err.Error()
			}
			req.reply <- err
		}
	}
}

// do serializes one action through the attempt's queue.
func (m *Machine) do(apply func() error) error {
	req := request{apply: apply, reply: make(chan error, 1)}
	select {
	case <-m.closed:
		return apperr.Concurrency("attempt %s is closed", m.quizID)
	case m.reqs <- req:
		return <-req.reply
	}
}

// Close releases the dispatch goroutine. The machine accepts no actions
// afterwards.
func (m *Machine) Close() {
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
}

// Start moves NotStarted → InProgress and zeroes elapsed time.
func (m *Machine) Start() error {
	return m.do(func() error {
		if m.status != StatusNotStarted {
			return apperr.Validation("cannot start attempt in status %s", m.status)
		}
		m.status = StatusInProgress
		m.startedAt = m.clock()
		m.elapsedS = 0
		return nil
	})
}

// SubmitAnswer evaluates and stores (or replaces) the answer for questionID.
// Auto-advance and auto-completion run as part of the same action.
func (m *Machine) SubmitAnswer(questionID string, payload models.AnswerPayload, timeSpentMs int64) (SubmitResult, error) {
	var res SubmitResult
	err := m.do(func() error {
		if m.status != StatusInProgress {
			return apperr.Validation("cannot submit answer in status %s", m.status)
		}
		idx, ok := m.byID[questionID]
		if !ok {
			return apperr.NotFound("question %s is not part of this attempt", questionID)
		}
		q := m.questions[idx]

		ans := models.UserAnswer{
			QuestionID:  questionID,
			Type:        q.Type,
			Payload:     payload,
			IsCorrect:   evaluator.Evaluate(q, payload),
			Score:       evaluator.Score(q, payload),
			SubmittedAt: m.clock(),
			TimeSpentMs: timeSpentMs,
		}
		m.answers[questionID] = ans
		res = SubmitResult{IsCorrect: ans.IsCorrect, Score: ans.Score, Answer: ans}

		if m.cfg.AutoCompleteOnAllAnswered && len(m.answers) == len(m.questions) {
			m.complete(CompletionAuto)
			res.Completed = true
			return nil
		}
		if m.cfg.AutoAdvance && m.index < len(m.questions)-1 {
			m.index++
		}
		return nil
	})
	return res, err
}

// Next advances the current index; it is a no-op at the last question.
func (m *Machine) Next() error {
	return m.do(func() error {
		if m.status != StatusInProgress {
			return apperr.Validation("cannot navigate in status %s", m.status)
		}
		if m.index < len(m.questions)-1 {
			m.index++
		}
		return nil
	})
}

// Previous moves back one question when back navigation is allowed; it is a
// no-op at the first question.
func (m *Machine) Previous() error {
	return m.do(func() error {
		if m.status != StatusInProgress {
			return apperr.Validation("cannot navigate in status %s", m.status)
		}
		if !m.cfg.AllowBackNav {
			return apperr.Validation("back navigation is disabled for this attempt")
		}
		if m.index > 0 {
			m.index--
		}
		return nil
	})
}

// NavigateTo jumps to an absolute index.
func (m *Machine) NavigateTo(index int) error {
	return m.do(func() error {
		if m.status != StatusInProgress {
			return apperr.Validation("cannot navigate in status %s", m.status)
		}
		if index < 0 || index >= len(m.questions) {
			return apperr.Validation("navigation index %d out of range [0,%d)", index, len(m.questions))
		}
		if index < m.index && !m.cfg.AllowBackNav {
			return apperr.Validation("back navigation is disabled for this attempt")
		}
		m.index = index
		return nil
	})
}

// Flag toggles review-flag membership for a question. Allowed in any status
// except NotStarted.
func (m *Machine) Flag(questionID string, flagged bool) error {
	return m.do(func() error {
		if m.status == StatusNotStarted {
			return apperr.Validation("cannot flag before the attempt starts")
		}
		if _, ok := m.byID[questionID]; !ok {
			return apperr.NotFound("question %s is not part of this attempt", questionID)
		}
		if flagged {
			m.flagged[questionID] = true
		} else {
			delete(m.flagged, questionID)
		}
		return nil
	})
}

// Pause suspends elapsed-time accumulation.
func (m *Machine) Pause() error {
	return m.do(func() error {
		if m.status != StatusInProgress {
			return apperr.Validation("cannot pause attempt in status %s", m.status)
		}
		m.status = StatusPaused
		return nil
	})
}

// Resume continues a paused attempt from its paused elapsed value.
func (m *Machine) Resume() error {
	return m.do(func() error {
		if m.status != StatusPaused {
			return apperr.Validation("cannot resume attempt in status %s", m.status)
		}
		m.status = StatusInProgress
		return nil
	})
}

// Tick advances elapsed time by one second. Ticks land on the same queue as
// user actions, so a tick-triggered expiry can never race a submission.
func (m *Machine) Tick() error {
	return m.do(func() error {
		if m.status != StatusInProgress {
			return nil
		}
		m.elapsedS++
		if m.cfg.TimeLimitSeconds > 0 && m.elapsedS >= m.cfg.TimeLimitSeconds {
			if m.cfg.ExpiryCompletes {
				m.complete(CompletionAuto)
			} else {
				m.complete(CompletionExpired)
			}
		}
		return nil
	})
}

// Complete finishes the attempt from InProgress or Paused.
func (m *Machine) Complete() error {
	return m.do(func() error {
		if m.status != StatusInProgress && m.status != StatusPaused {
			return apperr.Validation("cannot complete attempt in status %s", m.status)
		}
		m.complete(CompletionManual)
		return nil
	})
}

// Reset returns to NotStarted with the same questions and configuration,
// discarding answers, flags and elapsed time.
func (m *Machine) Reset() error {
	return m.do(func() error {
		m.status = StatusNotStarted
		m.index = 0
		m.answers = make(map[string]models.UserAnswer)
		m.flagged = make(map[string]bool)
		m.elapsedS = 0
		m.startedAt = time.Time{}
		m.completedAt = time.Time{}
		m.completionType = ""
		m.lastErr = ""
		return nil
	})
}

// RecordError surfaces an external failure (for example a failed snapshot
// save) in the state's error field without touching anything else.
func (m *Machine) RecordError(msg string) {
	_ = m.do(func() error {
		m.lastErr = msg
		return nil
	})
}

// Snapshot returns the current read-only projection.
func (m *Machine) Snapshot() State {
	var st State
	_ = m.do(func() error {
		st = m.snapshotLocked()
		return nil
	})
	return st
}

func (m *Machine) complete(completionType string) {
	m.status = StatusCompleted
	m.completedAt = m.clock()
	m.completionType = completionType
	if m.OnComplete != nil {
		m.OnComplete(m.snapshotLocked())
	}
}

// snapshotLocked must only run on the dispatch goroutine.
func (m *Machine) snapshotLocked() State {
	answers := make(map[string]models.UserAnswer, len(m.answers))
	for k, v := range m.answers {
		answers[k] = v
	}
	flagged := make(map[string]bool, len(m.flagged))
	for k := range m.flagged {
		flagged[k] = true
	}

	score, passed := m.scoreLocked()
	return State{
		QuizID:           m.quizID,
		Questions:        m.questions,
		CurrentIndex:     m.index,
		Answers:          answers,
		Flagged:          flagged,
		Status:           m.status,
		ElapsedSeconds:   m.elapsedS,
		RemainingSeconds: m.remainingLocked(),
		StartedAt:        m.startedAt,
		CompletedAt:      m.completedAt,
		CompletionType:   m.completionType,
		Score:            score,
		Passed:           passed,
		ProgressPct:      m.progressLocked(),
		LastError:        m.lastErr,
		Config:           m.cfg,
	}
}

func (m *Machine) scoreLocked() (int, bool) {
	if len(m.questions) == 0 {
		return 0, false
	}
	correct := 0
	for _, a := range m.answers {
		if a.IsCorrect {
			correct++
		}
	}
	score := int(math.Round(float64(correct) / float64(len(m.questions)) * 100))
	return score, score >= m.cfg.PassingScore
}

func (m *Machine) progressLocked() int {
	if len(m.questions) == 0 {
		return 0
	}
	return int(math.Round(float64(m.index+1) / float64(len(m.questions)) * 100))
}

func (m *Machine) remainingLocked() int {
	if m.cfg.TimeLimitSeconds <= 0 {
		return -1
	}
	r := m.cfg.TimeLimitSeconds - m.elapsedS
	if r < 0 {
		return 0
	}
	return r
}
