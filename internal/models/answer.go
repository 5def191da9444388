package models

import "time"

// AnswerPayload is the raw response a learner submits for one question.
// Exactly one field group is expected per variant; the evaluator treats a
// wrong shape as an incorrect answer, never as an error.
type AnswerPayload struct {
	OptionID   string            `bson:"option_id,omitempty" json:"option_id,omitempty"`
	OptionIDs  []string          `bson:"option_ids,omitempty" json:"option_ids,omitempty"`
	Pairs      map[string]string `bson:"pairs,omitempty" json:"pairs,omitempty"`
	Selections map[string]string `bson:"selections,omitempty" json:"selections,omitempty"`
	Order      []string          `bson:"order,omitempty" json:"order,omitempty"`
	Bool       *bool             `bson:"bool,omitempty" json:"bool,omitempty"`
	Bools      []bool            `bson:"bools,omitempty" json:"bools,omitempty"`
}

// UserAnswer is one learner response to one question within one attempt.
// Re-submission replaces the stored record, it is never mutated in place.
type UserAnswer struct {
	QuestionID  string        `bson:"question_id" json:"question_id"`
	Type        QuestionType  `bson:"type" json:"type"`
	Payload     AnswerPayload `bson:"payload" json:"payload"`
	IsCorrect   bool          `bson:"is_correct" json:"is_correct"`
	Score       float64       `bson:"score" json:"score"`
	SubmittedAt time.Time     `bson:"submitted_at" json:"submitted_at"`
	TimeSpentMs int64         `bson:"time_spent_ms" json:"time_spent_ms"`
}

// QuestionResponse is the durable record of a submission event. Unlike
// UserAnswer it survives the attempt and feeds the performance updater.
type QuestionResponse struct {
	ID             string        `bson:"_id,omitempty" json:"id"`
	UserID         string        `bson:"user_id" json:"user_id"`
	QuestionID     string        `bson:"question_id" json:"question_id"`
	AttemptID      string        `bson:"attempt_id,omitempty" json:"attempt_id,omitempty"`
	Payload        AnswerPayload `bson:"payload" json:"payload"`
	IsCorrect      bool          `bson:"is_correct" json:"is_correct"`
	ResponseTimeMs int64         `bson:"response_time_ms" json:"response_time_ms"`
	SubmittedAt    time.Time     `bson:"submitted_at" json:"submitted_at"`
}
