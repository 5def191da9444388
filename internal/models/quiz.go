package models

import "time"

// Quiz is a fixed, authored collection of questions. Attempts can start from
// a quiz or from a review batch assembled by the scheduler.
type Quiz struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Topic       string    `bson:"topic" json:"topic"`
	QuestionIDs []string  `bson:"question_ids" json:"question_ids"`
	TimeLimitS  int       `bson:"time_limit_seconds" json:"time_limit_seconds"`
	PassingPct  int       `bson:"passing_score" json:"passing_score"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// QuizResult is the durable summary written when an attempt completes.
type QuizResult struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	AttemptID      string    `bson:"attempt_id" json:"attempt_id"`
	QuizID         string    `bson:"quiz_id" json:"quiz_id"`
	UserID         string    `bson:"user_id" json:"user_id"`
	Score          int       `bson:"score" json:"score"`
	Passed         bool      `bson:"passed" json:"passed"`
	CorrectCount   int       `bson:"correct_count" json:"correct_count"`
	TotalQuestions int       `bson:"total_questions" json:"total_questions"`
	ElapsedSeconds int       `bson:"elapsed_seconds" json:"elapsed_seconds"`
	CompletionType string    `bson:"completion_type" json:"completion_type"`
	CompletedAt    time.Time `bson:"completed_at" json:"completed_at"`
}
