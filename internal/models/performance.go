package models

import "time"

// PerformanceRecord is the per-(user, question) mastery trajectory driven by
// the SM-2 updater. Records are created on first response and never deleted;
// stale ones simply stop being due.
type PerformanceRecord struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	UserID         string    `bson:"user_id" json:"user_id"`
	QuestionID     string    `bson:"question_id" json:"question_id"`
	Topic          string    `bson:"topic" json:"topic"`
	EaseFactor     float64   `bson:"ease_factor" json:"ease_factor"`
	IntervalDays   int       `bson:"interval_days" json:"interval_days"`
	Repetitions    int       `bson:"repetitions" json:"repetitions"`
	CorrectStreak  int       `bson:"correct_streak" json:"correct_streak"`
	IncorrectStrk  int       `bson:"incorrect_streak" json:"incorrect_streak"`
	TotalAttempts  int       `bson:"total_attempts" json:"total_attempts"`
	CorrectCount   int       `bson:"correct_attempts" json:"correct_attempts"`
	AvgResponseMs  float64   `bson:"avg_response_time_ms" json:"avg_response_time_ms"`
	PriorityScore  float64   `bson:"priority_score" json:"priority_score"`
	LastReviewedAt time.Time `bson:"last_reviewed_at" json:"last_reviewed_at"`
	NextReviewAt   time.Time `bson:"next_review_date" json:"next_review_date"`
}

// ReviewQuestion is the scheduler-facing projection of a due question:
// the redacted question joined with its scheduling state.
type ReviewQuestion struct {
	Question      Question  `json:"question"`
	EaseFactor    float64   `json:"ease_factor"`
	IntervalDays  int       `json:"interval_days"`
	Repetitions   int       `json:"repetitions"`
	PriorityScore float64   `json:"priority_score"`
	NextReviewAt  time.Time `json:"next_review_date"`
}
