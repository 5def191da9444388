package models

import "time"

// AdaptiveSession is a named batch of question ids assigned to a user for one
// review pass. The question list is frozen at creation; completion is the only
// permitted mutation.
type AdaptiveSession struct {
	ID          string         `bson:"_id,omitempty" json:"session_id"`
	UserID      string         `bson:"user_id" json:"user_id"`
	Topic       string         `bson:"topic" json:"topic"`
	QuestionIDs []string       `bson:"question_ids" json:"question_ids"`
	Settings    map[string]any `bson:"settings" json:"settings"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
	CompletedAt *time.Time     `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Completed reports whether the session has been marked completed.
func (s *AdaptiveSession) Completed() bool {
	return s.CompletedAt != nil
}

// SessionFilter narrows List queries.
type SessionFilter struct {
	Topic     string
	Completed *bool
	Limit     int64
	Offset    int64
}
