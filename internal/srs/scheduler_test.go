package srs

import (
	"testing"
	"time"
)

func TestSelectDueFiltersAndRanks(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	pool := []Candidate{
		{QuestionID: "future", NextReviewAt: now.Add(48 * time.Hour), PriorityScore: 9},
		{QuestionID: "urgent", NextReviewAt: now.Add(-72 * time.Hour), PriorityScore: 5},
		{QuestionID: "due-now", NextReviewAt: now, PriorityScore: 1},
	}

	got := s.SelectDue(pool, "", 10, now)
	want := []string{"urgent", "due-now"}
	assertIDs(t, got, want)
}

func TestSelectDueOverdueBeatsDueToday(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Equal priority and incorrect streaks: the more overdue question wins
	// on the next-review tie-break.
	pool := []Candidate{
		{QuestionID: "b", NextReviewAt: now, PriorityScore: 3, IncorrectStrk: 1},
		{QuestionID: "a", NextReviewAt: now.Add(-10 * 24 * time.Hour), PriorityScore: 3, IncorrectStrk: 1},
	}

	got := s.SelectDue(pool, "", 10, now)
	assertIDs(t, got, []string{"a", "b"})
}

func TestSelectDueNeverAttemptedIsMaximallyDue(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// "ancient" is a month overdue with a huge priority score; an unseen
	// question still outranks it.
	pool := []Candidate{
		{QuestionID: "ancient", NextReviewAt: now.Add(-30 * 24 * time.Hour), PriorityScore: 32},
		{QuestionID: "reviewed", NextReviewAt: now.Add(-24 * time.Hour), PriorityScore: 4},
		{QuestionID: "fresh", NeverAttempted: true},
		{QuestionID: "fresh-2", NeverAttempted: true},
	}

	got := s.SelectDue(pool, "", 10, now)
	assertIDs(t, got, []string{"fresh", "fresh-2", "ancient", "reviewed"})
}

func TestSelectDueTopicFilter(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	pool := []Candidate{
		{QuestionID: "go-1", Topic: "go", NextReviewAt: now.Add(-time.Hour)},
		{QuestionID: "sql-1", Topic: "sql", NextReviewAt: now.Add(-time.Hour)},
	}

	assertIDs(t, s.SelectDue(pool, "go", 10, now), []string{"go-1"})
}

func TestSelectDueRespectsLimitAndDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchSize = 3
	s := NewScheduler(cfg)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	pool := make([]Candidate, 10)
	for i := range pool {
		pool[i] = Candidate{QuestionID: string(rune('a' + i)), NextReviewAt: now.Add(-time.Hour)}
	}

	if got := s.SelectDue(pool, "", 2, now); len(got) != 2 {
		t.Errorf("explicit limit: got %d, want 2", len(got))
	}
	if got := s.SelectDue(pool, "", 0, now); len(got) != 3 {
		t.Errorf("default batch size: got %d, want 3", len(got))
	}
}

func TestSelectDueEmptyPoolAndAllFuture(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := s.SelectDue(nil, "", 10, now); len(got) != 0 {
		t.Errorf("nil pool: got %v, want empty", got)
	}

	pool := []Candidate{
		{QuestionID: "x", NextReviewAt: now.Add(time.Hour)},
		{QuestionID: "y", NextReviewAt: now.Add(48 * time.Hour)},
	}
	if got := s.SelectDue(pool, "", 10, now); len(got) != 0 {
		t.Errorf("all future: got %v, want empty", got)
	}
}

func TestSelectDueIsDeterministic(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	pool := []Candidate{
		{QuestionID: "p", NextReviewAt: now.Add(-time.Hour), PriorityScore: 2},
		{QuestionID: "q", NextReviewAt: now.Add(-time.Hour), PriorityScore: 2},
		{QuestionID: "r", NextReviewAt: now.Add(-time.Hour), PriorityScore: 2},
	}

	first := s.SelectDue(pool, "", 10, now)
	for i := 0; i < 20; i++ {
		next := s.SelectDue(pool, "", 10, now)
		assertIDs(t, next, first)
	}
	// Full ties preserve pool order.
	assertIDs(t, first, []string{"p", "q", "r"})
}

func assertIDs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
