// Package evaluator decides correctness for every question variant. All
// functions are pure and total: a malformed payload evaluates to incorrect,
// it never panics and never returns an error.
package evaluator

import (
	"quiz-engine/internal/models"
)

// Evaluate reports whether the payload fully answers the question.
func Evaluate(q models.Question, p models.AnswerPayload) bool {
	switch q.Type {
	case models.SingleSelection:
		return p.OptionID != "" && p.OptionID == q.CorrectOptionID

	case models.MultiSelection:
		return setsEqual(p.OptionIDs, q.CorrectOptionIDs)

	case models.DragAndDrop:
		return allCorrect(dragAndDropMap(q, p))

	case models.DropdownSelection:
		return allCorrect(dropdownMap(q, p))

	case models.Order:
		return sequencesEqual(p.Order, q.CorrectOrder)

	case models.YesNo:
		return p.Bool != nil && q.CorrectBool != nil && *p.Bool == *q.CorrectBool

	case models.YesNoMulti:
		return allCorrect(yesNoMultiMap(q, p))
	}
	return false
}

// CorrectnessMap maps sub-answer keys (target ids, placeholder keys,
// statement ids) to per-part correctness. Variants without sub-parts get a
// single entry keyed by the question id.
func CorrectnessMap(q models.Question, p models.AnswerPayload) map[string]bool {
	switch q.Type {
	case models.DragAndDrop:
		return dragAndDropMap(q, p)
	case models.DropdownSelection:
		return dropdownMap(q, p)
	case models.YesNoMulti:
		return yesNoMultiMap(q, p)
	default:
		return map[string]bool{q.ID: Evaluate(q, p)}
	}
}

// Score returns partial credit in [0,1]: the fraction of correct sub-parts.
// For single-part variants this is 0 or 1 and agrees with Evaluate.
func Score(q models.Question, p models.AnswerPayload) float64 {
	m := CorrectnessMap(q, p)
	if len(m) == 0 {
		return 0
	}
	correct := 0
	for _, ok := range m {
		if ok {
			correct++
		}
	}
	return float64(correct) / float64(len(m))
}

func allCorrect(m map[string]bool) bool {
	if len(m) == 0 {
		return false
	}
	for _, ok := range m {
		if !ok {
			return false
		}
	}
	return true
}

// dragAndDropMap scores each declared target. A target with no correct
// pairing defined is correct exactly when left empty; a target with a
// defined pairing must hold that option.
func dragAndDropMap(q models.Question, p models.AnswerPayload) map[string]bool {
	m := make(map[string]bool, len(q.Targets))
	for _, target := range q.Targets {
		want, hasKey := q.CorrectPairs[target.ID]
		got := ""
		if p.Pairs != nil {
			got = p.Pairs[target.ID]
		}
		if !hasKey {
			m[target.ID] = got == ""
			continue
		}
		m[target.ID] = got == want
	}
	return m
}

func dropdownMap(q models.Question, p models.AnswerPayload) map[string]bool {
	m := make(map[string]bool, len(q.CorrectTexts))
	for key, want := range q.CorrectTexts {
		got := ""
		if p.Selections != nil {
			got = p.Selections[key]
		}
		m[key] = got == want
	}
	return m
}

// yesNoMultiMap compares statement booleans positionally against the key.
func yesNoMultiMap(q models.Question, p models.AnswerPayload) map[string]bool {
	m := make(map[string]bool, len(q.CorrectBools))
	for i, want := range q.CorrectBools {
		key := statementKey(q, i)
		if i >= len(p.Bools) {
			m[key] = false
			continue
		}
		m[key] = p.Bools[i] == want
	}
	return m
}

func statementKey(q models.Question, i int) string {
	if i < len(q.Statements) {
		return q.Statements[i].ID
	}
	return q.ID
}

func setsEqual(a, b []string) bool {
	if len(b) == 0 || len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}

func sequencesEqual(a, b []string) bool {
	if len(b) == 0 || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
