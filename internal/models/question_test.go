package models

import "testing"

func TestQuestionValidate(t *testing.T) {
	yes := true
	valid := []Question{
		{ID: "q1", Type: SingleSelection, Options: []Option{{ID: "a"}}, CorrectOptionID: "a"},
		{ID: "q2", Type: MultiSelection, Options: []Option{{ID: "a"}, {ID: "b"}}, CorrectOptionIDs: []string{"a", "b"}},
		{ID: "q3", Type: DragAndDrop, Targets: []DropTarget{{ID: "t1"}}, CorrectPairs: map[string]string{"t1": "x"}},
		{ID: "q4", Type: DropdownSelection, CorrectTexts: map[string]string{"blank1": "fmt"}},
		{ID: "q5", Type: Order, Items: []Option{{ID: "a"}, {ID: "b"}}, CorrectOrder: []string{"a", "b"}},
		{ID: "q6", Type: YesNo, CorrectBool: &yes},
		{ID: "q7", Type: YesNoMulti, Statements: []Statement{{ID: "s1"}}, CorrectBools: []bool{true}},
	}
	for _, q := range valid {
		if err := q.Validate(); err != nil {
			t.Errorf("%s (%s): unexpected error %v", q.ID, q.Type, err)
		}
	}

	invalid := []struct {
		name string
		q    Question
	}{
		{"no id", Question{Type: YesNo, CorrectBool: &yes}},
		{"unknown type", Question{ID: "x", Type: "essay"}},
		{"single selection without key", Question{ID: "x", Type: SingleSelection, Options: []Option{{ID: "a"}}}},
		{"key outside options", Question{ID: "x", Type: SingleSelection, Options: []Option{{ID: "a"}}, CorrectOptionID: "z"}},
		{"multi selection key outside options", Question{ID: "x", Type: MultiSelection, Options: []Option{{ID: "a"}}, CorrectOptionIDs: []string{"z"}}},
		{"order with short key", Question{ID: "x", Type: Order, Items: []Option{{ID: "a"}, {ID: "b"}}, CorrectOrder: []string{"a"}}},
		{"yes_no without key", Question{ID: "x", Type: YesNo}},
		{"yesno_multi length mismatch", Question{ID: "x", Type: YesNoMulti, Statements: []Statement{{ID: "s1"}, {ID: "s2"}}, CorrectBools: []bool{true}}},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.q.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestQuestionRedactedStripsAnswerKeys(t *testing.T) {
	yes := true
	q := Question{
		ID: "q1", Type: SingleSelection, Prompt: "pick one",
		Options:          []Option{{ID: "a", Text: "A"}},
		CorrectOptionID:  "a",
		CorrectOptionIDs: []string{"a"},
		CorrectPairs:     map[string]string{"t": "x"},
		CorrectTexts:     map[string]string{"b": "y"},
		CorrectOrder:     []string{"a"},
		CorrectBool:      &yes,
		CorrectBools:     []bool{true},
	}

	r := q.Redacted()
	if r.CorrectOptionID != "" || r.CorrectOptionIDs != nil || r.CorrectPairs != nil ||
		r.CorrectTexts != nil || r.CorrectOrder != nil || r.CorrectBool != nil || r.CorrectBools != nil {
		t.Errorf("answer keys survived redaction: %+v", r)
	}
	if r.Prompt != "pick one" || len(r.Options) != 1 {
		t.Error("redaction must keep the presented content")
	}
	// The original is untouched.
	if q.CorrectOptionID != "a" {
		t.Error("Redacted mutated its receiver")
	}
}
