package models

import "fmt"

// QuestionType tags the seven supported question variants. New variants are
// added as a new tag plus an evaluator case, never by embedding.
type QuestionType string

const (
	SingleSelection   QuestionType = "single_selection"
	MultiSelection    QuestionType = "multi_selection"
	DragAndDrop       QuestionType = "drag_and_drop"
	DropdownSelection QuestionType = "dropdown_selection"
	Order             QuestionType = "order"
	YesNo             QuestionType = "yes_no"
	YesNoMulti        QuestionType = "yesno_multi"
)

// ValidTypes lists every variant tag the evaluator can dispatch on.
var ValidTypes = []QuestionType{
	SingleSelection, MultiSelection, DragAndDrop,
	DropdownSelection, Order, YesNo, YesNoMulti,
}

func (t QuestionType) Valid() bool {
	for _, v := range ValidTypes {
		if t == v {
			return true
		}
	}
	return false
}

type Option struct {
	ID   string `bson:"id" json:"id"`
	Text string `bson:"text" json:"text"`
}

// DropTarget is one slot in a drag_and_drop question.
type DropTarget struct {
	ID    string `bson:"id" json:"id"`
	Label string `bson:"label" json:"label"`
}

// Statement is one row of a yesno_multi question.
type Statement struct {
	ID   string `bson:"id" json:"id"`
	Text string `bson:"text" json:"text"`
}

// Question is one assessable item. The answer-key fields are populated
// according to Type; the rest stay at their zero value. Questions are
// immutable for the lifetime of an attempt.
type Question struct {
	ID         string       `bson:"_id,omitempty" json:"id"`
	Type       QuestionType `bson:"type" json:"type"`
	Prompt     string       `bson:"prompt" json:"prompt"`
	Topic      string       `bson:"topic" json:"topic"`
	Difficulty string       `bson:"difficulty" json:"difficulty"`
	Points     int          `bson:"points" json:"points"`

	Options    []Option     `bson:"options,omitempty" json:"options,omitempty"`
	Targets    []DropTarget `bson:"targets,omitempty" json:"targets,omitempty"`
	Items      []Option     `bson:"items,omitempty" json:"items,omitempty"`
	Statements []Statement  `bson:"statements,omitempty" json:"statements,omitempty"`

	// Answer keys, one of which is set depending on Type.
	CorrectOptionID  string            `bson:"correct_option_id,omitempty" json:"correct_option_id,omitempty"`
	CorrectOptionIDs []string          `bson:"correct_option_ids,omitempty" json:"correct_option_ids,omitempty"`
	CorrectPairs     map[string]string `bson:"correct_pairs,omitempty" json:"correct_pairs,omitempty"`
	CorrectTexts     map[string]string `bson:"correct_texts,omitempty" json:"correct_texts,omitempty"`
	CorrectOrder     []string          `bson:"correct_order,omitempty" json:"correct_order,omitempty"`
	CorrectBool      *bool             `bson:"correct_bool,omitempty" json:"correct_bool,omitempty"`
	CorrectBools     []bool            `bson:"correct_bools,omitempty" json:"correct_bools,omitempty"`
}

// Validate checks the question is well-formed for its variant: the tag is
// known, the presented content exists and the answer key refers to it.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question has no id")
	}
	switch q.Type {
	case SingleSelection:
		if len(q.Options) == 0 || q.CorrectOptionID == "" {
			return fmt.Errorf("question %s: single_selection needs options and a correct option", q.ID)
		}
		if !q.hasOption(q.CorrectOptionID) {
			return fmt.Errorf("question %s: correct option %s is not among the options", q.ID, q.CorrectOptionID)
		}
	case MultiSelection:
		if len(q.Options) == 0 || len(q.CorrectOptionIDs) == 0 {
			return fmt.Errorf("question %s: multi_selection needs options and correct options", q.ID)
		}
		for _, id := range q.CorrectOptionIDs {
			if !q.hasOption(id) {
				return fmt.Errorf("question %s: correct option %s is not among the options", q.ID, id)
			}
		}
	case DragAndDrop:
		if len(q.Targets) == 0 || len(q.CorrectPairs) == 0 {
			return fmt.Errorf("question %s: drag_and_drop needs targets and correct pairs", q.ID)
		}
	case DropdownSelection:
		if len(q.CorrectTexts) == 0 {
			return fmt.Errorf("question %s: dropdown_selection needs correct texts", q.ID)
		}
	case Order:
		if len(q.Items) == 0 || len(q.CorrectOrder) != len(q.Items) {
			return fmt.Errorf("question %s: order needs items and a full correct order", q.ID)
		}
	case YesNo:
		if q.CorrectBool == nil {
			return fmt.Errorf("question %s: yes_no needs a correct answer", q.ID)
		}
	case YesNoMulti:
		if len(q.Statements) == 0 || len(q.CorrectBools) != len(q.Statements) {
			return fmt.Errorf("question %s: yesno_multi needs statements and one answer per statement", q.ID)
		}
	default:
		return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
	}
	return nil
}

func (q Question) hasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Redacted returns a copy safe to send to the UI layer: the variant payload
// shape is kept, the answer keys are stripped.
func (q Question) Redacted() Question {
	q.CorrectOptionID = ""
	q.CorrectOptionIDs = nil
	q.CorrectPairs = nil
	q.CorrectTexts = nil
	q.CorrectOrder = nil
	q.CorrectBool = nil
	q.CorrectBools = nil
	return q
}
