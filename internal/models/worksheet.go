package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

var difficultyLabels = map[Difficulty]string{
	DifficultyEasy:   "Easy (Foundation)",
	DifficultyMedium: "Medium (Standard)",
	DifficultyHard:   "Hard (Exemplar/Advanced)",
}

// Label is the display name shown to users and sent to the provider.
func (d Difficulty) Label() string {
	if l, ok := difficultyLabels[d]; ok {
		return l
	}
	return string(d)
}

func (d Difficulty) Valid() bool {
	_, ok := difficultyLabels[d]
	return ok
}

// ParseDifficulty accepts the code ("easy" / "Easy") or the full label
// ("Easy (Foundation)"), case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, d := range Difficulties {
		if v == string(d) || v == strings.ToLower(d.Label()) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

type DifficultyOption struct {
	Code  Difficulty `json:"code"`
	Label string     `json:"label"`
}

func DifficultyOptions() []DifficultyOption {
	opts := make([]DifficultyOption, len(Difficulties))
	for i, d := range Difficulties {
		opts[i] = DifficultyOption{Code: d, Label: d.Label()}
	}
	return opts
}

type QuestionType string

const (
	QuestionMCQ         QuestionType = "MCQ"
	QuestionShortAnswer QuestionType = "Short Answer"
)

type GenerationRequest struct {
	Grade         string     `json:"grade" validate:"required"`
	Subject       string     `json:"subject,omitempty"`
	Topic         string     `json:"topic" validate:"required"`
	Difficulty    Difficulty `json:"difficulty" validate:"difficulty"`
	QuestionCount int        `json:"question_count" validate:"min=1"`
}

type Question struct {
	ID       int          `json:"id"`
	Question string       `json:"question"`
	Type     QuestionType `json:"type"`
	Options  []string     `json:"options,omitempty"`
	Answer   string       `json:"answer"`
	Solution string       `json:"solution"`
}

type Worksheet struct {
	Title      string     `json:"title"`
	Grade      string     `json:"grade"`
	Subject    string     `json:"subject,omitempty"`
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
	Questions  []Question `json:"questions"`
}

// Question returns the question with the given id.
func (w *Worksheet) Question(id int) (Question, bool) {
	for _, q := range w.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// MarshalJSON adds the difficulty label so clients don't carry their own table.
func (w Worksheet) MarshalJSON() ([]byte, error) {
	type plain Worksheet
	return json.Marshal(struct {
		plain
		DifficultyLabel string `json:"difficulty_label"`
	}{plain(w), w.Difficulty.Label()})
}

type UsageRecord struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
