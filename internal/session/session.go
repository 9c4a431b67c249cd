package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"worksheet-backend/internal/models"
)

type View string

const (
	ViewLanding   View = "landing"
	ViewSetup     View = "setup"
	ViewWorksheet View = "worksheet"
)

var (
	ErrNoWorksheet     = errors.New("no worksheet in session")
	ErrUnknownQuestion = errors.New("question not in worksheet")
)

// Selection is what the setup form has accumulated so far.
type Selection struct {
	Grade         string            `json:"grade"`
	Subject       string            `json:"subject"`
	Topic         string            `json:"topic"`
	Difficulty    models.Difficulty `json:"difficulty"`
	QuestionCount int               `json:"question_count"`
}

// Banner is the dismissable error shown after a failed generation.
type Banner struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Session holds one current worksheet and the interaction state around it.
// Methods do not lock; callers hold Lock for the duration of a read or update.
type Session struct {
	mu sync.Mutex

	ID         uuid.UUID
	ClientID   string
	View       View
	Selection  Selection
	Worksheet  *models.Worksheet
	Answers    map[int]string
	Graded     bool
	Solutions  map[int]bool
	Generating bool
	LastError  *Banner
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func New(clientID string, defaults Selection) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		ClientID:  clientID,
		View:      ViewLanding,
		Selection: defaults,
		Answers:   make(map[int]string),
		Solutions: make(map[int]bool),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

func (s *Session) touch() { s.UpdatedAt = time.Now() }

// StartNew replaces the worksheet and clears answers, grading and solution
// visibility.
func (s *Session) StartNew(ws *models.Worksheet) {
	s.Worksheet = ws
	s.Answers = make(map[int]string)
	s.Solutions = make(map[int]bool)
	s.Graded = false
	s.touch()
}

// Clear drops the worksheet and all state attached to it.
func (s *Session) Clear() {
	s.Worksheet = nil
	s.Answers = make(map[int]string)
	s.Solutions = make(map[int]bool)
	s.Graded = false
	s.touch()
}

// SetAnswer stores the value as typed; it is only checked when grading.
func (s *Session) SetAnswer(questionID int, value string) error {
	if err := s.requireQuestion(questionID); err != nil {
		return err
	}
	s.Answers[questionID] = value
	s.touch()
	return nil
}

// Grade marks the worksheet graded. Answers are left as they are.
func (s *Session) Grade() error {
	if s.Worksheet == nil {
		return ErrNoWorksheet
	}
	s.Graded = true
	s.touch()
	return nil
}

// ToggleSolution flips one question's solution visibility and returns the new value.
func (s *Session) ToggleSolution(questionID int) (bool, error) {
	if err := s.requireQuestion(questionID); err != nil {
		return false, err
	}
	s.Solutions[questionID] = !s.Solutions[questionID]
	s.touch()
	return s.Solutions[questionID], nil
}

func (s *Session) requireQuestion(id int) error {
	if s.Worksheet == nil {
		return ErrNoWorksheet
	}
	if _, ok := s.Worksheet.Question(id); !ok {
		return ErrUnknownQuestion
	}
	return nil
}

// Matches compares an answer with the expected one, ignoring case and
// surrounding whitespace. "1/2" and "0.5" do not match.
func Matches(answer, expected string) bool {
	return strings.ToLower(strings.TrimSpace(answer)) == strings.ToLower(strings.TrimSpace(expected))
}

type QuestionResult struct {
	ID       int    `json:"id"`
	Answer   string `json:"answer"`
	Expected string `json:"expected"`
	Correct  bool   `json:"correct"`
}

type Results struct {
	Graded    bool             `json:"graded"`
	Correct   int              `json:"correct"`
	Total     int              `json:"total"`
	Questions []QuestionResult `json:"questions,omitempty"`
}

// Results is empty until the worksheet is graded. It is computed from the
// current answers on every call.
func (s *Session) Results() Results {
	if s.Worksheet == nil || !s.Graded {
		return Results{}
	}
	res := Results{
		Graded:    true,
		Total:     len(s.Worksheet.Questions),
		Questions: make([]QuestionResult, 0, len(s.Worksheet.Questions)),
	}
	for _, q := range s.Worksheet.Questions {
		answer := s.Answers[q.ID]
		ok := Matches(answer, q.Answer)
		if ok {
			res.Correct++
		}
		res.Questions = append(res.Questions, QuestionResult{
			ID:       q.ID,
			Answer:   answer,
			Expected: q.Answer,
			Correct:  ok,
		})
	}
	return res
}

// Snapshot is the read model handed to clients.
type Snapshot struct {
	ID         uuid.UUID         `json:"id"`
	View       View              `json:"view"`
	Selection  Selection         `json:"selection"`
	Worksheet  *models.Worksheet `json:"worksheet,omitempty"`
	Answers    map[int]string    `json:"answers"`
	Graded     bool              `json:"graded"`
	Solutions  map[int]bool      `json:"solutions"`
	Results    Results           `json:"results"`
	Generating bool              `json:"generating"`
	LastError  *Banner           `json:"last_error,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (s *Session) Snapshot() Snapshot {
	answers := make(map[int]string, len(s.Answers))
	for k, v := range s.Answers {
		answers[k] = v
	}
	solutions := make(map[int]bool, len(s.Solutions))
	for k, v := range s.Solutions {
		if v {
			solutions[k] = true
		}
	}
	var banner *Banner
	if s.LastError != nil {
		b := *s.LastError
		banner = &b
	}
	return Snapshot{
		ID:         s.ID,
		View:       s.View,
		Selection:  s.Selection,
		Worksheet:  s.Worksheet,
		Answers:    answers,
		Graded:     s.Graded,
		Solutions:  solutions,
		Results:    s.Results(),
		Generating: s.Generating,
		LastError:  banner,
		UpdatedAt:  s.UpdatedAt,
	}
}
