package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/generative-ai-go/genai"

	"worksheet-backend/internal/models"
)

// Provider produces one JSON document for a prompt under a declared schema.
type Provider interface {
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// WorksheetService turns a generation request into exactly one provider call
// and validates the answer into a Worksheet. It never retries and never caches.
type WorksheetService struct {
	provider Provider
	prompts  *PromptBuilder
	validate *validator.Validate
}

func NewWorksheetService(provider Provider, prompts *PromptBuilder) *WorksheetService {
	return &WorksheetService{
		provider: provider,
		prompts:  prompts,
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		return models.Difficulty(fl.Field().String()).Valid()
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the request contract: grade and topic set, a known
// difficulty and at least one question.
func (s *WorksheetService) Validate(req models.GenerationRequest) error {
	req.Grade = strings.TrimSpace(req.Grade)
	req.Topic = strings.TrimSpace(req.Topic)

	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
		case "min":
			fields[fe.Field()] = "must be at least " + fe.Param()
		case "difficulty":
			fields[fe.Field()] = "must be one of easy, medium, hard"
		default:
			fields[fe.Field()] = "is invalid"
		}
	}
	return &ValidationError{Fields: fields}
}

// BuildPrompt renders the provider prompt for a request that passed Validate.
func (s *WorksheetService) BuildPrompt(req models.GenerationRequest) (string, error) {
	return s.prompts.Build(req)
}

func (s *WorksheetService) Generate(ctx context.Context, req models.GenerationRequest) (*models.Worksheet, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	prompt, err := s.BuildPrompt(req)
	if err != nil {
		return nil, err
	}

	raw, err := s.provider.GenerateJSON(ctx, prompt, ResponseSchema(req.Subject != ""))
	if err != nil {
		log.Printf("worksheet: provider call failed (grade=%q topic=%q): %v", req.Grade, req.Topic, err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}
	if strings.TrimSpace(raw) == "" {
		log.Printf("worksheet: provider returned an empty body (grade=%q topic=%q)", req.Grade, req.Topic)
		return nil, fmt.Errorf("%w: empty response from provider", ErrGenerationUnavailable)
	}

	ws, err := s.ParseWorksheet(raw, req)
	if err != nil {
		log.Printf("worksheet: invalid provider response (grade=%q topic=%q): %v; excerpt=%q",
			req.Grade, req.Topic, err, excerpt(raw, 300))
		return nil, err
	}

	if len(ws.Questions) != req.QuestionCount {
		log.Printf("worksheet: asked for %d questions, provider returned %d (grade=%q topic=%q)",
			req.QuestionCount, len(ws.Questions), req.Grade, req.Topic)
	}
	return ws, nil
}

type worksheetPayload struct {
	Title      string            `json:"title" validate:"required"`
	Grade      string            `json:"grade" validate:"required"`
	Subject    string            `json:"subject"`
	Topic      string            `json:"topic" validate:"required"`
	Difficulty string            `json:"difficulty" validate:"required"`
	Questions  []questionPayload `json:"questions" validate:"required,min=1,dive"`
}

type questionPayload struct {
	ID       *int     `json:"id" validate:"required"`
	Question string   `json:"question" validate:"required"`
	Type     string   `json:"type" validate:"oneof=MCQ 'Short Answer'"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer" validate:"required"`
	Solution string   `json:"solution" validate:"required"`
}

// ParseWorksheet validates a raw provider body into a Worksheet. Any failure
// wraps ErrInvalidResponseFormat; nothing partial is returned.
func (s *WorksheetService) ParseWorksheet(raw string, req models.GenerationRequest) (*models.Worksheet, error) {
	body := stripCodeFences(raw)
	if !strings.HasPrefix(body, "{") {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidResponseFormat)
	}

	var p worksheetPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponseFormat, err)
	}

	for i := range p.Questions {
		p.Questions[i].Type = normalizeQuestionType(p.Questions[i].Type)
	}

	if err := s.validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponseFormat, describeValidation(err))
	}

	if req.Subject != "" && strings.TrimSpace(p.Subject) == "" {
		return nil, fmt.Errorf("%w: subject missing", ErrInvalidResponseFormat)
	}

	ws := &models.Worksheet{
		Title:      strings.TrimSpace(p.Title),
		Grade:      strings.TrimSpace(p.Grade),
		Subject:    strings.TrimSpace(p.Subject),
		Topic:      strings.TrimSpace(p.Topic),
		Difficulty: req.Difficulty,
		Questions:  make([]models.Question, 0, len(p.Questions)),
	}
	if d, err := models.ParseDifficulty(p.Difficulty); err == nil {
		ws.Difficulty = d
	}

	seen := make(map[int]bool, len(p.Questions))
	for i, q := range p.Questions {
		id := *q.ID
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate question id %d", ErrInvalidResponseFormat, id)
		}
		seen[id] = true

		question := models.Question{
			ID:       id,
			Question: q.Question,
			Type:     models.QuestionType(q.Type),
			Answer:   q.Answer,
			Solution: q.Solution,
		}

		if question.Type == models.QuestionMCQ {
			options := make([]string, 0, len(q.Options))
			for _, o := range q.Options {
				if strings.TrimSpace(o) != "" {
					options = append(options, o)
				}
			}
			if len(options) < 2 {
				return nil, fmt.Errorf("%w: question %d is MCQ with %d options", ErrInvalidResponseFormat, i+1, len(options))
			}
			question.Options = options
			if !containsFold(options, q.Answer) {
				log.Printf("worksheet: MCQ %d answer %q is not one of its options", id, q.Answer)
			}
		}

		ws.Questions = append(ws.Questions, question)
	}

	return ws, nil
}

func normalizeQuestionType(t string) string {
	switch strings.ToLower(strings.Join(strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(t)), " ")) {
	case "mcq", "multiple choice":
		return string(models.QuestionMCQ)
	case "short answer", "shortanswer":
		return string(models.QuestionShortAnswer)
	}
	return t
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is e.g. "worksheetPayload.questions[2].answer".
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", ns, fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func containsFold(options []string, answer string) bool {
	a := strings.TrimSpace(answer)
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), a) {
			return true
		}
	}
	return false
}

// excerpt cuts s to at most n bytes without splitting a rune.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
