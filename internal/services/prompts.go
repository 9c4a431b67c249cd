package services

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"worksheet-backend/internal/models"
)

const defaultPromptTemplate = `You are an expert educator for the {{.Board}} curriculum.
Generate a professional, high-quality worksheet.
Grade: {{.Grade}}
{{- if .Subject}}
Subject: {{.Subject}}
{{- end}}
Topic: {{.Topic}}
Difficulty: {{.DifficultyLabel}}
Number of Questions: Exactly {{.QuestionCount}}

Difficulty Guidance:
{{.Guidance}}
{{if .Subject}}
Specific Subject Guidelines:
- Science/EVS: Focus on conceptual understanding, definitions, and simple observations.
- Mathematics: Focus on step-by-step problem solving.
- English/Hindi: Focus on grammar, vocabulary, and reading comprehension.
- Social Science: Focus on historical facts, geography concepts, and civic roles.
{{end}}
Mixed Format:
- Use a mix of Multiple Choice Questions (MCQ) and Short Answer questions.
- For MCQs, provide 4 distinct, clear options and make "answer" exactly one of the options.
- For Short Answer questions, keep "answer" short enough to be typed and checked.
- Number question ids from 1.
- Provide detailed "Master's Solutions" for every question that explain the reasoning.

Respond ONLY with a valid JSON object matching the requested schema.`

var defaultGuidance = map[models.Difficulty]string{
	models.DifficultyEasy:   "Textbook-level questions that check recall of definitions, facts and single-step procedures.",
	models.DifficultyMedium: "Standard exam-level questions that apply the concept in familiar situations, with up to two steps.",
	models.DifficultyHard:   "Exemplar and competitive-style (Olympiad) questions that need multi-step reasoning or combine ideas.",
}

type PromptConfig struct {
	Board    string
	Template string            // text/template source; empty uses the built-in prompt
	Guidance map[string]string // difficulty code → guidance, merged over the defaults
}

type PromptBuilder struct {
	board    string
	tmpl     *template.Template
	guidance map[models.Difficulty]string
}

type promptData struct {
	Board           string
	Grade           string
	Subject         string
	Topic           string
	DifficultyLabel string
	QuestionCount   int
	Guidance        string
}

func NewPromptBuilder(cfg PromptConfig) (*PromptBuilder, error) {
	src := cfg.Template
	if strings.TrimSpace(src) == "" {
		src = defaultPromptTemplate
	}
	tmpl, err := template.New("worksheet").Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}

	guidance := make(map[models.Difficulty]string, len(defaultGuidance))
	for d, g := range defaultGuidance {
		guidance[d] = g
	}
	for key, g := range cfg.Guidance {
		d, err := models.ParseDifficulty(key)
		if err != nil {
			return nil, fmt.Errorf("difficulty guidance: %w", err)
		}
		if strings.TrimSpace(g) != "" {
			guidance[d] = g
		}
	}

	board := cfg.Board
	if board == "" {
		board = "CBSE/NCERT"
	}

	return &PromptBuilder{board: board, tmpl: tmpl, guidance: guidance}, nil
}

// LoadPromptTemplate reads a template file; an empty path yields the built-in prompt.
func LoadPromptTemplate(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template %s: %w", path, err)
	}
	return string(b), nil
}

func (b *PromptBuilder) Build(req models.GenerationRequest) (string, error) {
	var out strings.Builder
	err := b.tmpl.Execute(&out, promptData{
		Board:           b.board,
		Grade:           req.Grade,
		Subject:         req.Subject,
		Topic:           req.Topic,
		DifficultyLabel: req.Difficulty.Label(),
		QuestionCount:   req.QuestionCount,
		Guidance:        b.guidance[req.Difficulty],
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return out.String(), nil
}
