package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"worksheet-backend/internal/models"
)

type GeminiService struct {
	client      *genai.Client
	modelName   string
	temperature float32
	rateChan    chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, temperature float32, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if concurrentReqs < 1 {
		concurrentReqs = 1
	}

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:      client,
		modelName:   modelName,
		temperature: temperature,
		rateChan:    rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

func (s *GeminiService) Model() string { return s.modelName }

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// GenerateJSON asks the model for a single JSON document constrained by schema
// and returns the raw text.
func (s *GeminiService) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	// The schema differs per call, so each call gets its own model handle.
	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(s.temperature)
	model.SetTopP(0.95)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = schema

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("Gemini returned empty text")
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// ResponseSchema is the worksheet shape declared to the provider. subject is
// only part of it for multi-subject deployments.
func ResponseSchema(withSubject bool) *genai.Schema {
	question := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":       {Type: genai.TypeInteger},
			"question": {Type: genai.TypeString},
			"type":     {Type: genai.TypeString, Format: "enum", Enum: []string{string(models.QuestionMCQ), string(models.QuestionShortAnswer)}},
			"options": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Required for MCQ",
			},
			"answer":   {Type: genai.TypeString},
			"solution": {Type: genai.TypeString},
		},
		Required: []string{"id", "question", "type", "answer", "solution"},
	}

	props := map[string]*genai.Schema{
		"title":      {Type: genai.TypeString},
		"grade":      {Type: genai.TypeString},
		"topic":      {Type: genai.TypeString},
		"difficulty": {Type: genai.TypeString},
		"questions":  {Type: genai.TypeArray, Items: question},
	}
	required := []string{"title", "grade", "topic", "difficulty", "questions"}
	if withSubject {
		props["subject"] = &genai.Schema{Type: genai.TypeString}
		required = []string{"title", "grade", "subject", "topic", "difficulty", "questions"}
	}

	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   required,
	}
}
