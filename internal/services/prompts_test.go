package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksheet-backend/internal/models"
)

func TestPromptBuilder_SingleSubjectOmitsSubject(t *testing.T) {
	b, err := NewPromptBuilder(PromptConfig{})
	require.NoError(t, err)

	req := fractionsRequest()
	req.Subject = ""
	prompt, err := b.Build(req)
	require.NoError(t, err)

	assert.Contains(t, prompt, "CBSE/NCERT")
	assert.NotContains(t, prompt, "Subject:")
	assert.NotContains(t, prompt, "Specific Subject Guidelines")
	assert.Contains(t, prompt, defaultGuidance[models.DifficultyEasy])
	assert.Contains(t, prompt, "Respond ONLY with a valid JSON object")
}

func TestPromptBuilder_GuidanceOverride(t *testing.T) {
	b, err := NewPromptBuilder(PromptConfig{
		Board:    "ICSE",
		Guidance: map[string]string{"Hard": "Olympiad level only.", "easy": "  "},
	})
	require.NoError(t, err)

	req := fractionsRequest()
	req.Difficulty = models.DifficultyHard
	prompt, err := b.Build(req)
	require.NoError(t, err)
	assert.Contains(t, prompt, "ICSE curriculum")
	assert.Contains(t, prompt, "Olympiad level only.")
	assert.Contains(t, prompt, "Hard (Exemplar/Advanced)")

	req.Difficulty = models.DifficultyEasy
	prompt, err = b.Build(req)
	require.NoError(t, err)
	assert.Contains(t, prompt, defaultGuidance[models.DifficultyEasy], "blank override keeps the default")
}

func TestPromptBuilder_UnknownGuidanceKey(t *testing.T) {
	_, err := NewPromptBuilder(PromptConfig{Guidance: map[string]string{"impossible": "x"}})
	assert.Error(t, err)
}

func TestPromptBuilder_CustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("{{.Grade}}|{{.Topic}}|{{.QuestionCount}}"), 0o644))

	src, err := LoadPromptTemplate(path)
	require.NoError(t, err)

	b, err := NewPromptBuilder(PromptConfig{Template: src})
	require.NoError(t, err)
	prompt, err := b.Build(fractionsRequest())
	require.NoError(t, err)
	assert.Equal(t, "Class 3|Fractions|5", prompt)

	_, err = NewPromptBuilder(PromptConfig{Template: "{{.Grade"})
	assert.Error(t, err)

	_, err = LoadPromptTemplate(filepath.Join(t.TempDir(), "missing.tmpl"))
	assert.Error(t, err)
}
