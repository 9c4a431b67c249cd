package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksheet-backend/internal/models"
)

func capitals() *models.Worksheet {
	return &models.Worksheet{
		Title:      "Capitals",
		Grade:      "Class 5",
		Topic:      "Capitals",
		Difficulty: models.DifficultyEasy,
		Questions: []models.Question{
			{ID: 1, Question: "Capital of France?", Type: models.QuestionShortAnswer, Answer: "paris", Solution: "Paris."},
			{ID: 2, Question: "Capital of Japan?", Type: models.QuestionMCQ, Options: []string{"Kyoto", "Tokyo"}, Answer: "Tokyo", Solution: "Tokyo."},
			{ID: 3, Question: "Half of one?", Type: models.QuestionShortAnswer, Answer: "1/2", Solution: "One over two."},
		},
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		answer, expected string
		want             bool
	}{
		{" Paris ", "paris", true},
		{"PARIS", "Paris", true},
		{"Tokyo\n", "tokyo", true},
		{"", "paris", false},
		{"0.5", "1/2", false},
		{"Par is", "paris", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Matches(tc.answer, tc.expected), "%q vs %q", tc.answer, tc.expected)
	}
}

func TestStartNew_ClearsState(t *testing.T) {
	s := New("client", Selection{})
	s.StartNew(capitals())
	require.NoError(t, s.SetAnswer(1, "Paris"))
	_, err := s.ToggleSolution(2)
	require.NoError(t, err)
	require.NoError(t, s.Grade())

	next := capitals()
	next.Title = "Capitals again"
	s.StartNew(next)

	assert.Equal(t, "Capitals again", s.Worksheet.Title)
	assert.Empty(t, s.Answers)
	assert.Empty(t, s.Solutions)
	assert.False(t, s.Graded)
}

func TestGrade_Idempotent(t *testing.T) {
	s := New("client", Selection{})
	s.StartNew(capitals())
	require.NoError(t, s.SetAnswer(1, " Paris "))
	require.NoError(t, s.SetAnswer(2, "kyoto"))
	require.NoError(t, s.SetAnswer(3, "0.5"))

	require.NoError(t, s.Grade())
	first := s.Results()
	require.NoError(t, s.Grade())
	second := s.Results()

	assert.Equal(t, first, second)
	assert.True(t, first.Graded)
	assert.Equal(t, 1, first.Correct)
	assert.Equal(t, 3, first.Total)
	assert.True(t, first.Questions[0].Correct)
	assert.False(t, first.Questions[1].Correct)
	assert.False(t, first.Questions[2].Correct)
	assert.Equal(t, " Paris ", s.Answers[1], "grading leaves answers alone")
}

func TestResults_EmptyUntilGraded(t *testing.T) {
	s := New("client", Selection{})
	s.StartNew(capitals())
	require.NoError(t, s.SetAnswer(1, "paris"))

	assert.Equal(t, Results{}, s.Results())
}

func TestToggleSolution_Independent(t *testing.T) {
	s := New("client", Selection{})
	s.StartNew(capitals())

	on, err := s.ToggleSolution(2)
	require.NoError(t, err)
	assert.True(t, on)
	assert.False(t, s.Solutions[1])

	require.NoError(t, s.Grade())
	off, err := s.ToggleSolution(2)
	require.NoError(t, err)
	assert.False(t, off)
	assert.True(t, s.Graded)
}

func TestOperations_RequireWorksheetAndQuestion(t *testing.T) {
	s := New("client", Selection{})

	assert.ErrorIs(t, s.SetAnswer(1, "x"), ErrNoWorksheet)
	assert.ErrorIs(t, s.Grade(), ErrNoWorksheet)
	_, err := s.ToggleSolution(1)
	assert.ErrorIs(t, err, ErrNoWorksheet)

	s.StartNew(capitals())
	assert.ErrorIs(t, s.SetAnswer(99, "x"), ErrUnknownQuestion)
	_, err = s.ToggleSolution(99)
	assert.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestSnapshot_Copies(t *testing.T) {
	s := New("client", Selection{Difficulty: models.DifficultyEasy, QuestionCount: 10})
	s.StartNew(capitals())
	require.NoError(t, s.SetAnswer(1, "Paris"))
	s.LastError = &Banner{Code: "GENERATION_UNAVAILABLE", Message: "try again"}

	snap := s.Snapshot()
	snap.Answers[1] = "changed"
	snap.LastError.Message = "changed"

	assert.Equal(t, "Paris", s.Answers[1])
	assert.Equal(t, "try again", s.LastError.Message)
	assert.Equal(t, ViewLanding, snap.View)
	assert.Equal(t, 10, snap.Selection.QuestionCount)
}
