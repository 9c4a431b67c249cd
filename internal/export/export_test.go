package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"worksheet-backend/internal/models"
)

func sampleWorksheet(n int) *models.Worksheet {
	ws := &models.Worksheet{
		Title:      "Fractions Practice – Class 3",
		Grade:      "Class 3",
		Subject:    "Mathematics",
		Topic:      "Fractions",
		Difficulty: models.DifficultyEasy,
	}
	for i := 1; i <= n; i++ {
		q := models.Question{
			ID:       i,
			Question: fmt.Sprintf("Question %d: %s", i, strings.Repeat("Shade the correct part of the shape. ", 4)),
			Answer:   "1/2",
			Solution: strings.Repeat("Split the whole into equal parts and count the shaded ones. ", 3),
		}
		if i%2 == 1 {
			q.Type = models.QuestionMCQ
			q.Options = []string{"1/2", "1/3", "1/4", "2/3"}
		} else {
			q.Type = models.QuestionShortAnswer
		}
		ws.Questions = append(ws.Questions, q)
	}
	return ws
}

func pdfPages(t *testing.T, data []byte) int {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return r.NumPage()
}

// pdfText returns the text drawn on every page. The embedded font writes
// UTF-16BE code points, so the show-text strings are decoded directly.
func pdfText(t *testing.T, data []byte) string {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var out strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		pdf.Interpret(page.V.Key("Contents"), func(stk *pdf.Stack, op string) {
			args := make([]pdf.Value, stk.Len())
			for j := len(args) - 1; j >= 0; j-- {
				args[j] = stk.Pop()
			}
			if op != "Tj" || len(args) != 1 {
				return
			}
			raw := args[0].RawString()
			units := make([]uint16, 0, len(raw)/2)
			for j := 0; j+1 < len(raw); j += 2 {
				units = append(units, uint16(raw[j])<<8|uint16(raw[j+1]))
			}
			out.WriteString(string(utf16.Decode(units)))
			out.WriteByte('\n')
		})
	}
	return out.String()
}

func symbolWorksheet() *models.Worksheet {
	return &models.Worksheet{
		Title:      "Rupees and Paise – Class 3",
		Grade:      "Class 3",
		Topic:      "Rupees and Paise",
		Difficulty: models.DifficultyMedium,
		Questions: []models.Question{
			{ID: 1, Question: "Riya has ₹50 and spends ₹20. How much is left?", Type: models.QuestionShortAnswer, Answer: "₹30", Solution: "₹50 − ₹20 = ₹30"},
			{ID: 2, Question: "Find √49 and check 3×4 ≤ 12.", Type: models.QuestionMCQ, Options: []string{"7 ✓", "8"}, Answer: "7 ✓", Solution: "√49 = 7"},
		},
	}
}

func TestPDFExporter_KeepsNonLatinText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPDFExporter().Export(&buf, symbolWorksheet(), Options{WithSolutions: true}))

	text := pdfText(t, buf.Bytes())
	for _, want := range []string{"₹50", "₹20", "√49", "3×4 ≤ 12", "(A) 7 ✓", "₹50 − ₹20 = ₹30", "Rupees and Paise – Class 3"} {
		assert.Contains(t, text, want)
	}
	assert.NotContains(t, text, ".50")
}

func TestPDFExporter_CustomFont(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.ttf")
	require.NoError(t, os.WriteFile(path, dejaVuBold, 0o644))

	font, err := LoadPDFFont(path, "")
	require.NoError(t, err)
	assert.Empty(t, font.Bold)

	var buf bytes.Buffer
	require.NoError(t, NewPDFExporterWithFont(font).Export(&buf, symbolWorksheet(), Options{}))
	assert.Contains(t, pdfText(t, buf.Bytes()), "√49")

	_, err = LoadPDFFont(filepath.Join(dir, "missing.ttf"), "")
	assert.Error(t, err)
	_, err = LoadPDFFont(path, filepath.Join(dir, "missing-bold.ttf"))
	assert.Error(t, err)
}

func TestPDFExporter_ReadablePages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPDFExporter().Export(&buf, sampleWorksheet(5), Options{}))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.GreaterOrEqual(t, pdfPages(t, buf.Bytes()), 1)
}

func TestPDFExporter_PaginatesAndAddsSolutions(t *testing.T) {
	ws := sampleWorksheet(20)

	var plain, withSolutions bytes.Buffer
	require.NoError(t, NewPDFExporter().Export(&plain, ws, Options{}))
	require.NoError(t, NewPDFExporter().Export(&withSolutions, ws, Options{WithSolutions: true}))

	plainPages := pdfPages(t, plain.Bytes())
	assert.Greater(t, plainPages, 1)
	assert.Greater(t, pdfPages(t, withSolutions.Bytes()), plainPages)
}

func TestXLSXExporter_Rows(t *testing.T) {
	tests := []struct {
		name          string
		withSolutions bool
		columns       int
	}{
		{"questions only", false, 4},
		{"with solutions", true, 6},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewXLSXExporter().Export(&buf, sampleWorksheet(3), Options{WithSolutions: tc.withSolutions}))

			f, err := excelize.OpenReader(&buf)
			require.NoError(t, err)
			defer f.Close()

			rows, err := f.GetRows(xlsxSheet)
			require.NoError(t, err)
			require.Len(t, rows, 7)
			assert.Equal(t, "Fractions Practice – Class 3", rows[0][0])
			assert.Equal(t, "Class 3 | Mathematics | Fractions | Easy (Foundation)", rows[1][0])
			assert.Len(t, rows[3], tc.columns)
			assert.Equal(t, "MCQ", rows[4][2])
			assert.Equal(t, "(A) 1/2\n(B) 1/3\n(C) 1/4\n(D) 2/3", rows[4][3])
			if tc.withSolutions {
				assert.Equal(t, "1/2", rows[4][4])
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"pdf", "xlsx"}, r.Formats())

	e, ok := r.Get(" PDF ")
	require.True(t, ok)
	assert.Equal(t, "application/pdf", e.ContentType())

	_, ok = r.Get("docx")
	assert.False(t, ok)
}

func TestFilename(t *testing.T) {
	ws := sampleWorksheet(1)
	assert.Equal(t, "class-3-fractions-easy.pdf", Filename(ws, "pdf"))
	assert.Equal(t, "worksheet.xlsx", Filename(&models.Worksheet{}, "xlsx"))
}
