package export

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/go-pdf/fpdf"

	"worksheet-backend/internal/models"
)

const (
	pdfMargin     = 15.0
	pdfLineHeight = 6.0
	pdfFamily     = "worksheet"
)

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	dejaVuRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	dejaVuBold []byte
)

// PDFFont is a UTF-8 TrueType family. Bold may be empty, in which case the
// regular face is used for headings too.
type PDFFont struct {
	Regular []byte
	Bold    []byte
}

// DefaultPDFFont is DejaVu Sans Condensed. It covers Latin, ₹ and the usual
// maths symbols but not Devanagari.
func DefaultPDFFont() PDFFont {
	return PDFFont{Regular: dejaVuRegular, Bold: dejaVuBold}
}

// LoadPDFFont reads a TrueType family from disk. boldPath is optional.
func LoadPDFFont(regularPath, boldPath string) (PDFFont, error) {
	regular, err := os.ReadFile(regularPath)
	if err != nil {
		return PDFFont{}, fmt.Errorf("failed to read PDF font %s: %w", regularPath, err)
	}
	font := PDFFont{Regular: regular}
	if boldPath != "" {
		if font.Bold, err = os.ReadFile(boldPath); err != nil {
			return PDFFont{}, fmt.Errorf("failed to read PDF font %s: %w", boldPath, err)
		}
	}
	return font, nil
}

// PDFExporter lays a worksheet out on A4 pages: header, numbered questions,
// lettered options or an answer line, then optionally the solutions.
type PDFExporter struct {
	font PDFFont
}

func NewPDFExporter() *PDFExporter { return NewPDFExporterWithFont(DefaultPDFFont()) }

func NewPDFExporterWithFont(font PDFFont) *PDFExporter {
	if len(font.Bold) == 0 {
		font.Bold = font.Regular
	}
	return &PDFExporter{font: font}
}

func (*PDFExporter) Format() string      { return "pdf" }
func (*PDFExporter) ContentType() string { return "application/pdf" }

func (e *PDFExporter) Export(w io.Writer, ws *models.Worksheet, opts Options) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(pdfFamily, "", e.font.Regular)
	pdf.AddUTF8FontFromBytes(pdfFamily, "B", e.font.Bold)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to load PDF font: %w", err)
	}

	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(ws.Title, true)
	pdf.AliasNbPages("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin + 3)
		pdf.SetFont(pdfFamily, "", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont(pdfFamily, "B", 16)
	pdf.MultiCell(0, 8, ws.Title, "", "C", false)
	pdf.SetFont(pdfFamily, "", 10)
	pdf.MultiCell(0, pdfLineHeight, headerLine(ws), "", "C", false)
	pdf.Ln(2)
	pdf.MultiCell(0, pdfLineHeight, "Name: ____________________    Date: ____________", "", "L", false)
	pdf.Ln(4)

	for i, q := range ws.Questions {
		pdf.SetFont(pdfFamily, "B", 11)
		pdf.MultiCell(0, pdfLineHeight, fmt.Sprintf("%d. %s", i+1, q.Question), "", "L", false)
		pdf.SetFont(pdfFamily, "", 11)

		if q.Type == models.QuestionMCQ {
			for j, opt := range q.Options {
				pdf.SetX(pdfMargin + 6)
				pdf.MultiCell(0, pdfLineHeight, fmt.Sprintf("(%s) %s", optionLetter(j), opt), "", "L", false)
			}
		} else {
			pdf.SetX(pdfMargin + 6)
			pdf.MultiCell(0, pdfLineHeight*1.5, "Answer: ______________________________________________", "", "L", false)
		}
		pdf.Ln(3)
	}

	if opts.WithSolutions {
		pdf.AddPage()
		pdf.SetFont(pdfFamily, "B", 14)
		pdf.MultiCell(0, 8, "Solutions", "", "L", false)
		pdf.Ln(2)
		for i, q := range ws.Questions {
			pdf.SetFont(pdfFamily, "B", 11)
			pdf.MultiCell(0, pdfLineHeight, fmt.Sprintf("%d. Answer: %s", i+1, q.Answer), "", "L", false)
			pdf.SetFont(pdfFamily, "", 10)
			pdf.MultiCell(0, pdfLineHeight, q.Solution, "", "L", false)
			pdf.Ln(2)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}
