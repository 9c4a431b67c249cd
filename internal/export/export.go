package export

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"worksheet-backend/internal/models"
)

type Options struct {
	WithSolutions bool
}

// Exporter renders a worksheet into a downloadable document.
type Exporter interface {
	Format() string
	ContentType() string
	Export(w io.Writer, ws *models.Worksheet, opts Options) error
}

type Registry struct {
	exporters map[string]Exporter
}

func NewRegistry(exporters ...Exporter) *Registry {
	r := &Registry{exporters: make(map[string]Exporter, len(exporters))}
	for _, e := range exporters {
		r.exporters[e.Format()] = e
	}
	return r
}

// DefaultRegistry carries every built-in format.
func DefaultRegistry() *Registry {
	return NewRegistry(NewPDFExporter(), NewXLSXExporter())
}

func (r *Registry) Get(format string) (Exporter, bool) {
	e, ok := r.exporters[strings.ToLower(strings.TrimSpace(format))]
	return e, ok
}

func (r *Registry) Formats() []string {
	formats := make([]string, 0, len(r.exporters))
	for f := range r.exporters {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Filename builds a download name such as "class-3-fractions-easy.pdf".
func Filename(ws *models.Worksheet, format string) string {
	base := strings.Trim(unsafeName.ReplaceAllString(
		strings.ToLower(fmt.Sprintf("%s %s %s", ws.Grade, ws.Topic, ws.Difficulty)), "-"), "-")
	if base == "" {
		base = "worksheet"
	}
	return base + "." + format
}

func optionLetter(i int) string {
	return string(rune('A' + i%26))
}

func headerLine(ws *models.Worksheet) string {
	parts := []string{ws.Grade}
	if ws.Subject != "" {
		parts = append(parts, ws.Subject)
	}
	parts = append(parts, ws.Topic, ws.Difficulty.Label())
	return strings.Join(parts, " | ")
}
