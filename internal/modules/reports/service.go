package reports

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.md
var templateFS embed.FS

// reportTemplate holds the main layout plus every section partial. Parsed
// once; ExecuteTemplate is safe for concurrent use.
var reportTemplate = template.Must(template.ParseFS(templateFS, "templates/*.md"))

// markdownToHTML is shared across renders; goldmark instances are safe for
// concurrent use once constructed.
var markdownToHTML = goldmark.New(goldmark.WithExtensions(extension.GFM))

const htmlHeader = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Portfolio Diagnostics Report</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 880px; margin: 2rem auto; padding: 0 1rem; color: #1a1a2e; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #cbd5e1; padding: 0.35rem 0.75rem; text-align: right; }
th:first-child, td:first-child { text-align: left; }
h1, h2 { border-bottom: 1px solid #e2e8f0; padding-bottom: 0.25rem; }
</style>
</head>
<body>
`

const htmlFooter = `</body>
</html>
`

// Service renders diagnostics runs into report documents.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new reports service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "reports").Logger(),
	}
}

// Markdown renders the full report document for one run.
func (s *Service) Markdown(rep *Report) (string, error) {
	var b strings.Builder
	if err := reportTemplate.ExecuteTemplate(&b, "report.md", rep); err != nil {
		return "", fmt.Errorf("failed to render markdown report: %w", err)
	}
	return b.String(), nil
}

// HTML converts rendered Markdown into a standalone HTML page.
func (s *Service) HTML(markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := markdownToHTML.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("failed to convert report to HTML: %w", err)
	}

	var page bytes.Buffer
	page.WriteString(htmlHeader)
	page.Write(body.Bytes())
	page.WriteString(htmlFooter)
	return page.Bytes(), nil
}

// Terminal renders Markdown with ANSI styling for in-terminal previews.
func (s *Service) Terminal(markdown string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create terminal renderer: %w", err)
	}

	out, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render terminal preview: %w", err)
	}
	return out, nil
}
