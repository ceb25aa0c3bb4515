package reports

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSet records where each rendered artifact for one run was written.
type FileSet struct {
	Markdown   string `json:"markdown"`
	HTML       string `json:"html"`
	Feed       string `json:"feed"`
	Projection string `json:"projection"`
	Actions    string `json:"actions"`
}

// Paths returns every written file in a stable order.
func (f FileSet) Paths() []string {
	return []string{f.Markdown, f.HTML, f.Feed, f.Projection, f.Actions}
}

// WriteFiles renders every output format and writes them under dir, named by
// the run's as-of date. Returns the set of written paths.
func (s *Service) WriteFiles(dir string, in Inputs) (*FileSet, error) {
	if in.Result == nil {
		return nil, fmt.Errorf("cannot write report files for run %s: no diagnostics result", in.RunID)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory %s: %w", dir, err)
	}

	rep := NewReport(in)
	suffix := rep.AsOf
	if suffix == "" {
		suffix = in.GeneratedAt.UTC().Format("2006-01-02")
	}

	markdown, err := s.Markdown(rep)
	if err != nil {
		return nil, err
	}
	html, err := s.HTML(markdown)
	if err != nil {
		return nil, err
	}
	feed, err := s.JSONFeed(in)
	if err != nil {
		return nil, err
	}
	projection, err := s.ProjectionCSV(in.Result)
	if err != nil {
		return nil, err
	}
	actions, err := s.ActionsCSV(in.Result)
	if err != nil {
		return nil, err
	}

	files := &FileSet{
		Markdown:   filepath.Join(dir, fmt.Sprintf("summary_%s.md", suffix)),
		HTML:       filepath.Join(dir, fmt.Sprintf("summary_%s.html", suffix)),
		Feed:       filepath.Join(dir, fmt.Sprintf("feed_%s.json", suffix)),
		Projection: filepath.Join(dir, fmt.Sprintf("projection_%s.csv", suffix)),
		Actions:    filepath.Join(dir, fmt.Sprintf("actions_%s.csv", suffix)),
	}

	outputs := []struct {
		path string
		data []byte
	}{
		{files.Markdown, []byte(markdown)},
		{files.HTML, html},
		{files.Feed, feed},
		{files.Projection, projection},
		{files.Actions, actions},
	}
	for _, out := range outputs {
		if err := os.WriteFile(out.path, out.data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write report file %s: %w", out.path, err)
		}
	}

	s.log.Info().
		Str("dir", dir).
		Str("as_of", suffix).
		Int("files", len(outputs)).
		Msg("Report files written")

	return files, nil
}
