package reports

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/akritis/vigil/internal/domain"
	"github.com/akritis/vigil/internal/modules/freshness"
)

// Feed is the dashboard payload: run metadata plus the raw diagnostics data.
type Feed struct {
	Meta FeedMeta `json:"meta"`
	Data FeedData `json:"data"`
}

// FeedMeta identifies the run the feed was built from.
type FeedMeta struct {
	RunID       string `json:"run_id"`
	Pipeline    string `json:"pipeline"`
	AsOf        string `json:"as_of"`
	GeneratedAt string `json:"generated_at"`
	Description string `json:"description"`
}

// FeedData carries the unformatted diagnostics for dashboard consumers.
type FeedData struct {
	Diagnostics *domain.DiagnosticsResult `json:"diagnostics"`
	Freshness   *freshness.Result         `json:"freshness,omitempty"`
}

// JSONFeed serializes the run into the dashboard feed format.
func (s *Service) JSONFeed(in Inputs) ([]byte, error) {
	asOf := ""
	if in.Result != nil && in.Result.Snapshot != nil {
		asOf = in.Result.Snapshot.AsOf.Format("2006-01-02")
	}

	feed := Feed{
		Meta: FeedMeta{
			RunID:       in.RunID,
			Pipeline:    in.Pipeline,
			AsOf:        asOf,
			GeneratedAt: in.GeneratedAt.UTC().Format(time.RFC3339),
			Description: "Portfolio diagnostics and action plan feed",
		},
		Data: FeedData{
			Diagnostics: in.Result,
			Freshness:   in.Freshness,
		},
	}

	payload, err := json.MarshalIndent(feed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize dashboard feed: %w", err)
	}
	return payload, nil
}
