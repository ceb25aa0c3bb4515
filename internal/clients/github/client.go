// Package github files data quality alerts as issues on the configured
// repository. The client is a no-op when no token is configured, so pipelines
// run unchanged in environments without credentials.
package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const defaultBaseURL = "https://api.github.com"

// Issue is the subset of the GitHub issue response the caller needs.
type Issue struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// Client talks to the GitHub issues API behind a circuit breaker.
type Client struct {
	rest    *resty.Client
	breaker *gobreaker.CircuitBreaker
	repo    string // "owner/name"
	token   string
	log     zerolog.Logger
}

// NewClient creates a GitHub client for the given repository. An empty token
// or repo disables issue filing.
func NewClient(token, repo string, log zerolog.Logger) *Client {
	rest := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(30 * time.Second)

	settings := gobreaker.Settings{Name: "github"}
	settings.Interval = 60 * time.Second
	settings.Timeout = 60 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}

	return &Client{
		rest:    rest,
		breaker: gobreaker.NewCircuitBreaker(settings),
		repo:    repo,
		token:   token,
		log:     log.With().Str("component", "github").Logger(),
	}
}

// Enabled reports whether the client has what it needs to file issues.
func (c *Client) Enabled() bool {
	return c.token != "" && c.repo != ""
}

// CreateIssue opens an issue and returns it. GitHub answers 201 on success;
// any other status is an error and counts against the circuit breaker.
// Returns (nil, nil) when the client is disabled.
func (c *Client) CreateIssue(ctx context.Context, title, body string) (*Issue, error) {
	if !c.Enabled() {
		c.log.Warn().Str("title", title).Msg("GitHub integration disabled; issue not filed")
		return nil, nil
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var issue Issue
		resp, err := c.rest.R().
			SetContext(ctx).
			SetHeader("Authorization", "token "+c.token).
			SetHeader("Accept", "application/vnd.github+json").
			SetBody(map[string]string{"title": title, "body": body}).
			SetResult(&issue).
			Post(fmt.Sprintf("/repos/%s/issues", c.repo))
		if err != nil {
			return nil, fmt.Errorf("failed to create issue: %w", err)
		}
		if resp.StatusCode() != http.StatusCreated {
			return nil, fmt.Errorf("failed to create issue: status %d, body: %s", resp.StatusCode(), resp.String())
		}
		return &issue, nil
	})
	if err != nil {
		return nil, err
	}

	issue := result.(*Issue)
	c.log.Info().
		Int("number", issue.Number).
		Str("title", title).
		Msg("GitHub issue created")
	return issue, nil
}

// FileCoverageAlert opens a data quality issue for an asset class whose
// coverage fell below the configured threshold.
func (c *Client) FileCoverageAlert(ctx context.Context, asOf time.Time, assetClass string, coverage float64) (*Issue, error) {
	date := asOf.Format("2006-01-02")
	title := fmt.Sprintf("Data quality alert: %s coverage %.1f%% on %s", assetClass, coverage*100, date)
	body := fmt.Sprintf(
		"Data coverage for %s fell below the threshold on %s.\n\n- Coverage: %.1f%%\n\nPlease review data ingestion and vendor feeds.",
		assetClass, date, coverage*100,
	)
	return c.CreateIssue(ctx, title, body)
}
