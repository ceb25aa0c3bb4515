package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	client := NewClient("", "", zerolog.Nop())
	assert.NotNil(t, client)
	assert.False(t, client.Enabled())

	client = NewClient("test-token", "user/repo", zerolog.Nop())
	assert.True(t, client.Enabled())

	// Both credentials are required
	assert.False(t, NewClient("test-token", "", zerolog.Nop()).Enabled())
	assert.False(t, NewClient("", "user/repo", zerolog.Nop()).Enabled())
}

func TestCreateIssue_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/repos/user/repo/issues", r.URL.Path)
		assert.Equal(t, "token test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Test issue", req["title"])
		assert.Equal(t, "Test body", req["body"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"number":   42,
			"html_url": "https://github.com/user/repo/issues/42",
		})
	}))
	defer server.Close()

	client := NewClient("test-token", "user/repo", zerolog.Nop())
	client.rest.SetBaseURL(server.URL)

	issue, err := client.CreateIssue(context.Background(), "Test issue", "Test body")
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, 42, issue.Number)
	assert.Equal(t, "https://github.com/user/repo/issues/42", issue.HTMLURL)
}

func TestCreateIssue_NonCreatedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"Validation Failed"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "user/repo", zerolog.Nop())
	client.rest.SetBaseURL(server.URL)

	issue, err := client.CreateIssue(context.Background(), "Test issue", "Test body")
	require.Error(t, err)
	assert.Nil(t, issue)
	assert.Contains(t, err.Error(), "status 422")
}

func TestCreateIssue_Disabled(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	client := NewClient("", "user/repo", zerolog.Nop())
	client.rest.SetBaseURL(server.URL)

	issue, err := client.CreateIssue(context.Background(), "Test issue", "Test body")
	require.NoError(t, err)
	assert.Nil(t, issue)
	assert.Zero(t, hits, "disabled client must not call the API")
}

func TestFileCoverageAlert(t *testing.T) {
	var gotTitle, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotTitle = req["title"]
		gotBody = req["body"]

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{"number": 7})
	}))
	defer server.Close()

	client := NewClient("test-token", "user/repo", zerolog.Nop())
	client.rest.SetBaseURL(server.URL)

	asOf := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	issue, err := client.FileCoverageAlert(context.Background(), asOf, "equities", 2.0/3.0)
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, 7, issue.Number)

	assert.Equal(t, "Data quality alert: equities coverage 66.7% on 2026-08-21", gotTitle)
	assert.Contains(t, gotBody, "Data coverage for equities fell below the threshold on 2026-08-21.")
	assert.Contains(t, gotBody, "- Coverage: 66.7%")
	assert.Contains(t, gotBody, "Please review data ingestion and vendor feeds.")
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("test-token", "user/repo", zerolog.Nop())
	client.rest.SetBaseURL(server.URL)

	for i := 0; i < 3; i++ {
		_, err := client.CreateIssue(context.Background(), "Failing", "body")
		require.Error(t, err)
	}
	assert.Equal(t, 3, hits)

	// Breaker is open now; the API must not be reached again
	_, err := client.CreateIssue(context.Background(), "Failing", "body")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, hits)
}
