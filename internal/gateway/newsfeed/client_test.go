package newsfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyflow/internal/config"
	"polyflow/internal/types"
)

func TestFetchParsesScoredArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/articles", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"articles":[
			{"headline":"Warsh nomination expected this week","url":"https://example.com/a","sentiment":0.8},
			{"headline":"Hearing delayed","sentiment":-0.5},
			{"headline":"   "}
		]}`))
	}))
	defer srv.Close()

	c := New(config.NewsfeedConfig{BaseURL: srv.URL, APIKey: "test-key"})
	res := c.Fetch(context.Background())
	require.True(t, res.Success)
	require.Len(t, res.Events, 2)

	first := res.Events[0].Payload.(types.NewsArticle)
	assert.Equal(t, "Warsh nomination expected this week", first.Headline)
	assert.InDelta(t, 0.8, first.Sentiment, 1e-9)
}

func TestFetchRejectsSchemaViolations(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing articles", `{"items":[]}`},
		{"sentiment out of range", `{"articles":[{"headline":"x","sentiment":3.5}]}`},
		{"not json", `<html>429</html>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := New(config.NewsfeedConfig{BaseURL: srv.URL})
			res := c.Fetch(context.Background())
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestFetchReportsUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(config.NewsfeedConfig{BaseURL: srv.URL})
	res := c.Fetch(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "502")
}
