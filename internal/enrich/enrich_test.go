package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LdDl/openscore-go/playeval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEnricher struct {
	text  string
	err   error
	delay time.Duration
}

func (s stubEnricher) Name() string { return "stub" }

func (s stubEnricher) Enrich(ctx context.Context, _ playeval.PlaySummary) (string, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return s.text, s.err
}

func TestBoundedSuccess(t *testing.T) {
	out := NewBounded(stubEnricher{text: "Receiver 2 was open all play"}, time.Second, nil).
		Enrich(context.Background(), playeval.PlaySummary{})
	assert.Equal(t, "stub", out.Provider)
	assert.Equal(t, "Receiver 2 was open all play", out.Text)
	assert.Empty(t, out.Error)
}

func TestBoundedTimeout(t *testing.T) {
	out := NewBounded(stubEnricher{text: "late", delay: time.Second}, 20*time.Millisecond, nil).
		Enrich(context.Background(), playeval.PlaySummary{})
	assert.Empty(t, out.Text)
	assert.Equal(t, context.DeadlineExceeded.Error(), out.Error)
}

func TestBoundedEmptyText(t *testing.T) {
	out := NewBounded(stubEnricher{}, time.Second, nil).Enrich(context.Background(), playeval.PlaySummary{})
	assert.Equal(t, ErrEmptyText.Error(), out.Error)
}

func TestHTTPEnricher(t *testing.T) {
	var got enrichRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"text": "  Great spacing on the left side.  "}`))
	}))
	defer srv.Close()

	summary := playeval.PlaySummary{OverallScore: 81, OverallGrade: "B"}
	text, err := NewHTTPEnricher(srv.URL, "secret", srv.Client()).Enrich(context.Background(), summary)
	require.NoError(t, err)
	assert.Equal(t, "Great spacing on the left side.", text)
	assert.Equal(t, "B", got.Summary.OverallGrade)
}

func TestHTTPEnricherStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	out := NewBounded(NewHTTPEnricher(srv.URL, "", nil), time.Second, nil).Enrich(context.Background(), playeval.PlaySummary{})
	assert.Equal(t, "http", out.Provider)
	assert.Contains(t, out.Error, "status 429")
	assert.Contains(t, out.Error, "rate limited")
}
