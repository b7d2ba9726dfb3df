package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/LdDl/openscore-go/playeval"
)

// HTTPEnricher posts the summary as JSON and reads {"text": "..."} back
type HTTPEnricher struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPEnricher creates client. Nil client means http.DefaultClient
func NewHTTPEnricher(url, apiKey string, client *http.Client) *HTTPEnricher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPEnricher{url: url, apiKey: apiKey, client: client}
}

// Name identifies the provider in results
func (h *HTTPEnricher) Name() string {
	return "http"
}

type enrichRequest struct {
	Summary playeval.PlaySummary `json:"summary"`
}

type enrichResponse struct {
	Text string `json:"text"`
}

// Enrich sends the request and returns commentary text
func (h *HTTPEnricher) Enrich(ctx context.Context, summary playeval.PlaySummary) (string, error) {
	payload, err := json.Marshal(enrichRequest{Summary: summary})
	if err != nil {
		return "", fmt.Errorf("encode enrichment request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build enrichment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("enrichment request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read enrichment response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("enrichment status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out enrichResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode enrichment response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}
