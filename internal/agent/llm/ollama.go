// Package llm holds the optional merge advisor backed by a local Ollama
// server. The heuristic merge decision stays authoritative; the advisor
// is consulted only for ambiguous pairs when enabled.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

// Config holds the advisor connection settings.
type Config struct {
	Endpoint    string
	Model       string
	Temperature float64
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type verdict struct {
	Merge      bool    `json:"merge"`
	Confidence float64 `json:"confidence"`
}

// OllamaAdvisor implements tables.MergeAdvisor over the Ollama generate
// API.
type OllamaAdvisor struct {
	endpoint    string
	model       string
	temperature float64
	httpClient  *http.Client
	log         logger.Logger
}

// NewOllamaAdvisor creates an advisor client.
func NewOllamaAdvisor(cfg *Config, log logger.Logger) *OllamaAdvisor {
	return &OllamaAdvisor{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		log:         log.Named("merge-advisor"),
	}
}

const mergePrompt = `Two tables were extracted from consecutive positions in a document.
Decide whether they are fragments of one logical table that should be merged.
Answer with JSON only: {"merge": true|false, "confidence": 0.0-1.0}

Table A (%d rows x %d columns):
%s

Table B (%d rows x %d columns):
%s`

// ShouldMerge asks the model whether the two tables belong together.
func (a *OllamaAdvisor) ShouldMerge(ctx context.Context, ta, tb *models.Table) (bool, float64, error) {
	prompt := fmt.Sprintf(mergePrompt,
		ta.RowCount(), ta.ColCount(), truncate(ta.Text(), 2000),
		tb.RowCount(), tb.ColCount(), truncate(tb.Text(), 2000))

	reqData, err := json.Marshal(generateRequest{
		Model:       a.model,
		Prompt:      prompt,
		Stream:      false,
		Temperature: a.temperature,
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/api/generate", bytes.NewReader(reqData))
	if err != nil {
		return false, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false, 0, fmt.Errorf("failed to reach ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, 0, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return false, 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if gen.Error != "" {
		return false, 0, fmt.Errorf("ollama error: %s", gen.Error)
	}

	return parseVerdict(gen.Response)
}

// parseVerdict extracts the JSON verdict from the model output, which
// may wrap it in prose or a code fence.
func parseVerdict(response string) (bool, float64, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return false, 0, fmt.Errorf("no verdict in response: %q", truncate(response, 200))
	}

	var v verdict
	if err := json.Unmarshal([]byte(response[start:end+1]), &v); err != nil {
		return false, 0, fmt.Errorf("failed to parse verdict: %w", err)
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		return false, 0, fmt.Errorf("verdict confidence %.2f out of range", v.Confidence)
	}
	return v.Merge, v.Confidence, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
