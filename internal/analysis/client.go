// Package analysis talks to the local Ollama instance for document
// summarization and keyword extraction. The service is a best-effort
// collaborator: when it is slow, down or answers garbage, analysis
// degrades to a sentinel result instead of failing the caller's
// request, and the sentinel is persisted like any other result so the
// document record always reflects the last attempt.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// maxPromptRunes bounds how much document text is sent per prompt, to
// bound request cost and latency on the model side.
const maxPromptRunes = 2000

// FailedSummary is the sentinel persisted when the analysis service
// cannot be reached or answers with an error.
const FailedSummary = "Analysis failed"

const (
	summaryPrompt  = "Summarize the following document in 3-4 sentences:\n\n"
	keywordsPrompt = "Extract 8-10 key words or phrases from this text, separated by commas:\n\n"
)

// Result is the outcome of an analysis attempt.
type Result struct {
	Summary  string `json:"summary"`
	Keywords string `json:"keywords"`
}

// Failed reports whether r is the degradation sentinel.
func (r Result) Failed() bool { return r.Summary == FailedSummary }

// Client calls the Ollama generate API.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

// New returns a Client for the Ollama instance at baseURL. The HTTP
// client carries a 60s timeout so an unresponsive model cannot hold a
// request handler indefinitely.
func New(baseURL, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Analyze asks the model for a summary and a keyword list over text,
// truncated to a fixed prefix. It never returns an error: any failure
// on either prompt degrades the whole attempt to the sentinel result.
func (c *Client) Analyze(ctx context.Context, text string) Result {
	text = truncateRunes(text, maxPromptRunes)

	summary, err := c.generate(ctx, summaryPrompt+text)
	if err != nil {
		log.Printf("analysis: summary generation failed: %v", err)
		return Result{Summary: FailedSummary}
	}
	keywords, err := c.generate(ctx, keywordsPrompt+text)
	if err != nil {
		log.Printf("analysis: keyword extraction failed: %v", err)
		return Result{Summary: FailedSummary}
	}
	return Result{
		Summary:  strings.TrimSpace(summary),
		Keywords: strings.TrimSpace(keywords),
	}
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body for the log line; the rest is noise.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("generate: status %d: %s", resp.StatusCode, snippet)
	}
	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("generate: decode: %w", err)
	}
	return out.Response, nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
