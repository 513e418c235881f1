// Package queue defines message payloads exchanged over the message broker.
package queue

// DocumentAnalyzedEvent is published after every analysis attempt,
// including degraded ones. It carries enough for downstream consumers
// to audit or notify without querying the primary database; the full
// summary text stays out of the broker on purpose, only its length is
// reported.
type DocumentAnalyzedEvent struct {
	DocumentID   uint64 `json:"document_id"`
	UserID       uint64 `json:"user_id"`
	Title        string `json:"title"`
	Keywords     string `json:"keywords"`
	SummaryChars int    `json:"summary_chars"`
	Failed       bool   `json:"failed"`
	AnalyzedAt   string `json:"analyzed_at"`
}
