package model

import "time"

// RunStatus represents the current state of an agent provisioning run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusCrawling    RunStatus = "crawling"
	RunStatusGenerating  RunStatus = "generating"
	RunStatusRegistering RunStatus = "registering"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// Terminal reports whether no further transitions happen from s.
func (s RunStatus) Terminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// Run represents a single crawl -> generate -> register run.
type Run struct {
	ID        string       `json:"id" yaml:"id"`
	Request   AgentRequest `json:"request" yaml:"request"`
	Status    RunStatus    `json:"status" yaml:"status"`
	Result    *RunResult   `json:"result,omitempty" yaml:"result,omitempty"`
	Error     string       `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" yaml:"updated_at"`
}

// RunResult holds the final outcome of a run. The crawled corpus itself is
// never stored; only its size is recorded.
type RunResult struct {
	PagesVisited int         `json:"pages_visited" yaml:"pages_visited"`
	CorpusChars  int         `json:"corpus_chars" yaml:"corpus_chars"`
	Config       AgentConfig `json:"config" yaml:"config"`
	Agent        *Agent      `json:"agent,omitempty" yaml:"agent,omitempty"`
	DryRun       bool        `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	TotalTokens  int64       `json:"total_tokens" yaml:"total_tokens"`
	DurationMs   int64       `json:"duration_ms" yaml:"duration_ms"`
}
