package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/voicebot-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Request:   model.AgentRequest{URL: "https://acme.com", Name: "Acme assistant"},
			Status:    model.RunStatusComplete,
			Result:    &model.RunResult{PagesVisited: 7},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Request:   model.AgentRequest{URL: "https://beta.com", Name: "Beta guide"},
			Status:    model.RunStatusCrawling,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "AGENT")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "Acme assistant")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "7")
	assert.Contains(t, output, "Beta guide")
	assert.Contains(t, output, "crawling")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
}

func TestRunsStats(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	runs := []model.Run{
		{
			ID:        "1",
			Status:    model.RunStatusComplete,
			Result:    &model.RunResult{TotalTokens: 1000},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "2",
			Status:    model.RunStatusComplete,
			Result:    &model.RunResult{TotalTokens: 500, DryRun: true},
			CreatedAt: now.Add(5 * time.Minute),
			UpdatedAt: now.Add(8 * time.Minute),
		},
		{
			ID:        "3",
			Status:    model.RunStatusFailed,
			Error:     "pipeline: no content could be extracted from the website",
			CreatedAt: now.Add(10 * time.Minute),
			UpdatedAt: now.Add(10*time.Minute + 30*time.Second),
		},
		{
			ID:        "4",
			Status:    model.RunStatusGenerating,
			CreatedAt: now.Add(15 * time.Minute),
			UpdatedAt: now.Add(15*time.Minute + 10*time.Second),
		},
	}

	stats := computeRunStats(runs)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Complete)
	assert.Equal(t, 1, stats.DryRuns)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.InFlight)
	assert.Equal(t, int64(1500), stats.Tokens)
	// Average duration of the 2 complete runs: (120s + 180s) / 2 = 150s.
	assert.InDelta(t, 150.0, stats.AvgDurSecs, 0.1)

	var buf bytes.Buffer
	formatRunStats(&buf, stats)

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "Dry runs:")
	assert.Contains(t, output, "In flight:")
	assert.Contains(t, output, "1500")
	assert.Contains(t, output, "150.0s")
}

func TestRunsSince(t *testing.T) {
	now := time.Now()
	runs := []model.Run{
		{ID: "old", CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "new", CreatedAt: now.Add(-time.Hour)},
	}

	got := runsSince(runs, now.Add(-24*time.Hour))
	assert.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)
	assert.Len(t, runs, 2)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "short", shorten("short", 10))
	assert.Equal(t, "abcdefg...", shorten("abcdefghijklmnop", 10))
	assert.Equal(t, "żółwżó...", shorten("żółwżółwżółw", 9))
}
