package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/voicebot-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleRequest(url string) model.AgentRequest {
	return model.AgentRequest{
		URL:      url,
		Name:     "Acme support",
		MaxPages: 5,
		Persona:  model.Persona{Role: "Customer advisor", Tone: "Friendly", Language: "en"},
		VoiceID:  "21m00Tcm4TlvDq8ikWAM",
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		req := sampleRequest("https://acme.com")
		run, err := s.CreateRun(ctx, req)
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusQueued, run.Status)
		assert.Equal(t, req, run.Request)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, model.RunStatusQueued, got.Status)
		assert.Equal(t, req, got.Request)
		assert.Nil(t, got.Result)
		assert.Empty(t, got.Error)
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetRun(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("UpdateRunStatus", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, sampleRequest("https://test.com"))
		require.NoError(t, err)

		require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusCrawling))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusCrawling, got.Status)
	})

	t.Run("UpdateRunStatusNotFound", func(t *testing.T) {
		s := newStore(t)

		err := s.UpdateRunStatus(context.Background(), "nonexistent-id", model.RunStatusCrawling)
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("CompleteRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, sampleRequest("https://test.com"))
		require.NoError(t, err)

		result := &model.RunResult{
			PagesVisited: 3,
			CorpusChars:  1200,
			Config:       model.AgentConfig{SystemPrompt: "You are helpful.", Greeting: "Hello!"},
			Agent:        &model.Agent{ID: "agent_1", URL: "https://talk/agent_1"},
			TotalTokens:  900,
			DurationMs:   4200,
		}
		require.NoError(t, s.CompleteRun(ctx, run.ID, result))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		require.NotNil(t, got.Result)
		assert.Equal(t, *result, *got.Result)
	})

	t.Run("FailRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, sampleRequest("https://test.com"))
		require.NoError(t, err)

		require.NoError(t, s.FailRun(ctx, run.ID, "no content extracted"))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		assert.Equal(t, "no content extracted", got.Error)
		assert.Nil(t, got.Result)
	})

	t.Run("FailRunNotFound", func(t *testing.T) {
		s := newStore(t)

		err := s.FailRun(context.Background(), "nope", "x")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("ListRunsFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.CreateRun(ctx, sampleRequest("https://a.com"))
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		b, err := s.CreateRun(ctx, sampleRequest("https://b.com"))
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		_, err = s.CreateRun(ctx, sampleRequest("https://a.com"))
		require.NoError(t, err)

		require.NoError(t, s.FailRun(ctx, b.ID, "boom"))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		failed, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, b.ID, failed[0].ID)

		forA, err := s.ListRuns(ctx, RunFilter{URL: "https://a.com"})
		require.NoError(t, err)
		assert.Len(t, forA, 2)

		page, err := s.ListRuns(ctx, RunFilter{Limit: 1, Offset: 2})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, a.ID, page[0].ID)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestRunFilter_Limit(t *testing.T) {
	assert.Equal(t, defaultListLimit, RunFilter{}.limit())
	assert.Equal(t, defaultListLimit, RunFilter{Limit: -3}.limit())
	assert.Equal(t, 7, RunFilter{Limit: 7}.limit())
}
