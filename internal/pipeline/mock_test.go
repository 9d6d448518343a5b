package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/voicebot-cli/internal/crawler"
	"github.com/sells-group/voicebot-cli/internal/generate"
	"github.com/sells-group/voicebot-cli/internal/model"
	"github.com/sells-group/voicebot-cli/internal/store"
	"github.com/sells-group/voicebot-cli/pkg/elevenlabs"
)

// --- Crawler Mock ---

type mockCrawler struct {
	mock.Mock
}

func (m *mockCrawler) Crawl(ctx context.Context, startURL string, maxPages int) (*crawler.Result, error) {
	args := m.Called(ctx, startURL, maxPages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crawler.Result), args.Error(1)
}

// --- Generator Mock ---

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, persona model.Persona, corpus string) (*generate.Result, error) {
	args := m.Called(ctx, persona, corpus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generate.Result), args.Error(1)
}

// --- Registrar Mock ---

type mockRegistrar struct {
	mock.Mock
}

func (m *mockRegistrar) CreateAgent(ctx context.Context, req elevenlabs.CreateAgentRequest) (*elevenlabs.Agent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elevenlabs.Agent), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, req model.AgentRequest) (*model.Run, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult) error {
	args := m.Called(ctx, runID, result)
	return args.Error(0)
}

func (m *mockStore) FailRun(ctx context.Context, runID string, reason string) error {
	args := m.Called(ctx, runID, reason)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
