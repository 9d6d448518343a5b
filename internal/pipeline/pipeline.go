// Package pipeline orchestrates a provisioning run: crawl a website,
// generate the agent configuration, register the agent.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/voicebot-cli/internal/crawler"
	"github.com/sells-group/voicebot-cli/internal/generate"
	"github.com/sells-group/voicebot-cli/internal/model"
	"github.com/sells-group/voicebot-cli/internal/store"
	"github.com/sells-group/voicebot-cli/pkg/elevenlabs"
)

var (
	// ErrNoContent is returned when the crawl produced no text.
	ErrNoContent = eris.New("pipeline: no content could be extracted from the website")
	// ErrInvalidRequest wraps every request validation failure.
	ErrInvalidRequest = eris.New("pipeline: invalid request")
)

// Crawler fetches the website corpus.
type Crawler interface {
	Crawl(ctx context.Context, startURL string, maxPages int) (*crawler.Result, error)
}

// Registrar creates the remote agent.
type Registrar interface {
	CreateAgent(ctx context.Context, req elevenlabs.CreateAgentRequest) (*elevenlabs.Agent, error)
}

// Config tunes request validation and registration.
type Config struct {
	MaxPagesLimit int
	LLM           string
}

// Pipeline runs crawl -> generate -> register and records every run.
type Pipeline struct {
	store     store.Store
	crawler   Crawler
	generator generate.Generator
	registrar Registrar
	cfg       Config
}

// New creates a Pipeline with all dependencies.
func New(st store.Store, cr Crawler, gen generate.Generator, reg Registrar, cfg Config) *Pipeline {
	return &Pipeline{
		store:     st,
		crawler:   cr,
		generator: gen,
		registrar: reg,
		cfg:       cfg,
	}
}

// Validate normalizes req in place and reports every problem at once.
func (p *Pipeline) Validate(req *model.AgentRequest) error {
	var problems []string

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		problems = append(problems, "url is required")
	} else if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, "url must be an absolute http(s) URL")
	}

	switch {
	case req.MaxPages < 1:
		problems = append(problems, "max_pages must be at least 1")
	case p.cfg.MaxPagesLimit > 0 && req.MaxPages > p.cfg.MaxPagesLimit:
		problems = append(problems, fmt.Sprintf("max_pages must not exceed %d", p.cfg.MaxPagesLimit))
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		problems = append(problems, "name is required")
	}

	req.VoiceID = strings.TrimSpace(req.VoiceID)
	if req.VoiceID == "" && !req.DryRun {
		problems = append(problems, "voice is required")
	}

	req.Persona.Language = model.LanguageCode(req.Persona.Language)

	if len(problems) > 0 {
		return eris.Wrap(ErrInvalidRequest, strings.Join(problems, "; "))
	}
	return nil
}

// Submit validates req and records a queued run.
func (p *Pipeline) Submit(ctx context.Context, req model.AgentRequest) (*model.Run, error) {
	if err := p.Validate(&req); err != nil {
		return nil, err
	}
	run, err := p.store.CreateRun(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	return run, nil
}

// Run submits and executes req synchronously.
func (p *Pipeline) Run(ctx context.Context, req model.AgentRequest) (*model.Run, error) {
	run, err := p.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	result, err := p.Execute(ctx, run)
	run.Result = result
	if err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
		return run, err
	}
	run.Status = model.RunStatusComplete
	return run, nil
}

// Execute drives a submitted run to a terminal status. It halts at the
// first stage that cannot recover and records the failure on the run.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) (*model.RunResult, error) {
	req := run.Request
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("url", req.URL))
	log.Info("pipeline: starting run", zap.Int("max_pages", req.MaxPages), zap.Bool("dry_run", req.DryRun))

	start := time.Now()
	result := &model.RunResult{DryRun: req.DryRun}

	fail := func(err error) (*model.RunResult, error) {
		result.DurationMs = time.Since(start).Milliseconds()
		log.Error("pipeline: run failed", zap.Error(err))
		// Record the failure even if the caller's context is already done.
		if ferr := p.store.FailRun(context.WithoutCancel(ctx), run.ID, err.Error()); ferr != nil {
			log.Warn("pipeline: failed to record failure", zap.Error(ferr))
		}
		return result, err
	}

	// Crawl
	p.setStatus(ctx, log, run.ID, model.RunStatusCrawling)
	crawled, err := p.crawler.Crawl(ctx, req.URL, req.MaxPages)
	if crawled != nil {
		result.PagesVisited = len(crawled.Visited)
	}
	if err != nil {
		return fail(eris.Wrap(err, "pipeline: crawl"))
	}
	if strings.TrimSpace(crawled.Text) == "" {
		return fail(ErrNoContent)
	}
	result.CorpusChars = len([]rune(crawled.Text))
	log.Info("pipeline: crawl complete",
		zap.Int("pages", result.PagesVisited),
		zap.Int("failed", crawled.Failed),
		zap.Int("corpus_chars", result.CorpusChars),
	)

	// Generate
	p.setStatus(ctx, log, run.ID, model.RunStatusGenerating)
	gen, err := p.generator.Generate(ctx, req.Persona, crawled.Text)
	if err != nil {
		return fail(eris.Wrap(err, "pipeline: generate"))
	}
	result.Config = gen.Config
	result.TotalTokens = gen.Tokens
	if gen.Config.Greeting == "" {
		log.Warn("pipeline: no greeting generated, continuing with the system prompt only")
	}

	// Register
	if !req.DryRun {
		p.setStatus(ctx, log, run.ID, model.RunStatusRegistering)
		agent, err := p.registrar.CreateAgent(ctx, elevenlabs.CreateAgentRequest{
			Name:         req.Name,
			SystemPrompt: gen.Config.SystemPrompt,
			VoiceID:      req.VoiceID,
			Language:     req.Persona.Language,
			FirstMessage: gen.Config.Greeting,
			LLM:          p.cfg.LLM,
		})
		if err != nil {
			return fail(eris.Wrap(err, "pipeline: register agent"))
		}
		result.Agent = &model.Agent{ID: agent.ID, URL: agent.URL}
	}

	result.DurationMs = time.Since(start).Milliseconds()
	if err := p.store.CompleteRun(context.WithoutCancel(ctx), run.ID, result); err != nil {
		log.Warn("pipeline: failed to record result", zap.Error(err))
	}
	log.Info("pipeline: run complete",
		zap.Int64("duration_ms", result.DurationMs),
		zap.Int64("tokens", result.TotalTokens),
	)
	return result, nil
}

func (p *Pipeline) setStatus(ctx context.Context, log *zap.Logger, runID string, status model.RunStatus) {
	if err := p.store.UpdateRunStatus(ctx, runID, status); err != nil {
		log.Warn("pipeline: failed to update status", zap.String("status", string(status)), zap.Error(err))
	}
}
