package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/voicebot-cli/internal/crawler"
	"github.com/sells-group/voicebot-cli/internal/generate"
	"github.com/sells-group/voicebot-cli/internal/pipeline"
	"github.com/sells-group/voicebot-cli/internal/store"
	"github.com/sells-group/voicebot-cli/internal/voices"
	anthropicpkg "github.com/sells-group/voicebot-cli/pkg/anthropic"
	"github.com/sells-group/voicebot-cli/pkg/elevenlabs"
)

// appEnv holds the initialized store, clients and pipeline needed by the
// run and serve commands.
type appEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Voices   *voices.Cache
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured run store.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.SQLitePath
		if dsn == "" {
			dsn = "voicebot.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the run store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newCrawler(opts ...crawler.Option) *crawler.Crawler {
	base := []crawler.Option{
		crawler.WithTimeout(cfg.Crawl.Timeout()),
		crawler.WithUserAgent(cfg.Crawl.UserAgent),
		crawler.WithMaxBodySize(cfg.Crawl.MaxBodyBytes),
	}
	return crawler.New(append(base, opts...)...)
}

func newElevenLabs() elevenlabs.Client {
	return elevenlabs.NewClient(cfg.ElevenLabs.Key,
		elevenlabs.WithBaseURL(cfg.ElevenLabs.BaseURL),
		elevenlabs.WithWidgetURL(cfg.ElevenLabs.WidgetURL),
	)
}

func newVoiceCache(client elevenlabs.Client) *voices.Cache {
	return voices.NewCache(client, cfg.ElevenLabs.VoiceCacheTTL(), nil)
}

func newGenerator() *generate.LLMGenerator {
	var opts []anthropicpkg.Option
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, anthropicpkg.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	opts = append(opts, anthropicpkg.WithMaxRetries(cfg.Anthropic.MaxRetries))

	return generate.New(anthropicpkg.NewClient(cfg.Anthropic.Key, opts...), generate.Config{
		Model:               cfg.Anthropic.Model,
		PromptMaxTokens:     cfg.Generate.PromptMaxTokens,
		GreetingMaxTokens:   cfg.Generate.GreetingMaxTokens,
		PromptCorpusChars:   cfg.Generate.PromptCorpusChars,
		GreetingCorpusChars: cfg.Generate.GreetingCorpusChars,
		PromptTemperature:   cfg.Generate.PromptTemperature,
		GreetingTemperature: cfg.Generate.GreetingTemperature,
	})
}

// initApp validates config for mode, then builds the store, clients and
// pipeline. Callers should defer env.Close().
func initApp(ctx context.Context, mode string, crawlOpts ...crawler.Option) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	el := newElevenLabs()
	p := pipeline.New(st, newCrawler(crawlOpts...), newGenerator(), el, pipeline.Config{
		MaxPagesLimit: cfg.Crawl.MaxPagesLimit,
		LLM:           cfg.ElevenLabs.LLM,
	})

	return &appEnv{
		Store:    st,
		Pipeline: p,
		Voices:   newVoiceCache(el),
	}, nil
}
