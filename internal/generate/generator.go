// Package generate turns a crawled website corpus into a voice-agent
// configuration: a system prompt and an opening greeting.
package generate

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/voicebot-cli/internal/model"
	"github.com/sells-group/voicebot-cli/pkg/anthropic"
)

var (
	// ErrEmptyCorpus is returned when there is no text to generate from.
	ErrEmptyCorpus = eris.New("generate: empty corpus")
	// ErrEmptyPrompt is returned when the model produced no system prompt.
	ErrEmptyPrompt = eris.New("generate: model returned an empty system prompt")
)

// Generator produces an agent configuration from a corpus.
type Generator interface {
	Generate(ctx context.Context, persona model.Persona, corpus string) (*Result, error)
}

// Result is a generated configuration plus the tokens spent on it.
type Result struct {
	Config model.AgentConfig
	Tokens int64
}

// Config tunes generation.
type Config struct {
	Model               string
	PromptMaxTokens     int64
	GreetingMaxTokens   int64
	PromptCorpusChars   int // corpus prefix used for the system prompt
	GreetingCorpusChars int // corpus prefix used for the greeting
	// Negative temperatures leave the model default in place.
	PromptTemperature   float64
	GreetingTemperature float64
}

// LLMGenerator implements Generator on top of the Anthropic Messages API.
type LLMGenerator struct {
	client anthropic.Client
	cfg    Config
	policy *bluemonday.Policy
}

// New creates an LLMGenerator.
func New(client anthropic.Client, cfg Config) *LLMGenerator {
	return &LLMGenerator{
		client: client,
		cfg:    cfg,
		policy: bluemonday.StrictPolicy(),
	}
}

// Generate requests the system prompt and the greeting concurrently. A
// failed system prompt fails the whole call; a failed greeting is logged
// and left empty.
func (g *LLMGenerator) Generate(ctx context.Context, persona model.Persona, corpus string) (*Result, error) {
	if strings.TrimSpace(corpus) == "" {
		return nil, ErrEmptyCorpus
	}

	var (
		prompt, greeting             string
		promptTokens, greetingTokens int64
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		text, tokens, err := g.complete(egCtx, "system_prompt", promptWriterSystem,
			systemPromptRequest(persona, truncate(corpus, g.cfg.PromptCorpusChars)), g.cfg.PromptMaxTokens, g.cfg.PromptTemperature)
		if err != nil {
			return eris.Wrap(err, "generate: system prompt")
		}
		if text == "" {
			return ErrEmptyPrompt
		}
		prompt, promptTokens = text, tokens
		return nil
	})
	eg.Go(func() error {
		text, tokens, err := g.complete(egCtx, "greeting", greetingWriterSystem,
			greetingRequest(persona, truncate(corpus, g.cfg.GreetingCorpusChars)), g.cfg.GreetingMaxTokens, g.cfg.GreetingTemperature)
		if err != nil {
			zap.L().Warn("generate: greeting failed, continuing without it", zap.Error(err))
			return nil
		}
		greeting, greetingTokens = g.plainText(text), tokens
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &Result{
		Config: model.AgentConfig{
			SystemPrompt: prompt,
			Greeting:     greeting,
		},
		Tokens: promptTokens + greetingTokens,
	}, nil
}

func (g *LLMGenerator) complete(ctx context.Context, purpose, system, user string, maxTokens int64, temperature float64) (string, int64, error) {
	req := anthropic.MessageRequest{
		Model:     g.cfg.Model,
		MaxTokens: maxTokens,
		System:    []anthropic.SystemBlock{{Text: system}},
		Messages:  []anthropic.Message{{Role: "user", Content: user}},
	}
	if temperature >= 0 {
		req.Temperature = &temperature
	}
	resp, err := g.client.CreateMessage(ctx, req)
	if err != nil {
		return "", 0, err
	}
	resp.Usage.LogCost(g.cfg.Model, purpose)
	return strings.TrimSpace(resp.Text()), resp.Usage.Total(), nil
}

// Underscore emphasis only counts outside words, so snake_case survives.
var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	headingRe      = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`)
	starEmRe       = regexp.MustCompile(`\*{1,3}(\S(?:[^*\n]*\S)?)\*{1,3}`)
	underscoreEmRe = regexp.MustCompile(`(^|[^\p{L}\p{N}_])_{1,3}(\S(?:[^_\n]*\S)?)_{1,3}($|[^\p{L}\p{N}_])`)
	codeRe         = regexp.MustCompile("`+([^`\n]+)`+")
)

// plainText strips markup from a spoken line: HTML tags, markdown emphasis
// and headings, wrapping quotes and repeated whitespace.
func (g *LLMGenerator) plainText(s string) string {
	s = html.UnescapeString(g.policy.Sanitize(s))
	s = headingRe.ReplaceAllString(s, "")
	s = starEmRe.ReplaceAllString(s, "$1")
	s = underscoreEmRe.ReplaceAllString(s, "$1$2$3")
	s = codeRe.ReplaceAllString(s, "$1")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"“”„`)
	return strings.TrimSpace(s)
}

// truncate returns at most n runes of s. n <= 0 means no limit.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
