// Package elevenlabs provides a client for the ElevenLabs voice and
// Conversational AI agent APIs.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/voicebot-cli/internal/resilience"
)

// ErrMissingAgentID is returned when agent creation succeeds at the HTTP
// level but the response carries no agent_id.
var ErrMissingAgentID = eris.New("elevenlabs: response did not contain agent_id")

// Client defines the ElevenLabs operations.
type Client interface {
	// ListVoices returns the voices available to the account.
	ListVoices(ctx context.Context) ([]Voice, error)
	// CreateAgent provisions a conversational agent. It is never retried.
	CreateAgent(ctx context.Context, req CreateAgentRequest) (*Agent, error)
}

// Voice is a single TTS voice.
type Voice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type voicesResponse struct {
	Voices []Voice `json:"voices"`
}

// CreateAgentRequest holds the agent configuration to register.
type CreateAgentRequest struct {
	Name         string
	SystemPrompt string
	VoiceID      string
	Language     string // ISO 639-1
	FirstMessage string
	LLM          string
}

// Agent is a created agent and its public test widget.
type Agent struct {
	ID  string
	URL string
}

// APIError carries the diagnostic detail of a failed call.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs: %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

type createAgentPayload struct {
	Name               string             `json:"name"`
	ConversationConfig conversationConfig `json:"conversation_config"`
}

type conversationConfig struct {
	TTS   ttsConfig   `json:"tts"`
	Agent agentConfig `json:"agent"`
}

type ttsConfig struct {
	VoiceID string `json:"voice_id"`
}

type agentConfig struct {
	FirstMessage string       `json:"first_message"`
	Language     string       `json:"language,omitempty"`
	Prompt       promptConfig `json:"prompt"`
}

type promptConfig struct {
	Prompt       string                 `json:"prompt"`
	LLM          string                 `json:"llm,omitempty"`
	BuiltInTools map[string]builtInTool `json:"built_in_tools,omitempty"`
}

type builtInTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Params      map[string]any `json:"params"`
}

type createAgentResponse struct {
	AgentID string `json:"agent_id"`
}

// Option configures the ElevenLabs client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithWidgetURL sets the public talk-to page agents are linked to.
func WithWidgetURL(u string) Option {
	return func(c *httpClient) {
		c.widgetURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetryBackoff sets the initial backoff between voice-list retries.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *httpClient) {
		c.backoff = d
	}
}

type httpClient struct {
	apiKey    string
	baseURL   string
	widgetURL string
	backoff   time.Duration
	http      *http.Client
}

// NewClient creates a new ElevenLabs client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		baseURL:   "https://api.elevenlabs.io/v1",
		widgetURL: "https://elevenlabs.io/app/talk-to",
		backoff:   1 * time.Second,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CollapseNewlines replaces every run of line breaks with a single space
// and trims the result. The agent API does not reliably accept embedded
// newlines.
func CollapseNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inBreak := false
	for _, r := range s {
		if r == '\n' || r == '\r' {
			if !inBreak {
				b.WriteByte(' ')
				inBreak = true
			}
			continue
		}
		inBreak = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

type response struct {
	status int
	body   []byte
}

// retryDo executes an idempotent request, retrying transport failures and
// transient statuses. Exhausted transient statuses surface as *APIError.
func (c *httpClient) retryDo(ctx context.Context, req *http.Request) (response, error) {
	policy := resilience.Policy{
		Attempts:   3,
		Backoff:    c.backoff,
		MaxBackoff: 4 * c.backoff,
		OnRetry:    resilience.LogRetries("elevenlabs", req.Method+" "+req.URL.Path),
	}
	return resilience.Retry(ctx, policy, func(ctx context.Context) (response, error) {
		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			return response{}, err
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return response{}, eris.Wrap(err, "elevenlabs: read response body")
		}
		if resilience.IsTransientStatus(resp.StatusCode) {
			apiErr := &APIError{StatusCode: resp.StatusCode, Method: req.Method, URL: req.URL.String(), Body: string(body)}
			return response{}, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return response{status: resp.StatusCode, body: body}, nil
	})
}

func (c *httpClient) ListVoices(ctx context.Context) ([]Voice, error) {
	reqURL := c.baseURL + "/voices"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: create voices request")
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: list voices")
	}
	if resp.status != http.StatusOK {
		return nil, &APIError{StatusCode: resp.status, Method: http.MethodGet, URL: reqURL, Body: string(resp.body)}
	}

	var result voicesResponse
	if err := json.Unmarshal(resp.body, &result); err != nil {
		return nil, eris.Wrap(err, "elevenlabs: unmarshal voices")
	}
	return result.Voices, nil
}

func (c *httpClient) CreateAgent(ctx context.Context, in CreateAgentRequest) (*Agent, error) {
	reqURL := c.baseURL + "/convai/agents/create"

	payload := createAgentPayload{
		Name: in.Name,
		ConversationConfig: conversationConfig{
			TTS: ttsConfig{VoiceID: in.VoiceID},
			Agent: agentConfig{
				FirstMessage: CollapseNewlines(in.FirstMessage),
				Language:     in.Language,
				Prompt: promptConfig{
					Prompt: CollapseNewlines(in.SystemPrompt),
					LLM:    in.LLM,
					BuiltInTools: map[string]builtInTool{
						"language_detection": {
							Name:        "language_detection",
							Description: "Detect the caller's language",
							Params:      map[string]any{},
						},
					},
				},
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: marshal agent")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: create agent request")
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: create agent")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: read agent response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Method: http.MethodPost, URL: reqURL, Body: string(body)}
	}

	var result createAgentResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "elevenlabs: unmarshal agent response")
	}
	if result.AgentID == "" {
		return nil, eris.Wrapf(ErrMissingAgentID, "response: %s", string(body))
	}

	return &Agent{
		ID:  result.AgentID,
		URL: c.widgetURL + "?agent_id=" + url.QueryEscape(result.AgentID),
	}, nil
}
