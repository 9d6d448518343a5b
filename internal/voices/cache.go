// Package voices caches the provider's voice list.
package voices

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/voicebot-cli/internal/model"
	"github.com/sells-group/voicebot-cli/pkg/elevenlabs"
)

var (
	// ErrNoVoices is returned when the provider lists no voices at all.
	ErrNoVoices = eris.New("voices: provider returned no voices")
	// ErrVoiceNotFound is returned when Resolve matches nothing.
	ErrVoiceNotFound = eris.New("voices: voice not found")
)

// Lister fetches the voice list from the provider.
type Lister interface {
	ListVoices(ctx context.Context) ([]elevenlabs.Voice, error)
}

// Cache holds the last successful voice list for ttl. Failed fetches are
// not cached.
type Cache struct {
	lister Lister
	ttl    time.Duration
	clock  clock.Clock

	mu        sync.Mutex
	voices    []model.Voice
	fetchedAt time.Time
}

// NewCache creates a Cache. A nil clk uses the wall clock.
func NewCache(lister Lister, ttl time.Duration, clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Cache{lister: lister, ttl: ttl, clock: clk}
}

// Voices returns the cached list, refetching once the entry has expired.
func (c *Cache) Voices(ctx context.Context) ([]model.Voice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.voices != nil && c.clock.Now().Before(c.fetchedAt.Add(c.ttl)) {
		return c.voices, nil
	}

	raw, err := c.lister.ListVoices(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "voices: fetch")
	}
	if len(raw) == 0 {
		return nil, ErrNoVoices
	}

	out := make([]model.Voice, 0, len(raw))
	for _, v := range raw {
		out = append(out, model.Voice{ID: v.VoiceID, Name: v.Name, Category: v.Category})
	}

	c.voices = out
	c.fetchedAt = c.clock.Now()
	zap.L().Debug("voices: refreshed", zap.Int("count", len(out)))

	return out, nil
}

// Resolve finds a voice by exact id, falling back to a case-insensitive
// name match.
func (c *Cache) Resolve(ctx context.Context, nameOrID string) (model.Voice, error) {
	list, err := c.Voices(ctx)
	if err != nil {
		return model.Voice{}, err
	}

	key := strings.TrimSpace(nameOrID)
	for _, v := range list {
		if v.ID == key {
			return v, nil
		}
	}
	for _, v := range list {
		if strings.EqualFold(v.Name, key) {
			return v, nil
		}
	}
	return model.Voice{}, eris.Wrapf(ErrVoiceNotFound, "voice %q", nameOrID)
}

// Invalidate drops the cached list.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.voices = nil
	c.mu.Unlock()
}
