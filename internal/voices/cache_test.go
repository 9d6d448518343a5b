package voices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/voicebot-cli/internal/model"
	"github.com/sells-group/voicebot-cli/pkg/elevenlabs"
)

type stubLister struct {
	voices []elevenlabs.Voice
	err    error
	calls  int
}

func (s *stubLister) ListVoices(_ context.Context) ([]elevenlabs.Voice, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.voices, nil
}

func sampleVoices() []elevenlabs.Voice {
	return []elevenlabs.Voice{
		{VoiceID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Category: "premade"},
		{VoiceID: "pNInz6obpgDQGcFmaJgB", Name: "Adam", Category: "premade"},
	}
}

func TestVoices_CachesWithinTTL(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	lister := &stubLister{voices: sampleVoices()}
	c := NewCache(lister, time.Minute, clk)

	first, err := c.Voices(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, model.Voice{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Category: "premade"}, first[0])

	clk.Advance(30 * time.Second)
	_, err = c.Voices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls)
}

func TestVoices_RefetchesAfterExpiry(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	lister := &stubLister{voices: sampleVoices()}
	c := NewCache(lister, time.Minute, clk)

	_, err := c.Voices(context.Background())
	require.NoError(t, err)

	clk.Advance(time.Minute)
	_, err = c.Voices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
}

func TestVoices_ErrorsAreNotCached(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	lister := &stubLister{err: errors.New("boom")}
	c := NewCache(lister, time.Minute, clk)

	_, err := c.Voices(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	lister.err = nil
	lister.voices = sampleVoices()
	got, err := c.Voices(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, lister.calls)
}

func TestVoices_EmptyList(t *testing.T) {
	c := NewCache(&stubLister{}, time.Minute, nil)

	_, err := c.Voices(context.Background())
	assert.ErrorIs(t, err, ErrNoVoices)
}

func TestResolve(t *testing.T) {
	c := NewCache(&stubLister{voices: sampleVoices()}, time.Minute, nil)
	ctx := context.Background()

	byID, err := c.Resolve(ctx, "pNInz6obpgDQGcFmaJgB")
	require.NoError(t, err)
	assert.Equal(t, "Adam", byID.Name)

	byName, err := c.Resolve(ctx, "  rachel ")
	require.NoError(t, err)
	assert.Equal(t, "21m00Tcm4TlvDq8ikWAM", byName.ID)

	_, err = c.Resolve(ctx, "Nobody")
	assert.ErrorIs(t, err, ErrVoiceNotFound)
}

func TestInvalidate(t *testing.T) {
	lister := &stubLister{voices: sampleVoices()}
	c := NewCache(lister, time.Hour, nil)

	_, err := c.Voices(context.Background())
	require.NoError(t, err)
	c.Invalidate()
	_, err = c.Voices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
}
