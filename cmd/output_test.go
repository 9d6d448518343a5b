package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/voicebot-cli/internal/model"
)

func TestWriteOutput(t *testing.T) {
	v := model.AgentConfig{SystemPrompt: "You help.", Greeting: "Hi!"}

	var js bytes.Buffer
	require.NoError(t, writeOutput(&js, "json", v))
	assert.JSONEq(t, `{"system_prompt":"You help.","greeting":"Hi!"}`, js.String())

	var ym bytes.Buffer
	require.NoError(t, writeOutput(&ym, "yaml", v))
	assert.YAMLEq(t, "system_prompt: You help.\ngreeting: Hi!\n", ym.String())

	err := writeOutput(&bytes.Buffer{}, "xml", v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}
