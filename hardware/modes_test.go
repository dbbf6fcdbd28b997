package hardware

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionModesHavePrompts(t *testing.T) {
	modes := SessionModes()
	assert.Len(t, modes, 5)
	for _, profile := range modes {
		assert.NotEmpty(t, profile.Name, profile.ID)
		prompt := ModePrompt(profile.ID)
		assert.True(t, strings.HasPrefix(prompt, SystemPrompt()), profile.ID)
		assert.Contains(t, prompt, "## Current Mode:", profile.ID)
	}
}

func TestSessionPromptUnknownMode(t *testing.T) {
	assert.Equal(t, "", SessionPrompt("quantum"))
	assert.Equal(t, "", ModePrompt(SessionMode("quantum")))
	assert.Contains(t, SessionPrompt("debugging"), "## Current Mode: Hardware Debugging")
}

func TestSlashCommands(t *testing.T) {
	commands := SlashCommands()
	assert.Len(t, commands, 10)
	names := make(map[string]bool)
	for _, cmd := range commands {
		names[cmd.Name] = true
	}
	assert.True(t, names["extract_registers"])
	assert.True(t, names["document_design"])
}
