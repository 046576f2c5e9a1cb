package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/asandoval/breeze/internal/config"
	"github.com/asandoval/breeze/internal/pending"
)

func TestBindingRune(t *testing.T) {
	assert.Equal(t, 'd', bindingRune("d"))
	assert.Equal(t, ' ', bindingRune("space"))
	assert.Equal(t, '\t', bindingRune("tab"))
	assert.Equal(t, rune(0), bindingRune(""))
}

func TestBindingMatches_Defaults(t *testing.T) {
	keys := config.DefaultKeyBindings()

	assert.True(t, bindingMatches(keys.BulkSelect, ' '))
	assert.True(t, bindingMatches(keys.NextList, '\t'))
	assert.True(t, bindingMatches(keys.Help, '?'))
	assert.False(t, bindingMatches(keys.Trash, 'x'))
	assert.False(t, bindingMatches("", 'x'))
}

func TestHelpText_ListsConfiguredBindings(t *testing.T) {
	keys := config.DefaultKeyBindings()
	keys.Trash = "x"

	text := helpText(keys)

	assert.Contains(t, text, "move to trash")
	assert.Contains(t, text, "[::b]x")
	assert.Contains(t, text, keys.Help)
	assert.Contains(t, text, "toggle bulk selection")
}

func TestUndoToastDuration_MatchesGraceWindow(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, cfg.UndoGrace(), undoToastDuration(cfg, pending.KindDelete))
	assert.Equal(t, cfg.SendGrace(), undoToastDuration(cfg, pending.KindSend))
}
