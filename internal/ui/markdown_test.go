package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdownNormalizesTrailingNewline(t *testing.T) {
	out, err := RenderMarkdown("# Reading notes\n\nSection 3 matters.", 80, false)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.False(t, strings.HasSuffix(out, "\n\n"))
	assert.Contains(t, out, "Section 3 matters.")
}

func TestRenderMarkdownDefaultsWidth(t *testing.T) {
	out, err := RenderMarkdown("hello", 0, false)
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestNoteStyleUsesAccent(t *testing.T) {
	origAccent, origColor := Accent, accentColor
	t.Cleanup(func() { Accent, accentColor = origAccent, origColor })

	ConfigureTheme("39")
	style := noteStyle(true)
	require.NotNil(t, style.Heading.Color)
	assert.Equal(t, "39", *style.Heading.Color)
}
