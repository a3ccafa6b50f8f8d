package terminal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	err := p.PrintNotes([]domain.DisplayRecord{
		{ID: 1, Title: "Dark mode", Link: "https://example.com/1", DateLabel: "Mar 1, 2024", Excerpt: "Adds a dark theme."},
		{ID: 2, Title: "Faster clone", ImageURL: "https://example.com/clone.png"},
		{ID: 3, Title: "Stash UI", DateLabel: "Mar 4, 2024"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, "\x1b[", "plain output must not carry escape codes")
	assert.Equal(t, 2, strings.Count(out, "── "))
	assert.Contains(t, out, "── Mar 1, 2024 ──\n  • Dark mode\n    https://example.com/1\n    Adds a dark theme.\n  • Faster clone\n")
	assert.Contains(t, out, "image: https://example.com/clone.png")
	assert.Less(t, strings.Index(out, "Faster clone"), strings.Index(out, "Mar 4, 2024"))
}

func TestPrinterStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, true).PrintStatus("end of feed"))
	assert.Equal(t, "\nend of feed\n", buf.String())
}
