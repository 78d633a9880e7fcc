package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
	}{
		{"heading", "# Shopping", `<h1 id="shopping">Shopping</h1>`},
		{"task list", "- [ ] milk\n- [x] eggs", `type="checkbox"`},
		{"table", "| A | B |\n|---|---|\n| 1 | 2 |", "<table>"},
		{"strikethrough", "~~old~~", "<del>old</del>"},
		{"hard wraps", "line one\nline two", "<br />"},
		{"raw html escaped", "<script>alert(1)</script>", "<!-- raw HTML omitted -->"},
	}

	r := NewRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Render([]byte(tt.input))
			require.NoError(t, err)
			require.Contains(t, string(out), tt.contains)
		})
	}
}

func TestRenderer_Empty(t *testing.T) {
	out, err := NewRenderer().Render(nil)
	require.NoError(t, err)
	require.Empty(t, out)
}
