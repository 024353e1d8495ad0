package lifecycle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Transitions(t *testing.T) {
	m := Default()

	cases := []struct {
		name        string
		from, to    string
		wantAllowed bool
		wantFlagged bool
		wantTo      string
	}{
		{"listed transition", "Triage", "Brief", true, false, "Brief"},
		{"case and spacing are folded", "review", "  live ", true, false, "Live"},
		{"same stage", "Design", "design", true, false, "Design"},
		{"unlisted transition", "Triage", "Live", false, true, "Live"},
		{"unknown target passes via escape hatch", "Design", "Print", true, true, "Print"},
		{"unknown current stage", "Legacy", "Design", true, true, "Design"},
		{"empty target", "Design", "", false, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := m.Check(tc.from, tc.to)
			assert.Equal(t, tc.wantAllowed, v.Allowed, v.Reason)
			assert.Equal(t, tc.wantFlagged, v.Flagged, v.Reason)
			assert.Equal(t, tc.wantTo, v.To)
		})
	}
}

func TestParse_WithoutEscapeHatchRejectsUnknown(t *testing.T) {
	m, err := Parse([]byte(`
allow_unknown: false
stages:
  - name: Triage
    next: [Live]
  - name: Live
`))
	require.NoError(t, err)

	v := m.Check("Triage", "Print")
	assert.False(t, v.Allowed)
	assert.True(t, v.Flagged)
	assert.True(t, m.Check("Triage", "Live").Allowed)
	assert.Equal(t, []string{"Triage", "Live"}, m.Stages())
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":      "stages: []",
		"undeclared": "stages:\n  - name: A\n    next: [B]\n",
		"duplicate":  "stages:\n  - name: A\n  - name: a\n",
		"blank name": "stages:\n  - name: ' '\n",
		"not yaml":   "stages: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	_, known := m.Canonical("production")
	assert.True(t, known)

	path := filepath.Join(t.TempDir(), "stages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stages:\n  - name: Only\n"), 0o600))
	m, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Only"}, m.Stages())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
