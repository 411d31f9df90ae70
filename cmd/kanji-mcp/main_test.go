package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/kanji-match-mcp/internal/config"
	"github.com/ironsheep/kanji-match-mcp/internal/store"
)

type closeTracker struct {
	store.Backend
	closed int
}

func (c *closeTracker) Close() error {
	c.closed++
	return c.Backend.Close()
}

const glyphFile = `[
  {"value": "十", "strokes": [[[10, 50], [100, 50]], [[55, 5], [55, 100]]]},
  {"value": "二", "strokes": [[[25, 35], [85, 35]], [[10, 80], [100, 80]]]}
]`

func TestPopulate(t *testing.T) {
	dir := t.TempDir()
	glyphs := filepath.Join(dir, "glyphs.json")
	require.NoError(t, os.WriteFile(glyphs, []byte(glyphFile), 0644))
	conf := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(conf, []byte("scoring_policy: slant-variants\n"), 0644))

	dbPath := filepath.Join(dir, "templates.db")
	require.NoError(t, populate([]string{"-glyphs", glyphs, "-store", dbPath, "-config", conf}))

	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer st.Close()
	n, err := st.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := st.CharactersInStrokeRange(store.Range{Min: 2, Max: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0x5341, got[0].Codepoint)
	assert.NotEmpty(t, got[0].HeatmapCoarseSlant)
}

func TestPopulate_JSONStore(t *testing.T) {
	dir := t.TempDir()
	glyphs := filepath.Join(dir, "glyphs.json")
	require.NoError(t, os.WriteFile(glyphs, []byte(glyphFile), 0644))

	out := filepath.Join(dir, "templates.json")
	require.NoError(t, populate([]string{"-glyphs", glyphs, "-store", out}))
	assert.Equal(t, 2, store.NewJSONStore(out).Len())
}

func TestPopulate_Errors(t *testing.T) {
	dir := t.TempDir()
	glyphs := filepath.Join(dir, "glyphs.json")
	require.NoError(t, os.WriteFile(glyphs, []byte(glyphFile), 0644))

	tests := []struct {
		name string
		args []string
	}{
		{"missing glyphs flag", []string{"-store", filepath.Join(dir, "t.db")}},
		{"unknown flag", []string{"-bogus"}},
		{"missing glyph file", []string{"-glyphs", filepath.Join(dir, "absent.json")}},
		{"unsupported store", []string{"-glyphs", glyphs, "-store", filepath.Join(dir, "t.csv")}},
		{"bad config", []string{"-glyphs", glyphs, "-store", filepath.Join(dir, "t.db"), "-config", filepath.Join(dir, "c.toml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, populate(tt.args))
		})
	}
}

func TestServe(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	tracked := &closeTracker{Backend: st}

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	var out bytes.Buffer
	require.NoError(t, serve(config.Default(), tracked, in, &out))
	assert.Contains(t, out.String(), `"id":1`)
	assert.Equal(t, 1, tracked.closed)
}

func TestServe_ClosesStoreOnError(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	tracked := &closeTracker{Backend: st}

	cfg := config.Default()
	cfg.Size = 0
	err = serve(cfg, tracked, strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, 1, tracked.closed)
}

func TestUsage(t *testing.T) {
	var buf bytes.Buffer
	usage(&buf)
	assert.True(t, strings.Contains(buf.String(), "KANJI_MCP_STORE"))
	assert.True(t, strings.Contains(buf.String(), "populate"))
}

func TestEnvOr(t *testing.T) {
	t.Setenv("KANJI_MCP_TEST_VAR", "")
	assert.Equal(t, "fallback", envOr("KANJI_MCP_TEST_VAR", "fallback"))
	t.Setenv("KANJI_MCP_TEST_VAR", "set")
	assert.Equal(t, "set", envOr("KANJI_MCP_TEST_VAR", "fallback"))
}
