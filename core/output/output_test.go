package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/kbpipe/core"
)

func TestWriterOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)

	path, err := w.Write("nested/knowledge.json", []byte(`{"v":1}`))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "knowledge.json"), path)

	_, err = w.Write("nested/knowledge.json", []byte(`{"v":2}`))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriterAbsolutePath(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)
	abs := filepath.Join(t.TempDir(), "out.json")
	path, err := w.Write(abs, []byte("[]"))
	require.NoError(t, err)
	assert.Equal(t, abs, path)
}

func TestCollectorEnforcesInvariants(t *testing.T) {
	c := NewCollector(zerolog.Nop())
	kept := c.Add(
		core.ContentItem{Title: "ok", Content: "x", ContentType: core.TypeGuide, SourceURL: "https://a"},
		core.ContentItem{Title: "no url", Content: "x", ContentType: core.TypeBlog},
		core.ContentItem{Title: " ", Content: "x", ContentType: "podcast", SourceURL: " https://b "},
	)
	assert.Equal(t, 2, kept)
	assert.Equal(t, 1, c.Dropped())
	require.Equal(t, 2, c.Len())

	items := c.Items()
	assert.Equal(t, core.TypeGuide, items[0].ContentType)
	assert.Equal(t, core.NewItemID("https://a", "ok"), items[0].ID)
	assert.Equal(t, core.TypeOther, items[1].ContentType)
	assert.Equal(t, core.UntitledPlaceholder, items[1].Title)
	assert.Equal(t, "https://b", items[1].SourceURL)
}

func TestCollectorItemsIsACopy(t *testing.T) {
	c := NewCollector(zerolog.Nop())
	c.Add(core.ContentItem{Title: "a", SourceURL: "u", ContentType: core.TypeBlog})
	items := c.Items()
	items[0].Title = "changed"
	assert.Equal(t, "a", c.Items()[0].Title)
}

