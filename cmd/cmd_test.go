package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/kbpipe/config"
	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/gdrive"
	"github.com/gaurav-prasanna/kbpipe/core/render"
	"github.com/gaurav-prasanna/kbpipe/core/source"
)

func TestSelectRenderer(t *testing.T) {
	r, err := selectRenderer("json", false)
	require.NoError(t, err)
	assert.Equal(t, ".json", r.Extension())

	r, err = selectRenderer("MD", true)
	require.NoError(t, err)
	assert.Equal(t, ".md", r.Extension())

	r, err = selectRenderer("pdf", false)
	require.NoError(t, err)
	assert.Equal(t, ".pdf", r.Extension())

	_, err = selectRenderer("xml", false)
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	md := render.NewMarkdownRenderer()
	assert.Equal(t, "knowledge.md", outputPath("knowledge.json", md, false))
	assert.Equal(t, "out/knowledge.json", outputPath("out/knowledge.json", md, true))
	assert.Equal(t, "knowledge.json", outputPath("knowledge.json", render.NewEnvelopeRenderer(), false))
}

func TestSourceFor(t *testing.T) {
	cfg := config.Default()
	router := source.NewRouter(
		[]source.Route{{Name: config.SourceInterviewingBlog, Match: func(string) bool { return false }}},
		source.Route{Name: "generic", Match: func(string) bool { return true }},
	)

	got := sourceFor(router, cfg, config.SourceInterviewingBlog)
	assert.Equal(t, config.SourceInterviewingBlog, got.Name)
	assert.Equal(t, config.SourceInterviewingBlog, got.Route)
	assert.Equal(t, "https://interviewing.io/blog", got.Target)

	got = sourceFor(router, cfg, config.SourceNilMamanoDSA)
	assert.Equal(t, config.SourceNilMamanoDSA, got.Name)
	assert.Empty(t, got.Route)

	got = sourceFor(router, cfg, "https://example.com/post")
	assert.Empty(t, got.Name)
	assert.Equal(t, "https://example.com/post", got.Target)
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	got, err := prompt(strings.NewReader("  https://example.com/a \nignored\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", got)
	assert.Contains(t, out.String(), "Enter a URL")

	got, err = prompt(strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestConfigInitLoadsBack(t *testing.T) {
	var out bytes.Buffer
	configInitCmd.SetOut(&out)
	require.NoError(t, runConfigInit(configInitCmd, nil))

	path := filepath.Join(t.TempDir(), "kbpipe.yaml")
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)

	def := config.Default()
	assert.Equal(t, def.Sources, cfg.Sources)
	assert.Equal(t, def.Timeouts, cfg.Timeouts)
	assert.Equal(t, def.Extractors.PDF.ChapterPatterns, cfg.Extractors.PDF.ChapterPatterns)
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, core.Summary{
		Items:   3,
		Errors:  2,
		ByStage: map[core.Stage]int{core.StageFetch: 2},
		Dropped: 1,
		Sources: []core.SourceSummary{
			{Name: "blog", Items: 3},
			{Name: "guides", Errors: 2, Halted: true},
		},
	})
	s := out.String()
	assert.Contains(t, s, "blog")
	assert.Contains(t, s, "halted")
	assert.Contains(t, s, "✗ fetch errors: 2")
	assert.Contains(t, s, "✗ dropped items without source_url: 1")
}

func TestExtractFailure(t *testing.T) {
	link := "https://drive.google.com/file/d/1AbCdEfGhIjKlMnOpQrStUvWxYz/view"
	err := extractFailure(link, core.Fail(core.StageResolve, link, fmt.Errorf("%w: no PDF", gdrive.ErrNotFound)))
	require.ErrorIs(t, err, gdrive.ErrNotFound)
	assert.Contains(t, err.Error(), link)

	assert.NoError(t, extractFailure("https://example.com/a", core.Fail(core.StageFetch, "https://example.com/a", errors.New("timeout"))))
	assert.NoError(t, extractFailure("https://example.com/a", nil))
}
