package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/kbpipe/config"
)

func TestDefaultRouterPriority(t *testing.T) {
	d, _ := newTestDeps(t, nil)
	r, err := NewDefaultRouter(Options{Deps: d, Config: config.Default()})
	require.NoError(t, err)

	cases := map[string]string{
		"books/interviews.pdf":                                 "pdf",
		"https://example.com/files/Book.PDF":                   "pdf",
		"https://drive.google.com/file/d/1AbCdEf/view":         "gdrive",
		"https://drive.google.com/drive/folders/1AbCdEf":       "gdrive",
		"notes/readme.md":                                      "markdown",
		"https://raw.githubusercontent.com/o/r/main/README.md": "markdown",
		"https://github.com/o/r/blob/main/docs/intro.md":       "github",
		"https://github.com/o/r":                               "github",
		"https://someone.substack.com":                         "substack",
		"https://someone.substack.com/p/a-post":                "substack",
		"https://interviewing.io/blog":                         config.SourceInterviewingBlog,
		"https://interviewing.io/topics#companies":             config.SourceInterviewingCompanies,
		"https://interviewing.io/learn#interview-guides":       config.SourceInterviewingGuides,
		"https://nilmamano.com/blog/category/dsa":              config.SourceNilMamanoDSA,
		"https://interviewing.io/blog/a-single-post":           "generic",
		"https://example.com/blog/post":                        "generic",
		"not a url":                                            "generic",
	}
	for source, want := range cases {
		assert.Equal(t, want, r.Select(source).Name, source)
	}
}

func TestRouterRoutesEndWithFallback(t *testing.T) {
	d, _ := newTestDeps(t, nil)
	r, err := NewDefaultRouter(Options{Deps: d, Config: config.Default()})
	require.NoError(t, err)

	routes := r.Routes()
	require.NotEmpty(t, routes)
	assert.Equal(t, "pdf", routes[0].Name)
	assert.Equal(t, "generic", routes[len(routes)-1].Name)
	for _, rt := range routes {
		assert.NotEmpty(t, rt.Description, rt.Name)
		assert.NotNil(t, rt.Extractor, rt.Name)
	}

	rt, ok := r.ByName(config.SourceNilMamanoDSA)
	require.True(t, ok)
	assert.Equal(t, config.SourceNilMamanoDSA, rt.Extractor.Name())
	_, ok = r.ByName("nope")
	assert.False(t, ok)
}

func TestDefaultRouterRejectsBadPatterns(t *testing.T) {
	d, _ := newTestDeps(t, nil)
	cfg := config.Default()
	cfg.Extractors.Markdown.TitlePatterns = []string{`^# .+$`}
	_, err := NewDefaultRouter(Options{Deps: d, Config: cfg})
	assert.Error(t, err)
}
