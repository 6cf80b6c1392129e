package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blogPage = `<!doctype html>
<html><head>
<title>Binary Search Patterns | Example Blog</title>
<meta name="author" content="Ada Lovelace">
<meta property="article:published_time" content="2024-03-01T10:00:00Z">
<meta name="keywords" content="Algorithms, binary search">
</head>
<body>
<header><nav><a href="/">Home</a></nav></header>
<div class="cookie-banner">We use cookies</div>
<main>
  <article>
    <h1 class="post-title">Binary Search Patterns</h1>
    <p>Binary search finds a target in a sorted array in logarithmic time.</p>
    <div class="social-share">Share this</div>
    <p>It generalises to any monotone predicate.</p>
    <script>track()</script>
  </article>
</main>
<footer>Copyright</footer>
</body></html>`

// mainContent runs the selector cascade the page pipeline uses: site
// selectors, then the common selectors, then <body>.
func mainContent(t *testing.T, c *Cleaner, page string, selectors []string) (string, bool) {
	t.Helper()
	doc, err := c.Parse(page)
	require.NoError(t, err)
	if frag, ok := doc.Select(selectors); ok {
		return frag, true
	}
	if frag, ok := doc.Select(c.CommonSelectors()); ok {
		return frag, true
	}
	return doc.Body()
}

func TestCleanPrefersArticleAndDropsBoilerplate(t *testing.T) {
	frag, ok := mainContent(t, New(Options{}), blogPage, nil)
	require.True(t, ok)

	assert.True(t, strings.HasPrefix(frag, "<article>"), frag)
	assert.Contains(t, frag, "logarithmic time")
	assert.Contains(t, frag, "monotone predicate")
	for _, junk := range []string{"Share this", "track()", "cookies", "Copyright", "Home"} {
		assert.NotContains(t, frag, junk)
	}
}

func TestCleanSiteSelectorsComeFirst(t *testing.T) {
	page := `<html><body>
		<article>generic article text</article>
		<div class="guide-body">site specific text</div>
	</body></html>`
	frag, ok := mainContent(t, New(Options{}), page, []string{".missing", ".guide-body"})
	require.True(t, ok)
	assert.Contains(t, frag, "site specific text")
	assert.NotContains(t, frag, "generic article text")
}

func TestCleanWrapsMultipleMatchesAndDropsNested(t *testing.T) {
	page := `<html><body>
		<div class="post"><p>first</p><div class="post">inner</div></div>
		<div class="post"><p>second</p></div>
	</body></html>`
	frag, ok := mainContent(t, New(Options{}), page, []string{".post"})
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(frag, "<div><div class=\"post\">"), frag)
	assert.Equal(t, 1, strings.Count(frag, "inner"))
	assert.Contains(t, frag, "second")
}

func TestCleanFallsBackToBody(t *testing.T) {
	page := `<html><body><nav>menu</nav><p>only body text</p></body></html>`
	frag, ok := mainContent(t, New(Options{}), page, nil)
	require.True(t, ok)
	assert.Contains(t, frag, "only body text")
	assert.NotContains(t, frag, "menu")
}

func TestCleanEmptyPage(t *testing.T) {
	_, ok := mainContent(t, New(Options{}), `<html><body><nav>menu</nav></body></html>`, nil)
	assert.False(t, ok)
}

func TestCleanExtraExcludeSelectors(t *testing.T) {
	page := `<html><body><article><p>keep</p><div class="promo">drop</div></article></body></html>`
	frag, ok := mainContent(t, New(Options{ExcludeSelectors: []string{".promo"}}), page, nil)
	require.True(t, ok)
	assert.Contains(t, frag, "keep")
	assert.NotContains(t, frag, "drop")
}

func TestCleanDoesNotMutateBetweenCalls(t *testing.T) {
	c := New(Options{})
	a, ok := mainContent(t, c, blogPage, nil)
	require.True(t, ok)
	b, ok := mainContent(t, c, blogPage, nil)
	require.True(t, ok)
	assert.Equal(t, a, b)
}

func TestLongestBlockPenalisesLinks(t *testing.T) {
	page := `<html><body>
		<div id="links"><a href="/a">` + strings.Repeat("link text ", 30) + `</a></div>
		<div id="story"><p>` + strings.Repeat("story text ", 20) + `</p></div>
	</body></html>`
	doc, err := New(Options{}).Parse(page)
	require.NoError(t, err)
	frag, ok := doc.LongestBlock()
	require.True(t, ok)
	assert.Contains(t, frag, "story text")
	assert.NotContains(t, frag, "link text")
}
