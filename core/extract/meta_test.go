package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, page string) *Document {
	t.Helper()
	doc, err := New(Options{}).Parse(page)
	require.NoError(t, err)
	return doc
}

func TestMetadataFromMetaTags(t *testing.T) {
	doc := parse(t, blogPage)
	assert.Equal(t, "Binary Search Patterns", doc.Title())
	assert.Equal(t, "Ada Lovelace", doc.Author())
	assert.Equal(t, "2024-03-01T10:00:00Z", doc.Published())
	assert.Equal(t, []string{"algorithms", "binary search"}, doc.Tags())
}

func TestTitleStripsSiteSuffix(t *testing.T) {
	doc := parse(t, `<html><head><title>How to Prep — interviewing.io</title></head><body></body></html>`)
	assert.Equal(t, "How to Prep", doc.Title())
}

func TestTitleFallsBackToOpenGraph(t *testing.T) {
	doc := parse(t, `<html><head><meta property="og:title" content="OG Title"></head><body></body></html>`)
	assert.Equal(t, "OG Title", doc.Title())
}

func TestTitleEmptyWhenAbsent(t *testing.T) {
	assert.Equal(t, "", parse(t, `<html><body><p>x</p></body></html>`).Title())
}

func TestAuthorFromByline(t *testing.T) {
	doc := parse(t, `<html><body><span class="byline">By Grace Hopper</span></body></html>`)
	assert.Equal(t, "Grace Hopper", doc.Author())
}

func TestAuthorAndDateFromJSONLD(t *testing.T) {
	doc := parse(t, `<html><head><script type="application/ld+json">
	{"@context":"https://schema.org","@graph":[
		{"@type":"WebSite","name":"Site"},
		{"@type":"BlogPosting","author":[{"@type":"Person","name":"Alan Turing"}],"datePublished":"2023-06-23"}
	]}
	</script></head><body></body></html>`)
	assert.Equal(t, "Alan Turing", doc.Author())
	assert.Equal(t, "2023-06-23", doc.Published())
}

func TestPublishedFromTimeElement(t *testing.T) {
	doc := parse(t, `<html><body><time datetime="2022-01-02">Jan 2</time></body></html>`)
	assert.Equal(t, "2022-01-02", doc.Published())
}
