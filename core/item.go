package core

import (
	"strings"

	"github.com/google/uuid"
)

// ContentType is a tag from the fixed content taxonomy.
type ContentType string

// Content taxonomy.
const (
	TypeBlog              ContentType = "blog"
	TypeGuide             ContentType = "guide"
	TypePodcastTranscript ContentType = "podcast_transcript"
	TypeCallTranscript    ContentType = "call_transcript"
	TypeLinkedInPost      ContentType = "linkedin_post"
	TypeRedditComment     ContentType = "reddit_comment"
	TypeBook              ContentType = "book"
	TypeArticle           ContentType = "article"
	TypeDocumentation     ContentType = "documentation"
	TypeBookChapter       ContentType = "book_chapter"
	TypeOther             ContentType = "other"
)

// ContentTypes lists the taxonomy in declaration order.
var ContentTypes = []ContentType{
	TypeBlog, TypeGuide, TypePodcastTranscript, TypeCallTranscript,
	TypeLinkedInPost, TypeRedditComment, TypeBook, TypeArticle,
	TypeDocumentation, TypeBookChapter, TypeOther,
}

// Valid reports whether t is part of the taxonomy.
func (t ContentType) Valid() bool {
	for _, ct := range ContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// ParseContentType maps s onto the taxonomy, returning TypeOther for
// anything unknown.
func ParseContentType(s string) ContentType {
	t := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if t.Valid() {
		return t
	}
	return TypeOther
}

// UntitledPlaceholder is used when no title can be extracted.
const UntitledPlaceholder = "Untitled"

// ContentItem is one normalized unit of extracted text plus metadata.
type ContentItem struct {
	ID            string
	Title         string
	Content       string // markdown
	ContentType   ContentType
	SourceURL     string
	Author        string
	DatePublished string
	Tags          []string
	Metadata      map[string]string
	UserID        string
}

// NewItemID derives a stable identifier from the source URL and title, so
// re-running a source produces the same IDs.
func NewItemID(sourceURL, title string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceURL+"\x00"+title)).String()
}
