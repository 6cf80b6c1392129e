package output

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/kbpipe/core"
)

// Collector accumulates the items of a run in order. It is the only place
// items are stored; the document is rendered from it once at exit.
type Collector struct {
	log     zerolog.Logger
	items   []core.ContentItem
	dropped int
}

// NewCollector creates an empty Collector.
func NewCollector(log zerolog.Logger) *Collector {
	return &Collector{log: log}
}

// Add appends items, enforcing the item invariants: a source URL is
// required, unknown content types become "other", a missing title becomes
// the placeholder, and a missing ID is derived. It returns how many items
// were kept.
func (c *Collector) Add(items ...core.ContentItem) int {
	kept := 0
	for _, it := range items {
		it.SourceURL = strings.TrimSpace(it.SourceURL)
		if it.SourceURL == "" {
			c.dropped++
			c.log.Error().Str("title", it.Title).Msg("dropping item without source_url")
			continue
		}
		if !it.ContentType.Valid() {
			c.log.Warn().Str("url", it.SourceURL).Str("content_type", string(it.ContentType)).Msg("unknown content type, using other")
			it.ContentType = core.TypeOther
		}
		it.Title = strings.TrimSpace(it.Title)
		if it.Title == "" {
			it.Title = core.UntitledPlaceholder
		}
		if it.ID == "" {
			it.ID = core.NewItemID(it.SourceURL, it.Title)
		}
		c.items = append(c.items, it)
		kept++
	}
	return kept
}

// Items returns the collected items in insertion order.
func (c *Collector) Items() []core.ContentItem {
	return append([]core.ContentItem(nil), c.items...)
}

// Len returns the number of collected items.
func (c *Collector) Len() int { return len(c.items) }

// Dropped returns the number of items rejected by Add.
func (c *Collector) Dropped() int { return c.dropped }
