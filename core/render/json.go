// Package render turns the items of a run into output documents: the JSON
// import formats, plus markdown and PDF digests for review.
package render

import (
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/kbpipe/core"
)

// Envelope is the knowledge-base import document written by `ingest`.
type Envelope struct {
	TeamID string         `json:"team_id"`
	Items  []EnvelopeItem `json:"items"`
}

// EnvelopeItem is one record of an Envelope.
type EnvelopeItem struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	SourceURL   string `json:"source_url"`
	Author      string `json:"author"`
	UserID      string `json:"user_id"`
}

// FlatItem is one record of the flat array written by `extract`.
type FlatItem struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	SourceURL     string            `json:"source_url"`
	ContentType   string            `json:"content_type"`
	Author        string            `json:"author"`
	DatePublished string            `json:"date_published"`
	Tags          []string          `json:"tags"`
	Metadata      map[string]string `json:"metadata"`
}

// EnvelopeRenderer produces the {team_id, items} document.
type EnvelopeRenderer struct{}

// NewEnvelopeRenderer creates an EnvelopeRenderer.
func NewEnvelopeRenderer() *EnvelopeRenderer {
	return &EnvelopeRenderer{}
}

// Render builds the envelope. An empty run yields "items": [].
func (r *EnvelopeRenderer) Render(items []core.ContentItem, meta core.RunMeta) ([]byte, error) {
	env := Envelope{TeamID: meta.TeamID, Items: make([]EnvelopeItem, 0, len(items))}
	for _, it := range items {
		userID := it.UserID
		if userID == "" {
			userID = meta.UserID
		}
		env.Items = append(env.Items, EnvelopeItem{
			Title:       it.Title,
			Content:     it.Content,
			ContentType: string(it.ContentType),
			SourceURL:   it.SourceURL,
			Author:      it.Author,
			UserID:      userID,
		})
	}
	return marshal(env)
}

// Extension returns the file extension for JSON output.
func (r *EnvelopeRenderer) Extension() string {
	return ".json"
}

// FlatRenderer produces a JSON array of items with IDs, tags and metadata.
type FlatRenderer struct{}

// NewFlatRenderer creates a FlatRenderer.
func NewFlatRenderer() *FlatRenderer {
	return &FlatRenderer{}
}

// Render builds the array. An empty run yields [].
func (r *FlatRenderer) Render(items []core.ContentItem, _ core.RunMeta) ([]byte, error) {
	out := make([]FlatItem, 0, len(items))
	for _, it := range items {
		id := it.ID
		if id == "" {
			id = core.NewItemID(it.SourceURL, it.Title)
		}
		tags := it.Tags
		if tags == nil {
			tags = []string{}
		}
		md := it.Metadata
		if md == nil {
			md = map[string]string{}
		}
		out = append(out, FlatItem{
			ID:            id,
			Title:         it.Title,
			Content:       it.Content,
			SourceURL:     it.SourceURL,
			ContentType:   string(it.ContentType),
			Author:        it.Author,
			DatePublished: it.DatePublished,
			Tags:          tags,
			Metadata:      md,
		})
	}
	return marshal(out)
}

// Extension returns the file extension for JSON output.
func (r *FlatRenderer) Extension() string {
	return ".json"
}

func marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return append(data, '\n'), nil
}
