// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared across pipeline stages.
// See docs/ARCHITECTURE § Data Model.
package types

import "time"

// ItemType classifies a submitted content item.
type ItemType string

const (
	// ItemArticle is a link to an external article with extracted text.
	ItemArticle ItemType = "ARTICLE"
	// ItemTopicSeed is a free-form topic the user wants covered.
	ItemTopicSeed ItemType = "TOPIC_SEED"
	// ItemContextNote is a short note providing context for the week.
	ItemContextNote ItemType = "CONTEXT_NOTE"
)

// ItemStatus is the lifecycle state of an item. Status only advances:
// COLLECTED items are consumed by a pipeline run and become PUBLISHED
// atomically when the run succeeds.
type ItemStatus string

const (
	StatusCollected ItemStatus = "COLLECTED"
	StatusClustered ItemStatus = "CLUSTERED"
	StatusPublished ItemStatus = "PUBLISHED"
)

// Item is one user-submitted content fragment. Immutable once created
// except for Status.
type Item struct {
	ID            string
	CreatedAt     time.Time
	Type          ItemType
	RawContent    string
	SourceURL     string
	ExtractedText string
	Summary       string
	Tags          []string
	Language      string
	WeekID        string
	Status        ItemStatus
}

// ShortID returns the first 8 characters of the item ID, used in
// user-facing listings.
func (i Item) ShortID() string {
	if len(i.ID) < 8 {
		return i.ID
	}
	return i.ID[:8]
}

// Content returns the best available text for the item: the extracted
// full text when present, otherwise the raw submission.
func (i Item) Content() string {
	if i.ExtractedText != "" {
		return i.ExtractedText
	}
	return i.RawContent
}
