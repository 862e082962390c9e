// Package model defines the domain types shared across the pipeline.
package model

import "time"

// Item is a single syndicated news item as produced by the ingestion stage.
// Items are immutable once created and live only for one pipeline cycle;
// only their URL is persisted (in the dedup store).
type Item struct {
	Title       string
	Link        string
	Description string
	Published   time.Time
	Author      string
	Categories  []string
	Image       string
	Source      string
}

// ResultOrigin tells how a rewrite result was obtained from the model output.
type ResultOrigin string

const (
	// OriginStructured means the backend returned a well-formed structured
	// response that parsed strictly.
	OriginStructured ResultOrigin = "structured"
	// OriginHeuristic means strict parsing failed and the result was
	// recovered by best-effort extraction from the raw text.
	OriginHeuristic ResultOrigin = "heuristic"
)

// RewriteResult is the rewritten/translated form of an item.
type RewriteResult struct {
	Title      string       `json:"title"`
	Body       string       `json:"body"`
	Tags       []string     `json:"tags"`
	Origin     ResultOrigin `json:"origin"`
	PromptHash string       `json:"prompt_hash"`
}

// Post pairs an ingested item with its accepted rewrite. This is the payload
// that flows to the scheduler and the transport.
type Post struct {
	Item    Item
	Rewrite RewriteResult
}
