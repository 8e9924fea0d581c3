// Package paper defines the core data model shared across every pipeline stage.
package paper

// Paper is an immutable catalog entry. A transformed variant is always a new
// value; nothing in this package mutates a Paper in place.
type Paper struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Abstract    string `json:"abstract"`
	Authors     string `json:"authors"`
	Category    string `json:"category"`
	PublishDate string `json:"publish_date"`
	UpdateDate  string `json:"update_date"`
	Comments    string `json:"comments,omitempty"`
}

// WithSummary extends a Paper with a generated summary.
type WithSummary struct {
	Paper
	Summary string `json:"summary"`
}

// ID is the join key used by every FilterFinishedIDs/MarkIDsAsFinished
// wrapper in this codebase (see engine/operators).
func (p Paper) idOf() string { return p.ID }

// IDOf extracts the join-key id from a Paper. Matches the operators package's
// id-getter signature so it can be passed directly as a default.
func IDOf(p Paper) string { return p.idOf() }

// WithSummaryIDOf extracts the join-key id from a WithSummary.
func WithSummaryIDOf(p WithSummary) string { return p.Paper.idOf() }
