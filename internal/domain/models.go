package domain

import "time"

// Domain contains core models shared by the feed pipeline, sinks and publishers.

// Label is a pull request label as delivered by the feed.
type Label struct {
	Name string `json:"name"`
}

// RawRecord is one pull request from the remote feed. It is never mutated
// after decoding.
type RawRecord struct {
	ID        int64      `json:"id"`
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	MergedAt  *time.Time `json:"merged_at"`
	Labels    []Label    `json:"labels"`
	HTMLURL   string     `json:"html_url"`
	Merged    bool       `json:"merged"`
}

// HasLabel reports whether the record carries a label with exactly name.
func (r RawRecord) HasLabel(name string) bool {
	for _, l := range r.Labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

// DisplayRecord is the rendered form of a relevant RawRecord.
// An empty DateLabel means the header repeats the previous visible one and
// is suppressed.
type DisplayRecord struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Body      string    `json:"body"`
	DateLabel string    `json:"date_label,omitempty"`
	MergedAt  time.Time `json:"merged_at"`
	Excerpt   string    `json:"excerpt,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
}

// HasDateLabel reports whether the record starts a new date group.
func (d DisplayRecord) HasDateLabel() bool {
	return d.DateLabel != ""
}
