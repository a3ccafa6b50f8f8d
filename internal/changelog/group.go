package changelog

import (
	"sort"
	"time"

	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
)

// Grouper converts a batch of relevant records into display records,
// suppressing a date label when it repeats the previous visible one.
type Grouper struct {
	Dates      DateFormatter
	Normalizer *Normalizer
}

// NewGrouper builds a Grouper that labels dates in the given formatter's zone.
func NewGrouper(dates DateFormatter) *Grouper {
	return &Grouper{Dates: dates, Normalizer: NewNormalizer()}
}

// Group sorts batch ascending by merge time and returns its display records
// together with the carried label to use for the next batch. The input slice
// is not modified.
func (g *Grouper) Group(batch []domain.RawRecord, lastLabel string) ([]domain.DisplayRecord, string) {
	if len(batch) == 0 {
		return nil, lastLabel
	}

	sorted := SortByMergedAt(batch)
	out := make([]domain.DisplayRecord, 0, len(sorted))
	for _, rec := range sorted {
		label := g.Dates.FormatDate(rec.MergedAt)
		if label == lastLabel {
			label = ""
		} else {
			lastLabel = label
		}
		out = append(out, g.display(rec, label))
	}
	return out, lastLabel
}

func (g *Grouper) display(rec domain.RawRecord, label string) domain.DisplayRecord {
	norm := g.Normalizer
	if norm == nil {
		norm = NewNormalizer()
	}
	body := norm.Normalize(rec.Body)
	excerpt, image := Excerpt(body)

	var merged time.Time
	if rec.MergedAt != nil {
		merged = *rec.MergedAt
	}
	return domain.DisplayRecord{
		ID:        rec.ID,
		Title:     rec.Title,
		Link:      rec.HTMLURL,
		Body:      body,
		DateLabel: label,
		MergedAt:  merged,
		Excerpt:   excerpt,
		ImageURL:  image,
	}
}

// SortByMergedAt returns a copy of batch ordered oldest merge first. Records
// with equal timestamps keep their arrival order; unmerged records sort last.
func SortByMergedAt(batch []domain.RawRecord) []domain.RawRecord {
	out := append([]domain.RawRecord(nil), batch...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].MergedAt, out[j].MergedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out
}
