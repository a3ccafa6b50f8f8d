package changelog

import "github.com/samvad-hq/whatsnew-harvester/internal/domain"

// DefaultInclusionLabel marks pull requests that belong in the changelog.
const DefaultInclusionLabel = "whats new"

// IsRelevant reports whether rec is merged and tagged with label.
func IsRelevant(rec domain.RawRecord, label string) bool {
	return rec.MergedAt != nil && rec.HasLabel(label)
}

// FilterRelevant returns the relevant records of one fetched batch in
// arrival order.
func FilterRelevant(batch []domain.RawRecord, label string) []domain.RawRecord {
	out := make([]domain.RawRecord, 0, len(batch))
	for _, rec := range batch {
		if IsRelevant(rec, label) {
			out = append(out, rec)
		}
	}
	return out
}
