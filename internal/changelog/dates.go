package changelog

import "time"

// DateLayout renders "Jan 2, 2006": short month, numeric day, numeric year.
const DateLayout = "Jan 2, 2006"

// DateFormatter turns merge timestamps into date header labels.
type DateFormatter struct {
	// Location is the zone labels are computed in. Nil means UTC.
	Location *time.Location
}

// FormatDate returns the display label for ts, or "" when ts is nil.
func (f DateFormatter) FormatDate(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Format(DateLayout)
}
