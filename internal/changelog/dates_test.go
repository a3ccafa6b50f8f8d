package changelog

import (
	"testing"
	"time"
)

func TestFormatDate(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	ts := time.Date(2019, time.March, 2, 23, 30, 0, 0, time.UTC)

	tests := map[string]struct {
		formatter DateFormatter
		input     *time.Time
		want      string
	}{
		"nil timestamp is empty": {
			formatter: DateFormatter{},
			input:     nil,
			want:      "",
		},
		"defaults to UTC": {
			formatter: DateFormatter{},
			input:     &ts,
			want:      "Mar 2, 2019",
		},
		"uses configured location": {
			formatter: DateFormatter{Location: berlin},
			input:     &ts,
			want:      "Mar 3, 2019",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tc.formatter.FormatDate(tc.input); got != tc.want {
				t.Fatalf("FormatDate = %q, want %q", got, tc.want)
			}
		})
	}
}
