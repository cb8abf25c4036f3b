package model

import "time"

// ChartMeta is the static chart description carried by the feed.
type ChartMeta struct {
	TrackName              string  `json:"track_name"`
	ChartLabel             string  `json:"chart_label"`
	Duration               string  `json:"duration,omitempty"`
	MaxTotalSteps          int     `json:"max_total_steps,omitempty"`
	InterpolatedDifficulty float64 `json:"interpolated_difficulty,omitempty"`
}

// RawChart is one chart's slice of the feed: metadata plus the raw result
// stream, already time-ordered by the backend.
type RawChart struct {
	Chart            ChartMeta   `json:"chart"`
	Results          []RawResult `json:"results"`
	BestGradeResults []RawResult `json:"bestGradeResults,omitempty"`
}

// feed timestamp layouts, in the order they are tried.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a feed timestamp. Unparseable input yields the zero time,
// which sorts before every real submission.
func ParseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
