package assessment

// UnknownLevel is returned when no band contains a score.
const UnknownLevel = "Unknown"

// Band is an inclusive score range mapped to a severity level.
type Band struct {
	Lo             int    `json:"lo"`
	Hi             int    `json:"hi"`
	Level          string `json:"level"`
	Recommendation string `json:"recommendation,omitempty"`
}

func (b Band) contains(score int) bool {
	return score >= b.Lo && score <= b.Hi
}

// SeverityTable is an ordered list of contiguous, non-overlapping bands.
type SeverityTable []Band

// Classify returns the level of the first band containing score.
func Classify(score int, table SeverityTable) string {
	if b, ok := table.band(score); ok {
		return b.Level
	}
	return UnknownLevel
}

func (t SeverityTable) band(score int) (Band, bool) {
	for _, b := range t {
		if b.contains(score) {
			return b, true
		}
	}
	return Band{}, false
}

// Validate checks that the table covers [lo, hi] exactly, with ascending
// bands that neither overlap nor leave gaps.
func (t SeverityTable) Validate(lo, hi int) error {
	if len(t) == 0 {
		return configErrorf("severity", "empty table")
	}

	next := lo
	for i, b := range t {
		if b.Level == "" {
			return configErrorf("severity", "band %d has no level", i)
		}
		if b.Lo > b.Hi {
			return configErrorf("severity", "band %s has lo %d above hi %d", b.Level, b.Lo, b.Hi)
		}
		if b.Lo < next {
			return configErrorf("severity", "band %s overlaps previous band at %d", b.Level, b.Lo)
		}
		if b.Lo > next {
			return configErrorf("severity", "gap between %d and %d before band %s", next, b.Lo-1, b.Level)
		}
		next = b.Hi + 1
	}

	if next-1 != hi {
		return configErrorf("severity", "table ends at %d, want %d", next-1, hi)
	}
	return nil
}
