package models

// Pattern is a named winning condition on a housie ticket.
type Pattern string

const (
	PatternEarlyFive  Pattern = "earlyFive"
	PatternTopLine    Pattern = "topLine"
	PatternMiddleLine Pattern = "middleLine"
	PatternBottomLine Pattern = "bottomLine"
	PatternFullHouse  Pattern = "fullHouse"
)

// AllPatterns returns every recognized pattern in claim order.
func AllPatterns() []Pattern {
	return []Pattern{
		PatternEarlyFive,
		PatternTopLine,
		PatternMiddleLine,
		PatternBottomLine,
		PatternFullHouse,
	}
}

// ParsePattern converts a wire string into a Pattern.
func ParsePattern(s string) (Pattern, bool) {
	switch Pattern(s) {
	case PatternEarlyFive, PatternTopLine, PatternMiddleLine, PatternBottomLine, PatternFullHouse:
		return Pattern(s), true
	default:
		return "", false
	}
}
