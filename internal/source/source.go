package source

import (
	"strings"
	"time"
	"unicode"
)

// parseTime parses a provider timestamp, returning nil when the value is
// absent or malformed. Unparsable dates never reject an item.
func parseTime(layout, value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

// unixTime converts a provider epoch-seconds field, treating zero as absent.
func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// tickerFromKeyword maps a free-text keyword to the ticker-style symbol that
// financial providers expect: the first word, uppercased, stripped of
// anything that is not a letter or digit ("bitcoin news" -> "BITCOIN").
func tickerFromKeyword(keyword string) string {
	fields := strings.Fields(strings.TrimSpace(keyword))
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range fields[0] {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// baseOrDefault prefers the seeded source row's endpoint over the adapter's
// built-in default.
func baseOrDefault(configured, fallback string) string {
	configured = strings.TrimRight(strings.TrimSpace(configured), "/")
	if configured == "" {
		return fallback
	}
	return configured
}
