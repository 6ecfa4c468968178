package matching

import (
	"strconv"
	"strings"
	"time"

	"github.com/ghmd86/document-hub-sub000/internal/store"
)

// Metadata key aliases accepted for the validity window bounds.
var (
	validFromAliases  = []string{"valid_from", "validFrom", "effective_date", "effectiveDate"}
	validUntilAliases = []string{"valid_until", "validUntil", "expiry_date", "expiryDate"}
)

// FilterValid drops documents whose validity window excludes now. A document
// with absent or unparsable window metadata is retained (fail-open): a broken
// metadata blob must never hide a document.
func FilterValid(docs []*store.Document, now time.Time) []*store.Document {
	out := make([]*store.Document, 0, len(docs))
	for _, doc := range docs {
		if withinValidityWindow(doc.Metadata, now) {
			out = append(out, doc)
		}
	}
	return out
}

// withinValidityWindow compares at day granularity: a document is valid from
// the first moment of its valid_from day through the last moment of its
// valid_until day, both inclusive.
func withinValidityWindow(metadata map[string]any, now time.Time) bool {
	today := dateOf(now)
	if from, ok := windowBound(metadata, validFromAliases); ok && today.Before(dateOf(from)) {
		return false
	}
	if until, ok := windowBound(metadata, validUntilAliases); ok && today.After(dateOf(until)) {
		return false
	}
	return true
}

// dateOf truncates a timestamp to its UTC calendar day.
func dateOf(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// windowBound resolves the first alias present in the metadata to a parsed
// time. Present-but-unparsable values are treated as absent.
func windowBound(metadata map[string]any, aliases []string) (time.Time, bool) {
	for _, alias := range aliases {
		v, ok := metadata[alias]
		if !ok || v == nil {
			continue
		}
		if t, ok := parseWindowDate(v); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseWindowDate accepts ISO dates, US dates, and epoch millis.
func parseWindowDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse("01/02/2006", s); err == nil {
			return parsed, true
		}
		if millis, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(millis), true
		}
		return time.Time{}, false
	case float64:
		return time.UnixMilli(int64(t)), true
	case int64:
		return time.UnixMilli(t), true
	default:
		return time.Time{}, false
	}
}
