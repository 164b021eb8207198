package payload

import (
	"strings"
	"time"
	"unicode"
)

// Values at or above this are taken to be millisecond timestamps and
// divided down to seconds. Below it they are already seconds.
const millisThreshold = 1e11

// atSuffixes are the recognized spellings of a date-key suffix, checked
// in order. "_at" is the canonical form the others are rewritten to.
var atSuffixes = []string{"_at", "-at", " at"}

// CanonicalizeDates rewrites every key ending in a recognized "at"
// suffix variant to the canonical "_at" form and converts its value to
// unix seconds where the value looks like a time. Nested objects and
// lists of objects are walked. Values that don't look like times pass
// through untouched; canonicalization never fails.
func CanonicalizeDates(data map[string]any) map[string]any {
	for k, v := range data {
		switch nested := v.(type) {
		case map[string]any:
			data[k] = CanonicalizeDates(nested)
			continue
		case []map[string]any:
			for i, m := range nested {
				nested[i] = CanonicalizeDates(m)
			}
			continue
		case []any:
			for i, e := range nested {
				if m, ok := e.(map[string]any); ok {
					nested[i] = CanonicalizeDates(m)
				}
			}
			continue
		}

		canonical, isDate := canonicalKey(k)
		if !isDate {
			continue
		}
		if unix, ok := toUnix(v); ok {
			v = unix
		}
		if canonical != k {
			delete(data, k)
		}
		data[canonical] = v
	}
	return data
}

// canonicalKey reports whether k is a date key and returns its
// canonical spelling. The suffix must follow a non-empty stem, so a key
// that is just "at" is not a date key.
func canonicalKey(k string) (string, bool) {
	for _, suf := range atSuffixes {
		if strings.HasSuffix(k, suf) && len(k) > len(suf) {
			return k[:len(k)-len(suf)] + "_at", true
		}
	}
	// camelCase: "createdAt" → "created_at".
	if strings.HasSuffix(k, "At") && len(k) > 2 {
		stem := k[:len(k)-2]
		if r := rune(stem[len(stem)-1]); !unicode.IsUpper(r) && r != '_' {
			return stem + "_at", true
		}
	}
	return k, false
}

// toUnix converts recognized time representations to unix seconds.
func toUnix(v any) (int64, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.Unix(), true
	case *time.Time:
		if t == nil {
			return 0, false
		}
		return t.Unix(), true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return 0, false
		}
		return parsed.Unix(), true
	case int64:
		return scaleToSeconds(t), true
	case int:
		return scaleToSeconds(int64(t)), true
	case float64:
		return scaleToSeconds(int64(t)), true
	default:
		return 0, false
	}
}

func scaleToSeconds(v int64) int64 {
	if v >= millisThreshold || v <= -millisThreshold {
		return v / 1000
	}
	return v
}
