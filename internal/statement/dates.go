package statement

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ambiguousDate matches two-number date strings where day and month
// cannot be told apart without context, with an optional year.
var ambiguousDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?$`)

// dateFormats is the prioritized fallthrough list for unambiguous
// date strings.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"02-01-2006",
	"2-1-2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"02/01/2006 15:04",
}

// referenceWindow is how far an interpretation may sit from the
// reference date and still be preferred in the ambiguity rule.
const referenceWindow = 5 * 24 * time.Hour

// ParseDate parses a raw ledger date string. For ambiguous DD/MM vs
// MM/DD strings the reference date decides: if exactly one
// interpretation falls within five days of it, that one wins; if both
// or neither qualify, day-first wins. A zero reference skips the
// window check. Returns ok=false for strings no rule can parse; such
// entries sort last in the statement.
func ParseDate(raw string, reference time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if m := ambiguousDate.FindStringSubmatch(raw); m != nil {
		return parseAmbiguous(m, reference)
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseAmbiguous(m []string, reference time.Time) (time.Time, bool) {
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])

	year := reference.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
	} else if reference.IsZero() {
		year = time.Now().Year()
	}

	dayFirst, dayFirstOK := makeDate(year, second, first)
	monthFirst, monthFirstOK := makeDate(year, first, second)

	switch {
	case !dayFirstOK && !monthFirstOK:
		return time.Time{}, false
	case dayFirstOK && !monthFirstOK:
		return dayFirst, true
	case monthFirstOK && !dayFirstOK:
		return monthFirst, true
	}

	if !reference.IsZero() {
		dayNear := withinWindow(dayFirst, reference)
		monthNear := withinWindow(monthFirst, reference)
		if dayNear != monthNear {
			if dayNear {
				return dayFirst, true
			}
			return monthFirst, true
		}
	}
	return dayFirst, true
}

// makeDate builds a date and rejects overflow normalization, so 31/02
// does not silently become March 3rd.
func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}

func withinWindow(t, reference time.Time) bool {
	diff := t.Sub(reference)
	if diff < 0 {
		diff = -diff
	}
	return diff <= referenceWindow
}
