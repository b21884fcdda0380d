package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical output format for normalized dates.
const DateLayout = "2006-01-02"

// Layouts with an explicit year, tried in order.
var yearLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"1/2/2006",
	"1/2/06",
}

// Layouts without a year; the year is inferred from today.
var noYearLayouts = []string{
	"January 2",
	"Jan 2",
	"1/2",
}

var (
	spaceRe          = regexp.MustCompile(`\s+`)
	trailingStateRe  = regexp.MustCompile(`[,\s]+([A-Za-z]{2})\.?$`)
	dayTailRe        = regexp.MustCompile(`^(\d{1,2})(?:,?\s*(\d{4}))?$`)
	rangeSeparators  = []*regexp.Regexp{
		regexp.MustCompile(`\s[-–—]\s`),
		regexp.MustCompile(`[–—]`),
		regexp.MustCompile(`(?i)\s(?:to|thru|through)\s`),
		regexp.MustCompile(`-`),
	}
)

// CleanDate parses a free-text date or date range into explicit start/end
// dates (YYYY-MM-DD). Trailing 2-letter state tokens that source sites append
// to date strings are stripped first. If no year is present the current year
// is inferred, and a resulting date strictly before today rolls forward one
// year: these are recurring shows, so a past date means the next occurrence.
func CleanDate(raw string, today time.Time) (start, end string, warnings []string) {
	s := spaceRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	if s == "" {
		return "", "", []string{"date missing"}
	}

	if m := trailingStateRe.FindStringSubmatch(s); m != nil && IsStateAbbr(m[1]) {
		s = strings.TrimSpace(s[:len(s)-len(m[0])])
		warnings = append(warnings, "state token removed from date")
	}

	today = truncateDay(today)

	// Single date first; range splitting is tried only when that fails, so
	// ISO dates like 2026-08-02 are never split on their own hyphens.
	if t, inferred, ok := parseSingle(s); ok {
		t = rollForward(t, inferred, today)
		ds := t.Format(DateLayout)
		return ds, ds, warnings
	}

	st, en, ok := parseRange(s, today)
	if !ok {
		warnings = append(warnings, "unparsed date: "+s)
		return "", "", warnings
	}
	return st.Format(DateLayout), en.Format(DateLayout), warnings
}

// parseRange splits s on the first separator where both sides yield dates.
func parseRange(s string, today time.Time) (st, en time.Time, ok bool) {
	for _, sep := range rangeSeparators {
		loc := sep.FindStringIndex(s)
		if loc == nil {
			continue
		}
		left := strings.TrimSpace(s[:loc[0]])
		right := strings.TrimSpace(s[loc[1]:])
		if left == "" || right == "" {
			continue
		}

		st, stInferred, okL := parseSingle(left)
		if !okL {
			continue
		}

		// Right side may be a bare day ("Aug 2-3"), optionally with a year
		// ("Aug 2-3, 2026") that then applies to both sides.
		if m := dayTailRe.FindStringSubmatch(right); m != nil {
			day, _ := strconv.Atoi(m[1])
			if m[2] != "" {
				year, _ := strconv.Atoi(m[2])
				st = time.Date(year, st.Month(), st.Day(), 0, 0, 0, 0, time.UTC)
				stInferred = false
			}
			st = rollForward(st, stInferred, today)
			en = time.Date(st.Year(), st.Month(), day, 0, 0, 0, 0, time.UTC)
			if en.Before(st) {
				en = en.AddDate(0, 1, 0)
			}
			return st, en, true
		}

		en, enInferred, okR := parseSingle(right)
		if !okR {
			continue
		}
		st = rollForward(st, stInferred, today)
		if enInferred {
			en = time.Date(st.Year(), en.Month(), en.Day(), 0, 0, 0, 0, time.UTC)
		}
		// Ranges crossing a year boundary ("Dec 30 - Jan 2").
		if en.Before(st) {
			en = en.AddDate(1, 0, 0)
		}
		return st, en, true
	}
	return time.Time{}, time.Time{}, false
}

func parseSingle(s string) (t time.Time, yearInferred, ok bool) {
	for _, layout := range yearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false, true
		}
	}
	for _, layout := range noYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(0, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true, true
		}
	}
	return time.Time{}, false, false
}

// rollForward applies the recurring-show heuristic: when the year was
// inferred, a date strictly before today means the listing describes the next
// annual occurrence, so it rolls forward one year.
func rollForward(t time.Time, yearInferred bool, today time.Time) time.Time {
	if !yearInferred {
		return t
	}
	t = time.Date(today.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if t.Before(today) {
		t = t.AddDate(1, 0, 0)
	}
	return t
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
