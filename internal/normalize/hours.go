package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var hoursRe = regexp.MustCompile(`(?i)(\d{1,2})(?::(\d{2}))?\s*(a\.?m\.?|p\.?m\.?)?\s*(?:-|–|—|to|until|til)\s*(\d{1,2})(?::(\d{2}))?\s*(a\.?m\.?|p\.?m\.?)?`)

// ParseHours recognizes common show-hour ranges ("9am-3pm", "10 – 4",
// "9:30 AM to 2 PM") and normalizes them into explicit start/end time strings.
// When a meridiem is missing the start defaults to AM and the end to PM,
// matching how show listings write daytime hours.
func ParseHours(raw string) (start, end string, warnings []string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "", nil
	}

	m := hoursRe.FindStringSubmatch(s)
	if m == nil {
		return "", "", []string{"unparsed hours: " + s}
	}

	startMer := cleanMeridiem(m[3])
	endMer := cleanMeridiem(m[6])
	if startMer == "" {
		startMer = "AM"
	}
	if endMer == "" {
		endMer = "PM"
	}

	start = formatTime(m[1], m[2], startMer)
	end = formatTime(m[4], m[5], endMer)
	if start == "" || end == "" {
		return "", "", []string{"unparsed hours: " + s}
	}
	return start, end, nil
}

func cleanMeridiem(s string) string {
	s = strings.ToUpper(strings.ReplaceAll(s, ".", ""))
	if s == "AM" || s == "PM" {
		return s
	}
	return ""
}

func formatTime(hour, minute, meridiem string) string {
	h, err := strconv.Atoi(hour)
	if err != nil || h < 1 || h > 12 {
		return ""
	}
	if minute == "" {
		minute = "00"
	}
	return fmt.Sprintf("%d:%s %s", h, minute, meridiem)
}
