package normalize

import (
	"regexp"
	"strings"
)

// Location is the split form of a free-text location string. Segments that
// cannot be confidently assigned stay empty.
type Location struct {
	Venue  string `json:"venue,omitempty"`
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

var zipRe = regexp.MustCompile(`(\d{5})(-\d{4})?$`)

// streetSuffixes marks a segment as a street address when one appears as a
// whole word.
var streetSuffixes = map[string]bool{
	"st": true, "street": true, "ave": true, "avenue": true,
	"rd": true, "road": true, "blvd": true, "boulevard": true,
	"hwy": true, "highway": true, "dr": true, "drive": true,
	"ln": true, "lane": true, "pkwy": true, "parkway": true,
	"ct": true, "court": true, "pike": true, "way": true,
	"sq": true, "square": true, "plaza": true,
}

// ParseLocation splits a compound location string ("venue, street, city, ST
// zip" in any partial combination) into its components. Zip and state are
// recognized by pattern; the last remaining comma segment is the city; leading
// segments are classified as street or venue.
func ParseLocation(raw string) (Location, []string) {
	var loc Location
	var warnings []string

	s := spaceRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	if s == "" {
		return loc, []string{"location missing"}
	}

	var segs []string
	for _, seg := range strings.Split(s, ",") {
		if seg = strings.TrimSpace(seg); seg != "" {
			segs = append(segs, seg)
		}
	}

	segs = extractZip(segs, &loc)
	segs, fullState := extractState(segs, &loc)
	if fullState {
		warnings = append(warnings, "full state name converted to abbreviation")
	}

	switch len(segs) {
	case 0:
	case 1:
		// A lone segment is the city when a state or zip anchored the string;
		// otherwise it is more likely a venue name.
		if loc.State != "" || loc.Zip != "" {
			loc.City = segs[0]
		} else {
			loc.Venue = segs[0]
		}
	default:
		loc.City = segs[len(segs)-1]
		for _, seg := range segs[:len(segs)-1] {
			switch {
			case streetLike(seg):
				if loc.Street == "" {
					loc.Street = seg
				} else {
					warnings = append(warnings, "unassigned location segment: "+seg)
				}
			case loc.Venue == "":
				loc.Venue = seg
			default:
				warnings = append(warnings, "unassigned location segment: "+seg)
			}
		}
	}

	if loc.City == "" {
		warnings = append(warnings, "city missing")
	}
	if loc.State == "" {
		warnings = append(warnings, "state missing")
	}
	if loc.Venue == "" {
		warnings = append(warnings, "venue missing")
	}
	return loc, warnings
}

// extractZip pulls a trailing 5-digit (or 5+4) zip from the last segments.
func extractZip(segs []string, loc *Location) []string {
	for i := len(segs) - 1; i >= 0 && i >= len(segs)-2; i-- {
		if m := zipRe.FindStringSubmatch(segs[i]); m != nil {
			loc.Zip = m[0]
			rest := strings.TrimSpace(strings.TrimSuffix(segs[i], m[0]))
			if rest == "" {
				segs = append(segs[:i], segs[i+1:]...)
			} else {
				segs[i] = rest
			}
			break
		}
	}
	return segs
}

// extractState pulls a trailing state token (abbreviation or full name) from
// the last segments. Returns whether a full state name had to be converted.
func extractState(segs []string, loc *Location) ([]string, bool) {
	for i := len(segs) - 1; i >= 0 && i >= len(segs)-2; i-- {
		seg := segs[i]

		if abbr := StateAbbr(seg); abbr != "" {
			loc.State = abbr
			full := !IsStateAbbr(seg)
			segs = append(segs[:i], segs[i+1:]...)
			return segs, full
		}

		// Trailing token within a segment: "Springfield IL".
		if idx := strings.LastIndex(seg, " "); idx > 0 {
			tok := seg[idx+1:]
			if abbr := StateAbbr(tok); abbr != "" {
				loc.State = abbr
				full := !IsStateAbbr(tok)
				segs[i] = strings.TrimSpace(seg[:idx])
				return segs, full
			}
		}
	}
	return segs, false
}

func streetLike(seg string) bool {
	if seg == "" {
		return false
	}
	if seg[0] >= '0' && seg[0] <= '9' {
		return true
	}
	for _, word := range strings.Fields(strings.ToLower(seg)) {
		if streetSuffixes[strings.TrimRight(word, ".")] {
			return true
		}
	}
	return false
}
