package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var feeRe = regexp.MustCompile(`\$\s*(\d+(?:\.\d{1,2})?)`)

// freePhrases mark a show as no-charge admission.
var freePhrases = []string{"free", "no charge", "no admission"}

// ParseFee converts admission text into a numeric amount. "Free" variants map
// to 0; a dollar amount maps to its value; anything else is nil with a warning.
func ParseFee(raw string) (*float64, []string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}

	lower := strings.ToLower(s)
	for _, phrase := range freePhrases {
		if strings.Contains(lower, phrase) {
			zero := 0.0
			return &zero, nil
		}
	}

	if m := feeRe.FindStringSubmatch(s); m != nil {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return &amount, nil
		}
	}

	return nil, []string{"unparsed fee: " + s}
}
