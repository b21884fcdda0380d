// Package dedup flags staged candidates that likely describe the same show as
// another staged or published record. Matching is advisory: flagged rows go to
// an admin for manual resolution, they are never dropped automatically.
package dedup

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Candidate is the comparable projection of a staged or published show.
type Candidate struct {
	ID        string
	Kind      string // "pending" or "production"
	Title     string
	Venue     string
	City      string
	StartDate string // YYYY-MM-DD
}

// Ref returns the pointer stored on a flagged duplicate ("kind:id").
func (c Candidate) Ref() string {
	return fmt.Sprintf("%s:%s", c.Kind, c.ID)
}

// Match is a scored duplicate candidate.
type Match struct {
	Ref   string
	Score float64
}

// Matcher scores candidate pairs. Above Threshold a pair is considered a
// duplicate; date deltas beyond WindowDays never match regardless of title.
type Matcher struct {
	Threshold  float64
	WindowDays int
}

// NewMatcher creates a Matcher with the given threshold and date window.
func NewMatcher(threshold float64, windowDays int) *Matcher {
	return &Matcher{Threshold: threshold, WindowDays: windowDays}
}

// Component weights. Title similarity dominates; matching city or venue
// corroborates. Date proximity scales the whole score within the window.
const (
	weightTitle = 0.6
	weightCity  = 0.2
	weightVenue = 0.2
)

// Score computes pair similarity in [0, 1]. Pairs with conflicting cities or
// dates outside the window score 0: a show with the same name in a different
// town is a different show, not a duplicate.
func (m *Matcher) Score(a, b Candidate) float64 {
	aDate, errA := time.Parse("2006-01-02", a.StartDate)
	bDate, errB := time.Parse("2006-01-02", b.StartDate)
	if errA != nil || errB != nil {
		return 0
	}

	deltaDays := int(aDate.Sub(bDate).Hours() / 24)
	if deltaDays < 0 {
		deltaDays = -deltaDays
	}
	if deltaDays > m.WindowDays {
		return 0
	}

	aCity, bCity := foldText(a.City), foldText(b.City)
	if aCity != "" && bCity != "" && aCity != bCity {
		return 0
	}

	score := weightTitle * tokenSimilarity(a.Title, b.Title)
	if aCity != "" && aCity == bCity {
		score += weightCity
	}
	aVenue, bVenue := foldText(a.Venue), foldText(b.Venue)
	if aVenue != "" && aVenue == bVenue {
		score += weightVenue
	}

	// Same-day pairs keep the full score; the factor decays toward the
	// window edge without ever zeroing a within-window pair.
	proximity := 1.0 - float64(deltaDays)/float64(2*m.WindowDays)
	return score * proximity
}

// BestMatch returns the highest-scoring pool candidate above the threshold.
func (m *Matcher) BestMatch(subject Candidate, pool []Candidate) (Match, bool) {
	var best Match
	for _, other := range pool {
		if other.Kind == subject.Kind && other.ID == subject.ID {
			continue
		}
		if s := m.Score(subject, other); s > m.Threshold && s > best.Score {
			best = Match{Ref: other.Ref(), Score: s}
		}
	}
	return best, best.Ref != ""
}

// foldTransformer strips diacritics after NFD decomposition so "Café" and
// "Cafe" compare equal.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldText(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// tokenSimilarity is the Jaccard similarity of the folded token sets.
func tokenSimilarity(a, b string) float64 {
	aTokens := tokenSet(a)
	bTokens := tokenSet(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}

	intersection := 0
	for tok := range aTokens {
		if bTokens[tok] {
			intersection++
		}
	}
	union := len(aTokens) + len(bTokens) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(foldText(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		set[tok] = true
	}
	return set
}
