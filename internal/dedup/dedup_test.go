package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testMatcher() *Matcher {
	return NewMatcher(0.6, 7)
}

func cand(id, kind, title, venue, city, start string) Candidate {
	return Candidate{ID: id, Kind: kind, Title: title, Venue: venue, City: city, StartDate: start}
}

func TestScore_SameTitleCityNearbyDates(t *testing.T) {
	m := testMatcher()
	a := cand("1", "pending", "Tri-State Card Show", "", "Springfield", "2026-03-14")
	b := cand("2", "pending", "Tri-State Card Show", "", "Springfield", "2026-03-16")

	score := m.Score(a, b)
	assert.Greater(t, score, m.Threshold, "2 days apart, same title and city must flag")
}

func TestScore_SameTitleDifferentCities(t *testing.T) {
	m := testMatcher()
	a := cand("1", "pending", "Tri-State Card Show", "", "Springfield", "2026-03-14")
	b := cand("2", "pending", "Tri-State Card Show", "", "Dayton", "2026-03-14")

	assert.Zero(t, m.Score(a, b), "same title in different cities is a different show")
}

func TestScore_OutsideDateWindow(t *testing.T) {
	m := testMatcher()
	a := cand("1", "pending", "Tri-State Card Show", "", "Springfield", "2026-03-14")
	b := cand("2", "pending", "Tri-State Card Show", "", "Springfield", "2026-03-30")

	assert.Zero(t, m.Score(a, b))
}

func TestScore_VenueCorroborates(t *testing.T) {
	m := testMatcher()
	a := cand("1", "pending", "Card Show", "Hara Arena", "", "2026-03-14")
	b := cand("2", "production", "Card Show", "Hara Arena", "", "2026-03-14")

	score := m.Score(a, b)
	assert.Greater(t, score, m.Threshold)
}

func TestScore_MissingDates(t *testing.T) {
	m := testMatcher()
	a := cand("1", "pending", "Card Show", "", "Springfield", "")
	b := cand("2", "pending", "Card Show", "", "Springfield", "2026-03-14")

	assert.Zero(t, m.Score(a, b))
}

func TestScore_AccentInsensitiveTitles(t *testing.T) {
	m := testMatcher()
	a := cand("1", "pending", "Café Collectors Expo", "", "Springfield", "2026-03-14")
	b := cand("2", "pending", "Cafe Collectors Expo", "", "Springfield", "2026-03-14")

	assert.Greater(t, m.Score(a, b), m.Threshold)
}

func TestBestMatch_PicksHighestAboveThreshold(t *testing.T) {
	m := testMatcher()
	subject := cand("1", "pending", "Tri-State Card Show", "", "Springfield", "2026-03-14")
	pool := []Candidate{
		cand("2", "pending", "Tri-State Card Show", "", "Springfield", "2026-03-18"),
		cand("3", "production", "Tri-State Card Show", "", "Springfield", "2026-03-14"),
		cand("4", "pending", "Completely Different Expo", "", "Springfield", "2026-03-14"),
	}

	match, ok := m.BestMatch(subject, pool)
	assert.True(t, ok)
	assert.Equal(t, "production:3", match.Ref)
}

func TestBestMatch_IgnoresSelfAndBelowThreshold(t *testing.T) {
	m := testMatcher()
	subject := cand("1", "pending", "Tri-State Card Show", "", "Springfield", "2026-03-14")
	pool := []Candidate{
		subject,
		cand("4", "pending", "Stamp Collectors Meetup", "", "Springfield", "2026-03-14"),
	}

	_, ok := m.BestMatch(subject, pool)
	assert.False(t, ok)
}
