package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLocation_FullAddress(t *testing.T) {
	loc, warnings := ParseLocation("National Guard Armory, 123 Main St, Springfield, IL 62704")

	assert.Equal(t, "National Guard Armory", loc.Venue)
	assert.Equal(t, "123 Main St", loc.Street)
	assert.Equal(t, "Springfield", loc.City)
	assert.Equal(t, "IL", loc.State)
	assert.Equal(t, "62704", loc.Zip)
	assert.Empty(t, warnings)
}

func TestParseLocation_ZipPlusFour(t *testing.T) {
	loc, _ := ParseLocation("456 Fair Ave, Dayton, OH 45402-1234")
	assert.Equal(t, "456 Fair Ave", loc.Street)
	assert.Equal(t, "Dayton", loc.City)
	assert.Equal(t, "OH", loc.State)
	assert.Equal(t, "45402-1234", loc.Zip)
}

func TestParseLocation_FullStateName(t *testing.T) {
	loc, warnings := ParseLocation("Dayton, Ohio")

	assert.Equal(t, "Dayton", loc.City)
	assert.Equal(t, "OH", loc.State)
	assert.Contains(t, warnings, "full state name converted to abbreviation")
}

func TestParseLocation_StateInsideSegment(t *testing.T) {
	loc, _ := ParseLocation("123 Fairgrounds Rd, Springfield IL")
	assert.Equal(t, "123 Fairgrounds Rd", loc.Street)
	assert.Equal(t, "Springfield", loc.City)
	assert.Equal(t, "IL", loc.State)
	assert.Empty(t, loc.Venue)
}

func TestParseLocation_VenueOnly(t *testing.T) {
	loc, warnings := ParseLocation("Hara Arena")

	assert.Equal(t, "Hara Arena", loc.Venue)
	assert.Empty(t, loc.City)
	assert.Contains(t, warnings, "city missing")
	assert.Contains(t, warnings, "state missing")
}

func TestParseLocation_NothingGuessed(t *testing.T) {
	// Two venue-ish segments: the second cannot be confidently assigned.
	loc, warnings := ParseLocation("Expo Hall, Building C, Columbus, OH")
	assert.Equal(t, "Expo Hall", loc.Venue)
	assert.Equal(t, "Columbus", loc.City)
	assert.Empty(t, loc.Street)
	assert.Contains(t, warnings, "unassigned location segment: Building C")
}

func TestParseLocation_Empty(t *testing.T) {
	loc, warnings := ParseLocation("")
	assert.Equal(t, Location{}, loc)
	assert.Equal(t, []string{"location missing"}, warnings)
}

func TestStateAbbr(t *testing.T) {
	assert.Equal(t, "IL", StateAbbr("il"))
	assert.Equal(t, "OH", StateAbbr("Ohio"))
	assert.Equal(t, "NH", StateAbbr("New Hampshire"))
	assert.Equal(t, "", StateAbbr("Springfield"))
	assert.True(t, IsStateAbbr("wy"))
	assert.False(t, IsStateAbbr("zz"))
}
