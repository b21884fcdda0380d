package normalize

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showscout/showscout-cli/internal/model"
)

func testNormalizer() *Normalizer {
	return &Normalizer{Today: func() time.Time { return today }}
}

func strp(s string) *string { return &s }

func TestNormalize_FullCandidate(t *testing.T) {
	nr := testNormalizer()

	n := nr.Normalize(model.RawShow{
		Name:        strp("Tri-State Sports Card Show"),
		DateText:    strp("Aug 2 AL"),
		Location:    strp("National Guard Armory, 123 Main St, Springfield, IL 62704"),
		ContactText: strp("Contact John Smith at (555) 123-4567 or jsmith@example.com"),
		FeeText:     strp("$2"),
		HoursText:   strp("9am-3pm"),
		Description: strp("Monthly card and memorabilia show."),
	})

	assert.Equal(t, "Tri-State Sports Card Show", n.Name)
	assert.Equal(t, "2026-08-02", n.StartDate)
	assert.Equal(t, "National Guard Armory", n.Venue)
	assert.Equal(t, "Springfield", n.City)
	assert.Equal(t, "IL", n.State)
	assert.Equal(t, "John Smith", n.ContactName)
	assert.Equal(t, "jsmith@example.com", n.ContactEmail)
	require.NotNil(t, n.EntryFee)
	assert.Equal(t, 2.0, *n.EntryFee)
	assert.Equal(t, "9:00 AM", n.StartTime)
	assert.Equal(t, "3:00 PM", n.EndTime)
	assert.False(t, n.Invalid)
	assert.Contains(t, n.Warnings, "state token removed from date")
}

func TestNormalize_InvalidWithoutNameAndDate(t *testing.T) {
	nr := testNormalizer()

	n := nr.Normalize(model.RawShow{
		Location: strp("Springfield, IL"),
		FeeText:  strp("Free"),
	})
	assert.True(t, n.Invalid)

	// Either a name or a date keeps the candidate valid.
	n = nr.Normalize(model.RawShow{Name: strp("Coin Expo")})
	assert.False(t, n.Invalid)

	n = nr.Normalize(model.RawShow{DateText: strp("Oct 4")})
	assert.False(t, n.Invalid)
}

func TestNormalize_NilFieldsProduceWarningsNotPanics(t *testing.T) {
	nr := testNormalizer()

	n := nr.Normalize(model.RawShow{})
	assert.True(t, n.Invalid)
	assert.Contains(t, n.Warnings, "name missing")
	assert.Contains(t, n.Warnings, "date missing")
	assert.Contains(t, n.Warnings, "location missing")
}

// rawFromNormalized rebuilds a RawShow from normalized output so that
// re-normalizing exercises every parser on its own canonical output.
func rawFromNormalized(n *model.NormalizedShow) model.RawShow {
	dateText := n.StartDate
	if n.EndDate != "" && n.EndDate != n.StartDate {
		dateText = n.StartDate + " - " + n.EndDate
	}

	locParts := []string{}
	for _, p := range []string{n.Venue, n.Street, n.City} {
		if p != "" {
			locParts = append(locParts, p)
		}
	}
	loc := ""
	for i, p := range locParts {
		if i > 0 {
			loc += ", "
		}
		loc += p
	}
	if n.State != "" || n.Zip != "" {
		tail := n.State
		if n.Zip != "" {
			tail += " " + n.Zip
		}
		if loc != "" {
			loc += ", "
		}
		loc += tail
	}

	contact := n.ContactName
	if n.ContactPhone != "" {
		contact += " " + n.ContactPhone
	}
	if n.ContactEmail != "" {
		contact += " " + n.ContactEmail
	}

	fee := ""
	if n.EntryFee != nil {
		if *n.EntryFee == 0 {
			fee = "Free"
		} else {
			fee = fmt.Sprintf("$%g", *n.EntryFee)
		}
	}

	hours := ""
	if n.StartTime != "" {
		hours = n.StartTime + " - " + n.EndTime
	}

	return model.RawShow{
		Name:        strp(n.Name),
		DateText:    strp(dateText),
		Location:    strp(loc),
		ContactText: strp(contact),
		FeeText:     strp(fee),
		HoursText:   strp(hours),
		Description: strp(n.Description),
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	nr := testNormalizer()

	first := nr.Normalize(model.RawShow{
		Name:        strp("Tri-State Sports Card Show"),
		DateText:    strp("Aug 2-3 AL"),
		Location:    strp("National Guard Armory, 123 Main St, Springfield, IL 62704"),
		ContactText: strp("Contact John Smith at (555) 123-4567"),
		FeeText:     strp("$2"),
		HoursText:   strp("9am-3pm"),
		Description: strp("Monthly show."),
	})

	second := nr.Normalize(rawFromNormalized(first))

	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, first.StartDate, second.StartDate)
	assert.Equal(t, first.EndDate, second.EndDate)
	assert.Equal(t, first.Venue, second.Venue)
	assert.Equal(t, first.Street, second.Street)
	assert.Equal(t, first.City, second.City)
	assert.Equal(t, first.State, second.State)
	assert.Equal(t, first.Zip, second.Zip)
	assert.Equal(t, first.ContactName, second.ContactName)
	assert.Equal(t, first.ContactPhone, second.ContactPhone)
	assert.Equal(t, first.EntryFee, second.EntryFee)
	assert.Equal(t, first.StartTime, second.StartTime)
	assert.Equal(t, first.EndTime, second.EndTime)
	assert.Equal(t, first.Invalid, second.Invalid)
}
