package normalize

import (
	"strings"
	"time"

	"github.com/showscout/showscout-cli/internal/model"
)

// Normalizer turns raw extracted candidates into normalized payloads. The
// clock is injectable so date inference is testable.
type Normalizer struct {
	Today func() time.Time
}

// New creates a Normalizer using the real clock.
func New() *Normalizer {
	return &Normalizer{Today: time.Now}
}

// Normalize transforms a raw candidate into its normalized form, collecting
// non-fatal warnings along the way. A candidate lacking both a name and a
// parseable start date is marked invalid: it stays visible to admins but is
// excluded from automatic advancement.
func (nr *Normalizer) Normalize(raw model.RawShow) *model.NormalizedShow {
	n := &model.NormalizedShow{}

	n.Name = strings.TrimSpace(deref(raw.Name))
	if n.Name == "" {
		n.Warnings = append(n.Warnings, "name missing")
	}

	start, end, dateWarnings := CleanDate(deref(raw.DateText), nr.Today())
	n.StartDate = start
	n.EndDate = end
	n.Warnings = append(n.Warnings, dateWarnings...)

	loc, locWarnings := ParseLocation(deref(raw.Location))
	n.Venue = loc.Venue
	n.Street = loc.Street
	n.City = loc.City
	n.State = loc.State
	n.Zip = loc.Zip
	n.Warnings = append(n.Warnings, locWarnings...)

	contact := ExtractContact(deref(raw.ContactText))
	n.ContactName = contact.Name
	n.ContactEmail = contact.Email
	n.ContactPhone = contact.Phone

	fee, feeWarnings := ParseFee(deref(raw.FeeText))
	n.EntryFee = fee
	n.Warnings = append(n.Warnings, feeWarnings...)

	startTime, endTime, hourWarnings := ParseHours(deref(raw.HoursText))
	n.StartTime = startTime
	n.EndTime = endTime
	n.Warnings = append(n.Warnings, hourWarnings...)

	n.Description = strings.TrimSpace(deref(raw.Description))

	n.Invalid = n.Name == "" && n.StartDate == ""
	return n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
