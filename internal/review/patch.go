package review

import "github.com/showscout/showscout-cli/internal/model"

// Patch carries admin corrections to a normalized payload. Nil fields are
// untouched; empty strings clear a field deliberately.
type Patch struct {
	Name         *string  `json:"name,omitempty"`
	StartDate    *string  `json:"start_date,omitempty"`
	EndDate      *string  `json:"end_date,omitempty"`
	Venue        *string  `json:"venue,omitempty"`
	Street       *string  `json:"street,omitempty"`
	City         *string  `json:"city,omitempty"`
	State        *string  `json:"state,omitempty"`
	Zip          *string  `json:"zip,omitempty"`
	ContactName  *string  `json:"contact_name,omitempty"`
	ContactEmail *string  `json:"contact_email,omitempty"`
	ContactPhone *string  `json:"contact_phone,omitempty"`
	EntryFee     *float64 `json:"entry_fee,omitempty"`
	StartTime    *string  `json:"start_time,omitempty"`
	EndTime      *string  `json:"end_time,omitempty"`
	Description  *string  `json:"description,omitempty"`
}

// Apply overlays the patch on the current payload and returns the result. An
// admin edit clears normalizer warnings: the human replaces the heuristic as
// the authority on this row.
func (p Patch) Apply(current *model.NormalizedShow) *model.NormalizedShow {
	out := model.NormalizedShow{}
	if current != nil {
		out = *current
	}
	out.Warnings = nil

	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&out.Name, p.Name)
	setStr(&out.StartDate, p.StartDate)
	setStr(&out.EndDate, p.EndDate)
	setStr(&out.Venue, p.Venue)
	setStr(&out.Street, p.Street)
	setStr(&out.City, p.City)
	setStr(&out.State, p.State)
	setStr(&out.Zip, p.Zip)
	setStr(&out.ContactName, p.ContactName)
	setStr(&out.ContactEmail, p.ContactEmail)
	setStr(&out.ContactPhone, p.ContactPhone)
	setStr(&out.StartTime, p.StartTime)
	setStr(&out.EndTime, p.EndTime)
	setStr(&out.Description, p.Description)
	if p.EntryFee != nil {
		fee := *p.EntryFee
		out.EntryFee = &fee
	}

	out.Invalid = out.Name == "" && out.StartDate == ""
	return &out
}
