package model

import (
	"fmt"
	"strings"
	"time"
)

// PendingStatus is the lifecycle state of a staged show candidate.
type PendingStatus string

const (
	StatusPending      PendingStatus = "PENDING"
	StatusExtractError PendingStatus = "EXTRACT_ERROR"
	StatusDuplicate    PendingStatus = "DUPLICATE"
	StatusApproved     PendingStatus = "APPROVED"
	StatusRejected     PendingStatus = "REJECTED"
)

// Terminal reports whether the status ends a review cycle. Terminal rows are
// reopened only through an explicit edit action.
func (s PendingStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// RawShow is the candidate schema the extraction model must emit. Every field
// is optional; missing information is null, never omitted. Unknown keys in
// model output are dropped on decode.
type RawShow struct {
	Name        *string `json:"name"`
	DateText    *string `json:"date_text"`
	Location    *string `json:"location"`
	ContactText *string `json:"contact_text"`
	FeeText     *string `json:"fee_text"`
	HoursText   *string `json:"hours_text"`
	Description *string `json:"description"`
}

// NormalizedShow is the cleaned form of a RawShow. Fields the normalizer could
// not confidently assign stay empty rather than guessed.
type NormalizedShow struct {
	Name         string   `json:"name,omitempty"`
	StartDate    string   `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate      string   `json:"end_date,omitempty"`
	Venue        string   `json:"venue,omitempty"`
	Street       string   `json:"street,omitempty"`
	City         string   `json:"city,omitempty"`
	State        string   `json:"state,omitempty"`
	Zip          string   `json:"zip,omitempty"`
	ContactName  string   `json:"contact_name,omitempty"`
	ContactEmail string   `json:"contact_email,omitempty"`
	ContactPhone string   `json:"contact_phone,omitempty"`
	EntryFee     *float64 `json:"entry_fee,omitempty"`
	StartTime    string   `json:"start_time,omitempty"`
	EndTime      string   `json:"end_time,omitempty"`
	Description  string   `json:"description,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	Invalid      bool     `json:"invalid,omitempty"`
}

// NaturalKey returns the (title, start_date, city) tuple used for publish
// conflict detection, case-folded.
func (n *NormalizedShow) NaturalKey() string {
	return NaturalKey(n.Name, n.StartDate, n.City)
}

// NaturalKey builds the canonical conflict-detection key for a show.
func NaturalKey(title, startDate, city string) string {
	return fmt.Sprintf("%s|%s|%s",
		strings.ToLower(strings.TrimSpace(title)),
		strings.TrimSpace(startDate),
		strings.ToLower(strings.TrimSpace(city)),
	)
}

// GeocodedShow holds best-effort coordinates for a normalized address.
type GeocodedShow struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	MatchedAddress string  `json:"matched_address,omitempty"`
	Source         string  `json:"source,omitempty"`
}

// PendingShow is a staged candidate record progressing raw → normalized →
// geocoded → reviewed. Rows are retained for audit and learning, never
// physically deleted.
type PendingShow struct {
	ID          string          `json:"id"`
	SourceURL   string          `json:"source_url"`
	RawPayload  []byte          `json:"raw_payload"`
	Normalized  *NormalizedShow `json:"normalized_payload,omitempty"`
	Geocoded    *GeocodedShow   `json:"geocoded_payload,omitempty"`
	Status      PendingStatus   `json:"status"`
	DuplicateOf string          `json:"duplicate_of,omitempty"`
	AdminNotes  string          `json:"admin_notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ReviewedAt  *time.Time      `json:"reviewed_at,omitempty"`
}

// ProductionShow is a published record in the public catalog. Created only by
// the publisher from an approved PendingShow.
type ProductionShow struct {
	ID           string    `json:"id"`
	PendingID    string    `json:"pending_id"`
	Title        string    `json:"title"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date,omitempty"`
	Venue        string    `json:"venue,omitempty"`
	Street       string    `json:"street,omitempty"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	Zip          string    `json:"zip,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	ContactName  string    `json:"contact_name,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	EntryFee     *float64  `json:"entry_fee,omitempty"`
	StartTime    string    `json:"start_time,omitempty"`
	EndTime      string    `json:"end_time,omitempty"`
	SeriesID     *string   `json:"series_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NaturalKey returns the publish conflict-detection key.
func (p *ProductionShow) NaturalKey() string {
	return NaturalKey(p.Title, p.StartDate, p.City)
}

// Field weights for the triage quality score. The score aids human review
// ordering only; it never gates publishing.
const (
	qualityWeightName   = 25
	qualityWeightDate   = 25
	qualityWeightCity   = 15
	qualityWeightVenue  = 15
	qualityWeightState  = 10
	qualityWeightStreet = 10
)

// QualityScore returns a 0–100 completeness score for a normalized candidate.
func QualityScore(n *NormalizedShow) int {
	if n == nil {
		return 0
	}
	score := 0
	if n.Name != "" {
		score += qualityWeightName
	}
	if n.StartDate != "" {
		score += qualityWeightDate
	}
	if n.City != "" {
		score += qualityWeightCity
	}
	if n.Venue != "" {
		score += qualityWeightVenue
	}
	if n.State != "" {
		score += qualityWeightState
	}
	if n.Street != "" {
		score += qualityWeightStreet
	}
	return score
}
