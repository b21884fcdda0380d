// Package model defines the core data types shared across the ingestion pipeline.
package model

import "time"

// DefaultPriority is the starting priority score for a newly onboarded source.
const DefaultPriority = 50

// PriorityMin and PriorityMax bound a source's priority score.
const (
	PriorityMin = 0
	PriorityMax = 100
)

// ScrapingSource is a registered scrape target with adaptive priority.
// Sources are never deleted, only disabled.
type ScrapingSource struct {
	URL           string     `json:"url"`
	PriorityScore int        `json:"priority_score"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastErrorAt   *time.Time `json:"last_error_at,omitempty"`
	ErrorStreak   int        `json:"error_streak"`
	Enabled       bool       `json:"enabled"`
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ClampPriority clamps a recomputed score into [PriorityMin, PriorityMax].
func ClampPriority(score int) int {
	if score < PriorityMin {
		return PriorityMin
	}
	if score > PriorityMax {
		return PriorityMax
	}
	return score
}
