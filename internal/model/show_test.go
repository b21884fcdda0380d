package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name string
		show *NormalizedShow
		want int
	}{
		{"nil", nil, 0},
		{"empty", &NormalizedShow{}, 0},
		{
			"complete",
			&NormalizedShow{
				Name:      "Tri-State Card Show",
				StartDate: "2026-03-14",
				City:      "Springfield",
				State:     "IL",
				Venue:     "National Guard Armory",
				Street:    "123 Main St",
			},
			100,
		},
		{
			"name and date only",
			&NormalizedShow{Name: "Coin Expo", StartDate: "2026-05-01"},
			50,
		},
		{
			"missing date",
			&NormalizedShow{Name: "Coin Expo", City: "Dayton", State: "OH"},
			50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QualityScore(tt.show))
		})
	}
}

func TestNaturalKey_CaseFolded(t *testing.T) {
	a := NaturalKey("Tri-State Card Show", "2026-03-14", "Springfield")
	b := NaturalKey("  TRI-STATE CARD SHOW ", "2026-03-14", "SPRINGFIELD")
	assert.Equal(t, a, b)

	c := NaturalKey("Tri-State Card Show", "2026-03-14", "Dayton")
	assert.NotEqual(t, a, c)
}

func TestPendingStatus_Terminal(t *testing.T) {
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusDuplicate.Terminal())
	assert.False(t, StatusExtractError.Terminal())
}

func TestClampPriority(t *testing.T) {
	assert.Equal(t, 0, ClampPriority(-12))
	assert.Equal(t, 100, ClampPriority(250))
	assert.Equal(t, 61, ClampPriority(61))
}
