package model

import "time"

// FeedbackAction is the admin review action recorded with each feedback row.
type FeedbackAction string

const (
	ActionApprove FeedbackAction = "approve"
	ActionReject  FeedbackAction = "reject"
	ActionEdit    FeedbackAction = "edit"
)

// FeedbackTag classifies what was wrong (or right) with a candidate. The
// taxonomy is fixed; rejections require at least one tag.
type FeedbackTag string

const (
	TagDateFormat         FeedbackTag = "DATE_FORMAT"
	TagVenueMissing       FeedbackTag = "VENUE_MISSING"
	TagAddressPoor        FeedbackTag = "ADDRESS_POOR"
	TagDuplicate          FeedbackTag = "DUPLICATE"
	TagMultiEventCollapse FeedbackTag = "MULTI_EVENT_COLLAPSE"
	TagExtraHTML          FeedbackTag = "EXTRA_HTML"
	TagSpam               FeedbackTag = "SPAM"
	TagStateFull          FeedbackTag = "STATE_FULL"
	TagCityMissing        FeedbackTag = "CITY_MISSING"
)

// ValidTags is the full feedback taxonomy.
var ValidTags = map[FeedbackTag]bool{
	TagDateFormat:         true,
	TagVenueMissing:       true,
	TagAddressPoor:        true,
	TagDuplicate:          true,
	TagMultiEventCollapse: true,
	TagExtraHTML:          true,
	TagSpam:               true,
	TagStateFull:          true,
	TagCityMissing:        true,
}

// AdminFeedback is an append-only record of one admin action on a pending
// show. Edit cycles produce multiple rows per pending show.
type AdminFeedback struct {
	ID        string         `json:"id"`
	PendingID string         `json:"pending_id"`
	AdminID   string         `json:"admin_id"`
	Action    FeedbackAction `json:"action"`
	Tags      []FeedbackTag  `json:"tags,omitempty"`
	FreeText  string         `json:"free_text,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// FeedbackCounts aggregates review outcomes for one source over the learning
// window.
type FeedbackCounts struct {
	Approved int
	Rejected int
}
