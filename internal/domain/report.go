package domain

import "time"

// ReportStatus is the moderation state of a community report.
// Only confirmed reports influence scoring or appear in responses.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportConfirmed ReportStatus = "confirmed"
	ReportRejected  ReportStatus = "rejected"
)

// Valid reports whether the status is a known moderation state.
func (s ReportStatus) Valid() bool {
	return s == ReportPending || s == ReportConfirmed || s == ReportRejected
}

// CommunityReport is a user-submitted scam report against a target
// (a normalized phone number, URL, or free-text query).
type CommunityReport struct {
	ID          string       `json:"id"`
	Target      string       `json:"target"`
	ReportType  string       `json:"reportType"`
	Description string       `json:"description"`
	Status      ReportStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
