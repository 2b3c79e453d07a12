// Package domain defines the core types and interfaces for ScamShield.
package domain

import (
	"errors"
	"time"
)

// RiskLevel classifies the outcome of an assessment.
type RiskLevel string

const (
	RiskSafe      RiskLevel = "SAFE"
	RiskWarning   RiskLevel = "WARNING"
	RiskDangerous RiskLevel = "DANGEROUS"
)

// Valid reports whether the level is one of the three known values.
func (l RiskLevel) Valid() bool {
	return l == RiskSafe || l == RiskWarning || l == RiskDangerous
}

// ErrEmptyQuery is the only assessment failure surfaced to callers.
// Every other failure mode degrades to a default or partial verdict.
var ErrEmptyQuery = errors.New("query must not be empty")

// RiskVerdict is the structured result of a scam-risk assessment.
type RiskVerdict struct {
	RiskLevel       RiskLevel      `json:"riskLevel"`
	IdentityScore   int            `json:"identityScore"` // 0-100, higher = more dangerous
	Warning         string         `json:"warning"`
	Details         VerdictDetails `json:"details"`
	Recommendations []string       `json:"recommendations"`

	// UserReports is attached at response time and is never part of
	// the cached verdict body.
	UserReports []*CommunityReport `json:"userReports,omitempty"`
}

// VerdictDetails holds the descriptive fields of a verdict.
type VerdictDetails struct {
	Identity      string   `json:"identity"`
	CallType      string   `json:"callType"`
	Carrier       string   `json:"carrier"`
	Location      string   `json:"location"`
	LineType      string   `json:"lineType"`
	Signs         []string `json:"signs"`
	Urgency       string   `json:"urgency"`
	FinancialRisk string   `json:"financialRisk"`
	Category      string   `json:"category"`
}

// Assessment is the envelope returned by the Risk Assessor.
type Assessment struct {
	Verdict         *RiskVerdict `json:"verdict"`
	ServedFromCache bool         `json:"servedFromCache"`
	Source          string       `json:"source"` // "cache" or "live"
}

// Data provenance values for Assessment.Source.
const (
	SourceCache = "cache"
	SourceLive  = "live"
)

// SearchLog is the durable record of a computed verdict, keyed by the
// normalized query. Upserts are last-write-wins; entries are never expired
// by the assessor.
type SearchLog struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Verdict   string    `json:"verdict"` // serialized RiskVerdict, without userReports
	RiskLevel RiskLevel `json:"riskLevel"`
	CreatedAt time.Time `json:"createdAt"`
}
