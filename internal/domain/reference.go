package domain

import "time"

// CarrierRecord is read-only reference data keyed by a numeric prefix.
// Lookups match the full normalized query first, then fall back to its
// first three digits.
type CarrierRecord struct {
	Prefix         string `json:"prefix"`
	CarrierName    string `json:"carrierName"`
	SubscriberType string `json:"subscriberType"`
}

// ScamRecord is an entry in the confirmed-scam reference list.
// Entries arrive from the crawler feed or from admin ingestion.
type ScamRecord struct {
	Content     string    `json:"content"` // normalized query
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Source      string    `json:"source"` // "crawler" or "admin"
	CreatedAt   time.Time `json:"createdAt"`
}

// Scam record sources.
const (
	ScamSourceCrawler = "crawler"
	ScamSourceAdmin   = "admin"
)
