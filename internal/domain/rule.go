package domain

import "time"

// RiskRule is an operator-defined CEL rule evaluated against query features.
// Rules are escalation-only: a hit may raise the heuristic verdict's score
// and level but never lower them, so the built-in classification stays a
// floor, not a ceiling.
type RiskRule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// Expression is a CEL expression over the query feature variables
	// (query, phone_like, url_like, length, prefix, carrier, line_type).
	// It must evaluate to a bool.
	Expression string `json:"expression"`

	// Score is the identity score (0-100) applied when the rule matches,
	// if higher than the current verdict score.
	Score int `json:"score"`

	Category  string    `json:"category"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RuleHit records a matched risk rule during assessment.
type RuleHit struct {
	RuleID   string `json:"ruleId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Category string `json:"category"`
}
