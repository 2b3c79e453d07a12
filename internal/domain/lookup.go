package domain

import "context"

// PhoneInfo is the result of an external phone validation lookup.
type PhoneInfo struct {
	Carrier  string `json:"carrier"`
	Country  string `json:"country"`
	LineType string `json:"lineType"`
}

// URLReputation is the result of an external URL reputation check.
type URLReputation struct {
	Status RiskLevel `json:"status"` // SAFE or DANGEROUS
	Threat string    `json:"threat,omitempty"`
}

// PhoneValidator looks up metadata for a phone number.
// A nil result with a nil error means the number could not be validated;
// callers treat every failure as enrichment-unavailable.
type PhoneValidator interface {
	Validate(ctx context.Context, phoneNumber string) (*PhoneInfo, error)
}

// URLChecker checks a URL against a reputation service.
type URLChecker interface {
	Check(ctx context.Context, url string) (*URLReputation, error)
}

// Completer requests a completion from a generative text model.
// The returned string is expected to contain a JSON verdict, possibly
// wrapped in markdown fences; callers must tolerate malformed output.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
