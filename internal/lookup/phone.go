// Package lookup provides HTTP clients for the external enrichment and
// completion services consumed by the Risk Assessor. Every client treats
// network errors, bad statuses, and malformed bodies as lookup-unavailable;
// the assessor degrades to default field values.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/domain"
)

const defaultNumLookupBaseURL = "https://api.numlookupapi.com/v1"

// PhoneClient validates phone numbers against a numlookup-style API.
type PhoneClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewPhoneClient creates a phone validation client.
// An empty apiKey yields a client whose lookups always report unavailable.
func NewPhoneClient(apiKey string, timeout time.Duration) *PhoneClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &PhoneClient{
		apiKey:  apiKey,
		baseURL: defaultNumLookupBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *PhoneClient) SetBaseURL(base string) {
	c.baseURL = base
}

type numLookupResponse struct {
	Valid       bool   `json:"valid"`
	Carrier     string `json:"carrier"`
	CountryName string `json:"country_name"`
	LineType    string `json:"line_type"`
}

// Validate looks up phone metadata. Returns nil, nil when the number is
// invalid or the service is unavailable.
func (c *PhoneClient) Validate(ctx context.Context, phoneNumber string) (*domain.PhoneInfo, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/validate/%s?apikey=%s",
		c.baseURL, url.PathEscape(phoneNumber), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("numlookup returned status %d", resp.StatusCode)
	}

	var body numLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	if !body.Valid {
		return nil, nil
	}

	info := &domain.PhoneInfo{
		Carrier:  body.Carrier,
		Country:  body.CountryName,
		LineType: body.LineType,
	}
	if info.Carrier == "" {
		info.Carrier = "Unknown"
	}
	if info.Country == "" {
		info.Country = "Unknown"
	}
	if info.LineType == "" {
		info.LineType = "Unknown"
	}

	return info, nil
}
