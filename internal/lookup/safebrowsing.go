package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/domain"
)

const defaultSafeBrowsingBaseURL = "https://safebrowsing.googleapis.com/v4"

// SafeBrowsingClient checks URLs against the Safe Browsing v4 API.
type SafeBrowsingClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSafeBrowsingClient creates a URL reputation client.
// An empty apiKey yields a client whose checks always report unavailable.
func NewSafeBrowsingClient(apiKey string, timeout time.Duration) *SafeBrowsingClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &SafeBrowsingClient{
		apiKey:  apiKey,
		baseURL: defaultSafeBrowsingBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *SafeBrowsingClient) SetBaseURL(base string) {
	c.baseURL = base
}

type threatMatchRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes   []string            `json:"threatTypes"`
		PlatformTypes []string            `json:"platformTypes"`
		ThreatEntries []map[string]string `json:"threatEntries"`
	} `json:"threatInfo"`
}

type threatMatchResponse struct {
	Matches []struct {
		ThreatType string `json:"threatType"`
	} `json:"matches"`
}

// Check queries the reputation service for a URL.
// Returns nil, nil when the service is not configured.
func (c *SafeBrowsingClient) Check(ctx context.Context, checkURL string) (*domain.URLReputation, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	reqBody := threatMatchRequest{}
	reqBody.Client.ClientID = "scamshield"
	reqBody.Client.ClientVersion = "1.0.0"
	reqBody.ThreatInfo.ThreatTypes = []string{"MALWARE", "SOCIAL_ENGINEERING"}
	reqBody.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	reqBody.ThreatInfo.ThreatEntries = []map[string]string{{"url": checkURL}}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/threatMatches:find?key=%s", c.baseURL, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("safebrowsing returned status %d", resp.StatusCode)
	}

	var body threatMatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	if len(body.Matches) > 0 {
		return &domain.URLReputation{
			Status: domain.RiskDangerous,
			Threat: body.Matches[0].ThreatType,
		}, nil
	}

	return &domain.URLReputation{Status: domain.RiskSafe}, nil
}
