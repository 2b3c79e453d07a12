package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/assessor"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/bus"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/cache"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/domain"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/repository"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/rules"
)

type testEnv struct {
	server *Server
	repo   domain.Repository
	bus    domain.EventBus
	engine *rules.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	verdictCache := cache.NewLRUCache(100)
	eventBus := bus.NewChannelBus(10)
	t.Cleanup(func() { eventBus.Close() })

	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("failed to create rule engine: %v", err)
	}

	riskAssessor := assessor.New(repo, verdictCache, nil, nil, nil, engine)

	srv := NewServer(domain.ServerConfig{Host: "127.0.0.1", Port: 0}, riskAssessor, repo, verdictCache, eventBus, engine, "test")

	return &testEnv{
		server: srv,
		repo:   repo,
		bus:    eventBus,
		engine: engine,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestCheckEndpoint(t *testing.T) {
	env := newTestEnv(t)

	t.Run("SafePhone", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/check", CheckRequest{Query: "0987254321"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp CheckResponse
		decode(t, rec, &resp)
		if resp.RiskLevel != domain.RiskSafe {
			t.Errorf("expected SAFE, got %s", resp.RiskLevel)
		}
		if resp.ServedFromCache {
			t.Error("first assessment must not be served from cache")
		}
		if resp.Source != domain.SourceLive {
			t.Errorf("expected live source, got %s", resp.Source)
		}
	})

	t.Run("SecondCallHitsCache", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/check", CheckRequest{Query: "0987254321"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp CheckResponse
		decode(t, rec, &resp)
		if !resp.ServedFromCache {
			t.Error("expected cached verdict on second call")
		}
		if resp.Source != domain.SourceCache {
			t.Errorf("expected cache source, got %s", resp.Source)
		}
	})

	t.Run("HighRiskPhone", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/check", CheckRequest{Query: "0241234567"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp CheckResponse
		decode(t, rec, &resp)
		if resp.RiskLevel != domain.RiskDangerous {
			t.Errorf("expected DANGEROUS, got %s", resp.RiskLevel)
		}
	})

	t.Run("EmptyQuery", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/check", CheckRequest{Query: "   "})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/check", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		env.server.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("PublishesVerdictEvent", func(t *testing.T) {
		received := make(chan *domain.Message, 1)
		sub, err := env.bus.Subscribe(context.Background(), domain.TopicVerdictComputed, func(ctx context.Context, msg *domain.Message) error {
			received <- msg
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
		defer sub.Unsubscribe()

		env.do(t, http.MethodPost, "/check", CheckRequest{Query: "0912776655"})

		select {
		case msg := <-received:
			var evt verdictEvent
			if err := json.Unmarshal(msg.Payload, &evt); err != nil {
				t.Fatalf("bad event payload: %v", err)
			}
			if evt.Query != "0912776655" {
				t.Errorf("unexpected event query: %s", evt.Query)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for verdict event")
		}
	})
}

func TestReportLifecycle(t *testing.T) {
	env := newTestEnv(t)

	var reportID string

	t.Run("Submit", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/reports", SubmitReportRequest{
			Target:      "0933 444 555",
			ReportType:  "scam_call",
			Description: "Claimed to be the police",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var report domain.CommunityReport
		decode(t, rec, &report)
		if report.Status != domain.ReportPending {
			t.Errorf("expected pending status, got %s", report.Status)
		}
		if report.Target != "0933444555" {
			t.Errorf("expected normalized target, got %s", report.Target)
		}
		reportID = report.ID
	})

	t.Run("PendingHiddenFromPublic", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/reports/0933444555", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp struct {
			Count int `json:"count"`
		}
		decode(t, rec, &resp)
		if resp.Count != 0 {
			t.Errorf("expected 0 confirmed reports, got %d", resp.Count)
		}
	})

	t.Run("PendingInModerationQueue", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/admin/reports", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp struct {
			Count int `json:"count"`
		}
		decode(t, rec, &resp)
		if resp.Count != 1 {
			t.Errorf("expected 1 pending report, got %d", resp.Count)
		}
	})

	t.Run("Confirm", func(t *testing.T) {
		received := make(chan *domain.Message, 1)
		sub, err := env.bus.Subscribe(context.Background(), domain.TopicReportConfirmed, func(ctx context.Context, msg *domain.Message) error {
			received <- msg
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
		defer sub.Unsubscribe()

		rec := env.do(t, http.MethodPut, fmt.Sprintf("/admin/reports/%s/status", reportID), UpdateReportStatusRequest{
			Status: domain.ReportConfirmed,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var report domain.CommunityReport
		decode(t, rec, &report)
		if report.Status != domain.ReportConfirmed {
			t.Errorf("expected confirmed status, got %s", report.Status)
		}

		select {
		case msg := <-received:
			var evt map[string]string
			if err := json.Unmarshal(msg.Payload, &evt); err != nil {
				t.Fatalf("bad event payload: %v", err)
			}
			if evt["target"] != "0933444555" {
				t.Errorf("unexpected event target: %s", evt["target"])
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for confirmation event")
		}
	})

	t.Run("ConfirmedVisibleToPublic", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/reports/0933444555", nil)
		var resp struct {
			Count int `json:"count"`
		}
		decode(t, rec, &resp)
		if resp.Count != 1 {
			t.Errorf("expected 1 confirmed report, got %d", resp.Count)
		}
	})

	t.Run("ConfirmedReportEscalatesVerdict", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/check", CheckRequest{Query: "0933444555"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp CheckResponse
		decode(t, rec, &resp)
		if resp.RiskLevel == domain.RiskSafe {
			t.Error("expected escalated risk level for reported target")
		}
		if len(resp.UserReports) != 1 {
			t.Errorf("expected 1 attached report, got %d", len(resp.UserReports))
		}
	})

	t.Run("UnknownReport", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/admin/reports/no-such-id/status", UpdateReportStatusRequest{
			Status: domain.ReportRejected,
		})
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, fmt.Sprintf("/admin/reports/%s/status", reportID), map[string]string{
			"status": "escalated",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("MissingTarget", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/reports", SubmitReportRequest{Target: "  "})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestRuleEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("CreateValidRule", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/rules", CreateRuleRequest{
			ID:         "rule-059",
			Name:       "Suspicious 059 prefix",
			Expression: `phone_like && prefix == "059"`,
			Score:      75,
			Category:   "Prefix",
			Enabled:    true,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("CreateInvalidExpression", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/rules", CreateRuleRequest{
			ID:         "rule-bad",
			Name:       "Broken",
			Expression: `not valid CEL !!!`,
			Score:      50,
			Enabled:    true,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("CreateMissingFields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/rules", CreateRuleRequest{Name: "no id"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Reload", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/rules/reload", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			Count int `json:"count"`
		}
		decode(t, rec, &resp)
		if resp.Count != 1 {
			t.Errorf("expected 1 reloaded rule, got %d", resp.Count)
		}
	})

	t.Run("List", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/rules", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp struct {
			Count int `json:"count"`
		}
		decode(t, rec, &resp)
		if resp.Count != 1 {
			t.Errorf("expected 1 loaded rule, got %d", resp.Count)
		}
	})

	t.Run("LoadedRuleEscalatesCheck", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/check", CheckRequest{Query: "0598765432"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp CheckResponse
		decode(t, rec, &resp)
		if resp.RiskLevel != domain.RiskWarning {
			t.Errorf("expected WARNING after rule escalation, got %s", resp.RiskLevel)
		}
	})
}

func TestIngestionEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("IngestNumberQueued", func(t *testing.T) {
		received := make(chan *domain.Message, 1)
		sub, err := env.bus.Subscribe(context.Background(), domain.TopicNumberDiscovered, func(ctx context.Context, msg *domain.Message) error {
			received <- msg
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
		defer sub.Unsubscribe()

		rec := env.do(t, http.MethodPost, "/numbers", IngestNumbersRequest{
			Entries: []IngestEntry{
				{
					Content:     "0922333444",
					Category:    "Impersonation",
					Description: "Fake delivery notice",
				},
				{
					Content:  "0922333445",
					Category: "Impersonation",
				},
			},
		})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			Count int `json:"count"`
		}
		decode(t, rec, &resp)
		if resp.Count != 2 {
			t.Errorf("expected 2 queued entries, got %d", resp.Count)
		}

		for i := 0; i < 2; i++ {
			select {
			case <-received:
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for discovered-number event")
			}
		}
	})

	t.Run("IngestEmptyBatch", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/numbers", IngestNumbersRequest{
			Entries: []IngestEntry{{Content: "  "}},
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("UpsertCarrier", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/carriers", UpsertCarrierRequest{
			Prefix:         "098",
			CarrierName:    "Viettel",
			SubscriberType: "Mobile",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		// Carrier enrichment must now flow into phone verdicts
		check := env.do(t, http.MethodPost, "/check", CheckRequest{Query: "0987254321"})
		var resp CheckResponse
		decode(t, check, &resp)
		if resp.Details.Carrier != "Viettel" {
			t.Errorf("expected carrier enrichment in verdict, got %+v", resp.Details)
		}
	})

	t.Run("UpsertCarrierMissingFields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/carriers", UpsertCarrierRequest{Prefix: "098"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAdminSearches(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/check", CheckRequest{Query: "0987254321"})
	env.do(t, http.MethodPost, "/check", CheckRequest{Query: "0241234567"})

	rec := env.do(t, http.MethodGet, "/admin/searches", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Count int `json:"count"`
	}
	decode(t, rec, &resp)
	if resp.Count != 2 {
		t.Errorf("expected 2 search logs, got %d", resp.Count)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Health", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/health", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp map[string]string
		decode(t, rec, &resp)
		if resp["status"] != "healthy" {
			t.Errorf("expected healthy, got %s", resp["status"])
		}
		if resp["version"] != "test" {
			t.Errorf("expected version test, got %s", resp["version"])
		}
	})

	t.Run("Ready", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/ready", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw      string
		fallback int
		expected int
	}{
		{"", 100, 100},
		{"50", 100, 50},
		{"0", 100, 100},
		{"-5", 100, 100},
		{"abc", 100, 100},
	}

	for _, tt := range tests {
		if got := parseLimit(tt.raw, tt.fallback); got != tt.expected {
			t.Errorf("parseLimit(%q, %d) = %d, want %d", tt.raw, tt.fallback, got, tt.expected)
		}
	}
}
