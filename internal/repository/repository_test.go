package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "scamshield-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndFindCarrier", func(t *testing.T) {
		rec := &domain.CarrierRecord{
			Prefix:         "090",
			CarrierName:    "MobiFone",
			SubscriberType: "Mobile",
		}

		if err := repo.SaveCarrier(ctx, rec); err != nil {
			t.Fatalf("SaveCarrier failed: %v", err)
		}

		retrieved, err := repo.FindCarrier(ctx, "090")
		if err != nil {
			t.Fatalf("FindCarrier failed: %v", err)
		}

		if retrieved.CarrierName != "MobiFone" {
			t.Errorf("expected CarrierName MobiFone, got %s", retrieved.CarrierName)
		}
	})

	t.Run("FindCarrierPrefixFallback", func(t *testing.T) {
		// No exact row for the full number; the 3-digit prefix matches.
		retrieved, err := repo.FindCarrier(ctx, "0909123456")
		if err != nil {
			t.Fatalf("FindCarrier failed: %v", err)
		}

		if retrieved.Prefix != "090" {
			t.Errorf("expected prefix fallback to 090, got %s", retrieved.Prefix)
		}
	})

	t.Run("FindCarrierExactBeatsPrefix", func(t *testing.T) {
		exact := &domain.CarrierRecord{
			Prefix:         "0901234567",
			CarrierName:    "MobiFone Business",
			SubscriberType: "Fixed",
		}
		if err := repo.SaveCarrier(ctx, exact); err != nil {
			t.Fatalf("SaveCarrier failed: %v", err)
		}

		retrieved, err := repo.FindCarrier(ctx, "0901234567")
		if err != nil {
			t.Fatalf("FindCarrier failed: %v", err)
		}
		if retrieved.CarrierName != "MobiFone Business" {
			t.Errorf("expected exact match, got %s", retrieved.CarrierName)
		}
	})

	t.Run("SaveAndFindConfirmedScam", func(t *testing.T) {
		rec := &domain.ScamRecord{
			Content:     "0888999777",
			Category:    "Impersonation",
			Description: "Fake bank support line",
			Source:      domain.ScamSourceCrawler,
			CreatedAt:   time.Now().UTC(),
		}

		if err := repo.SaveScamRecord(ctx, rec); err != nil {
			t.Fatalf("SaveScamRecord failed: %v", err)
		}

		retrieved, err := repo.FindConfirmedScam(ctx, "0888999777")
		if err != nil {
			t.Fatalf("FindConfirmedScam failed: %v", err)
		}

		if retrieved.Category != "Impersonation" {
			t.Errorf("expected Category Impersonation, got %s", retrieved.Category)
		}
		if retrieved.Source != domain.ScamSourceCrawler {
			t.Errorf("expected Source crawler, got %s", retrieved.Source)
		}
	})

	t.Run("ScamRecordUpsert", func(t *testing.T) {
		rec := &domain.ScamRecord{
			Content:  "0888999777",
			Category: "Phishing",
			Source:   domain.ScamSourceAdmin,
		}

		if err := repo.SaveScamRecord(ctx, rec); err != nil {
			t.Fatalf("SaveScamRecord upsert failed: %v", err)
		}

		retrieved, err := repo.FindConfirmedScam(ctx, "0888999777")
		if err != nil {
			t.Fatalf("FindConfirmedScam failed: %v", err)
		}
		if retrieved.Category != "Phishing" {
			t.Errorf("expected upserted Category Phishing, got %s", retrieved.Category)
		}
	})

	t.Run("ReportLifecycle", func(t *testing.T) {
		now := time.Now().UTC()
		report := &domain.CommunityReport{
			ID:          "rep-001",
			Target:      "0911222333",
			ReportType:  "scam_call",
			Description: "Asked for OTP codes",
			Status:      domain.ReportPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := repo.SaveReport(ctx, report); err != nil {
			t.Fatalf("SaveReport failed: %v", err)
		}

		// Pending reports never appear in the confirmed list
		confirmed, err := repo.ListConfirmedReports(ctx, "0911222333")
		if err != nil {
			t.Fatalf("ListConfirmedReports failed: %v", err)
		}
		if len(confirmed) != 0 {
			t.Errorf("expected 0 confirmed reports, got %d", len(confirmed))
		}

		// Confirm and re-check
		updated, err := repo.UpdateReportStatus(ctx, "rep-001", domain.ReportConfirmed)
		if err != nil {
			t.Fatalf("UpdateReportStatus failed: %v", err)
		}
		if updated.Status != domain.ReportConfirmed {
			t.Errorf("expected status confirmed, got %s", updated.Status)
		}

		confirmed, err = repo.ListConfirmedReports(ctx, "0911222333")
		if err != nil {
			t.Fatalf("ListConfirmedReports failed: %v", err)
		}
		if len(confirmed) != 1 {
			t.Fatalf("expected 1 confirmed report, got %d", len(confirmed))
		}
		if confirmed[0].ID != "rep-001" {
			t.Errorf("expected report rep-001, got %s", confirmed[0].ID)
		}
	})

	t.Run("ListReportsByStatus", func(t *testing.T) {
		now := time.Now().UTC()
		pending := &domain.CommunityReport{
			ID:        "rep-002",
			Target:    "0911222333",
			Status:    domain.ReportPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.SaveReport(ctx, pending); err != nil {
			t.Fatalf("SaveReport failed: %v", err)
		}

		reports, err := repo.ListReports(ctx, domain.ReportPending, 10)
		if err != nil {
			t.Fatalf("ListReports failed: %v", err)
		}
		if len(reports) != 1 {
			t.Fatalf("expected 1 pending report, got %d", len(reports))
		}
		if reports[0].ID != "rep-002" {
			t.Errorf("expected rep-002, got %s", reports[0].ID)
		}

		all, err := repo.ListReports(ctx, "", 10)
		if err != nil {
			t.Fatalf("ListReports failed: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 reports in any state, got %d", len(all))
		}
	})

	t.Run("UpdateUnknownReport", func(t *testing.T) {
		_, err := repo.UpdateReportStatus(ctx, "nonexistent", domain.ReportConfirmed)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("SearchLogUpsert", func(t *testing.T) {
		first := &domain.SearchLog{
			ID:        "log-001",
			Query:     "0909123456",
			Verdict:   `{"riskLevel":"SAFE","identityScore":15}`,
			RiskLevel: domain.RiskSafe,
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.SaveSearchLog(ctx, first); err != nil {
			t.Fatalf("SaveSearchLog failed: %v", err)
		}

		// Second write for the same query replaces the row
		second := &domain.SearchLog{
			ID:        "log-002",
			Query:     "0909123456",
			Verdict:   `{"riskLevel":"WARNING","identityScore":70}`,
			RiskLevel: domain.RiskWarning,
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.SaveSearchLog(ctx, second); err != nil {
			t.Fatalf("SaveSearchLog upsert failed: %v", err)
		}

		retrieved, err := repo.GetSearchLog(ctx, "0909123456")
		if err != nil {
			t.Fatalf("GetSearchLog failed: %v", err)
		}
		if retrieved.ID != "log-002" {
			t.Errorf("expected last write to win, got %s", retrieved.ID)
		}
		if retrieved.RiskLevel != domain.RiskWarning {
			t.Errorf("expected RiskLevel WARNING, got %s", retrieved.RiskLevel)
		}

		logs, err := repo.ListSearchLogs(ctx, 10)
		if err != nil {
			t.Fatalf("ListSearchLogs failed: %v", err)
		}
		if len(logs) != 1 {
			t.Errorf("expected 1 search log, got %d", len(logs))
		}
	})

	t.Run("RiskRules", func(t *testing.T) {
		rule := &domain.RiskRule{
			ID:         "rule-001",
			Name:       "Long numeric query",
			Expression: `phone_like && length > 12`,
			Score:      60,
			Category:   "Heuristic",
			Enabled:    true,
		}
		if err := repo.SaveRiskRule(ctx, rule); err != nil {
			t.Fatalf("SaveRiskRule failed: %v", err)
		}

		disabled := &domain.RiskRule{
			ID:         "rule-002",
			Name:       "Disabled rule",
			Expression: `url_like`,
			Score:      40,
			Enabled:    false,
		}
		if err := repo.SaveRiskRule(ctx, disabled); err != nil {
			t.Fatalf("SaveRiskRule failed: %v", err)
		}

		rules, err := repo.ListRiskRules(ctx)
		if err != nil {
			t.Fatalf("ListRiskRules failed: %v", err)
		}
		if len(rules) != 1 {
			t.Fatalf("expected 1 enabled rule, got %d", len(rules))
		}
		if rules[0].ID != "rule-001" {
			t.Errorf("expected rule-001, got %s", rules[0].ID)
		}
		if !rules[0].Enabled {
			t.Error("expected rule to be enabled")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.FindCarrier(ctx, "555"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		if _, err := repo.FindConfirmedScam(ctx, "nonexistent"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		if _, err := repo.GetSearchLog(ctx, "nonexistent"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("RequiresKeys", func(t *testing.T) {
		if err := repo.SaveCarrier(ctx, &domain.CarrierRecord{}); err == nil {
			t.Error("expected error for empty prefix")
		}
		if err := repo.SaveScamRecord(ctx, &domain.ScamRecord{}); err == nil {
			t.Error("expected error for empty content")
		}
		if err := repo.SaveSearchLog(ctx, &domain.SearchLog{}); err == nil {
			t.Error("expected error for empty query")
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
