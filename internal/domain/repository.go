package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence: carrier reference
// data, the confirmed-scam list, community reports, search logs, and custom
// risk rules.
type Repository interface {
	// Carrier reference data
	SaveCarrier(ctx context.Context, rec *CarrierRecord) error
	FindCarrier(ctx context.Context, key string) (*CarrierRecord, error)

	// Confirmed-scam reference list
	SaveScamRecord(ctx context.Context, rec *ScamRecord) error
	FindConfirmedScam(ctx context.Context, content string) (*ScamRecord, error)

	// Community reports
	SaveReport(ctx context.Context, report *CommunityReport) error
	GetReport(ctx context.Context, id string) (*CommunityReport, error)
	ListConfirmedReports(ctx context.Context, target string) ([]*CommunityReport, error)
	ListReports(ctx context.Context, status ReportStatus, limit int) ([]*CommunityReport, error)
	UpdateReportStatus(ctx context.Context, id string, status ReportStatus) (*CommunityReport, error)

	// Search log audit trail
	SaveSearchLog(ctx context.Context, log *SearchLog) error
	GetSearchLog(ctx context.Context, query string) (*SearchLog, error)
	ListSearchLogs(ctx context.Context, limit int) ([]*SearchLog, error)

	// Custom risk rules
	SaveRiskRule(ctx context.Context, rule *RiskRule) error
	ListRiskRules(ctx context.Context) ([]*RiskRule, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
