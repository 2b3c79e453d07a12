// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveCarrier upserts a carrier prefix record.
func (r *SQLRepository) SaveCarrier(ctx context.Context, rec *domain.CarrierRecord) error {
	if rec.Prefix == "" {
		return fmt.Errorf("%w: prefix is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO carriers (prefix, carrier_name, subscriber_type)
		VALUES (?, ?, ?)
		ON CONFLICT(prefix) DO UPDATE SET
			carrier_name = excluded.carrier_name,
			subscriber_type = excluded.subscriber_type
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.Prefix, rec.CarrierName, rec.SubscriberType,
	)
	return err
}

// FindCarrier looks up a carrier record by exact key, falling back to the
// key's first three digits when no exact match exists.
func (r *SQLRepository) FindCarrier(ctx context.Context, key string) (*domain.CarrierRecord, error) {
	rec, err := r.findCarrierExact(ctx, key)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if len(key) < 3 {
		return nil, ErrNotFound
	}
	return r.findCarrierExact(ctx, key[:3])
}

func (r *SQLRepository) findCarrierExact(ctx context.Context, prefix string) (*domain.CarrierRecord, error) {
	query := `
		SELECT prefix, carrier_name, subscriber_type
		FROM carriers
		WHERE prefix = ?
	`

	var rec domain.CarrierRecord
	err := r.db.QueryRowContext(ctx, r.rebind(query), prefix).Scan(
		&rec.Prefix, &rec.CarrierName, &rec.SubscriberType,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// SaveScamRecord upserts an entry in the confirmed-scam list.
func (r *SQLRepository) SaveScamRecord(ctx context.Context, rec *domain.ScamRecord) error {
	if rec.Content == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO confirmed_scams (content, category, description, source, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(content) DO UPDATE SET
			category = excluded.category,
			description = excluded.description,
			source = excluded.source
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.Content, rec.Category, rec.Description, rec.Source, createdAt,
	)
	return err
}

// FindConfirmedScam retrieves a confirmed-scam entry by normalized content.
func (r *SQLRepository) FindConfirmedScam(ctx context.Context, content string) (*domain.ScamRecord, error) {
	query := `
		SELECT content, category, description, source, created_at
		FROM confirmed_scams
		WHERE content = ?
	`

	var rec domain.ScamRecord
	err := r.db.QueryRowContext(ctx, r.rebind(query), content).Scan(
		&rec.Content, &rec.Category, &rec.Description, &rec.Source, &rec.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// SaveReport stores a community report.
func (r *SQLRepository) SaveReport(ctx context.Context, report *domain.CommunityReport) error {
	if report.ID == "" || report.Target == "" {
		return fmt.Errorf("%w: id and target are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO reports (id, target, report_type, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		report.ID, report.Target, report.ReportType, report.Description,
		string(report.Status), report.CreatedAt, report.UpdatedAt,
	)
	return err
}

// GetReport retrieves a report by ID.
func (r *SQLRepository) GetReport(ctx context.Context, id string) (*domain.CommunityReport, error) {
	query := `
		SELECT id, target, report_type, description, status, created_at, updated_at
		FROM reports
		WHERE id = ?
	`

	report, err := r.scanReport(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListConfirmedReports retrieves the confirmed reports for a target,
// newest first. Only confirmed reports ever reach scoring logic.
func (r *SQLRepository) ListConfirmedReports(ctx context.Context, target string) ([]*domain.CommunityReport, error) {
	query := `
		SELECT id, target, report_type, description, status, created_at, updated_at
		FROM reports
		WHERE target = ? AND status = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), target, string(domain.ReportConfirmed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectReports(rows)
}

// ListReports retrieves reports filtered by status for moderation.
// An empty status returns reports in any state.
func (r *SQLRepository) ListReports(ctx context.Context, status domain.ReportStatus, limit int) ([]*domain.CommunityReport, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error

	if status == "" {
		query := `
			SELECT id, target, report_type, description, status, created_at, updated_at
			FROM reports
			ORDER BY created_at DESC
			LIMIT ?
		`
		rows, err = r.db.QueryContext(ctx, r.rebind(query), limit)
	} else {
		query := `
			SELECT id, target, report_type, description, status, created_at, updated_at
			FROM reports
			WHERE status = ?
			ORDER BY created_at DESC
			LIMIT ?
		`
		rows, err = r.db.QueryContext(ctx, r.rebind(query), string(status), limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectReports(rows)
}

// UpdateReportStatus transitions a report's moderation state and returns
// the updated report.
func (r *SQLRepository) UpdateReportStatus(ctx context.Context, id string, status domain.ReportStatus) (*domain.CommunityReport, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	query := `
		UPDATE reports
		SET status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), string(status), time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	return r.GetReport(ctx, id)
}

// SaveSearchLog upserts the search log entry for a normalized query.
// Last write wins; there is no versioning.
func (r *SQLRepository) SaveSearchLog(ctx context.Context, log *domain.SearchLog) error {
	if log.Query == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	createdAt := log.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO search_logs (query, id, verdict, risk_level, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(query) DO UPDATE SET
			id = excluded.id,
			verdict = excluded.verdict,
			risk_level = excluded.risk_level,
			created_at = excluded.created_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		log.Query, log.ID, log.Verdict, string(log.RiskLevel), createdAt,
	)
	return err
}

// GetSearchLog retrieves the search log entry for a normalized query.
func (r *SQLRepository) GetSearchLog(ctx context.Context, queryKey string) (*domain.SearchLog, error) {
	query := `
		SELECT query, id, verdict, risk_level, created_at
		FROM search_logs
		WHERE query = ?
	`

	var log domain.SearchLog
	var level string
	err := r.db.QueryRowContext(ctx, r.rebind(query), queryKey).Scan(
		&log.Query, &log.ID, &log.Verdict, &level, &log.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	log.RiskLevel = domain.RiskLevel(level)
	return &log, nil
}

// ListSearchLogs retrieves recent search logs, newest first.
func (r *SQLRepository) ListSearchLogs(ctx context.Context, limit int) ([]*domain.SearchLog, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT query, id, verdict, risk_level, created_at
		FROM search_logs
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.SearchLog
	for rows.Next() {
		var log domain.SearchLog
		var level string

		if err := rows.Scan(&log.Query, &log.ID, &log.Verdict, &level, &log.CreatedAt); err != nil {
			return nil, err
		}

		log.RiskLevel = domain.RiskLevel(level)
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

// SaveRiskRule upserts a custom risk rule.
func (r *SQLRepository) SaveRiskRule(ctx context.Context, rule *domain.RiskRule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO risk_rules (id, name, description, expression, score, category, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			score = excluded.score,
			category = excluded.category,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description, rule.Expression,
		rule.Score, rule.Category, enabled, now, now,
	)
	return err
}

// ListRiskRules retrieves all enabled risk rules.
func (r *SQLRepository) ListRiskRules(ctx context.Context) ([]*domain.RiskRule, error) {
	query := `
		SELECT id, name, description, expression, score, category, enabled, created_at, updated_at
		FROM risk_rules
		WHERE enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.RiskRule
	for rows.Next() {
		var rule domain.RiskRule
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Description, &rule.Expression,
			&rule.Score, &rule.Category, &enabled, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, err
		}

		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLRepository) scanReport(row rowScanner) (*domain.CommunityReport, error) {
	var report domain.CommunityReport
	var status string

	err := row.Scan(
		&report.ID, &report.Target, &report.ReportType, &report.Description,
		&status, &report.CreatedAt, &report.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	report.Status = domain.ReportStatus(status)
	return &report, nil
}

func (r *SQLRepository) collectReports(rows *sql.Rows) ([]*domain.CommunityReport, error) {
	var reports []*domain.CommunityReport
	for rows.Next() {
		report, err := r.scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
