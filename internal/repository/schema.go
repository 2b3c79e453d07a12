package repository

// Schema definitions for the ScamShield database.
// Compatible with both SQLite and PostgreSQL.

const schemaCarriers = `
CREATE TABLE IF NOT EXISTS carriers (
    prefix TEXT PRIMARY KEY,
    carrier_name TEXT NOT NULL,
    subscriber_type TEXT NOT NULL
);
`

const schemaConfirmedScams = `
CREATE TABLE IF NOT EXISTS confirmed_scams (
    content TEXT PRIMARY KEY,
    category TEXT NOT NULL,
    description TEXT,
    source TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`

const schemaReports = `
CREATE TABLE IF NOT EXISTS reports (
    id TEXT PRIMARY KEY,
    target TEXT NOT NULL,
    report_type TEXT NOT NULL,
    description TEXT,
    status TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_target ON reports(target, status);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status, created_at);
`

const schemaSearchLogs = `
CREATE TABLE IF NOT EXISTS search_logs (
    query TEXT PRIMARY KEY,
    id TEXT NOT NULL,
    verdict TEXT NOT NULL,
    risk_level TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_logs_created ON search_logs(created_at);
CREATE INDEX IF NOT EXISTS idx_search_logs_level ON search_logs(risk_level);
`

const schemaRiskRules = `
CREATE TABLE IF NOT EXISTS risk_rules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    score INTEGER NOT NULL,
    category TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_risk_rules_enabled ON risk_rules(enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaCarriers,
		schemaConfirmedScams,
		schemaReports,
		schemaSearchLogs,
		schemaRiskRules,
	}
}
