package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/catalog"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/logger"
)

// Store is a sqlite-backed template catalog. Templates are read-only at
// runtime; Seed loads them once from a static provider.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("Catalog store initialized", zap.String("path", dbPath))

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_templates (
		id TEXT NOT NULL,
		domain TEXT NOT NULL,
		name TEXT NOT NULL,
		focus_area TEXT NOT NULL,
		example TEXT NOT NULL,
		sql_body TEXT NOT NULL,
		parameters TEXT,
		PRIMARY KEY (domain, id)
	);
	CREATE INDEX IF NOT EXISTS idx_templates_domain ON query_templates(domain);
	CREATE INDEX IF NOT EXISTS idx_templates_focus ON query_templates(focus_area);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create catalog schema: %w", err)
	}
	return nil
}

func (s *Store) Seed(provider catalog.Provider, domains ...string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO query_templates
		(id, domain, name, focus_area, example, sql_body, parameters)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare seed statement: %w", err)
	}
	defer stmt.Close()

	total := 0
	for _, domain := range domains {
		for _, tmpl := range provider.Templates(domain) {
			params, err := json.Marshal(tmpl.Parameters)
			if err != nil {
				return fmt.Errorf("failed to marshal parameters for %s: %w", tmpl.ID, err)
			}
			if _, err := stmt.Exec(tmpl.ID, domain, tmpl.Name, string(tmpl.FocusArea), tmpl.Example, tmpl.SQL, string(params)); err != nil {
				return fmt.Errorf("failed to seed template %s: %w", tmpl.ID, err)
			}
			total++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	logger.Info("Catalog seeded", zap.Int("templates", total))
	return nil
}

func (s *Store) Templates(domain string) []catalog.Template {
	rows, err := s.db.Query(`SELECT id, name, focus_area, example, sql_body, parameters
		FROM query_templates WHERE domain = ?`, domain)
	if err != nil {
		logger.Error("Failed to load templates", zap.String("domain", domain), zap.Error(err))
		return nil
	}
	defer rows.Close()

	var templates []catalog.Template
	for rows.Next() {
		var tmpl catalog.Template
		var focus, params string
		if err := rows.Scan(&tmpl.ID, &tmpl.Name, &focus, &tmpl.Example, &tmpl.SQL, &params); err != nil {
			logger.Error("Failed to scan template row", zap.Error(err))
			continue
		}
		tmpl.FocusArea = models.FocusArea(focus)
		if params != "" {
			if err := json.Unmarshal([]byte(params), &tmpl.Parameters); err != nil {
				logger.Warn("Failed to decode template parameters", zap.String("template", tmpl.ID), zap.Error(err))
			}
		}
		templates = append(templates, tmpl)
	}

	return templates
}
