package store

import (
	"accesslog-etl/internal/types"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

const tableSQL = `
	CREATE TABLE IF NOT EXISTS access_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		ip TEXT,
		method TEXT,
		path TEXT,
		query TEXT,
		status INTEGER,
		size TEXT,
		referrer TEXT,
		user_agent TEXT,
		is_bot BOOLEAN,
		is_admin_tech BOOLEAN,
		is_content BOOLEAN,
		utm_source TEXT,
		utm_medium TEXT,
		utm_campaign TEXT,
		UNIQUE(timestamp, ip, method, path, query, user_agent)
	);`

var indexSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_access_log_is_bot ON access_log(is_bot)`,
	`CREATE INDEX IF NOT EXISTS idx_access_log_is_admin_tech ON access_log(is_admin_tech)`,
	`CREATE INDEX IF NOT EXISTS idx_access_log_is_content ON access_log(is_content)`,
	`CREATE INDEX IF NOT EXISTS idx_access_log_timestamp ON access_log(timestamp)`,
}

const insertSQL = `
	INSERT OR IGNORE INTO access_log (
		timestamp, ip, method, path, query, status, size, referrer, user_agent,
		is_bot, is_admin_tech, is_content, utm_source, utm_medium, utm_campaign
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectSQL = `
	SELECT timestamp, ip, method, path, query, status, size, referrer, user_agent,
		is_bot, is_admin_tech, is_content, utm_source, utm_medium, utm_campaign
	FROM access_log ORDER BY id`

// Store persists access events in a single SQLite file. It assumes a single
// writer; concurrent importers against the same file must be prevented by
// the deployment.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open store %s: %w", dbPath, err)
	}
	return &Store{db: db}, nil
}

// Initialize creates the schema if absent. With forceReload every stored
// event is dropped first. Lookup indices are ensured on every call.
func (s *Store) Initialize(forceReload bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if forceReload {
		log.Println("[STORE] Force reload: dropping access_log")
		if _, err := tx.Exec(`DROP TABLE IF EXISTS access_log`); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	if _, err := tx.Exec(tableSQL); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	for _, q := range indexSQL {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return tx.Commit()
}

// InsertBatch stores events in one transaction and returns how many rows
// were new. Events whose identity tuple already exists are skipped.
func (s *Store) InsertBatch(events []types.AccessEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range events {
		res, err := stmt.Exec(
			e.Timestamp,
			e.IP,
			e.Method,
			e.Path,
			e.Query,
			e.Status,
			e.Size,
			e.Referrer,
			e.UserAgent,
			e.IsBot,
			e.IsAdminTech,
			e.IsContent,
			e.UTMSource,
			e.UTMMedium,
			e.UTMCampaign,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert event: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return inserted, nil
}

// LoadAll returns every stored event in insertion order
func (s *Store) LoadAll() ([]types.AccessEvent, error) {
	rows, err := s.db.Query(selectSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []types.AccessEvent
	for rows.Next() {
		var e types.AccessEvent
		var source, medium, campaign sql.NullString

		err = rows.Scan(
			&e.Timestamp,
			&e.IP,
			&e.Method,
			&e.Path,
			&e.Query,
			&e.Status,
			&e.Size,
			&e.Referrer,
			&e.UserAgent,
			&e.IsBot,
			&e.IsAdminTech,
			&e.IsContent,
			&source,
			&medium,
			&campaign,
		)
		if err != nil {
			return nil, err
		}

		e.UTMSource = nullable(source)
		e.UTMMedium = nullable(medium)
		e.UTMCampaign = nullable(campaign)
		events = append(events, e)
	}

	return events, rows.Err()
}

// Count returns the number of stored events
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM access_log`).Scan(&n)
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
