package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// timeLayout keeps a fixed fraction width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region log-run
// LogRun writes a run entry to the run_log table.
func LogRun(db *sql.DB, entry RunEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO run_log (run_id, version_id, mode, config_json, outcome, stage, detail, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		nullIfEmpty(entry.VersionID),
		entry.Mode,
		nullIfEmpty(entry.ConfigJSON),
		entry.Outcome,
		nullIfEmpty(entry.Stage),
		nullIfEmpty(entry.Detail),
		entry.Duration.Milliseconds(),
		entry.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log run: %w", err)
	}
	return nil
}

// #endregion log-run

// #region list-runs
// ListRuns returns the most recent run entries, newest first.
func ListRuns(db *sql.DB, limit int) ([]RunEntry, error) {
	rows, err := db.Query(
		`SELECT run_id, version_id, mode, config_json, outcome, stage, detail, duration_ms, created_at
		 FROM run_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var versionID, configJSON, stage, detail sql.NullString
		var durationMS int64
		var createdStr string
		if err := rows.Scan(&e.RunID, &versionID, &e.Mode, &configJSON, &e.Outcome, &stage, &detail, &durationMS, &createdStr); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.VersionID = versionID.String
		e.ConfigJSON = configJSON.String
		e.Stage = stage.String
		e.Detail = detail.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list-runs

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
