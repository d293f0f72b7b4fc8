package logging

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE run_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		version_id  TEXT,
		mode        TEXT NOT NULL,
		config_json TEXT,
		outcome     TEXT NOT NULL,
		stage       TEXT,
		detail      TEXT,
		duration_ms INTEGER NOT NULL,
		created_at  TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-run-tests
func TestLogRun_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := RunEntry{
		RunID:      "r1",
		VersionID:  "v1",
		Mode:       "derive",
		ConfigJSON: `{"epochs":2}`,
		Outcome:    OutcomeOK,
		Duration:   1500 * time.Millisecond,
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogRun(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runs, err := ListRuns(db, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.RunID != "r1" || got.VersionID != "v1" || got.Mode != "derive" {
		t.Errorf("unexpected row: %+v", got)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %s", got.Duration)
	}
	if !got.CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("expected %s, got %s", entry.CreatedAt, got.CreatedAt)
	}
}

func TestLogRun_EmptyOptionalFieldsStoredAsNull(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	err := LogRun(db, RunEntry{RunID: "r2", Mode: "compress", Outcome: OutcomeError, Stage: "compress", Detail: "shape error"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var versionID, configJSON sql.NullString
	var createdAt string
	db.QueryRow("SELECT version_id, config_json, created_at FROM run_log WHERE run_id = 'r2'").Scan(&versionID, &configJSON, &createdAt)
	if versionID.Valid {
		t.Errorf("expected NULL version_id, got %q", versionID.String)
	}
	if configJSON.Valid {
		t.Errorf("expected NULL config_json, got %q", configJSON.String)
	}
	if createdAt == "" {
		t.Error("expected created_at to default to now")
	}
}

func TestLogRun_MissingTable(t *testing.T) {
	db, _ := sql.Open("sqlite", ":memory:")
	defer db.Close()
	if err := LogRun(db, RunEntry{RunID: "r", Mode: "derive", Outcome: OutcomeOK}); err == nil {
		t.Fatal("expected error without run_log table")
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		LogRun(db, RunEntry{RunID: id, Mode: "derive", Outcome: OutcomeOK, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	runs, err := ListRuns(db, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "c" || runs[1].RunID != "b" {
		t.Fatalf("unexpected order: %+v", runs)
	}
}

// #endregion log-run-tests

// #region logger-tests
func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, true)
	logger.Info("epoch done", "epoch", 3)
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 record, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if rec["msg"] != "epoch done" || rec["epoch"] != float64(3) {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "": slog.LevelInfo, "WARN": slog.LevelWarn, "error": slog.LevelError}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

// #endregion logger-tests
