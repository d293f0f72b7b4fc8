// Package store persists trained models in SQLite: versioned weights with
// their architecture, the normalization parameters fitted alongside them,
// the training loss log and the run provenance log.
package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
	"github.com/danielpatrickdp/baler/go-codec/internal/model"
	"github.com/danielpatrickdp/baler/go-codec/internal/normalize"
	"github.com/danielpatrickdp/baler/go-codec/internal/train"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS model_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	model_name    TEXT NOT NULL,
	n_features    INTEGER NOT NULL,
	z_dim         INTEGER NOT NULL,
	tensor_shapes TEXT NOT NULL,
	weights       BLOB NOT NULL,
	config_json   TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES model_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_model (
	model_name    TEXT PRIMARY KEY,
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES model_versions(version_id)
);

CREATE TABLE IF NOT EXISTS norm_params (
	version_id    TEXT NOT NULL,
	position      INTEGER NOT NULL,
	name          TEXT NOT NULL,
	true_min      REAL NOT NULL,
	value_range   REAL NOT NULL,
	PRIMARY KEY (version_id, position),
	FOREIGN KEY (version_id) REFERENCES model_versions(version_id)
);

CREATE TABLE IF NOT EXISTS loss_log (
	version_id    TEXT NOT NULL,
	epoch         INTEGER NOT NULL,
	train_loss    REAL NOT NULL,
	val_loss      REAL NOT NULL,
	lr            REAL NOT NULL,
	mse_loss_fit  REAL NOT NULL DEFAULT 0,
	l1_loss_fit   REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (version_id, epoch),
	FOREIGN KEY (version_id) REFERENCES model_versions(version_id)
);

CREATE TABLE IF NOT EXISTS run_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	version_id    TEXT,
	mode          TEXT NOT NULL,
	config_json   TEXT,
	outcome       TEXT NOT NULL,
	stage         TEXT,
	detail        TEXT,
	duration_ms   INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);
`

// #endregion schema

// timeLayout keeps a fixed fraction width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region store-struct
// Store manages versioned models in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region save
// Save persists a trained model with its normalization parameters and loss
// log as a new version, and makes it the active version for its model name.
// The previously active version becomes the parent.
func (s *Store) Save(m model.Autoencoder, params normalize.Params, log train.LossLog, configJSON string) (VersionRecord, error) {
	arch := m.Arch()
	if len(params.Columns) != arch.NFeatures {
		return VersionRecord{}, faults.Shape(faults.StageStore, "%d normalization columns for a model with %d features", len(params.Columns), arch.NFeatures)
	}

	weights := m.Weights()
	shapes := make([]TensorShape, len(weights))
	for i, w := range weights {
		shapes[i] = TensorShape{Name: w.Name, Rows: w.Rows, Cols: w.Cols}
	}
	shapeJSON, err := json.Marshal(shapes)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("marshal shapes: %w", err)
	}

	rec := VersionRecord{
		VersionID:  uuid.New().String(),
		Arch:       arch,
		Shapes:     shapes,
		ConfigJSON: configJSON,
		CreatedAt:  time.Now().UTC(),
		Active:     true,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return VersionRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullString
	err = tx.QueryRow(`SELECT version_id FROM active_model WHERE model_name = ?`, arch.Name).Scan(&parent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return VersionRecord{}, fmt.Errorf("get parent: %w", err)
	}
	rec.ParentID = parent.String

	_, err = tx.Exec(
		`INSERT INTO model_versions (version_id, parent_id, model_name, n_features, z_dim, tensor_shapes, weights, config_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.VersionID, nullIfEmpty(rec.ParentID), arch.Name, arch.NFeatures, arch.ZDim,
		string(shapeJSON), encodeWeights(weights), nullIfEmpty(configJSON),
		rec.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("insert version: %w", err)
	}

	for i, c := range params.Columns {
		_, err = tx.Exec(
			`INSERT INTO norm_params (version_id, position, name, true_min, value_range) VALUES (?, ?, ?, ?, ?)`,
			rec.VersionID, i, c.Name, c.TrueMin, c.Range,
		)
		if err != nil {
			return VersionRecord{}, fmt.Errorf("insert norm params: %w", err)
		}
	}

	for _, e := range log {
		_, err = tx.Exec(
			`INSERT INTO loss_log (version_id, epoch, train_loss, val_loss, lr, mse_loss_fit, l1_loss_fit) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.VersionID, e.Epoch, e.TrainLoss, e.ValLoss, e.LR, e.TrainMSE, e.TrainPenalty,
		)
		if err != nil {
			return VersionRecord{}, fmt.Errorf("insert loss log: %w", err)
		}
	}

	_, err = tx.Exec(
		`INSERT INTO active_model (model_name, version_id) VALUES (?, ?)
		 ON CONFLICT(model_name) DO UPDATE SET version_id = excluded.version_id`,
		arch.Name, rec.VersionID,
	)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return VersionRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion save

// #region get-version
const versionColumns = `v.version_id, v.parent_id, v.model_name, v.n_features, v.z_dim, v.tensor_shapes, v.config_json, v.created_at,
	(a.version_id IS NOT NULL)`

const versionFrom = `FROM model_versions v LEFT JOIN active_model a ON a.version_id = v.version_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (VersionRecord, error) {
	var rec VersionRecord
	var parentID, configJSON sql.NullString
	var shapeJSON, createdStr string
	if err := row.Scan(&rec.VersionID, &parentID, &rec.Arch.Name, &rec.Arch.NFeatures, &rec.Arch.ZDim,
		&shapeJSON, &configJSON, &createdStr, &rec.Active); err != nil {
		return VersionRecord{}, err
	}
	rec.ParentID = parentID.String
	rec.ConfigJSON = configJSON.String
	if err := json.Unmarshal([]byte(shapeJSON), &rec.Shapes); err != nil {
		return VersionRecord{}, fmt.Errorf("unmarshal shapes: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return rec, nil
}

// Version retrieves a specific model version by ID.
func (s *Store) Version(id string) (VersionRecord, error) {
	rec, err := scanVersion(s.db.QueryRow(`SELECT `+versionColumns+` `+versionFrom+` WHERE v.version_id = ?`, id))
	if err != nil {
		return VersionRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}

// Active reads the active version for a model name.
func (s *Store) Active(modelName string) (VersionRecord, error) {
	var id string
	err := s.db.QueryRow(`SELECT version_id FROM active_model WHERE model_name = ?`, modelName).Scan(&id)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("get active %s: %w", modelName, err)
	}
	return s.Version(id)
}

// Architecture returns the persisted architecture of a version.
func (s *Store) Architecture(versionID string) (model.Arch, error) {
	rec, err := s.Version(versionID)
	if err != nil {
		return model.Arch{}, err
	}
	return rec.Arch, nil
}

// #endregion get-version

// #region load
// Load rebuilds the model stored under versionID, or the active version for
// arch.Name when versionID is empty. The stored architecture and tensor
// shapes must agree with arch.
func (s *Store) Load(arch model.Arch, versionID string) (model.Autoencoder, VersionRecord, error) {
	var rec VersionRecord
	var err error
	if versionID == "" {
		rec, err = s.Active(arch.Name)
	} else {
		rec, err = s.Version(versionID)
	}
	if err != nil {
		return nil, VersionRecord{}, err
	}
	if rec.Arch != arch {
		return nil, VersionRecord{}, faults.ArchitectureMismatch(faults.StageStore,
			"version %s stores %s(%d->%d), requested %s(%d->%d)",
			rec.VersionID, rec.Arch.Name, rec.Arch.NFeatures, rec.Arch.ZDim, arch.Name, arch.NFeatures, arch.ZDim)
	}

	var blob []byte
	if err := s.db.QueryRow(`SELECT weights FROM model_versions WHERE version_id = ?`, rec.VersionID).Scan(&blob); err != nil {
		return nil, VersionRecord{}, fmt.Errorf("get weights %s: %w", rec.VersionID, err)
	}
	tensors, err := decodeWeights(blob, rec.Shapes)
	if err != nil {
		return nil, VersionRecord{}, err
	}

	m, err := model.New(arch, 0)
	if err != nil {
		return nil, VersionRecord{}, faults.Restage(err, faults.StageStore)
	}
	if err := m.SetWeights(tensors); err != nil {
		return nil, VersionRecord{}, faults.Restage(err, faults.StageStore)
	}
	return m, rec, nil
}

// LoadVersion rebuilds a model using the architecture persisted with it.
func (s *Store) LoadVersion(versionID string) (model.Autoencoder, VersionRecord, error) {
	arch, err := s.Architecture(versionID)
	if err != nil {
		return nil, VersionRecord{}, err
	}
	return s.Load(arch, versionID)
}

// #endregion load

// #region params
// Params returns the normalization parameters saved with a version, in column order.
func (s *Store) Params(versionID string) (normalize.Params, error) {
	rows, err := s.db.Query(
		`SELECT name, true_min, value_range FROM norm_params WHERE version_id = ? ORDER BY position`, versionID,
	)
	if err != nil {
		return normalize.Params{}, fmt.Errorf("get params: %w", err)
	}
	defer rows.Close()

	var p normalize.Params
	for rows.Next() {
		var c normalize.ColumnParams
		if err := rows.Scan(&c.Name, &c.TrueMin, &c.Range); err != nil {
			return normalize.Params{}, fmt.Errorf("scan params: %w", err)
		}
		p.Columns = append(p.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return normalize.Params{}, fmt.Errorf("get params: %w", err)
	}
	if len(p.Columns) == 0 {
		return normalize.Params{}, fmt.Errorf("no normalization params for version %s", versionID)
	}
	return p, nil
}

// LossLog returns the per-epoch losses recorded with a version.
func (s *Store) LossLog(versionID string) (train.LossLog, error) {
	rows, err := s.db.Query(
		`SELECT epoch, train_loss, val_loss, lr, mse_loss_fit, l1_loss_fit FROM loss_log WHERE version_id = ? ORDER BY epoch`, versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("get loss log: %w", err)
	}
	defer rows.Close()

	var log train.LossLog
	for rows.Next() {
		var e train.Epoch
		if err := rows.Scan(&e.Epoch, &e.TrainLoss, &e.ValLoss, &e.LR, &e.TrainMSE, &e.TrainPenalty); err != nil {
			return nil, fmt.Errorf("scan loss log: %w", err)
		}
		log = append(log, e)
	}
	return log, rows.Err()
}

// #endregion params

// #region activate
// Activate points the active version of its model name at versionID, e.g.
// to roll back to an earlier training run.
func (s *Store) Activate(versionID string) error {
	var name string
	err := s.db.QueryRow(`SELECT model_name FROM model_versions WHERE version_id = ?`, versionID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("version %s not found", versionID)
	}
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO active_model (model_name, version_id) VALUES (?, ?)
		 ON CONFLICT(model_name) DO UPDATE SET version_id = excluded.version_id`,
		name, versionID,
	)
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	return nil
}

// #endregion activate

// #region list-versions
// ListVersions returns the most recent model versions, newest first.
func (s *Store) ListVersions(limit int) ([]VersionRecord, error) {
	rows, err := s.db.Query(`SELECT `+versionColumns+` `+versionFrom+` ORDER BY v.created_at DESC, v.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []VersionRecord
	for rows.Next() {
		rec, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-versions

// #region weight-encoding
func encodeWeights(ws []model.Tensor) []byte {
	n := 0
	for _, w := range ws {
		n += len(w.Data)
	}
	buf := make([]byte, 0, n*8)
	for _, w := range ws {
		for _, f := range w.Data {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
		}
	}
	return buf
}

func decodeWeights(b []byte, shapes []TensorShape) ([]model.Tensor, error) {
	n := 0
	for _, sh := range shapes {
		n += sh.Rows * sh.Cols
	}
	if len(b) != n*8 {
		return nil, faults.ArchitectureMismatch(faults.StageStore, "weight blob has %d bytes, shapes need %d", len(b), n*8)
	}
	ts := make([]model.Tensor, len(shapes))
	off := 0
	for i, sh := range shapes {
		data := make([]float64, sh.Rows*sh.Cols)
		for k := range data {
			data[k] = math.Float64frombits(binary.LittleEndian.Uint64(b[off:]))
			off += 8
		}
		ts[i] = model.Tensor{Name: sh.Name, Rows: sh.Rows, Cols: sh.Cols, Data: data}
	}
	return ts, nil
}

// #endregion weight-encoding

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
