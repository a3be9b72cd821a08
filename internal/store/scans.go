package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"simlint/internal/anomaly"
	"simlint/internal/audit"
	"simlint/internal/logging"
)

// Scan is one stored scan run.
type Scan struct {
	ID           int64       `json:"id"`
	RunID        string      `json:"run_id"`
	DataDir      string      `json:"data_dir"`
	CreatedAt    time.Time   `json:"created_at"`
	UnitCount    int         `json:"unit_count"`
	AnomalyCount int         `json:"anomaly_count"`
	Summary      ScanSummary `json:"summary"`
}

// ScanSummary is stored as JSON alongside each scan.
type ScanSummary struct {
	Units             int                      `json:"units"`
	Anomalies         int                      `json:"anomalies"`
	BySeverity        map[anomaly.Severity]int `json:"by_severity"`
	Skipped           int                      `json:"skipped"`
	SimulationSeconds float64                  `json:"simulation_seconds"`
	GapTolerance      float64                  `json:"gap_tolerance"`
}

// NewScan is the input to InsertScan. RunID is generated when empty.
type NewScan struct {
	RunID             string
	DataDir           string
	Units             []audit.UnitSummary
	Skipped           int
	SimulationSeconds float64
	GapTolerance      float64
	CreatedAt         time.Time
}

// InsertScan stores a scan and all of its units in one transaction.
func (s *Store) InsertScan(ctx context.Context, in NewScan) (Scan, error) {
	timer := logging.StartTimer(logging.CategoryStore, "InsertScan")
	defer timer.Stop()

	if in.RunID == "" {
		in.RunID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}

	summary := ScanSummary{
		Units:             len(in.Units),
		BySeverity:        map[anomaly.Severity]int{},
		Skipped:           in.Skipped,
		SimulationSeconds: in.SimulationSeconds,
		GapTolerance:      in.GapTolerance,
	}
	for _, u := range in.Units {
		summary.Anomalies += len(u.Anomalies)
		for sev, n := range anomaly.CountBySeverity(u.Anomalies) {
			summary.BySeverity[sev] += n
		}
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return Scan{}, fmt.Errorf("failed to marshal scan summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Scan{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO scans (run_id, data_dir, created_at, unit_count, anomaly_count, summary_json) VALUES (?, ?, ?, ?, ?, ?)`,
		in.RunID, in.DataDir, in.CreatedAt.Format(time.RFC3339Nano), summary.Units, summary.Anomalies, string(summaryJSON))
	if err != nil {
		return Scan{}, fmt.Errorf("failed to insert scan: %w", err)
	}
	scanID, err := res.LastInsertId()
	if err != nil {
		return Scan{}, fmt.Errorf("failed to read scan id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO scan_units (scan_id, unit_id, unit_name, effective_dps, max_severity, summary_json) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Scan{}, fmt.Errorf("failed to prepare unit insert: %w", err)
	}
	defer stmt.Close()

	for i := range in.Units {
		u := &in.Units[i]
		data, err := json.Marshal(u)
		if err != nil {
			return Scan{}, fmt.Errorf("failed to marshal unit %s: %w", u.UnitID.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, scanID, u.UnitID.ID, u.UnitID.Name, u.TotalEffectiveDPS(), string(u.MaxSeverity()), string(data)); err != nil {
			return Scan{}, fmt.Errorf("failed to insert unit %s: %w", u.UnitID.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Scan{}, fmt.Errorf("failed to commit scan: %w", err)
	}
	logging.Store("Stored scan %d (run %s): %d units, %d anomalies", scanID, in.RunID, summary.Units, summary.Anomalies)

	return Scan{
		ID:           scanID,
		RunID:        in.RunID,
		DataDir:      in.DataDir,
		CreatedAt:    in.CreatedAt,
		UnitCount:    summary.Units,
		AnomalyCount: summary.Anomalies,
		Summary:      summary,
	}, nil
}

const scanColumns = `id, COALESCE(run_id, ''), data_dir, created_at, COALESCE(unit_count, 0), COALESCE(anomaly_count, 0), summary_json`

// ListScans returns scans newest first. limit <= 0 means no limit.
func (s *Store) ListScans(ctx context.Context, limit int) ([]Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans ORDER BY id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var out []Scan
	for rows.Next() {
		sc, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// GetScan returns one scan by id.
func (s *Store) GetScan(ctx context.Context, id int64) (Scan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scanColumns+` FROM scans WHERE id = ?`, id)
	sc, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Scan{}, fmt.Errorf("scan %d: %w", id, ErrNotFound)
	}
	return sc, err
}

// LatestScan returns the most recent scan.
func (s *Store) LatestScan(ctx context.Context) (Scan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scanColumns+` FROM scans ORDER BY id DESC LIMIT 1`)
	sc, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Scan{}, fmt.Errorf("no scans stored: %w", ErrNotFound)
	}
	return sc, err
}

// ScanUnits returns the units of a scan ordered by unit id.
func (s *Store) ScanUnits(ctx context.Context, scanID int64) ([]audit.UnitSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT summary_json FROM scan_units WHERE scan_id = ? ORDER BY unit_id`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var out []audit.UnitSummary
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to read unit row: %w", err)
		}
		var u audit.UnitSummary
		if err := json.Unmarshal([]byte(data), &u); err != nil {
			return nil, fmt.Errorf("failed to decode unit: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// FindUnit looks a unit up by id, then by display name, then by substring of
// either. All comparisons ignore case.
func (s *Store) FindUnit(ctx context.Context, scanID int64, query string) (*audit.UnitSummary, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty unit query: %w", ErrNotFound)
	}
	lookups := []struct {
		where string
		arg   string
	}{
		{`unit_id = ? COLLATE NOCASE`, q},
		{`unit_name = ? COLLATE NOCASE`, q},
		{`(unit_id LIKE ? ESCAPE '\' OR unit_name LIKE ? ESCAPE '\')`, "%" + escapeLike(q) + "%"},
	}
	for _, l := range lookups {
		args := []interface{}{scanID, l.arg}
		if strings.Count(l.where, "?") == 2 {
			args = append(args, l.arg)
		}
		var data string
		err := s.db.QueryRowContext(ctx,
			`SELECT summary_json FROM scan_units WHERE scan_id = ? AND `+l.where+` ORDER BY unit_id LIMIT 1`,
			args...).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up unit: %w", err)
		}
		var u audit.UnitSummary
		if err := json.Unmarshal([]byte(data), &u); err != nil {
			return nil, fmt.Errorf("failed to decode unit: %w", err)
		}
		return &u, nil
	}
	return nil, fmt.Errorf("unit %q: %w", q, ErrNotFound)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRow(r rowScanner) (Scan, error) {
	var sc Scan
	var created, summary string
	if err := r.Scan(&sc.ID, &sc.RunID, &sc.DataDir, &created, &sc.UnitCount, &sc.AnomalyCount, &summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Scan{}, err
		}
		return Scan{}, fmt.Errorf("failed to read scan row: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		sc.CreatedAt = t
	}
	if err := json.Unmarshal([]byte(summary), &sc.Summary); err != nil {
		logging.StoreWarn("Scan %d has unreadable summary: %v", sc.ID, err)
	}
	return sc, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
