package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// BeginRun records the start of an invocation.
func (d *DB) BeginRun(id, mode, args string, zapCeph, zapZFS bool) error {
	_, err := d.conn.Exec(`
		INSERT INTO runs (id, started_at, mode, args, zap_ceph, zap_zfs)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, time.Now().UTC(), mode, args, boolInt(zapCeph), boolInt(zapZFS))
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// FinishRun stamps the invocation's end time.
func (d *DB) FinishRun(id string) error {
	_, err := d.conn.Exec("UPDATE runs SET finished_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// RecordTarget appends one target's outcome to a run.
func (d *DB) RecordTarget(rec *TargetRecord) error {
	_, err := d.conn.Exec(`
		INSERT INTO run_targets (run_id, device, model, serial, size_bytes, status, warnings, residual_partitions, residual_pvs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.Device, rec.Model, rec.Serial, rec.SizeBytes, rec.Status,
		jsonList(rec.Warnings), jsonList(rec.ResidualPartitions), jsonList(rec.ResidualPVs))
	if err != nil {
		return fmt.Errorf("failed to record target: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (d *DB) RecentRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.conn.Query(`
		SELECT id, started_at, finished_at, mode, args, zap_ceph, zap_zfs
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		var ceph, zfs int
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Mode, &r.Args, &ceph, &zfs); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		r.ZapCeph = ceph != 0
		r.ZapZFS = zfs != 0
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// RunTargets returns the recorded targets of one run.
func (d *DB) RunTargets(runID string) ([]*TargetRecord, error) {
	rows, err := d.conn.Query(`
		SELECT id, run_id, device, model, serial, size_bytes, status, warnings, residual_partitions, residual_pvs, recorded_at
		FROM run_targets
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run targets: %w", err)
	}
	defer rows.Close()

	var records []*TargetRecord
	for rows.Next() {
		var rec TargetRecord
		var warnings, parts, pvs sql.NullString
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Device, &rec.Model, &rec.Serial,
			&rec.SizeBytes, &rec.Status, &warnings, &parts, &pvs, &rec.RecordedAt); err != nil {
			return nil, err
		}
		rec.Warnings = fromJSONList(warnings)
		rec.ResidualPartitions = fromJSONList(parts)
		rec.ResidualPVs = fromJSONList(pvs)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func jsonList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	b, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(b)
}

func fromJSONList(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s.String), &items); err != nil {
		return nil
	}
	return items
}
