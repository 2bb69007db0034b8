package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"idsync/internal/reconcile/models"
	"idsync/pkg/platform/sentinel"
)

// SettingsPrefix namespaces the report rows in sync_settings.
const SettingsPrefix = "registry_sync."

const reportKey = SettingsPrefix + "report"

// PostgresStore writes the latest report as flat key/value rows that
// operator views read directly, plus one JSON row used to rebuild it.
type PostgresStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// statusPrefix covers the per-label rows, whose set changes between cycles.
const statusPrefix = SettingsPrefix + "status."

// Save replaces the report in a single statement, so readers never observe a
// half-written report. Status rows for labels absent from this report are
// removed.
func (s *PostgresStore) Save(ctx context.Context, report *models.RunReport) error {
	names, values, err := settingsRows(report)
	if err != nil {
		return err
	}
	query := `
		WITH stale AS (
			DELETE FROM sync_settings
			WHERE starts_with(name, $4) AND NOT (name = ANY($1::text[]))
		)
		INSERT INTO sync_settings (name, value, updated_at)
		SELECT n, v, $3 FROM unnest($1::text[], $2::text[]) AS t(n, v)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(names), pq.Array(values), s.now(), statusPrefix); err != nil {
		return fmt.Errorf("save run report: %w", err)
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context) (*models.RunReport, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT value FROM sync_settings WHERE name = $1`, reportKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load run report: %w", err)
	}
	var report models.RunReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("decode run report: %w", err)
	}
	return &report, nil
}

// Settings returns the flat rows as a map keyed by name without the prefix.
func (s *PostgresStore) Settings(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Name  string `db:"name"`
		Value string `db:"value"`
	}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT name, value FROM sync_settings WHERE name LIKE $1 AND name <> $2`,
		SettingsPrefix+"%", reportKey)
	if err != nil {
		return nil, fmt.Errorf("load sync settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Name[len(SettingsPrefix):]] = r.Value
	}
	return out, nil
}

// settingsRows flattens a report into sorted name/value pairs.
func settingsRows(report *models.RunReport) ([]string, []string, error) {
	encoded, err := json.Marshal(report)
	if err != nil {
		return nil, nil, fmt.Errorf("encode run report: %w", err)
	}

	kv := map[string]string{
		"report":               string(encoded),
		"run_id":               report.RunID.String(),
		"started_at":           report.StartedAt.UTC().Format(time.RFC3339),
		"finished_at":          report.FinishedAt.UTC().Format(time.RFC3339),
		"cut_short":            strconv.FormatBool(report.CutShort),
		"cancelled":            strconv.FormatBool(report.Cancelled),
		"fatal_error":          report.FatalError,
		"total_records":        strconv.Itoa(report.TotalRecords),
		"processed_records":    strconv.Itoa(report.ProcessedRecords),
		"unprocessed_records":  strconv.Itoa(report.UnprocessedRecords),
		"active_external_ids":  strconv.Itoa(report.ActiveExternalIDs),
		"missing_in_directory": strconv.Itoa(report.MissingInDirectory),
		"migrated":             strconv.Itoa(report.Migrated),
		"migration_skipped":    strconv.Itoa(report.MigrationSkipped),
		"migration_failed":     strconv.Itoa(report.MigrationFailed),
		"suspended":            strconv.Itoa(report.Suspended),
		"pending_activation":   strconv.Itoa(report.PendingActivation),
		"final_active":         strconv.Itoa(report.FinalActive),
		"final_suspended":      strconv.Itoa(report.FinalSuspended),
	}
	for label, st := range report.StatusStats {
		kv["status."+label+".seen"] = strconv.Itoa(st.Seen)
		kv["status."+label+".missing"] = strconv.Itoa(st.Missing)
	}

	names := make([]string, 0, len(kv))
	for k := range kv {
		names = append(names, k)
	}
	slices.Sort(names)
	values := make([]string, len(names))
	for i, k := range names {
		values[i] = kv[k]
		names[i] = SettingsPrefix + k
	}
	return names, values, nil
}
