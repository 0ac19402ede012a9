// Package vaultindex maintains a sqlite read-through index over the two
// append-only vault logs, queryable by zone, year, and month without
// scanning the JSONL files. It is populated by Rebuild (eve_golden
// --rebuild-index); eve_query reads the dataset vault file directly and
// does not consult the index. The index
// is strictly derived: it is always safe to delete and Rebuild it from
// the vaults, which remain the only source of truth.
package vaultindex

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/elekto-energy/eve-witness/internal/migrator"
	"github.com/elekto-energy/eve-witness/pkg/witness/vault"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Index wraps the sqlite connection backing the vault read-through
// index.
type Index struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if absent) the sqlite database at path and
// applies pending migrations.
func Open(path string, logger *slog.Logger) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("vaultindex: open %s: %w", path, err)
	}

	m, err := migrator.New(migrationsFS, migrationsDir, logger)
	if err != nil {
		return nil, fmt.Errorf("vaultindex: migrator: %w", err)
	}

	if err := m.ApplyMigrations(db); err != nil {
		return nil, fmt.Errorf("vaultindex: migrate: %w", err)
	}

	return &Index{db: db, logger: logger}, nil
}

// Close closes the underlying sqlite connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Rebuild truncates both index tables and replays the two vaults from
// scratch, the way every derived-cache rebuild in this codebase works:
// delete then reinsert, never incremental patch.
func (idx *Index) Rebuild(datasets *vault.DatasetVault, reports *vault.ReportVault) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("vaultindex: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM datasets`); err != nil {
		return fmt.Errorf("vaultindex: clear datasets: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM reports`); err != nil {
		return fmt.Errorf("vaultindex: clear reports: %w", err)
	}

	dsEntries, err := datasetEntries(datasets)
	if err != nil {
		return err
	}

	for _, d := range dsEntries {
		_, err := tx.Exec(
			`INSERT INTO datasets
			 (event_index, dataset_eve_id, zone, year, month, manifest_root_hash,
			  methodology_version, registry_hash, supersedes_dataset_id, chain_hash)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.eventIndex, d.rec.DatasetEveID, d.rec.Zone, d.rec.Year, d.rec.Month,
			d.rec.ManifestRootHash, d.rec.MethodologyVersion, d.rec.RegistryHash,
			nullableString(d.rec.SupersedesDatasetID), d.chainHash,
		)
		if err != nil {
			return fmt.Errorf("vaultindex: insert dataset %s: %w", d.rec.DatasetEveID, err)
		}
	}

	rpEntries, err := reportEntries(reports)
	if err != nil {
		return err
	}

	for _, r := range rpEntries {
		_, err := tx.Exec(
			`INSERT INTO reports
			 (event_index, report_id, query_description, report_hash, methodology_version, chain_hash)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.eventIndex, r.rec.ReportID, r.rec.QueryDescription, r.rec.ReportHash,
			r.rec.MethodologyVersion, r.chainHash,
		)
		if err != nil {
			return fmt.Errorf("vaultindex: insert report %s: %w", r.rec.ReportID, err)
		}
	}

	idx.logger.Info("rebuilt vault index", "datasets", len(dsEntries), "reports", len(rpEntries))

	return tx.Commit()
}

type datasetRow struct {
	eventIndex int
	chainHash  string
	rec        vault.DatasetRecord
}

func datasetEntries(v *vault.DatasetVault) ([]datasetRow, error) {
	entries, err := v.Entries()
	if err != nil {
		return nil, err
	}

	rows := make([]datasetRow, 0, len(entries))

	for _, e := range entries {
		var r vault.DatasetRecord
		if err := json.Unmarshal(e.Payload, &r); err != nil {
			return nil, fmt.Errorf("vaultindex: decode dataset payload: %w", err)
		}

		rows = append(rows, datasetRow{eventIndex: e.EventIndex, chainHash: e.ChainHash, rec: r})
	}

	return rows, nil
}

type reportRow struct {
	eventIndex int
	chainHash  string
	rec        vault.ReportRecord
}

func reportEntries(v *vault.ReportVault) ([]reportRow, error) {
	entries, err := v.Entries()
	if err != nil {
		return nil, err
	}

	rows := make([]reportRow, 0, len(entries))

	for _, e := range entries {
		var r vault.ReportRecord
		if err := json.Unmarshal(e.Payload, &r); err != nil {
			return nil, fmt.Errorf("vaultindex: decode report payload: %w", err)
		}

		rows = append(rows, reportRow{eventIndex: e.EventIndex, chainHash: e.ChainHash, rec: r})
	}

	return rows, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}

	return s
}

// DatasetsForZoneMonth returns every dataset_eve_id sealed for a
// zone/year/month, ordered by event_index (oldest first), so the
// caller can pick the last one as the current revision.
func (idx *Index) DatasetsForZoneMonth(zone string, year, month int) ([]string, error) {
	rows, err := idx.db.Query(
		`SELECT dataset_eve_id FROM datasets WHERE zone = ? AND year = ? AND month = ? ORDER BY event_index ASC`,
		zone, year, month,
	)
	if err != nil {
		return nil, fmt.Errorf("vaultindex: query datasets: %w", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ResolveCurrentDataset returns the most recently sealed (non-superseded)
// dataset_eve_id for a zone/year/month, or "" if none was sealed.
func (idx *Index) ResolveCurrentDataset(zone string, year, month int) (string, error) {
	ids, err := idx.DatasetsForZoneMonth(zone, year, month)
	if err != nil {
		return "", err
	}

	if len(ids) == 0 {
		return "", nil
	}

	return ids[len(ids)-1], nil
}
