package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// Save stores or updates a run.
func (s *runStore) Save(ctx context.Context, run domain.RunRecord) error {
	if run.ID == "" {
		return domain.ErrInvalidInput
	}

	totals, err := json.Marshal(run.CategoryTotals)
	if err != nil {
		return fmt.Errorf("marshalling category totals: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO runs (id, phase, account, started_at, finished_at, scopes_done,
			containers_done, containers_total, items_total, write_failures,
			category_totals, archive_location, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase = excluded.phase,
			account = excluded.account,
			finished_at = excluded.finished_at,
			scopes_done = excluded.scopes_done,
			containers_done = excluded.containers_done,
			containers_total = excluded.containers_total,
			items_total = excluded.items_total,
			write_failures = excluded.write_failures,
			category_totals = excluded.category_totals,
			archive_location = excluded.archive_location,
			error = excluded.error
	`, run.ID, string(run.Phase), run.Account, run.StartedAt.UTC(), nullTime(run.FinishedAt),
		run.ScopesDone, run.ContainersDone, run.ContainersTotal, run.ItemsTotal, run.WriteFailures,
		string(totals), run.ArchiveLocation, run.Error)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *runStore) Get(ctx context.Context, id string) (*domain.RunRecord, error) {
	row := s.store.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns runs newest first. A limit of zero or less returns all.
func (s *runStore) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, selectRun+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

const selectRun = `
	SELECT id, phase, account, started_at, finished_at, scopes_done, containers_done,
		containers_total, items_total, write_failures, category_totals, archive_location, error
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.RunRecord, error) {
	var (
		run      domain.RunRecord
		phase    string
		finished sql.NullTime
		totals   string
	)
	err := row.Scan(&run.ID, &phase, &run.Account, &run.StartedAt, &finished,
		&run.ScopesDone, &run.ContainersDone, &run.ContainersTotal, &run.ItemsTotal,
		&run.WriteFailures, &totals, &run.ArchiveLocation, &run.Error)
	if err != nil {
		return nil, err
	}

	run.Phase = domain.RunPhase(phase)
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	run.CategoryTotals = domain.NewCategoryCounts()
	if err := json.Unmarshal([]byte(totals), &run.CategoryTotals); err != nil {
		return nil, fmt.Errorf("unmarshalling category totals: %w", err)
	}
	return &run, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
