package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainproject "github.com/alanyang/projects-sync/internal/domain/project"
	domainrun "github.com/alanyang/projects-sync/internal/domain/run"
	portrun "github.com/alanyang/projects-sync/internal/port/run"
)

var _ portrun.Repository = (*Repository)(nil)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectColumns = `id, owner, repository, desired_titles, created_projects, deleted_projects,
	final_titles, fetch_attempts, dry_run, status, error, started_at, finished_at`

func (r *Repository) Create(ctx context.Context, run domainrun.Run) (domainrun.Run, error) {
	createdJSON, deletedJSON, err := marshalProjects(run)
	if err != nil {
		return domainrun.Run{}, err
	}

	query := `
		INSERT INTO sync_runs (id, owner, repository, desired_titles, created_projects, deleted_projects,
			final_titles, fetch_attempts, dry_run, status, error, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING ` + selectColumns

	row := r.pool.QueryRow(ctx, query,
		run.ID, run.Owner, run.Repository, nonNil(run.DesiredTitles), createdJSON, deletedJSON,
		nonNil(run.FinalTitles), run.FetchAttempts, run.DryRun, string(run.Status), run.Error,
		run.StartedAt, run.FinishedAt,
	)
	created, err := scanRun(row)
	if err != nil {
		return domainrun.Run{}, fmt.Errorf("inserting sync run: %w", err)
	}
	return created, nil
}

func (r *Repository) Finish(ctx context.Context, run domainrun.Run) error {
	createdJSON, deletedJSON, err := marshalProjects(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE sync_runs SET
			created_projects = $2, deleted_projects = $3, final_titles = $4,
			fetch_attempts = $5, status = $6, error = $7, finished_at = $8
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		run.ID, createdJSON, deletedJSON, nonNil(run.FinalTitles),
		run.FetchAttempts, string(run.Status), run.Error, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("updating sync run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finishing sync run %s: %w", run.ID, portrun.ErrNotFound)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domainrun.Run, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM sync_runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainrun.Run{}, fmt.Errorf("sync run %s: %w", id, portrun.ErrNotFound)
		}
		return domainrun.Run{}, fmt.Errorf("querying sync run: %w", err)
	}
	return run, nil
}

func (r *Repository) ListByRepository(ctx context.Context, owner, repository string, limit int) ([]domainrun.Run, error) {
	query := `SELECT ` + selectColumns + `
		FROM sync_runs WHERE owner = $1 AND repository = $2
		ORDER BY started_at DESC`
	args := []interface{}{owner, repository}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sync runs: %w", err)
	}
	defer rows.Close()

	runs := []domainrun.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sync run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync run rows: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (domainrun.Run, error) {
	var (
		run                      domainrun.Run
		status                   string
		createdJSON, deletedJSON []byte
	)
	if err := row.Scan(
		&run.ID, &run.Owner, &run.Repository, &run.DesiredTitles, &createdJSON, &deletedJSON,
		&run.FinalTitles, &run.FetchAttempts, &run.DryRun, &status, &run.Error,
		&run.StartedAt, &run.FinishedAt,
	); err != nil {
		return domainrun.Run{}, err
	}
	run.Status = domainrun.Status(status)
	run.Created = unmarshalProjects(createdJSON)
	run.Deleted = unmarshalProjects(deletedJSON)
	run.DesiredTitles = nonNil(run.DesiredTitles)
	run.FinalTitles = nonNil(run.FinalTitles)
	return run, nil
}

func marshalProjects(run domainrun.Run) ([]byte, []byte, error) {
	created, err := json.Marshal(nonNilProjects(run.Created))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal created projects: %w", err)
	}
	deleted, err := json.Marshal(nonNilProjects(run.Deleted))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal deleted projects: %w", err)
	}
	return created, deleted, nil
}

func unmarshalProjects(data []byte) []domainproject.Project {
	out := []domainproject.Project{}
	if err := json.Unmarshal(data, &out); err != nil {
		return []domainproject.Project{}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilProjects(p []domainproject.Project) []domainproject.Project {
	if p == nil {
		return []domainproject.Project{}
	}
	return p
}
