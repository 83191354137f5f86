package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/competitive-intel/internal/db"
	"github.com/sells-group/competitive-intel/internal/model"
)

// PostgresStore implements Store on a pgx pool with a JSONB document column.
type PostgresStore struct {
	pool  db.Pool
	sqlDB *sql.DB // goose handle; nil in tests
}

// NewPostgres connects to connString.
func NewPostgres(ctx context.Context, connString string, poolCfg db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.OpenPostgres(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open")
	}
	return &PostgresStore{pool: pool, sqlDB: db.SQLFromPool(pool)}, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if s.sqlDB == nil {
		return eris.New("postgres: migrate: no sql handle")
	}
	return eris.Wrap(db.Migrate(ctx, s.sqlDB, db.DialectPostgres), "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.sqlDB != nil {
		s.sqlDB.Close() //nolint:errcheck
	}
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *model.Job) error {
	if err := validateNew(job); err != nil {
		return err
	}
	doc, err := encodeJob(job)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, company_name, status, doc, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.CompanyName, string(job.Status), doc, job.CreatedAt, job.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert job %s", job.ID)
}

func (s *PostgresStore) UpdateJob(ctx context.Context, id string, u model.JobUpdate) (*model.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: update job: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var doc []byte
	err = tx.QueryRow(ctx, `SELECT doc FROM jobs WHERE id = $1 FOR UPDATE`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: update job %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update job %s: select", id)
	}

	job, err := decodeJob(doc)
	if err != nil {
		return nil, err
	}
	if err := job.Apply(u, nowFunc()); err != nil {
		return nil, eris.Wrapf(err, "postgres: update job %s", id)
	}

	if doc, err = encodeJob(job); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE jobs SET status = $1, doc = $2, updated_at = $3 WHERE id = $4`,
		string(job.Status), doc, job.UpdatedAt, id,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: update job %s", id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrapf(err, "postgres: update job %s: commit", id)
	}
	return job, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM jobs WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", id)
	}
	return decodeJob(doc)
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	filter = filter.normalized()

	query := `SELECT doc FROM jobs`
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` WHERE status = $1`
	}
	args = append(args, filter.Limit, filter.Offset)
	query += ` ORDER BY created_at DESC, id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	return collectJobs(rows, "postgres: list jobs")
}

func (s *PostgresStore) CountJobs(ctx context.Context, filter JobFilter) (int, error) {
	query := `SELECT COUNT(*) FROM jobs`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count jobs")
	}
	return n, nil
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: delete job %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ListStale(ctx context.Context, olderThan time.Time) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM jobs WHERE status = $1 AND updated_at < $2 ORDER BY updated_at`,
		string(model.JobStatusProcessing), olderThan,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list stale jobs")
	}
	return collectJobs(rows, "postgres: list stale jobs")
}

func collectJobs(rows pgx.Rows, op string) ([]model.Job, error) {
	defer rows.Close()
	jobs := []model.Job{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, op+": scan")
		}
		job, err := decodeJob(doc)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), op)
}
