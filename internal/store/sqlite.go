package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitive-intel/internal/db"
	"github.com/sells-group/competitive-intel/internal/model"
)

// sqliteTimeFormat is fixed width so TEXT timestamps sort chronologically.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"

func sqliteTime(t time.Time) string { return t.UTC().Format(sqliteTimeFormat) }

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := db.OpenSQLite(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	return &SQLiteStore{db: conn}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return eris.Wrap(db.Migrate(ctx, s.db, db.DialectSQLite), "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, job *model.Job) error {
	if err := validateNew(job); err != nil {
		return err
	}
	doc, err := encodeJob(job)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, company_name, status, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID, job.CompanyName, string(job.Status), string(doc), sqliteTime(job.CreatedAt), sqliteTime(job.UpdatedAt),
	)
	return eris.Wrapf(err, "sqlite: insert job %s", job.ID)
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, id string, u model.JobUpdate) (*model.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: update job: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var doc string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM jobs WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: update job %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update job %s: select", id)
	}

	job, err := decodeJob([]byte(doc))
	if err != nil {
		return nil, err
	}
	if err := job.Apply(u, nowFunc()); err != nil {
		return nil, eris.Wrapf(err, "sqlite: update job %s", id)
	}

	next, err := encodeJob(job)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, doc = ?, updated_at = ? WHERE id = ?`,
		string(job.Status), string(next), sqliteTime(job.UpdatedAt), id,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: update job %s", id)
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: update job %s: commit", id)
	}
	return job, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM jobs WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", id)
	}
	return decodeJob([]byte(doc))
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	filter = filter.normalized()

	query := `SELECT doc FROM jobs`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	return scanSQLiteJobs(rows, "sqlite: list jobs")
}

func (s *SQLiteStore) CountJobs(ctx context.Context, filter JobFilter) (int, error) {
	query := `SELECT COUNT(*) FROM jobs`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count jobs")
	}
	return n, nil
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: delete job %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: delete job %s: rows affected", id)
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListStale(ctx context.Context, olderThan time.Time) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM jobs WHERE status = ? AND updated_at < ? ORDER BY updated_at`,
		string(model.JobStatusProcessing), sqliteTime(olderThan),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stale jobs")
	}
	return scanSQLiteJobs(rows, "sqlite: list stale jobs")
}

func scanSQLiteJobs(rows *sql.Rows, op string) ([]model.Job, error) {
	defer rows.Close() //nolint:errcheck
	jobs := []model.Job{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, op+": scan")
		}
		job, err := decodeJob([]byte(doc))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), op)
}
