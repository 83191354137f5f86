package db

import (
	"context"
	"database/sql"
	"embed"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// Dialect names a goose SQL dialect.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

func (d Dialect) dir() string {
	if d == DialectSQLite {
		return "migrations/sqlite"
	}
	return "migrations/postgres"
}

// goose keeps its dialect and filesystem in package globals.
var gooseMu sync.Mutex

// Migrate applies all pending embedded migrations for dialect.
func Migrate(ctx context.Context, database *sql.DB, dialect Dialect) error {
	if database == nil {
		return eris.New("db: migrate: nil database")
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(gooseLogger{log: zap.S()})
	if err := goose.SetDialect(string(dialect)); err != nil {
		return eris.Wrapf(err, "db: migrate: set dialect %s", dialect)
	}
	if err := goose.UpContext(ctx, database, dialect.dir()); err != nil {
		return eris.Wrapf(err, "db: migrate %s", dialect)
	}
	return nil
}

// MigrationVersion reports the applied schema version.
func MigrationVersion(ctx context.Context, database *sql.DB, dialect Dialect) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(string(dialect)); err != nil {
		return 0, eris.Wrapf(err, "db: set dialect %s", dialect)
	}
	v, err := goose.GetDBVersionContext(ctx, database)
	if err != nil {
		return 0, eris.Wrap(err, "db: migration version")
	}
	return v, nil
}

// gooseLogger routes goose output through zap.
type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) { l.log.Infof(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...any) { l.log.Fatalf(format, v...) }
