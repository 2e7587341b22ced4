// Package migration применяет SQL-миграции golang-migrate поверх пула pgx.
package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

const (
	migrationsTable    = "schema_migrations"
	defaultLockTimeout = 30 * time.Second
)

// Status - состояние схемы. Version == 0 означает, что миграции не применялись.
type Status struct {
	Version uint
	Dirty   bool
}

// Migrator применяет миграции из встроенной FS.
type Migrator struct {
	pool        *pgxpool.Pool
	source      fs.FS
	path        string
	lockTimeout time.Duration
	logger      zerolog.Logger
}

func New(pool *pgxpool.Pool, source fs.FS, path string, logger zerolog.Logger) *Migrator {
	return &Migrator{
		pool:        pool,
		source:      source,
		path:        path,
		lockTimeout: defaultLockTimeout,
		logger:      logger.With().Str("component", "migrator").Logger(),
	}
}

// Up применяет все новые миграции. Отсутствие изменений не считается ошибкой.
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, "up", func(mg *migrate.Migrate) error {
		return mg.Up()
	})
}

// Down откатывает steps миграций; steps <= 0 откатывает все.
func (m *Migrator) Down(ctx context.Context, steps int) error {
	return m.run(ctx, "down", func(mg *migrate.Migrate) error {
		if steps > 0 {
			return mg.Steps(-steps)
		}
		return mg.Down()
	})
}

// Force выставляет версию без выполнения SQL, чтобы снять флаг dirty.
func (m *Migrator) Force(ctx context.Context, version int) error {
	return m.run(ctx, "force", func(mg *migrate.Migrate) error {
		return mg.Force(version)
	})
}

func (m *Migrator) Status(ctx context.Context) (Status, error) {
	mg, err := m.open(ctx)
	if err != nil {
		return Status{}, err
	}
	defer m.close(mg)

	version, dirty, err := mg.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("failed to read migration version: %w", err)
	}
	return Status{Version: version, Dirty: dirty}, nil
}

func (m *Migrator) run(ctx context.Context, op string, fn func(*migrate.Migrate) error) error {
	mg, err := m.open(ctx)
	if err != nil {
		return err
	}
	defer m.close(mg)

	start := time.Now()
	err = fn(mg)
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info().Str("op", op).Msg("database schema is up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", op, err)
	}

	version, dirty, verr := mg.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", verr)
	}
	m.logger.Info().
		Str("op", op).
		Uint("version", version).
		Bool("dirty", dirty).
		Dur("took", time.Since(start)).
		Msg("database migration finished")
	return nil
}

func (m *Migrator) open(ctx context.Context) (*migrate.Migrate, error) {
	if err := m.pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database is not reachable: %w", err)
	}

	driver, err := postgres.WithInstance(stdlib.OpenDBFromPool(m.pool), &postgres.Config{
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	source, err := iofs.New(m.source, m.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations source: %w", err)
	}

	mg, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	mg.LockTimeout = m.lockTimeout
	mg.Log = migrateLogger{logger: m.logger}
	return mg, nil
}

func (m *Migrator) close(mg *migrate.Migrate) {
	srcErr, dbErr := mg.Close()
	if srcErr != nil || dbErr != nil {
		m.logger.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("failed to close migrator")
	}
}

// migrateLogger передаёт сообщения golang-migrate в zerolog.
type migrateLogger struct {
	logger zerolog.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}

func (l migrateLogger) Verbose() bool {
	return l.logger.GetLevel() <= zerolog.DebugLevel
}
