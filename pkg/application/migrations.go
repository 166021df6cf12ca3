package application

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

var ErrNoDatabase = errors.New("migrations require a database pool")

func NewMigrationManager(pool *pgxpool.Pool, logger *logrus.Logger) MigrationManager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &migrationManager{pool: pool, logger: logger}
}

type migrationManager struct {
	pool    *pgxpool.Pool
	logger  *logrus.Logger
	schemas []*embed.FS
}

func (m *migrationManager) RegisterSchema(fs ...*embed.FS) {
	m.schemas = append(m.schemas, fs...)
}

// sources returns every directory holding .sql files, as a sub-filesystem goose can read.
func (m *migrationManager) sources() ([]fs.FS, error) {
	var out []fs.FS
	for _, schema := range m.schemas {
		files, err := listFiles(schema, ".")
		if err != nil {
			return nil, err
		}
		var dirs []string
		for _, f := range files {
			if strings.HasSuffix(f, ".sql") && !slices.Contains(dirs, path.Dir(f)) {
				dirs = append(dirs, path.Dir(f))
			}
		}
		for _, dir := range dirs {
			sub, err := fs.Sub(schema, dir)
			if err != nil {
				return nil, err
			}
			out = append(out, sub)
		}
	}
	return out, nil
}

func (m *migrationManager) providers() ([]*goose.Provider, func(), error) {
	if m.pool == nil {
		return nil, nil, ErrNoDatabase
	}
	sources, err := m.sources()
	if err != nil {
		return nil, nil, err
	}

	db := stdlib.OpenDBFromPool(m.pool)
	closeDB := func() { _ = db.Close() }
	providers := make([]*goose.Provider, 0, len(sources))
	for _, src := range sources {
		p, err := goose.NewProvider(goose.DialectPostgres, db, src)
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		providers = append(providers, p)
	}
	return providers, closeDB, nil
}

func (m *migrationManager) Run(ctx context.Context) error {
	providers, closeDB, err := m.providers()
	if err != nil {
		return err
	}
	defer closeDB()

	for _, p := range providers {
		results, err := p.Up(ctx)
		if err != nil {
			return err
		}
		for _, r := range results {
			m.logger.WithField("version", r.Source.Version).
				WithField("duration", r.Duration).
				Infof("applied migration %s", r.Source.Path)
		}
	}
	return nil
}

// Rollback reverts the most recent migration of each registered schema, newest schema first.
func (m *migrationManager) Rollback(ctx context.Context) error {
	providers, closeDB, err := m.providers()
	if err != nil {
		return err
	}
	defer closeDB()

	for i := len(providers) - 1; i >= 0; i-- {
		r, err := providers[i].Down(ctx)
		if err != nil {
			if errors.Is(err, goose.ErrNoNextVersion) {
				continue
			}
			return err
		}
		m.logger.WithField("version", r.Source.Version).Infof("rolled back migration %s", r.Source.Path)
	}
	return nil
}

func (m *migrationManager) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	providers, closeDB, err := m.providers()
	if err != nil {
		return nil, err
	}
	defer closeDB()

	var out []*goose.MigrationStatus
	for _, p := range providers {
		st, err := p.Status(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, st...)
	}
	return out, nil
}
