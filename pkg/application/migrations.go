package application

import (
	"context"
	"database/sql"
	"io/fs"
	"sync"

	"github.com/go-faster/errors"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// MigrationManager applies the goose schemas registered by modules.
type MigrationManager interface {
	RegisterSchema(fsys fs.FS, dir string)
	Up(ctx context.Context, dsn string) error
	Down(ctx context.Context, dsn string) error
	Status(ctx context.Context, dsn string) ([]MigrationStatus, error)
}

type MigrationStatus struct {
	Source  string
	Version int64
	Applied bool
}

type schemaSource struct {
	fsys fs.FS
	dir  string
}

type migrationManager struct {
	mu      sync.Mutex
	schemas []schemaSource
}

func NewMigrationManager() MigrationManager {
	return &migrationManager{}
}

func (m *migrationManager) RegisterSchema(fsys fs.FS, dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas = append(m.schemas, schemaSource{fsys: fsys, dir: dir})
}

func (m *migrationManager) providers(db *sql.DB) ([]*goose.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*goose.Provider, 0, len(m.schemas))
	for _, s := range m.schemas {
		sub, err := fs.Sub(s.fsys, s.dir)
		if err != nil {
			return nil, errors.Wrapf(err, "schema dir %s", s.dir)
		}
		p, err := goose.NewProvider(goose.DialectPostgres, db, sub)
		if err != nil {
			return nil, errors.Wrap(err, "goose provider")
		}
		out = append(out, p)
	}
	return out, nil
}

func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	return db, nil
}

func (m *migrationManager) Up(ctx context.Context, dsn string) error {
	db, err := open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	providers, err := m.providers(db)
	if err != nil {
		return err
	}
	for _, p := range providers {
		if _, err := p.Up(ctx); err != nil {
			return errors.Wrap(err, "migrate up")
		}
	}
	return nil
}

// Down rolls back the most recent migration of every registered schema.
func (m *migrationManager) Down(ctx context.Context, dsn string) error {
	db, err := open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	providers, err := m.providers(db)
	if err != nil {
		return err
	}
	for i := len(providers) - 1; i >= 0; i-- {
		if _, err := providers[i].Down(ctx); err != nil {
			return errors.Wrap(err, "migrate down")
		}
	}
	return nil
}

func (m *migrationManager) Status(ctx context.Context, dsn string) ([]MigrationStatus, error) {
	db, err := open(dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	providers, err := m.providers(db)
	if err != nil {
		return nil, err
	}
	var out []MigrationStatus
	for _, p := range providers {
		statuses, err := p.Status(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "migrate status")
		}
		for _, s := range statuses {
			out = append(out, MigrationStatus{
				Source:  s.Source.Path,
				Version: s.Source.Version,
				Applied: s.State == goose.StateApplied,
			})
		}
	}
	return out, nil
}
