package application

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

type MigrationStatus struct {
	Version   int64
	Source    string
	Applied   bool
	AppliedAt time.Time
}

// NewMigrationManager returns a goose-backed manager. Schemas registered by different modules
// share one version table, so their file versions must not collide.
func NewMigrationManager(pool *pgxpool.Pool, logger *logrus.Logger) MigrationManager {
	return &migrationManager{pool: pool, logger: logger}
}

type migrationManager struct {
	pool    *pgxpool.Pool
	logger  *logrus.Logger
	sources []fs.FS
}

func (m *migrationManager) RegisterSchema(fsys ...fs.FS) {
	m.sources = append(m.sources, fsys...)
}

func (m *migrationManager) provider() (*goose.Provider, error) {
	if m.pool == nil {
		return nil, errors.New("migrations: database pool is required")
	}
	if len(m.sources) == 0 {
		return nil, errors.New("migrations: no schema registered")
	}
	db := stdlib.OpenDBFromPool(m.pool)
	return goose.NewProvider(goose.DialectPostgres, db, unionFS(m.sources))
}

func (m *migrationManager) Run(ctx context.Context) error {
	p, err := m.provider()
	if err != nil {
		return err
	}
	defer p.Close()

	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrations up: %w", err)
	}
	for _, r := range results {
		m.logger.WithFields(logrus.Fields{
			"version":  r.Source.Version,
			"source":   r.Source.Path,
			"duration": r.Duration.String(),
		}).Info("migrations: applied")
	}
	return nil
}

// Rollback reverts every applied migration.
func (m *migrationManager) Rollback(ctx context.Context) error {
	p, err := m.provider()
	if err != nil {
		return err
	}
	defer p.Close()

	results, err := p.DownTo(ctx, 0)
	if err != nil {
		return fmt.Errorf("migrations down: %w", err)
	}
	for _, r := range results {
		m.logger.WithField("version", r.Source.Version).Info("migrations: reverted")
	}
	return nil
}

func (m *migrationManager) Status(ctx context.Context) ([]MigrationStatus, error) {
	p, err := m.provider()
	if err != nil {
		return nil, err
	}
	defer p.Close()

	statuses, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrations status: %w", err)
	}
	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationStatus{
			Version:   s.Source.Version,
			Source:    s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

// unionFS presents the top-level files of several filesystems as one directory.
// The first source that has a name wins.
type unionFS []fs.FS

func (u unionFS) Open(name string) (fs.File, error) {
	for _, fsys := range u {
		f, err := fsys.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

func (u unionFS) ReadDir(name string) ([]fs.DirEntry, error) {
	seen := make(map[string]bool)
	var entries []fs.DirEntry
	found := false
	for _, fsys := range u {
		items, err := fs.ReadDir(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		found = true
		for _, e := range items {
			if seen[e.Name()] {
				continue
			}
			seen[e.Name()] = true
			entries = append(entries, e)
		}
	}
	if !found {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}
