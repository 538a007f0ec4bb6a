package application

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// MigrationManager collects the schema file systems modules embed and
// applies them with goose. Files must follow goose naming
// (NNNNN_name.sql); modules own their version prefixes.
type MigrationManager interface {
	RegisterSchema(fsys *embed.FS)
	Up(ctx context.Context) error
	Status(ctx context.Context) error
}

func NewMigrationManager(pool *pgxpool.Pool) MigrationManager {
	return &migrationManager{pool: pool}
}

type migrationManager struct {
	pool    *pgxpool.Pool
	schemas []fs.FS
}

func (m *migrationManager) RegisterSchema(fsys *embed.FS) {
	m.schemas = append(m.schemas, fsys)
}

func (m *migrationManager) Up(ctx context.Context) error {
	provider, err := m.provider()
	if err != nil {
		return err
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (m *migrationManager) Status(ctx context.Context) error {
	provider, err := m.provider()
	if err != nil {
		return err
	}
	if _, err := provider.Status(ctx); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	return nil
}

func (m *migrationManager) provider() (*goose.Provider, error) {
	merged, err := m.merge()
	if err != nil {
		return nil, err
	}
	db := stdlib.OpenDBFromPool(m.pool)
	return goose.NewProvider(goose.DialectPostgres, db, merged)
}

// merge flattens every registered schema fs into one root so goose sees a
// single migrations directory.
func (m *migrationManager) merge() (schemaFS, error) {
	merged := schemaFS{}
	for _, fsys := range m.schemas {
		err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || path.Ext(p) != ".sql" {
				return nil
			}
			data, err := fs.ReadFile(fsys, p)
			if err != nil {
				return err
			}
			name := path.Base(p)
			if _, dup := merged[name]; dup {
				return fmt.Errorf("duplicate migration file %q", name)
			}
			merged[name] = data
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// schemaFS is a flat read-only fs.FS keyed by migration file name. Every
// entry lives in the root directory.
type schemaFS map[string][]byte

func (s schemaFS) Open(name string) (fs.File, error) {
	if name == "." {
		return &schemaDir{fs: s}, nil
	}
	data, ok := s[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return &schemaFile{
		Reader: bytes.NewReader(data),
		info:   schemaFileInfo{name: name, size: int64(len(data))},
	}, nil
}

func (s schemaFS) ReadFile(name string) ([]byte, error) {
	data, ok := s[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (s schemaFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name != "." {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	entries := make([]fs.DirEntry, len(names))
	for i, n := range names {
		entries[i] = schemaFileInfo{name: n, size: int64(len(s[n]))}
	}
	return entries, nil
}

type schemaFile struct {
	*bytes.Reader
	info schemaFileInfo
}

func (f *schemaFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *schemaFile) Close() error               { return nil }

type schemaDir struct {
	fs schemaFS
}

func (d *schemaDir) Stat() (fs.FileInfo, error) { return schemaDirInfo{}, nil }
func (d *schemaDir) Close() error               { return nil }

func (d *schemaDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: ".", Err: fs.ErrInvalid}
}

func (d *schemaDir) ReadDir(int) ([]fs.DirEntry, error) {
	return d.fs.ReadDir(".")
}

type schemaDirInfo struct{}

func (schemaDirInfo) Name() string       { return "." }
func (schemaDirInfo) Size() int64        { return 0 }
func (schemaDirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (schemaDirInfo) ModTime() time.Time { return time.Time{} }
func (schemaDirInfo) IsDir() bool        { return true }
func (schemaDirInfo) Sys() any           { return nil }

type schemaFileInfo struct {
	name string
	size int64
}

func (i schemaFileInfo) Name() string               { return i.name }
func (i schemaFileInfo) Size() int64                { return i.size }
func (i schemaFileInfo) Mode() fs.FileMode          { return 0o444 }
func (i schemaFileInfo) ModTime() time.Time         { return time.Time{} }
func (i schemaFileInfo) IsDir() bool                { return false }
func (i schemaFileInfo) Sys() any                   { return nil }
func (i schemaFileInfo) Type() fs.FileMode          { return i.Mode().Type() }
func (i schemaFileInfo) Info() (fs.FileInfo, error) { return i, nil }
