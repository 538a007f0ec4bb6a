package application

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationManager_MergeFlattensSchemas(t *testing.T) {
	m := &migrationManager{}
	m.schemas = append(m.schemas,
		schemaFS{"schema/00001_core.sql": []byte("-- core")},
		schemaFS{"schema/00002_scheduling.sql": []byte("-- scheduling"), "schema/README.md": []byte("not a migration")},
	)

	merged, err := m.merge()
	require.NoError(t, err)

	names, err := fs.Glob(merged, "*.sql")
	require.NoError(t, err)
	require.Equal(t, []string{"00001_core.sql", "00002_scheduling.sql"}, names)

	data, err := fs.ReadFile(merged, "00002_scheduling.sql")
	require.NoError(t, err)
	require.Equal(t, "-- scheduling", string(data))

	_, err = fs.ReadFile(merged, "README.md")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMigrationManager_MergeRejectsDuplicates(t *testing.T) {
	m := &migrationManager{}
	m.schemas = append(m.schemas,
		schemaFS{"schema/00001_core.sql": []byte("-- a")},
		schemaFS{"other/00001_core.sql": []byte("-- b")},
	)

	_, err := m.merge()
	require.ErrorContains(t, err, `duplicate migration file "00001_core.sql"`)
}

func TestSchemaFS_OpenAndStat(t *testing.T) {
	fsys := schemaFS{"00001_core.sql": []byte("select 1")}

	f, err := fsys.Open("00001_core.sql")
	require.NoError(t, err)
	defer f.Close()

	info, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, "00001_core.sql", info.Name())
	require.Equal(t, int64(8), info.Size())
	require.False(t, info.IsDir())

	_, err = fsys.Open("missing.sql")
	require.ErrorIs(t, err, fs.ErrNotExist)
}
