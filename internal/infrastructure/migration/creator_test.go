package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- test"), 0o644))
	}
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"add sales table":        "add_sales_table",
		"Add-Expiry-Index":       "add_expiry_index",
		"ADD__receipt__sequence": "add_receipt_sequence",
		"  notifications v2  ":   "notifications_v2",
		"drop #legacy! columns":  "drop_legacy_columns",
		"_leading and trailing_": "leading_and_trailing",
		"":                       "",
	}
	for input, want := range tests {
		assert.Equal(t, want, sanitizeName(input), "input %q", input)
	}
}

func TestCreateMigration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migrations")

	mf, err := CreateMigration(dir, "Add sales table", "Sales and sale items")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)
	assert.Equal(t, "000001_add_sales_table.up.sql", filepath.Base(mf.UpPath))
	assert.Equal(t, "000001_add_sales_table.down.sql", filepath.Base(mf.DownPath))

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Add sales table")
	assert.Contains(t, string(up), "-- Sales and sale items")
	assert.Contains(t, string(up), "BEGIN;")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")

	t.Run("versions continue after the highest existing file", func(t *testing.T) {
		touch(t, dir, "000007_add_contacts.up.sql", "notes.txt")
		next, err := CreateMigration(dir, "Add expiry index", "")
		require.NoError(t, err)
		assert.Equal(t, "000008", next.Version)

		body, err := os.ReadFile(next.UpPath)
		require.NoError(t, err)
		assert.NotContains(t, string(body), "-- \n", "empty description is omitted")
	})

	t.Run("name without usable characters", func(t *testing.T) {
		_, err := CreateMigration(dir, "!!!", "")
		assert.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"000002_create_catalog_tables.up.sql", "000002_create_catalog_tables.down.sql",
		"000001_create_identity_tables.up.sql", "000001_create_identity_tables.down.sql",
		"README.md", ".gitkeep",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "000003_dir.up.sql"), 0o755))

	names, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_identity_tables", "000002_create_catalog_tables"}, names)

	missing, err := ListMigrations(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestShippedMigrationsArePaired(t *testing.T) {
	dir := filepath.Join("..", "..", "..", "migrations")
	names, err := ListMigrations(dir)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for i, name := range names {
		assert.Regexp(t, migrationFileRe, name+".up.sql")
		_, err := os.Stat(filepath.Join(dir, name+".down.sql"))
		assert.NoError(t, err, "%s has no down migration", name)
		if i > 0 {
			assert.Less(t, names[i-1], name)
		}
	}
}
