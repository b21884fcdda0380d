package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/showscout/showscout-cli/internal/store"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func createSourceXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sources")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "sources.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeSeedFile(t, `
sources:
  - url: https://shows.example.com/calendar
    priority: 70
  - url: https://stale.example.com
    disabled: true
  - url: "  https://trimmed.example.com  "
`)

	seeds, err := LoadYAML(path)
	require.NoError(t, err)
	require.Len(t, seeds, 3)

	assert.Equal(t, "https://shows.example.com/calendar", seeds[0].URL)
	assert.Equal(t, 70, seeds[0].Priority)
	assert.True(t, seeds[1].Disabled)
	assert.Equal(t, 50, seeds[1].Priority, "missing priority takes the default")
	assert.Equal(t, "https://trimmed.example.com", seeds[2].URL)
}

func TestLoadYAML_RejectsBadURL(t *testing.T) {
	path := writeSeedFile(t, "sources:\n  - url: not-a-url\n")
	_, err := LoadYAML(path)
	assert.Error(t, err)
}

func TestLoadXLSX(t *testing.T) {
	path := createSourceXLSX(t, [][]string{
		{"url", "priority", "disabled"},
		{"https://a.example.com", "80", ""},
		{"https://b.example.com", "", "yes"},
		{"", "", ""},
		{"https://c.example.com", "120", ""},
	})

	seeds, err := LoadXLSX(path)
	require.NoError(t, err)
	require.Len(t, seeds, 3, "blank rows are skipped")

	assert.Equal(t, 80, seeds[0].Priority)
	assert.Equal(t, 50, seeds[1].Priority)
	assert.True(t, seeds[1].Disabled)
	assert.Equal(t, 100, seeds[2].Priority, "out-of-range priority clamps")
}

func TestLoadXLSX_BadPriority(t *testing.T) {
	path := createSourceXLSX(t, [][]string{
		{"url", "priority"},
		{"https://a.example.com", "high"},
	})
	_, err := LoadXLSX(path)
	assert.Error(t, err)
}

func TestSeed_UpsertsAndDisables(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	n, err := Seed(ctx, st, []SourceSeed{
		{URL: "https://a.example.com", Priority: 70},
		{URL: "https://b.example.com", Priority: 50, Disabled: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	a, err := st.GetSource(ctx, "https://a.example.com")
	require.NoError(t, err)
	assert.Equal(t, 70, a.PriorityScore)
	assert.True(t, a.Enabled)

	b, err := st.GetSource(ctx, "https://b.example.com")
	require.NoError(t, err)
	assert.False(t, b.Enabled)
}
