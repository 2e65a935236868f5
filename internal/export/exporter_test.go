package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/lazyweave/internal/models"
)

func testObjects() []models.Object {
	return []models.Object{
		{
			ID:          "0f1c2a6e-0000-4000-8000-000000000001",
			Collection:  "Articles",
			CreatedUnix: 1704110400000,
			Properties: map[string]any{
				"title": "Commas, quotes \"and\" special chars",
				"words": float64(1200),
			},
		},
		{
			ID:         "0f1c2a6e-0000-4000-8000-000000000002",
			Collection: "Articles",
			Properties: map[string]any{
				"title": "Second",
				"tags":  []any{"go", "tui"},
			},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return records
}

func TestObjectsToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objects.csv")

	require.NoError(t, ObjectsToCSV(testObjects(), path))

	records := readCSV(t, path)
	require.Len(t, records, 3) // header + 2 rows

	assert.Equal(t, []string{"id", "tags", "title", "words", "created", "updated"}, records[0])
	assert.Equal(t, []string{
		"0f1c2a6e-0000-4000-8000-000000000001",
		"",
		"Commas, quotes \"and\" special chars",
		"1200",
		"2024-01-01 12:00:00",
		"",
	}, records[1])
	assert.Equal(t, `["go","tui"]`, records[2][1])
}

func TestObjectsToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objects.json")

	require.NoError(t, ObjectsToJSON(testObjects(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "\n  "), "JSON should be indented")

	var parsed []models.Object
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.Len(t, parsed, 2)
	assert.Equal(t, "Second", parsed[1].Properties["title"])
	assert.Equal(t, int64(1704110400000), parsed[0].CreatedUnix)
}

func TestExportEmptyPage(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "empty.csv")
	require.NoError(t, Objects(nil, csvPath, CSV))
	assert.Len(t, readCSV(t, csvPath), 1)

	jsonPath := filepath.Join(dir, "empty.json")
	require.NoError(t, Objects(nil, jsonPath, JSON))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	assert.Error(t, Objects(nil, filepath.Join(dir, "x.xml"), Format("xml")))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, CSV, FormatFromPath("/tmp/page.CSV"))
	assert.Equal(t, JSON, FormatFromPath("/tmp/page.json"))
	assert.Equal(t, JSON, FormatFromPath("page"))
}

func TestConnectionsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.yaml")
	key := "secret"
	recs := []models.ConnectionRecord{
		{ID: 3, Name: "prod", URI: "https://prod.example.com", Favorite: true, APIKey: &key, Color: "red"},
		{ID: 7, Name: "local", URI: "http://localhost:8080"},
	}

	require.NoError(t, ConnectionsToYAML(recs, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, string(data), "id:")

	got, err := ConnectionsFromYAML(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.ConnectionRecord{Name: "prod", URI: "https://prod.example.com", Favorite: true, Color: "red"}, got[0])
	assert.Equal(t, "local", got[1].Name)
	assert.Nil(t, got[1].APIKey)

	// The caller's records are untouched
	assert.Equal(t, int64(3), recs[0].ID)
	assert.NotNil(t, recs[0].APIKey)
}

func TestConnectionsFromYAML_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connections:\n  - name: broken\n    uri: ftp://nowhere\n"), 0600))

	_, err := ConnectionsFromYAML(path)
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	_, err = ConnectionsFromYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
