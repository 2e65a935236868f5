package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/props"
)

// Format is an export file format
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
)

// FormatFromPath picks the format from a file extension, defaulting to JSON
func FormatFromPath(path string) Format {
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		return CSV
	}
	return JSON
}

// Objects writes objs to path in the given format
func Objects(objs []models.Object, path string, format Format) error {
	switch format {
	case CSV:
		return ObjectsToCSV(objs, path)
	case JSON:
		return ObjectsToJSON(objs, path)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// ObjectsToCSV exports objects to a CSV file with one column per property
func ObjectsToCSV(objs []models.Object, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)

	columns := props.Columns(objs)
	header := append([]string{"id"}, columns...)
	header = append(header, "created", "updated")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, obj := range objs {
		row := make([]string, 0, len(header))
		row = append(row, obj.ID)
		for _, col := range columns {
			row = append(row, props.Compact(obj.Properties[col]))
		}
		row = append(row, formatUnix(obj.CreatedUnix), formatUnix(obj.UpdatedUnix))

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// formatUnix renders a millisecond timestamp, empty when unset
func formatUnix(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}

// ObjectsToJSON exports objects to a pretty-printed JSON file
func ObjectsToJSON(objs []models.Object, path string) error {
	if objs == nil {
		objs = []models.Object{}
	}
	data, err := json.MarshalIndent(objs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal objects to JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	return nil
}

type connectionsFile struct {
	Connections []models.ConnectionRecord `yaml:"connections"`
}

// ConnectionsToYAML writes saved connections to path. API keys are never
// exported.
func ConnectionsToYAML(recs []models.ConnectionRecord, path string) error {
	out := connectionsFile{Connections: make([]models.ConnectionRecord, 0, len(recs))}
	for _, r := range recs {
		r.ID = 0
		r.APIKey = nil
		out.Connections = append(out.Connections, r)
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal connections: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write connections file: %w", err)
	}
	return nil
}

// ConnectionsFromYAML reads connections written by ConnectionsToYAML.
// Every record is validated; ids are left for the repository to assign.
func ConnectionsFromYAML(path string) ([]models.ConnectionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read connections file: %w", err)
	}

	var in connectionsFile
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse connections file: %w", err)
	}

	for i := range in.Connections {
		in.Connections[i].ID = 0
		if err := in.Connections[i].Validate(); err != nil {
			return nil, fmt.Errorf("connection %d: %w", i+1, err)
		}
	}
	return in.Connections, nil
}
