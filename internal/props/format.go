// Package props turns object property values into text for tables and the
// detail pane.
package props

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/natsort"
)

// Format pretty-prints a value. Strings holding JSON are parsed first.
func Format(value any) (string, error) {
	if value == nil {
		return "null", nil
	}

	if s, ok := value.(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			// Plain text
			return s, nil
		}
		value = parsed
	}

	b, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format: %w", err)
	}
	return string(b), nil
}

// Compact renders a value on one line. Strings are shown unquoted and
// nil is shown as an empty cell.
func Compact(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ReplaceAll(v, "\n", " ")
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%g", v)
	case int, int64:
		return fmt.Sprintf("%d", v)
	}

	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(b)
}

// Truncate shortens s to at most maxLen runes, preferring to cut at a
// separator.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string([]rune(s)[:maxLen])
	}

	truncated := string([]rune(s)[:maxLen-3])
	lastGood := strings.LastIndexAny(truncated, " ,{}[]")
	if lastGood > len(truncated)/2 {
		truncated = truncated[:lastGood]
	}
	return truncated + "..."
}

// Columns returns the union of property names over objs in display order
func Columns(objs []models.Object) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, o := range objs {
		for name := range o.Properties {
			if !seen[name] {
				seen[name] = true
				cols = append(cols, name)
			}
		}
	}
	natsort.Strings(cols)
	return cols
}

// Cell renders one property of obj for a table cell
func Cell(obj models.Object, column string, maxLen int) string {
	return Truncate(Compact(obj.Properties[column]), maxLen)
}
