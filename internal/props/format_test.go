package props

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/lazyweave/internal/models"
)

func TestFormat(t *testing.T) {
	out, err := Format(map[string]any{"title": "Go", "tags": []any{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"tags\": [\n    \"a\",\n    \"b\"\n  ],\n  \"title\": \"Go\"\n}", out)

	out, err = Format(`{"n":1}`)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"n\": 1\n}", out)

	out, err = Format("plain text")
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	out, err = Format(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", out)
}

func TestCompact(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "two\nlines", "two lines"},
		{"bool", true, "true"},
		{"float", 3.5, "3.5"},
		{"integral float", float64(42), "42"},
		{"int", 7, "7"},
		{"array", []any{"a", 1.0}, `["a",1]`},
		{"object", map[string]any{"lat": 1.5}, `{"lat":1.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compact(tt.value))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "no limit", Truncate("no limit", 0))
	assert.Equal(t, "hello...", Truncate("hello world again", 12))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "日本語...", Truncate("日本語のテキストです", 6))
}

func TestColumns(t *testing.T) {
	objs := []models.Object{
		{ID: "1", Properties: map[string]any{"title": "a", "field10": 1}},
		{ID: "2", Properties: map[string]any{"field2": 2, "Author": "x"}},
		{ID: "3"},
	}
	assert.Equal(t, []string{"Author", "field2", "field10", "title"}, Columns(objs))
	assert.Empty(t, Columns(nil))
}

func TestCell(t *testing.T) {
	obj := models.Object{ID: "1", Properties: map[string]any{"body": "a long body of text"}}
	assert.Equal(t, "a long...", Cell(obj, "body", 10))
	assert.Equal(t, "", Cell(obj, "missing", 10))
}
