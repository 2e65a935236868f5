package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionRecord_Validate(t *testing.T) {
	key := "secret"
	blank := "  "

	tests := []struct {
		name  string
		rec   ConnectionRecord
		field string
	}{
		{"valid", ConnectionRecord{Name: "local", URI: "http://localhost:8080"}, ""},
		{"valid with key", ConnectionRecord{Name: "cloud", URI: "https://x.weaviate.cloud", APIKey: &key}, ""},
		{"missing name", ConnectionRecord{URI: "http://localhost:8080"}, "name"},
		{"missing uri", ConnectionRecord{Name: "local"}, "uri"},
		{"bad scheme", ConnectionRecord{Name: "local", URI: "grpc://localhost:50051"}, "uri"},
		{"blank key", ConnectionRecord{Name: "local", URI: "http://localhost:8080", APIKey: &blank}, "api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			if assert.ErrorAs(t, err, &verr) {
				assert.Equal(t, tt.field, verr.Field)
			}
			assert.True(t, IsValidation(err))
		})
	}
}

func TestPaginationState_Pages(t *testing.T) {
	s := NewPaginationState(25)
	assert.Equal(t, 1, s.CurrentPage())
	assert.Equal(t, 0, s.TotalPages(), "unknown total has no pages")

	s.Total, s.TotalKnown = 120, true
	assert.Equal(t, 5, s.TotalPages())

	s.Total = 125
	assert.Equal(t, 5, s.TotalPages())

	s.Total = 126
	assert.Equal(t, 6, s.TotalPages())

	s.Cursors = []string{"a", "b"}
	assert.Equal(t, 3, s.CurrentPage())
	assert.Equal(t, "b", s.LastCursor())
}

func TestTab_SameResource(t *testing.T) {
	a := Tab{View: CollectionView{ConnectionID: 1, Collection: "Books"}, Connection: &ConnectionRef{ID: 1}, Name: "Books"}
	b := Tab{View: CollectionView{ConnectionID: 1, Collection: "Books"}, Connection: &ConnectionRef{ID: 1, Name: "renamed"}, Name: "Books"}
	c := Tab{View: CollectionView{ConnectionID: 2, Collection: "Books"}, Connection: &ConnectionRef{ID: 2}, Name: "Books"}
	d := Tab{View: ClusterView{ConnectionID: 1}, Connection: &ConnectionRef{ID: 1}, Name: "Books"}

	assert.True(t, a.SameResource(b))
	assert.False(t, a.SameResource(c))
	assert.False(t, a.SameResource(d))
}

func TestConnection_CloneIsDeep(t *testing.T) {
	key := "k"
	c := Connection{
		ConnectionRecord: ConnectionRecord{ID: 1, APIKey: &key},
		Collections:      []Collection{{Name: "A"}},
		ActiveRestore:    &RestoreDescriptor{Backend: "filesystem", BackupID: "b1"},
	}

	cp := c.Clone()
	cp.Collections[0].Name = "B"
	*cp.APIKey = "changed"
	cp.ActiveRestore.BackupID = "b2"

	assert.Equal(t, "A", c.Collections[0].Name)
	assert.Equal(t, "k", *c.APIKey)
	assert.Equal(t, "b1", c.ActiveRestore.BackupID)
}
