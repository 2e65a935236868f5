package components

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/ui/theme"
)

func TestConnectionDialog_Submit(t *testing.T) {
	d := NewConnectionDialog(theme.DefaultTheme())
	key := "secret"
	d.Load(models.ConnectionRecord{Name: " local ", URI: "http://localhost:8080", APIKey: &key})
	assert.True(t, d.IsNew())

	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(ConnectionSubmitMsg)
	require.True(t, ok)
	assert.Equal(t, "local", msg.Record.Name)
	require.NotNil(t, msg.Record.APIKey)
	assert.Equal(t, "secret", *msg.Record.APIKey)
}

func TestConnectionDialog_ValidationFocusesField(t *testing.T) {
	d := NewConnectionDialog(theme.DefaultTheme())
	d.Width, d.Height = 70, 20
	d.Load(models.ConnectionRecord{Name: "local", URI: "localhost"})

	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, fieldURI, d.activeField)
	assert.Contains(t, d.View(), "uri must be an http(s) address")
}

func TestConnectionDialog_EditKeepsID(t *testing.T) {
	d := NewConnectionDialog(theme.DefaultTheme())
	d.Width, d.Height = 70, 20
	d.Load(models.ConnectionRecord{ID: 7, Name: "prod", URI: "https://prod.example.com", Color: "red"})
	assert.False(t, d.IsNew())
	assert.Contains(t, d.View(), "Edit Connection")

	rec, err := d.Record()
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, "red", rec.Color)
	assert.Nil(t, rec.APIKey)
}

func TestConnectionDialog_TestAndCancel(t *testing.T) {
	d := NewConnectionDialog(theme.DefaultTheme())
	d.Load(models.ConnectionRecord{Name: "local", URI: "http://localhost:8080"})

	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	require.NotNil(t, cmd)
	assert.Equal(t, ConnectionTestMsg{URI: "http://localhost:8080"}, cmd())

	_, cmd = d.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, ConnectionCancelMsg{}, cmd())
}

func TestConnectionDialog_RemoteErrorShownAsStatus(t *testing.T) {
	d := NewConnectionDialog(theme.DefaultTheme())
	d.Width, d.Height = 70, 20
	d.Load(models.ConnectionRecord{Name: "local", URI: "http://localhost:8080"})

	d.SetError(errors.New("connection refused"))
	assert.Contains(t, d.View(), "connection refused")

	d.SetError(nil)
	assert.NotContains(t, d.View(), "connection refused")
}

func TestConnectionDialog_FieldCycling(t *testing.T) {
	d := NewConnectionDialog(theme.DefaultTheme())
	d.Load(models.ConnectionRecord{})

	d.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldURI, d.activeField)

	d.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	d.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, fieldColor, d.activeField)
}
