package models

import (
	"net/url"
	"strings"
)

// ConnectionStatus represents the live state of a connection
type ConnectionStatus int

const (
	Disconnected ConnectionStatus = iota
	Connecting
	Connected
)

func (s ConnectionStatus) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// ConnectionRecord is the persisted part of a connection
type ConnectionRecord struct {
	ID       int64   `yaml:"id,omitempty"`
	URI      string  `yaml:"uri"`
	Name     string  `yaml:"name"`
	Favorite bool    `yaml:"favorite"`
	APIKey   *string `yaml:"-"`
	Color    string  `yaml:"color,omitempty"`
}

// Validate checks the fields a user fills in on the connection form
func (r ConnectionRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Message: "name cannot be empty"}
	}
	if strings.TrimSpace(r.URI) == "" {
		return &ValidationError{Field: "uri", Message: "uri cannot be empty"}
	}
	u, err := url.Parse(r.URI)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{Field: "uri", Message: "uri must be an http(s) address"}
	}
	if r.APIKey != nil && strings.TrimSpace(*r.APIKey) == "" {
		return &ValidationError{Field: "api_key", Message: "api key cannot be blank"}
	}
	return nil
}

// Collection is a resolved child resource of a connected instance
type Collection struct {
	Name        string
	MultiTenant bool
}

// RestoreDescriptor describes a backup restore that is currently running
type RestoreDescriptor struct {
	Backend  string
	BackupID string
}

// Connection is a saved connection plus its runtime state.
// Collections is only populated while Status is Connected.
type Connection struct {
	ConnectionRecord

	Status        ConnectionStatus
	Collections   []Collection
	BackupModules []string
	UsersEnabled  bool

	// Ephemeral, never persisted
	Healthy          bool
	BackupInProgress bool
	ActiveRestore    *RestoreDescriptor
}

// Clone returns a deep copy so callers can't mutate registry state
func (c Connection) Clone() Connection {
	out := c
	if c.APIKey != nil {
		key := *c.APIKey
		out.APIKey = &key
	}
	if c.Collections != nil {
		out.Collections = append([]Collection(nil), c.Collections...)
	}
	if c.BackupModules != nil {
		out.BackupModules = append([]string(nil), c.BackupModules...)
	}
	if c.ActiveRestore != nil {
		r := *c.ActiveRestore
		out.ActiveRestore = &r
	}
	return out
}

// Collection looks up a resolved collection by name
func (c Connection) Collection(name string) (Collection, bool) {
	for _, col := range c.Collections {
		if col.Name == name {
			return col, true
		}
	}
	return Collection{}, false
}

// ConnectionPatch carries ephemeral UI-only fields. Nil fields are left alone.
type ConnectionPatch struct {
	BackupInProgress *bool
	ActiveRestore    *RestoreDescriptor
	ClearRestore     bool
	Healthy          *bool
}

// Apply merges the patch into c
func (p ConnectionPatch) Apply(c *Connection) {
	if p.BackupInProgress != nil {
		c.BackupInProgress = *p.BackupInProgress
	}
	if p.ClearRestore {
		c.ActiveRestore = nil
	}
	if p.ActiveRestore != nil {
		r := *p.ActiveRestore
		c.ActiveRestore = &r
	}
	if p.Healthy != nil {
		c.Healthy = *p.Healthy
	}
}
