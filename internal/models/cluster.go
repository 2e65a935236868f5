package models

import "time"

// Node is the status of a single cluster node
type Node struct {
	Name        string
	Status      string
	Version     string
	GitHash     string
	ObjectCount int64
	ShardCount  int64
}

// BackupStatus values reported by the server
const (
	BackupStarted      = "STARTED"
	BackupTransferring = "TRANSFERRING"
	BackupTransferred  = "TRANSFERRED"
	BackupSuccess      = "SUCCESS"
	BackupFailed       = "FAILED"
	BackupCanceled     = "CANCELED"
)

// Backup describes a backup on a backend
type Backup struct {
	ID          string
	Backend     string
	Status      string
	Path        string
	Collections []string
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
}

// Done reports whether the backup reached a terminal state
func (b Backup) Done() bool {
	switch b.Status {
	case BackupSuccess, BackupFailed, BackupCanceled:
		return true
	}
	return false
}
