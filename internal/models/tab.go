package models

// TabKey identifies a tab for the lifetime of the process. Keys start at 1;
// NoTab means there is no tab (for example, no active tab).
type TabKey int64

const NoTab TabKey = 0

// ConnectionRef is a snapshot of the connection a tab belongs to
type ConnectionRef struct {
	ID   int64
	Name string
}

// TabLabel is an opaque presentational descriptor
type TabLabel struct {
	Icon           string
	Title          string
	ConnectionName string
	Color          string
}

// ViewKind tags the content a tab shows
type ViewKind int

const (
	CollectionKind ViewKind = iota
	ClusterKind
	BackupsKind
)

func (k ViewKind) String() string {
	switch k {
	case CollectionKind:
		return "collection"
	case ClusterKind:
		return "cluster"
	case BackupsKind:
		return "backups"
	default:
		return "unknown"
	}
}

// View describes what a tab shows. It is resolved to a renderer by the UI.
type View interface {
	Kind() ViewKind
}

// CollectionView browses the objects of one collection
type CollectionView struct {
	ConnectionID int64
	Collection   string
	MultiTenant  bool
}

func (CollectionView) Kind() ViewKind { return CollectionKind }

// ClusterView shows node status for a connection
type ClusterView struct {
	ConnectionID int64
}

func (ClusterView) Kind() ViewKind { return ClusterKind }

// BackupsView lists backups for a connection
type BackupsView struct {
	ConnectionID int64
	Backend      string
}

func (BackupsView) Kind() ViewKind { return BackupsKind }

// Tab is one open unit of the workspace
type Tab struct {
	Key        TabKey
	Label      TabLabel
	View       View
	Connection *ConnectionRef
	// Name identifies the resource shown, e.g. a collection name
	Name string
}

// ConnectionID returns the id of the referenced connection, if any
func (t Tab) ConnectionID() (int64, bool) {
	if t.Connection == nil {
		return 0, false
	}
	return t.Connection.ID, true
}

// SameResource reports whether t and o show the same thing
func (t Tab) SameResource(o Tab) bool {
	if t.View == nil || o.View == nil || t.View.Kind() != o.View.Kind() || t.Name != o.Name {
		return false
	}
	id, ok := t.ConnectionID()
	oid, ook := o.ConnectionID()
	return ok == ook && id == oid
}

// Clone returns a copy that shares nothing mutable with t
func (t Tab) Clone() Tab {
	out := t
	if t.Connection != nil {
		ref := *t.Connection
		out.Connection = &ref
	}
	return out
}

// TabPatch is merged into the active tab. Nil fields are left alone.
type TabPatch struct {
	Label *TabLabel
	View  View
	Name  *string
}

// Apply merges the patch into t
func (p TabPatch) Apply(t *Tab) {
	if p.Label != nil {
		t.Label = *p.Label
	}
	if p.View != nil {
		t.View = p.View
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
}
