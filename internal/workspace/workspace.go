package workspace

import (
	"log/slog"
	"sync"

	"github.com/rebeliceyang/lazyweave/internal/models"
)

// Workspace is the ordered set of open tabs and the active-tab pointer.
// It is safe for concurrent use. Every method that changes state does so
// in a single critical section, so a reader never observes an active key
// that doesn't belong to an open tab.
type Workspace struct {
	mu      sync.RWMutex
	tabs    []models.Tab
	active  models.TabKey
	lastKey models.TabKey
	log     *slog.Logger
}

// New creates an empty workspace
func New(log *slog.Logger) *Workspace {
	if log == nil {
		log = slog.Default()
	}
	return &Workspace{log: log.With("component", "workspace")}
}

// Add appends tab, makes it active and returns its key. Any key already set
// on tab is ignored.
func (w *Workspace) Add(tab models.Tab) models.TabKey {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.add(tab)
}

func (w *Workspace) add(tab models.Tab) models.TabKey {
	w.lastKey++
	t := tab.Clone()
	t.Key = w.lastKey
	w.tabs = append(w.tabs, t)
	w.active = t.Key
	w.log.Debug("tab added", "key", t.Key, "kind", viewKind(t), "name", t.Name)
	return t.Key
}

// Open activates an existing tab showing the same resource, or adds a new one.
// The returned bool is true when a new tab was created.
func (w *Workspace) Open(tab models.Tab) (models.TabKey, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range w.tabs {
		if t.SameResource(tab) {
			w.active = t.Key
			return t.Key, false
		}
	}
	return w.add(tab), true
}

// Remove closes the tab with key. If it was active, the last remaining tab
// becomes active. Unknown keys are ignored.
func (w *Workspace) Remove(key models.TabKey) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.removeWhere(func(t models.Tab) bool { return t.Key == key }) > 0
}

// RemoveByConnection closes every tab referencing connection id and returns
// how many were closed. Order of the remaining tabs is unchanged.
func (w *Workspace) RemoveByConnection(id int64) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.removeWhere(func(t models.Tab) bool {
		cid, ok := t.ConnectionID()
		return ok && cid == id
	})
	if n > 0 {
		w.log.Debug("tabs removed by connection", "connection_id", id, "count", n)
	}
	return n
}

// RemoveByResource closes tabs of connection id showing the named resource
// of the given kind, e.g. after a collection was deleted.
func (w *Workspace) RemoveByResource(id int64, kind models.ViewKind, name string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.removeWhere(func(t models.Tab) bool {
		cid, ok := t.ConnectionID()
		return ok && cid == id && t.View != nil && t.View.Kind() == kind && t.Name == name
	})
}

// removeWhere filters tabs in place and reassigns the active pointer once.
// Caller must hold the write lock.
func (w *Workspace) removeWhere(match func(models.Tab) bool) int {
	kept := w.tabs[:0]
	removed := 0
	activeRemoved := false
	for _, t := range w.tabs {
		if match(t) {
			removed++
			if t.Key == w.active {
				activeRemoved = true
			}
			continue
		}
		kept = append(kept, t)
	}
	// Clear the tail so dropped tabs can be collected
	for i := len(kept); i < len(w.tabs); i++ {
		w.tabs[i] = models.Tab{}
	}
	w.tabs = kept

	if activeRemoved {
		if len(w.tabs) == 0 {
			w.active = models.NoTab
		} else {
			w.active = w.tabs[len(w.tabs)-1].Key
		}
	}
	return removed
}

// UpdateByConnection rewrites the label of every tab referencing connection id.
// Keys and positions are untouched.
func (w *Workspace) UpdateByConnection(id int64, name, color string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := 0
	for i := range w.tabs {
		t := &w.tabs[i]
		cid, ok := t.ConnectionID()
		if !ok || cid != id {
			continue
		}
		t.Connection.Name = name
		t.Label.ConnectionName = name
		t.Label.Color = color
		n++
	}
	return n
}

// UpdateActiveTab merges patch into the active tab. It reports false when
// there is no active tab.
func (w *Workspace) UpdateActiveTab(patch models.TabPatch) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexOf(w.active)
	if i < 0 {
		return false
	}
	patch.Apply(&w.tabs[i])
	return true
}

// SetActive moves the active pointer to key if that tab is open
func (w *Workspace) SetActive(key models.TabKey) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.indexOf(key) < 0 {
		return false
	}
	w.active = key
	return true
}

// Cycle activates the tab delta positions away from the active one, wrapping
func (w *Workspace) Cycle(delta int) models.TabKey {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.tabs) == 0 {
		return models.NoTab
	}
	i := w.indexOf(w.active)
	if i < 0 {
		i = 0
	}
	n := len(w.tabs)
	i = ((i+delta)%n + n) % n
	w.active = w.tabs[i].Key
	return w.active
}

// Reorder moves the tab movedKey to the position currently held by targetKey
func (w *Workspace) Reorder(movedKey, targetKey models.TabKey) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	from := w.indexOf(movedKey)
	to := w.indexOf(targetKey)
	if from < 0 || to < 0 {
		return false
	}
	if from == to {
		return true
	}

	moved := w.tabs[from]
	if from < to {
		copy(w.tabs[from:to], w.tabs[from+1:to+1])
	} else {
		copy(w.tabs[to+1:from+1], w.tabs[to:from])
	}
	w.tabs[to] = moved
	return true
}

// Active returns the active key, NoTab when the workspace is empty
func (w *Workspace) Active() models.TabKey {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.active
}

// GetActiveTab returns a copy of the active tab
func (w *Workspace) GetActiveTab() (models.Tab, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	i := w.indexOf(w.active)
	if i < 0 {
		return models.Tab{}, false
	}
	return w.tabs[i].Clone(), true
}

// Get returns a copy of the tab with key
func (w *Workspace) Get(key models.TabKey) (models.Tab, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	i := w.indexOf(key)
	if i < 0 {
		return models.Tab{}, false
	}
	return w.tabs[i].Clone(), true
}

// Tabs returns a snapshot of the open tabs in order
func (w *Workspace) Tabs() []models.Tab {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]models.Tab, len(w.tabs))
	for i, t := range w.tabs {
		out[i] = t.Clone()
	}
	return out
}

func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.tabs)
}

func (w *Workspace) indexOf(key models.TabKey) int {
	if key == models.NoTab {
		return -1
	}
	for i, t := range w.tabs {
		if t.Key == key {
			return i
		}
	}
	return -1
}

func viewKind(t models.Tab) string {
	if t.View == nil {
		return "none"
	}
	return t.View.Kind().String()
}
