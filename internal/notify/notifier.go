// Package notify is the transient notification channel shown in the status
// area, plus small self-clearing flags used by views.
package notify

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rebeliceyang/lazyweave/internal/models"
)

type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

type Notification struct {
	ID        string
	Level     Level
	Message   string
	CreatedAt time.Time
}

// ErrValidation is returned when asked to publish a form validation error
var ErrValidation = errors.New("validation errors belong to their form")

// Notifier holds visible notifications and dismisses each after ttl
type Notifier struct {
	mu       sync.Mutex
	items    []Notification
	timers   map[string]*time.Timer
	ttl      time.Duration
	closed   bool
	onChange func()
	log      *slog.Logger
}

func New(ttl time.Duration, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		timers: make(map[string]*time.Timer),
		ttl:    ttl,
		log:    log.With("component", "notify"),
	}
}

// OnChange registers fn to be called whenever the visible set changes.
// fn is called without the notifier lock held.
func (n *Notifier) OnChange(fn func()) {
	n.mu.Lock()
	n.onChange = fn
	n.mu.Unlock()
}

// SetTTL changes the lifetime of notifications published from now on
func (n *Notifier) SetTTL(ttl time.Duration) {
	n.mu.Lock()
	n.ttl = ttl
	n.mu.Unlock()
}

// Publish shows message and returns its id. Nothing is shown after Close.
func (n *Notifier) Publish(level Level, message string) string {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return ""
	}
	item := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}
	n.items = append(n.items, item)
	if n.ttl > 0 {
		id := item.ID
		n.timers[id] = time.AfterFunc(n.ttl, func() { n.Dismiss(id) })
	}
	onChange := n.onChange
	n.mu.Unlock()

	n.log.Debug("notification", "level", level.String(), "message", message)
	if onChange != nil {
		onChange()
	}
	return item.ID
}

// PublishError shows err. Validation errors are refused: they are shown
// next to the form field they belong to.
func (n *Notifier) PublishError(err error) (string, error) {
	if err == nil {
		return "", nil
	}
	if models.IsValidation(err) {
		return "", ErrValidation
	}
	return n.Publish(Error, err.Error()), nil
}

// Dismiss removes a notification and cancels its timer
func (n *Notifier) Dismiss(id string) {
	n.mu.Lock()
	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	removed := false
	for i, item := range n.items {
		if item.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			removed = true
			break
		}
	}
	onChange := n.onChange
	n.mu.Unlock()

	if removed && onChange != nil {
		onChange()
	}
}

// List returns visible notifications, oldest first
func (n *Notifier) List() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.items...)
}

// Latest returns the newest notification
func (n *Notifier) Latest() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.items) == 0 {
		return Notification{}, false
	}
	return n.items[len(n.items)-1], true
}

// Close cancels every pending timer and clears the list
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
	n.items = nil
	n.closed = true
}
