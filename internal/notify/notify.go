// Package notify delivers user-facing notifications (the toasts of a speech
// session) to one or more sinks.
package notify

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"speech-translate-service/internal/observability/metrics"
)

// Level is the severity shown to the user.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event identifies what happened.
type Event string

const (
	EventListening         Event = "listening"
	EventRecognized        Event = "recognized"
	EventStopped           Event = "stopped"
	EventUnsupported       Event = "unsupported"
	EventStartFailed       Event = "start-failed"
	EventPermissionDenied  Event = "permission-denied"
	EventPermissionHelp    Event = "permission-help"
	EventNoSpeech          Event = "no-speech"
	EventDeviceUnavailable Event = "device-unavailable"
	EventNetwork           Event = "network"
	EventServiceDisallowed Event = "service-disallowed"
	EventAborted           Event = "aborted"
	EventOther             Event = "other"
)

// Notification is one message for the user.
type Notification struct {
	Level     Level  `json:"level"`
	Event     Event  `json:"event"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// Notifier receives notifications. Implementations must not block for long;
// they are called from recognition callbacks.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to the Notifier interface.
type Func func(n Notification)

func (f Func) Notify(n Notification) { f(n) }

// Log writes notifications to the structured logger and counts them.
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a log sink using the global logger.
func NewLog() *Log {
	return &Log{logger: log.With().Str("component", "notify").Logger()}
}

func (l *Log) Notify(n Notification) {
	metrics.DefaultMetrics.RecordNotification(string(n.Level), string(n.Event))

	var ev *zerolog.Event
	switch n.Level {
	case LevelError:
		ev = l.logger.Error()
	case LevelWarning:
		ev = l.logger.Warn()
	default:
		ev = l.logger.Info()
	}
	ev.Str("level_ui", string(n.Level)).
		Str("event", string(n.Event)).
		Str("sessionId", n.SessionID).
		Msg(n.Message)
}

// Multi fans a notification out to every sink in order.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, s := range m {
		if s != nil {
			s.Notify(n)
		}
	}
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Events returns the recorded event names in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.items))
	for i, n := range r.items {
		out[i] = n.Event
	}
	return out
}

// Reset drops recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
