// Package speech implements the speech capture state machine: it drives one
// recognizer session at a time, handles microphone permission, and hands
// each final transcript to the caller once per turn.
package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"speech-translate-service/internal/notify"
	"speech-translate-service/internal/observability/logging"
	"speech-translate-service/internal/observability/metrics"
	"speech-translate-service/internal/service/speech/turn"
	"speech-translate-service/internal/service/stt"
)

// Transcript is a final transcript delivered to the caller.
type Transcript struct {
	SessionID string
	TurnID    string
	Text      string
}

// AudioLimits bounds the audio accepted for one recognizer session.
// Zero values disable a limit.
type AudioLimits struct {
	MaxBytes    int64
	MaxDuration time.Duration
}

// Options configures a Machine. Only Recognizer is required for a working
// machine; a nil Recognizer yields StateUnsupported.
type Options struct {
	SessionID   string
	Recognizer  stt.Recognizer
	Permissions stt.PermissionQuerier
	Media       stt.MediaAccess
	Notifier    notify.Notifier
	Session     stt.SessionConfig
	Limits      AudioLimits
	Metrics     *metrics.Metrics

	OnTranscript  func(Transcript)
	OnStateChange func(Status)
}

// Machine is the capture state machine. It is safe for concurrent use.
type Machine struct {
	opts    Options
	log     zerolog.Logger
	metrics *metrics.Metrics
	turns  *turn.Generator
	notify notify.Notifier

	mu         sync.Mutex
	state      State
	kind       ErrorKind
	permission stt.Permission
	current    *sessionListener
	starting   bool
	closed     bool

	// deliverMu serializes result passes across sessions.
	deliverMu sync.Mutex
}

// New builds a machine, probing the recognizer capability and the current
// microphone permission. A failing permission query leaves it at prompt.
func New(ctx context.Context, opts Options) *Machine {
	if opts.Notifier == nil {
		opts.Notifier = notify.Func(func(notify.Notification) {})
	}
	if opts.Session == (stt.SessionConfig{}) {
		opts.Session = stt.DefaultSessionConfig()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.DefaultMetrics
	}

	m := &Machine{
		opts:       opts,
		log:        logging.WithSession(opts.SessionID),
		metrics:    opts.Metrics,
		turns:      turn.NewGenerator(),
		notify:     opts.Notifier,
		state:      StateIdle,
		permission: stt.PermissionPrompt,
	}

	if opts.Recognizer == nil {
		m.state = StateUnsupported
		m.log.Warn().Msg("No speech recognizer available")
		m.emit(notify.LevelError, notify.EventUnsupported, msgUnsupported)
		return m
	}

	if opts.Permissions != nil {
		status, err := opts.Permissions.QueryMicrophone(ctx)
		if err != nil {
			m.log.Warn().Err(err).Msg("Could not check microphone permission")
		} else if status != nil {
			m.permission = status.State()
			status.OnChange(m.SetPermission)
		}
	}

	m.log.Debug().Str("permission", string(m.permission)).Msg("Capture machine initialized")
	return m
}

// Status returns a snapshot of the machine.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Machine) statusLocked() Status {
	s := Status{State: m.state, Permission: m.permission}
	if m.state == StateError {
		s.Error = m.kind
	}
	return s
}

// Start begins a recognition session. It is a no-op while a session is
// starting or listening.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state == StateUnsupported {
		m.mu.Unlock()
		m.emit(notify.LevelError, notify.EventUnsupported, msgUnsupported)
		return ErrUnsupported
	}
	if m.permission == stt.PermissionDenied {
		m.mu.Unlock()
		m.metrics.RecordPermissionDenied()
		m.emit(notify.LevelError, notify.EventPermissionDenied, msgDeniedAtStart)
		return ErrPermissionDenied
	}
	if m.starting || m.current != nil {
		m.mu.Unlock()
		return nil
	}
	m.starting = true
	needMedia := m.permission != stt.PermissionGranted && m.opts.Media != nil
	if needMedia {
		m.state = StateRequestingPermission
	}
	status := m.statusLocked()
	m.mu.Unlock()

	if needMedia {
		m.stateChanged(status)
		if err := m.opts.Media.RequestMicrophone(ctx); err != nil {
			m.mu.Lock()
			m.starting = false
			m.permission = stt.PermissionDenied
			m.state, m.kind = StateError, KindPermissionDenied
			status = m.statusLocked()
			m.mu.Unlock()

			m.log.Warn().Err(err).Msg("Microphone permission rejected")
			m.metrics.RecordPermissionDenied()
			m.stateChanged(status)
			m.emit(notify.LevelError, notify.EventPermissionDenied, msgDeniedOnRequest)
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		m.mu.Lock()
		m.permission = stt.PermissionGranted
		if m.closed {
			m.starting = false
			m.mu.Unlock()
			return ErrClosed
		}
		m.mu.Unlock()
	}

	session, err := m.opts.Recognizer.NewSession()
	if err != nil {
		return m.startFailed(nil, err)
	}
	l := &sessionListener{
		m:       m,
		session: session,
		turn:    turn.NewLifecycle(m.turns.Next(m.opts.SessionID)),
	}
	session.Configure(m.opts.Session)
	session.Subscribe(l)

	m.mu.Lock()
	if m.closed {
		m.starting = false
		m.mu.Unlock()
		return ErrClosed
	}
	m.current = l
	m.mu.Unlock()

	if err := session.Start(ctx); err != nil {
		return m.startFailed(l, err)
	}
	return nil
}

func (m *Machine) startFailed(l *sessionListener, err error) error {
	m.mu.Lock()
	if l == nil || m.current == l {
		m.current = nil
		m.starting = false
		m.state = StateIdle
	}
	status := m.statusLocked()
	m.mu.Unlock()

	if l != nil {
		l.turn.Abort()
	}
	m.log.Error().Err(err).Msg("Failed to start speech recognition")
	m.stateChanged(status)
	m.emit(notify.LevelError, notify.EventStartFailed, msgStartFailed)
	return fmt.Errorf("start recognition: %w", err)
}

// Stop asks the active session to stop. It is a no-op unless listening.
// Results the stopped session delivers while winding down still reach the
// transcript callback.
func (m *Machine) Stop() error {
	m.mu.Lock()
	if m.state != StateListening || m.current == nil {
		m.mu.Unlock()
		return nil
	}
	l := m.current
	m.current = nil
	m.state = StateIdle
	status := m.statusLocked()
	m.mu.Unlock()

	err := l.session.Stop()
	if err != nil {
		m.log.Warn().Err(err).Msg("Recognizer stop failed")
	}
	m.stateChanged(status)
	m.emit(notify.LevelInfo, notify.EventStopped, msgStopped)
	return err
}

// Close forcibly terminates any active session. Further Start calls fail.
func (m *Machine) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	l := m.current
	m.current = nil
	m.starting = false
	if m.state == StateListening || m.state == StateRequestingPermission {
		m.state = StateIdle
	}
	m.mu.Unlock()

	if l == nil {
		return nil
	}
	l.turn.Abort()
	if a, ok := l.session.(stt.Aborter); ok {
		return a.Abort()
	}
	return l.session.Stop()
}

// SetPermission records an external permission change. Leaving denied clears
// a permission-denied error.
func (m *Machine) SetPermission(p stt.Permission) {
	m.mu.Lock()
	prev := m.permission
	m.permission = p
	if prev == stt.PermissionDenied && p != stt.PermissionDenied &&
		m.state == StateError && m.kind == KindPermissionDenied {
		m.state, m.kind = StateIdle, ""
	}
	status := m.statusLocked()
	m.mu.Unlock()

	if prev != p {
		m.log.Info().Str("from", string(prev)).Str("to", string(p)).Msg("Microphone permission changed")
		m.stateChanged(status)
	}
}

// PermissionHelp emits guidance on re-enabling the microphone.
func (m *Machine) PermissionHelp() {
	m.emit(notify.LevelInfo, notify.EventPermissionHelp, msgPermissionHelp)
}

// SendAudio forwards an audio frame to the active session when its backend
// consumes pushed audio. Exceeding the audio limits aborts the session.
func (m *Machine) SendAudio(ctx context.Context, frame []byte) error {
	m.mu.Lock()
	l := m.current
	if l == nil || m.state != StateListening {
		m.mu.Unlock()
		return nil
	}
	sink, ok := l.session.(stt.AudioSink)
	if !ok {
		m.mu.Unlock()
		return nil
	}
	if l.firstAudio.IsZero() {
		l.firstAudio = time.Now()
	}
	l.audioBytes += int64(len(frame))
	received := l.audioBytes
	limit := ""
	switch lim := m.opts.Limits; {
	case lim.MaxBytes > 0 && received > lim.MaxBytes:
		limit = "bytes"
	case lim.MaxDuration > 0 && time.Since(l.firstAudio) > lim.MaxDuration:
		limit = "duration"
	}
	m.mu.Unlock()

	if limit != "" {
		m.metrics.RecordLimitExceeded(limit)
		m.log.Warn().Str("limit", limit).Int64("bytes", received).Msg("Audio limit exceeded, aborting session")
		l.fail(stt.CodeAborted)
		if err := l.session.Stop(); err != nil {
			m.log.Warn().Err(err).Msg("Recognizer stop failed")
		}
		return ErrAudioLimitExceeded
	}

	m.metrics.RecordAudioReceived(len(frame))
	return sink.SendAudio(ctx, frame)
}

func (m *Machine) emit(level notify.Level, event notify.Event, msg string) {
	m.notify.Notify(notify.Notification{Level: level, Event: event, Message: msg, SessionID: m.opts.SessionID})
}

func (m *Machine) stateChanged(s Status) {
	if m.opts.OnStateChange != nil {
		m.opts.OnStateChange(s)
	}
}

// sessionListener receives the events of one recognizer session. Events
// from a session that is no longer current do not change machine state.
type sessionListener struct {
	m       *Machine
	session stt.Session
	turn    *turn.Lifecycle

	// guarded by m.mu
	started    bool
	failed     bool
	audioBytes int64
	firstAudio time.Time
}

func (l *sessionListener) OnStart() {
	m := l.m
	m.mu.Lock()
	if m.current != l {
		m.mu.Unlock()
		return
	}
	l.started = true
	m.starting = false
	m.state, m.kind = StateListening, ""
	status := m.statusLocked()
	m.mu.Unlock()

	m.metrics.RecordSessionStart()
	m.log.Info().Str("turnId", l.turn.TurnID()).Msg("Listening")
	m.stateChanged(status)
	m.emit(notify.LevelInfo, notify.EventListening, msgListening)
}

func (l *sessionListener) OnResult(ev stt.ResultEvent) {
	m := l.m
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	var final, interim strings.Builder
	for i := ev.ResultIndex; i < len(ev.Results); i++ {
		r := ev.Results[i]
		if len(r.Alternatives) == 0 {
			continue
		}
		if r.Final {
			final.WriteString(r.Alternatives[0].Transcript)
		} else {
			interim.WriteString(r.Alternatives[0].Transcript)
		}
	}
	if interim.Len() > 0 {
		m.metrics.RecordInterimResult()
	}

	text := strings.TrimSpace(final.String())
	if text == "" {
		return
	}
	turnID := l.turn.TurnID()
	if !l.turn.CanDeliverFinal() {
		m.log.Debug().Str("turnId", turnID).Stringer("turnState", l.turn.State()).Msg("Turn not open, dropping final transcript")
		return
	}
	if err := l.turn.DeliverFinal(); err != nil {
		m.log.Debug().Err(err).Str("turnId", turnID).Msg("Dropping final transcript")
		return
	}
	m.mu.Lock()
	closed := m.closed
	continuous := m.opts.Session.Continuous
	m.mu.Unlock()
	if closed {
		return
	}
	if continuous {
		l.turn.Reset(m.turns.Next(m.opts.SessionID))
	}

	m.metrics.RecordFinalTranscript()
	m.log.Info().Str("turnId", turnID).Int("chars", len(text)).Msg("Final transcript")
	if m.opts.OnTranscript != nil {
		m.opts.OnTranscript(Transcript{SessionID: m.opts.SessionID, TurnID: turnID, Text: text})
	}
	m.emit(notify.LevelSuccess, notify.EventRecognized, msgRecognized)
}

func (l *sessionListener) OnError(code stt.ErrorCode) {
	l.fail(code)
}

// fail applies an error code once per session.
func (l *sessionListener) fail(code stt.ErrorCode) {
	m := l.m
	kind, n := classify(code)

	m.mu.Lock()
	if l.failed {
		m.mu.Unlock()
		return
	}
	l.failed = true
	current := m.current == l
	if current {
		m.current = nil
		m.starting = false
		m.state, m.kind = StateError, kind
		if code == stt.CodeNotAllowed {
			m.permission = stt.PermissionDenied
		}
	}
	status := m.statusLocked()
	m.mu.Unlock()

	l.turn.Abort()
	m.metrics.RecordRecognitionError(string(kind))
	if !current {
		m.log.Debug().Str("code", string(code)).Msg("Ignoring error from inactive session")
		return
	}
	m.log.Warn().Str("code", string(code)).Str("kind", string(kind)).Msg("Speech recognition error")
	m.stateChanged(status)
	n.SessionID = m.opts.SessionID
	m.notify.Notify(n)
}

func (l *sessionListener) OnEnd() {
	m := l.m
	l.turn.Close()

	m.mu.Lock()
	started := l.started
	l.started = false
	changed := false
	if m.current == l {
		m.current = nil
		m.starting = false
		if m.state == StateListening || m.state == StateRequestingPermission {
			m.state = StateIdle
			changed = true
		}
	}
	status := m.statusLocked()
	m.mu.Unlock()

	if started {
		m.metrics.RecordSessionEnd()
	}
	if changed {
		m.stateChanged(status)
	}
}
