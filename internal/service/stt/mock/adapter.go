// Package mock provides a scripted recognizer for running without cloud
// credentials. Each session plays one utterance: an interim result per audio
// frame, then exactly one final result, then the session ends (unless it was
// configured as continuous).
package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"speech-translate-service/internal/service/stt"
)

// ErrAlreadyStarted is returned when Start is called twice on a session.
var ErrAlreadyStarted = errors.New("session already started")

// SimulatedUtterance represents a mock utterance with progressive transcripts.
type SimulatedUtterance struct {
	Partials   []string      // Progressive interim transcripts
	Final      string        // Final transcript text
	Confidence float64       // Confidence score for final
	ErrorCode  stt.ErrorCode // If set, the session fails with this code on first audio
}

// DefaultUtterances provides sample utterances for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{
		Partials:   []string{"hel", "hello"},
		Final:      "hello",
		Confidence: 0.96,
	},
	{
		Partials:   []string{"thank", "thank you", "thank you very"},
		Final:      "thank you very much",
		Confidence: 0.94,
	},
	{
		Partials:   []string{"where", "where is", "where is the"},
		Final:      "where is the bathroom?",
		Confidence: 0.91,
	},
	{
		Partials:   []string{"good", "good morning"},
		Final:      "good morning",
		Confidence: 0.97,
	},
	{
		Partials:   []string{"see", "see you"},
		Final:      "see you later",
		Confidence: 0.93,
	},
}

// Recognizer implements stt.Recognizer, cycling through its utterances.
type Recognizer struct {
	// Latency delays event delivery to simulate a remote service. Zero
	// delivers events synchronously, which tests rely on.
	Latency time.Duration

	mu         sync.Mutex
	utterances []SimulatedUtterance
	next       int
	sessions   []*Session
}

// New creates a mock recognizer. Without utterances it uses DefaultUtterances.
func New(utterances ...SimulatedUtterance) *Recognizer {
	if len(utterances) == 0 {
		utterances = DefaultUtterances
	}
	return &Recognizer{utterances: utterances}
}

// NewSession creates a session playing the next utterance.
func (r *Recognizer) NewSession() (stt.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &Session{
		utterance: r.utterances[r.next%len(r.utterances)],
		cfg:       stt.DefaultSessionConfig(),
		latency:   r.Latency,
	}
	r.next++
	r.sessions = append(r.sessions, s)
	return s, nil
}

// Sessions returns the sessions created so far.
func (r *Recognizer) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Session(nil), r.sessions...)
}

// Session implements stt.Session and stt.AudioSink.
type Session struct {
	mu           sync.Mutex
	cfg          stt.SessionConfig
	listener     stt.Listener
	utterance    SimulatedUtterance
	latency      time.Duration
	audioFrames  int
	partialIndex int
	finalSent    bool
	started      bool
	ended        bool
	stopCalls    int
}

// Configure records the session configuration.
func (s *Session) Configure(cfg stt.SessionConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Config returns the configuration applied to the session.
func (s *Session) Config() stt.SessionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Subscribe sets the event listener.
func (s *Session) Subscribe(l stt.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Start begins the session and reports OnStart.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	l := s.listener
	s.mu.Unlock()

	s.deliver(func() {
		if l != nil {
			l.OnStart()
		}
	})
	return nil
}

// SendAudio advances the scripted utterance by one step per frame.
func (s *Session) SendAudio(ctx context.Context, audio []byte) error {
	s.mu.Lock()
	if !s.started || s.ended || s.listener == nil {
		s.mu.Unlock()
		return nil
	}
	s.audioFrames++
	l := s.listener
	utt := s.utterance

	var events []func()
	switch {
	case utt.ErrorCode != "":
		s.ended = true
		events = append(events, func() { l.OnError(utt.ErrorCode) }, l.OnEnd)
	case s.cfg.InterimResults && s.partialIndex < len(utt.Partials):
		ev := interim(utt.Partials[s.partialIndex])
		s.partialIndex++
		events = append(events, func() { l.OnResult(ev) })
	case !s.finalSent:
		s.finalSent = true
		ev := final(utt)
		events = append(events, func() { l.OnResult(ev) })
		if !s.cfg.Continuous {
			s.ended = true
			events = append(events, l.OnEnd)
		}
	}
	s.mu.Unlock()

	s.deliver(events...)
	return nil
}

// Stop ends the session. If speech was heard but no final was sent yet, the
// final is delivered before the end event.
func (s *Session) Stop() error {
	s.mu.Lock()
	s.stopCalls++
	if !s.started || s.ended {
		s.mu.Unlock()
		return nil
	}
	s.ended = true
	l := s.listener

	var events []func()
	if l != nil {
		if !s.finalSent && s.audioFrames > 0 && s.utterance.ErrorCode == "" {
			s.finalSent = true
			ev := final(s.utterance)
			events = append(events, func() { l.OnResult(ev) })
		}
		events = append(events, l.OnEnd)
	}
	s.mu.Unlock()

	s.deliver(events...)
	return nil
}

// StopCalls reports how many times Stop was called.
func (s *Session) StopCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCalls
}

// Started reports whether Start was called successfully.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Session) deliver(events ...func()) {
	if len(events) == 0 {
		return
	}
	if s.latency <= 0 {
		for _, fn := range events {
			fn()
		}
		return
	}
	go func() {
		time.Sleep(s.latency)
		for _, fn := range events {
			fn()
		}
	}()
}

func interim(text string) stt.ResultEvent {
	return stt.ResultEvent{
		ResultIndex: 0,
		Results: []stt.Result{{
			Final:        false,
			Alternatives: []stt.Alternative{{Transcript: text}},
		}},
	}
}

func final(utt SimulatedUtterance) stt.ResultEvent {
	return stt.ResultEvent{
		ResultIndex: 0,
		Results: []stt.Result{{
			Final:        true,
			Alternatives: []stt.Alternative{{Transcript: utt.Final, Confidence: utt.Confidence}},
		}},
	}
}
