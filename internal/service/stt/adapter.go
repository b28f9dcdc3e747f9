// Package stt defines the speech-recognition capability consumed by the
// capture state machine: a recognizer that creates sessions, the events a
// session emits, and the optional microphone permission/media capabilities.
package stt

import "context"

// ErrorCode is the single error code a session reports per failure.
type ErrorCode string

const (
	CodeNotAllowed        ErrorCode = "not-allowed"
	CodeNoSpeech          ErrorCode = "no-speech"
	CodeAudioCapture      ErrorCode = "audio-capture"
	CodeNetwork           ErrorCode = "network"
	CodeServiceNotAllowed ErrorCode = "service-not-allowed"
	CodeAborted           ErrorCode = "aborted"
)

// SessionConfig configures a recognition session before it starts.
type SessionConfig struct {
	Continuous      bool
	InterimResults  bool
	Language        string
	MaxAlternatives int
}

// DefaultSessionConfig is single-utterance English recognition with
// interim results and one alternative.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Continuous:      false,
		InterimResults:  true,
		Language:        "en-US",
		MaxAlternatives: 1,
	}
}

// Alternative is one candidate transcript for a result.
type Alternative struct {
	Transcript string
	Confidence float64
}

// Result is one recognition result group.
type Result struct {
	Final        bool
	Alternatives []Alternative
}

// ResultEvent carries the session's result list; entries before
// ResultIndex were already reported in earlier events.
type ResultEvent struct {
	ResultIndex int
	Results     []Result
}

// Listener receives session lifecycle events.
type Listener interface {
	// OnStart is called once the session is capturing audio.
	OnStart()

	// OnResult is called for every incremental recognition result.
	OnResult(ev ResultEvent)

	// OnError is called with a single error code per failure.
	OnError(code ErrorCode)

	// OnEnd is called when the session has ended, after any error.
	OnEnd()
}

// Session is one recognition session.
type Session interface {
	Configure(cfg SessionConfig)
	Subscribe(l Listener)
	Start(ctx context.Context) error
	Stop() error
}

// Aborter is implemented by sessions that can be torn down without waiting
// for pending results. Abort must not block on the backend.
type Aborter interface {
	Abort() error
}

// AudioSink is implemented by sessions that consume audio pushed by the caller.
type AudioSink interface {
	SendAudio(ctx context.Context, audio []byte) error
}

// Recognizer is the speech-recognition capability: a session factory.
type Recognizer interface {
	NewSession() (Session, error)
}

// Detect returns the first available recognizer, or nil when none is.
func Detect(candidates ...Recognizer) Recognizer {
	for _, r := range candidates {
		if r != nil {
			return r
		}
	}
	return nil
}

// Permission mirrors the platform microphone permission status.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionPrompt  Permission = "prompt"
)

// ParsePermission maps a status string to a Permission, defaulting to prompt.
func ParsePermission(s string) Permission {
	switch Permission(s) {
	case PermissionGranted, PermissionDenied:
		return Permission(s)
	default:
		return PermissionPrompt
	}
}

// PermissionStatus is a queried permission with change notification.
type PermissionStatus interface {
	State() Permission
	OnChange(fn func(Permission))
}

// PermissionQuerier queries the current microphone permission.
type PermissionQuerier interface {
	QueryMicrophone(ctx context.Context) (PermissionStatus, error)
}

// MediaAccess requests microphone access; a nil error means granted.
type MediaAccess interface {
	RequestMicrophone(ctx context.Context) error
}
