package speech

import (
	"errors"
	"fmt"

	"speech-translate-service/internal/notify"
	"speech-translate-service/internal/service/stt"
)

// State is the capture machine state.
type State int

const (
	StateUnsupported State = iota
	StateIdle
	StateRequestingPermission
	StateListening
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnsupported:
		return "unsupported"
	case StateIdle:
		return "idle"
	case StateRequestingPermission:
		return "requesting-permission"
	case StateListening:
		return "listening"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrorKind qualifies StateError.
type ErrorKind string

const (
	KindPermissionDenied  ErrorKind = "permission-denied"
	KindNoSpeech          ErrorKind = "no-speech"
	KindDeviceUnavailable ErrorKind = "device-unavailable"
	KindNetwork           ErrorKind = "network"
	KindServiceDisallowed ErrorKind = "service-disallowed"
	KindAborted           ErrorKind = "aborted"
	KindOther             ErrorKind = "other"
)

// Status is a snapshot of the machine.
type Status struct {
	State      State          `json:"state"`
	Error      ErrorKind      `json:"error,omitempty"`
	Permission stt.Permission `json:"permission"`
}

// Listening reports whether a session is capturing.
func (s Status) Listening() bool { return s.State == StateListening }

var (
	ErrUnsupported        = errors.New("speech recognition is not supported")
	ErrPermissionDenied   = errors.New("microphone permission denied")
	ErrClosed             = errors.New("capture machine closed")
	ErrAudioLimitExceeded = errors.New("audio limit exceeded")
)

const (
	msgListening        = "Listening... Speak now"
	msgRecognized       = "Speech recognized successfully"
	msgStopped          = "Speech recognition stopped"
	msgUnsupported      = "Speech recognition is not supported"
	msgStartFailed      = "Failed to start speech recognition"
	msgDeniedAtStart    = "Microphone access is denied. Please enable microphone permissions in your settings."
	msgDeniedOnRequest  = "Microphone access denied. Please enable microphone permissions and try again."
	msgPermissionHelp   = "Please enable microphone permissions in your settings and reload."
	msgNoSpeech         = "No speech detected. Please try again."
	msgDeviceMissing    = "Microphone not found or not working."
	msgNetwork          = "Network error occurred during speech recognition."
	msgServiceForbidden = "Speech recognition service not allowed."
	msgAborted          = "Speech recognition aborted."
)

// classify maps a recognizer error code to its kind and user notification.
func classify(code stt.ErrorCode) (ErrorKind, notify.Notification) {
	switch code {
	case stt.CodeNotAllowed:
		return KindPermissionDenied, notify.Notification{Level: notify.LevelError, Event: notify.EventPermissionDenied, Message: msgDeniedOnRequest}
	case stt.CodeNoSpeech:
		return KindNoSpeech, notify.Notification{Level: notify.LevelWarning, Event: notify.EventNoSpeech, Message: msgNoSpeech}
	case stt.CodeAudioCapture:
		return KindDeviceUnavailable, notify.Notification{Level: notify.LevelError, Event: notify.EventDeviceUnavailable, Message: msgDeviceMissing}
	case stt.CodeNetwork:
		return KindNetwork, notify.Notification{Level: notify.LevelError, Event: notify.EventNetwork, Message: msgNetwork}
	case stt.CodeServiceNotAllowed:
		return KindServiceDisallowed, notify.Notification{Level: notify.LevelError, Event: notify.EventServiceDisallowed, Message: msgServiceForbidden}
	case stt.CodeAborted:
		return KindAborted, notify.Notification{Level: notify.LevelInfo, Event: notify.EventAborted, Message: msgAborted}
	default:
		return KindOther, notify.Notification{Level: notify.LevelError, Event: notify.EventOther, Message: "Speech recognition error: " + string(code)}
	}
}
