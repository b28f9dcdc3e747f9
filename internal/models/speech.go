package models

// Speech WebSocket message types sent by the client.
const (
	SpeechMsgStart      = "start"
	SpeechMsgStop       = "stop"
	SpeechMsgPermission = "permission"
	SpeechMsgHelp       = "help"
	SpeechMsgLanguages  = "languages"
	SpeechMsgStatus     = "status"
)

// Speech WebSocket message types sent by the server.
const (
	SpeechMsgState             = "state"
	SpeechMsgNotification      = "notification"
	SpeechMsgPermissionRequest = "permission_request"
	SpeechMsgTranscript        = "transcript"
	SpeechMsgTranslation       = "translation"
	SpeechMsgError             = "error"
)

// SpeechClientMessage is a text frame sent by a speech client. Audio is sent
// as binary frames.
type SpeechClientMessage struct {
	Type       string `json:"type"`
	State      string `json:"state,omitempty"` // permission: granted, denied, prompt
	SourceLang string `json:"sourceLang,omitempty"`
	TargetLang string `json:"targetLang,omitempty"`
}

// SpeechServerMessage is a text frame sent to a speech client. Only the
// fields relevant to Type are set.
type SpeechServerMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`

	// state
	State      string `json:"state,omitempty"`
	Error      string `json:"error,omitempty"`
	Permission string `json:"permission,omitempty"`
	SourceLang string `json:"sourceLang,omitempty"`
	TargetLang string `json:"targetLang,omitempty"`

	// notification, error
	Level   string `json:"level,omitempty"`
	Event   string `json:"event,omitempty"`
	Message string `json:"message,omitempty"`

	// transcript
	TurnID string `json:"turnId,omitempty"`
	Text   string `json:"text,omitempty"`

	// translation
	Record *TranslationRecord `json:"record,omitempty"`
}
