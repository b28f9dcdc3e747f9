package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"speech-translate-service/internal/models"
	"speech-translate-service/internal/notify"
	"speech-translate-service/internal/observability/logging"
	"speech-translate-service/internal/schema"
	"speech-translate-service/internal/service/audio"
	"speech-translate-service/internal/service/speech"
	"speech-translate-service/internal/service/stt"
)

const (
	writeWait     = 10 * time.Second
	maxFrameBytes = 1 << 20
	defaultTarget = "es"
)

// SpeechConfig configures the speech WebSocket endpoint.
type SpeechConfig struct {
	Recognizer        stt.Recognizer
	Translator        audio.Translator
	Publisher         audio.TranscriptPublisher
	Notifier          notify.Notifier
	Session           stt.SessionConfig
	Limits            speech.AudioLimits
	PermissionTimeout time.Duration
}

type speechHandler struct {
	cfg      SpeechConfig
	upgrader websocket.Upgrader
}

func newSpeechHandler(cfg SpeechConfig) *speechHandler {
	return &speechHandler{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *speechHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sourceLang := q.Get("sourceLang")
	if sourceLang == "" {
		sourceLang = schema.AutoDetect
	}
	targetLang := q.Get("targetLang")
	if targetLang == "" {
		targetLang = defaultTarget
	}
	if !schema.ValidLanguage(sourceLang) || !schema.ValidLanguage(targetLang) || targetLang == schema.AutoDetect {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid sourceLang or targetLang"})
		return
	}
	initial := stt.ParsePermission(q.Get("permission"))

	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	c.SetReadLimit(maxFrameBytes)

	sessionID := uuid.NewString()
	conn := &wsConn{conn: c, sessionID: sessionID}
	logger := logging.WithSession(sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	bridge := audio.NewPermissionBridge(initial, func() error {
		return conn.send(models.SpeechServerMessage{Type: models.SpeechMsgPermissionRequest})
	}, h.cfg.PermissionTimeout)

	notifier := notify.Notifier(conn)
	if h.cfg.Notifier != nil {
		notifier = notify.Multi{h.cfg.Notifier, conn}
	}

	handler := audio.NewHandler(ctx, audio.Config{
		SessionID:   sessionID,
		Recognizer:  h.cfg.Recognizer,
		Permissions: bridge,
		Media:       bridge,
		Notifier:    notifier,
		Session:     h.cfg.Session,
		Limits:      h.cfg.Limits,
		SourceLang:  sourceLang,
		TargetLang:  targetLang,
	}, h.cfg.Translator, h.cfg.Publisher, conn)
	conn.handler = handler

	logger.Info().
		Str("sourceLang", sourceLang).
		Str("targetLang", targetLang).
		Str("permission", string(initial)).
		Msg("Speech client connected")

	defer func() {
		handler.Close()
		c.Close()
		logger.Info().Msg("Speech client disconnected")
	}()

	conn.State(handler.Status())

	for {
		kind, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("Speech connection read error")
			}
			return
		}

		if kind == websocket.BinaryMessage {
			if err := handler.SendAudio(ctx, data); err != nil {
				conn.Failure(err)
			}
			continue
		}

		var msg models.SpeechClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.Failure(errors.New("malformed message"))
			continue
		}
		h.dispatch(ctx, conn, handler, bridge, msg)
	}
}

func (h *speechHandler) dispatch(ctx context.Context, conn *wsConn, handler *audio.Handler, bridge *audio.PermissionBridge, msg models.SpeechClientMessage) {
	switch msg.Type {
	case models.SpeechMsgStart:
		// Start blocks while a permission request is answered by this same
		// read loop.
		go func() {
			if err := handler.Start(ctx); err != nil {
				log.Debug().Err(err).Str("sessionId", handler.SessionID()).Msg("Start did not begin listening")
			}
		}()
	case models.SpeechMsgStop:
		handler.Stop()
	case models.SpeechMsgPermission:
		bridge.Answer(stt.ParsePermission(msg.State))
	case models.SpeechMsgHelp:
		handler.PermissionHelp()
	case models.SpeechMsgLanguages:
		if err := handler.SetLanguages(msg.SourceLang, msg.TargetLang); err != nil {
			conn.Failure(err)
			return
		}
		conn.State(handler.Status())
	case models.SpeechMsgStatus:
		conn.State(handler.Status())
	default:
		conn.Failure(errors.New("unknown message type " + msg.Type))
	}
}

// wsConn serializes writes to one speech client and implements both
// audio.Output and notify.Notifier.
type wsConn struct {
	conn      *websocket.Conn
	sessionID string
	handler   *audio.Handler

	writeMu sync.Mutex
}

func (c *wsConn) send(msg models.SpeechServerMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Debug().Err(err).Str("sessionId", c.sessionID).Str("type", msg.Type).Msg("Speech write failed")
		return err
	}
	return nil
}

func (c *wsConn) State(s speech.Status) {
	msg := models.SpeechServerMessage{
		Type:       models.SpeechMsgState,
		SessionID:  c.sessionID,
		State:      s.State.String(),
		Error:      string(s.Error),
		Permission: string(s.Permission),
	}
	if c.handler != nil {
		msg.SourceLang, msg.TargetLang = c.handler.Languages()
	}
	c.send(msg)
}

func (c *wsConn) Transcript(t speech.Transcript) {
	c.send(models.SpeechServerMessage{
		Type:      models.SpeechMsgTranscript,
		SessionID: t.SessionID,
		TurnID:    t.TurnID,
		Text:      t.Text,
	})
}

func (c *wsConn) Translation(rec models.TranslationRecord) {
	c.send(models.SpeechServerMessage{
		Type:      models.SpeechMsgTranslation,
		SessionID: c.sessionID,
		Record:    &rec,
	})
}

func (c *wsConn) Failure(err error) {
	c.send(models.SpeechServerMessage{
		Type:      models.SpeechMsgError,
		SessionID: c.sessionID,
		Message:   err.Error(),
	})
}

func (c *wsConn) Notify(n notify.Notification) {
	c.send(models.SpeechServerMessage{
		Type:      models.SpeechMsgNotification,
		SessionID: c.sessionID,
		Level:     string(n.Level),
		Event:     string(n.Event),
		Message:   n.Message,
	})
}
