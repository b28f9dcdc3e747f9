// Package audio provides the speech session handler that coordinates the
// capture state machine, the translation service and the event publisher
// for one connected client.
package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"speech-translate-service/internal/models"
	"speech-translate-service/internal/notify"
	"speech-translate-service/internal/observability/logging"
	"speech-translate-service/internal/schema"
	"speech-translate-service/internal/service/speech"
	"speech-translate-service/internal/service/stt"
)

// Translator translates final transcripts into records.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (models.TranslationRecord, error)
}

// TranscriptPublisher receives speech.transcript.final events.
type TranscriptPublisher interface {
	PublishTranscript(ctx context.Context, ev models.TranscriptEvent) error
}

// Output receives what the handler surfaces to the client. Calls may come
// from several goroutines.
type Output interface {
	State(status speech.Status)
	Transcript(t speech.Transcript)
	Translation(rec models.TranslationRecord)
	Failure(err error)
}

// Config configures one speech session.
type Config struct {
	SessionID   string
	Recognizer  stt.Recognizer
	Permissions stt.PermissionQuerier
	Media       stt.MediaAccess
	Notifier    notify.Notifier
	Session     stt.SessionConfig
	Limits      speech.AudioLimits
	SourceLang  string
	TargetLang  string
}

// Handler manages one speech session: every final transcript is published,
// translated and handed to the output in arrival order.
type Handler struct {
	sessionID  string
	translator Translator
	publisher  TranscriptPublisher
	validator  *schema.Validator
	out        Output
	machine    *speech.Machine
	log        zerolog.Logger

	finals chan speech.Transcript
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu             sync.RWMutex
	sourceLang     string
	targetLang     string
	utteranceCount int
	closed         bool
}

// NewHandler creates a handler and its capture machine. The publisher may
// be nil.
func NewHandler(ctx context.Context, cfg Config, translator Translator, publisher TranscriptPublisher, out Output) *Handler {
	if cfg.SourceLang == "" {
		cfg.SourceLang = schema.AutoDetect
	}
	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &Handler{
		sessionID:  cfg.SessionID,
		translator: translator,
		publisher:  publisher,
		validator:  schema.New(),
		out:        out,
		log:        logging.WithSession(cfg.SessionID),
		finals:     make(chan speech.Transcript, 16),
		ctx:        wctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		sourceLang: cfg.SourceLang,
		targetLang: cfg.TargetLang,
	}

	h.machine = speech.New(ctx, speech.Options{
		SessionID:     cfg.SessionID,
		Recognizer:    cfg.Recognizer,
		Permissions:   cfg.Permissions,
		Media:         cfg.Media,
		Notifier:      cfg.Notifier,
		Session:       cfg.Session,
		Limits:        cfg.Limits,
		OnTranscript:  h.onTranscript,
		OnStateChange: out.State,
	})

	go h.run()
	return h
}

// SessionID returns the session identifier.
func (h *Handler) SessionID() string {
	return h.sessionID
}

// Status returns the capture machine status.
func (h *Handler) Status() speech.Status {
	return h.machine.Status()
}

// Start begins listening. It blocks while microphone permission is requested.
func (h *Handler) Start(ctx context.Context) error {
	return h.machine.Start(ctx)
}

// Stop stops listening; a pending final transcript is still processed.
func (h *Handler) Stop() error {
	return h.machine.Stop()
}

// SendAudio forwards an audio frame to the active recognizer session.
func (h *Handler) SendAudio(ctx context.Context, frame []byte) error {
	return h.machine.SendAudio(ctx, frame)
}

// SetPermission records a permission change reported by the client.
func (h *Handler) SetPermission(p stt.Permission) {
	h.machine.SetPermission(p)
}

// PermissionHelp emits microphone guidance.
func (h *Handler) PermissionHelp() {
	h.machine.PermissionHelp()
}

// Languages returns the current source and target languages.
func (h *Handler) Languages() (string, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sourceLang, h.targetLang
}

// SetLanguages changes the languages used for subsequent transcripts.
// Empty values keep the current setting.
func (h *Handler) SetLanguages(sourceLang, targetLang string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	src, tgt := h.sourceLang, h.targetLang
	if sourceLang != "" {
		src = sourceLang
	}
	if targetLang != "" {
		tgt = targetLang
	}
	if !schema.ValidLanguage(src) || !schema.ValidLanguage(tgt) || tgt == schema.AutoDetect {
		return fmt.Errorf("%w: unsupported languages %q -> %q", schema.ErrInvalid, src, tgt)
	}
	h.sourceLang, h.targetLang = src, tgt
	h.log.Info().Str("sourceLang", src).Str("targetLang", tgt).Msg("Languages changed")
	return nil
}

// UtteranceCount returns the number of final transcripts processed.
func (h *Handler) UtteranceCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.utteranceCount
}

// Close aborts any active recognition and waits for the transcript in
// progress to finish. Transcripts still queued are dropped.
func (h *Handler) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	err := h.machine.Close()
	h.cancel()
	<-h.done
	h.log.Info().Int("utterances", h.UtteranceCount()).Msg("Speech session closed")
	return err
}

func (h *Handler) onTranscript(t speech.Transcript) {
	select {
	case h.finals <- t:
	case <-h.ctx.Done():
	}
}

func (h *Handler) run() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			return
		case t := <-h.finals:
			h.process(t)
		}
	}
}

func (h *Handler) process(t speech.Transcript) {
	h.mu.Lock()
	h.utteranceCount++
	src, tgt := h.sourceLang, h.targetLang
	h.mu.Unlock()

	h.out.Transcript(t)
	h.publishTranscript(t)

	if tgt == "" {
		return
	}
	rec, err := h.translator.Translate(h.ctx, t.Text, src, tgt)
	if err != nil {
		h.log.Warn().Err(err).Str("turnId", t.TurnID).Msg("Transcript not translated")
		h.out.Failure(err)
		return
	}
	h.out.Translation(rec)
}

func (h *Handler) publishTranscript(t speech.Transcript) {
	ev := models.TranscriptEvent{
		EventType: models.EventTypeTranscriptFinal,
		SessionID: t.SessionID,
		TurnID:    t.TurnID,
		Text:      t.Text,
		IsFinal:   true,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := h.validator.Validate(ev); err != nil {
		h.log.Error().Err(err).Str("turnId", t.TurnID).Msg("Dropping invalid transcript event")
		return
	}
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishTranscript(h.ctx, ev); err != nil {
		h.log.Warn().Err(err).Str("turnId", t.TurnID).Msg("Failed to publish transcript")
	}
}
