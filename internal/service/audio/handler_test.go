package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"speech-translate-service/internal/models"
	"speech-translate-service/internal/notify"
	"speech-translate-service/internal/service/speech"
	"speech-translate-service/internal/service/stt"
	"speech-translate-service/internal/service/stt/mock"
)

// recordingOutput captures everything surfaced to the client, in order.
type recordingOutput struct {
	mu     sync.Mutex
	states []speech.Status
	order  []string
	texts  []string
	recs   []models.TranslationRecord
	errs   []error
}

func (o *recordingOutput) State(s speech.Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func (o *recordingOutput) Transcript(t speech.Transcript) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.order = append(o.order, "transcript")
	o.texts = append(o.texts, t.Text)
}

func (o *recordingOutput) Translation(rec models.TranslationRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.order = append(o.order, "translation")
	o.recs = append(o.recs, rec)
}

func (o *recordingOutput) Failure(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.order = append(o.order, "failure")
	o.errs = append(o.errs, err)
}

func (o *recordingOutput) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.order)
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeTranslator) Translate(ctx context.Context, text, src, tgt string) (models.TranslationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, src+">"+tgt+":"+text)
	if f.err != nil {
		return models.TranslationRecord{}, f.err
	}
	return models.TranslationRecord{ID: len(f.calls), SourceText: text, TranslatedText: "[" + tgt + "] " + text, SourceLang: src, TargetLang: tgt}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.TranscriptEvent
}

func (p *fakePublisher) PublishTranscript(ctx context.Context, ev models.TranscriptEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestHandler(t *testing.T, rec stt.Recognizer, perms *PermissionBridge, tr Translator, pub TranscriptPublisher) (*Handler, *recordingOutput) {
	t.Helper()
	out := &recordingOutput{}
	cfg := Config{
		SessionID:  "sess-1",
		Recognizer: rec,
		Notifier:   &notify.Recorder{},
		SourceLang: "en",
		TargetLang: "es",
	}
	if perms != nil {
		cfg.Permissions = perms
		cfg.Media = perms
	}
	h := NewHandler(context.Background(), cfg, tr, pub, out)
	t.Cleanup(func() { h.Close() })
	return h, out
}

func TestHandler_FinalTranscriptIsPublishedAndTranslated(t *testing.T) {
	tr := &fakeTranslator{}
	pub := &fakePublisher{}
	h, out := newTestHandler(t, mock.New(mock.SimulatedUtterance{Final: "good morning"}), nil, tr, pub)

	ctx := context.Background()
	if err := h.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !h.Status().Listening() {
		t.Fatalf("expected listening, got %v", h.Status().State)
	}
	if err := h.SendAudio(ctx, make([]byte, 320)); err != nil {
		t.Fatalf("send audio: %v", err)
	}

	waitFor(t, func() bool { return out.count() == 2 })

	out.mu.Lock()
	defer out.mu.Unlock()
	if out.order[0] != "transcript" || out.order[1] != "translation" {
		t.Errorf("unexpected order %v", out.order)
	}
	if out.texts[0] != "good morning" {
		t.Errorf("unexpected transcript %q", out.texts[0])
	}
	if out.recs[0].TranslatedText != "[es] good morning" {
		t.Errorf("unexpected record %+v", out.recs[0])
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 {
		t.Fatalf("expected one transcript event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.EventType != models.EventTypeTranscriptFinal || ev.SessionID != "sess-1" || ev.TurnID != "sess-1-turn-1" || !ev.IsFinal {
		t.Errorf("unexpected event %+v", ev)
	}
	if h.UtteranceCount() != 1 {
		t.Errorf("expected 1 utterance, got %d", h.UtteranceCount())
	}
}

func TestHandler_TranslationFailureIsReported(t *testing.T) {
	tr := &fakeTranslator{err: errors.New("invalid translation input")}
	h, out := newTestHandler(t, mock.New(mock.SimulatedUtterance{Final: "hola"}), nil, tr, nil)

	ctx := context.Background()
	h.Start(ctx)
	h.SendAudio(ctx, []byte{1})

	waitFor(t, func() bool { return out.count() == 2 })
	out.mu.Lock()
	defer out.mu.Unlock()
	if out.order[1] != "failure" || len(out.errs) != 1 {
		t.Errorf("expected failure after transcript, got %v", out.order)
	}
}

func TestHandler_SetLanguages(t *testing.T) {
	tr := &fakeTranslator{}
	h, out := newTestHandler(t, mock.New(mock.SimulatedUtterance{Final: "thank you"}), nil, tr, nil)

	tests := []struct {
		name    string
		src     string
		tgt     string
		wantSrc string
		wantTgt string
		wantErr bool
	}{
		{"target only", "", "fr", "en", "fr", false},
		{"both", "auto", "de", "auto", "de", false},
		{"auto target", "", "auto", "auto", "de", true},
		{"malformed", "!!", "", "auto", "de", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.SetLanguages(tt.src, tt.tgt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			src, tgt := h.Languages()
			if src != tt.wantSrc || tgt != tt.wantTgt {
				t.Errorf("languages = %s/%s, want %s/%s", src, tgt, tt.wantSrc, tt.wantTgt)
			}
		})
	}

	ctx := context.Background()
	h.Start(ctx)
	h.SendAudio(ctx, []byte{1})
	waitFor(t, func() bool { return out.count() == 2 })

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.calls[0] != "auto>de:thank you" {
		t.Errorf("unexpected translate call %q", tr.calls[0])
	}
}

func TestHandler_CloseIsIdempotentAndStopsSession(t *testing.T) {
	rec := mock.New(mock.SimulatedUtterance{Partials: []string{"a"}, Final: "a b"})
	h, _ := newTestHandler(t, rec, nil, &fakeTranslator{}, nil)

	h.Start(context.Background())
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if got := rec.Sessions()[0].StopCalls(); got != 1 {
		t.Errorf("expected one stop call, got %d", got)
	}
	if err := h.Start(context.Background()); !errors.Is(err, speech.ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
}

func TestHandler_PermissionRequestRoundTrip(t *testing.T) {
	asked := make(chan struct{}, 1)
	perms := NewPermissionBridge(stt.PermissionPrompt, func() error {
		asked <- struct{}{}
		return nil
	}, time.Second)
	h, _ := newTestHandler(t, mock.New(), perms, &fakeTranslator{}, nil)

	errc := make(chan error, 1)
	go func() { errc <- h.Start(context.Background()) }()

	<-asked
	if got := h.Status().State; got != speech.StateRequestingPermission {
		t.Errorf("expected requesting permission, got %v", got)
	}
	perms.Answer(stt.PermissionGranted)

	if err := <-errc; err != nil {
		t.Fatalf("start: %v", err)
	}
	st := h.Status()
	if !st.Listening() || st.Permission != stt.PermissionGranted {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestHandler_PermissionRequestDenied(t *testing.T) {
	var perms *PermissionBridge
	perms = NewPermissionBridge(stt.PermissionPrompt, func() error {
		go perms.Answer(stt.PermissionDenied)
		return nil
	}, time.Second)
	h, _ := newTestHandler(t, mock.New(), perms, &fakeTranslator{}, nil)

	err := h.Start(context.Background())
	if !errors.Is(err, speech.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	st := h.Status()
	if st.State != speech.StateError || st.Error != speech.KindPermissionDenied {
		t.Errorf("unexpected status %+v", st)
	}
}
