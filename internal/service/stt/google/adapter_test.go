package google

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"speech-translate-service/internal/service/stt"
)

// fakeStream implements recognizeStream with a scripted response channel.
type fakeStream struct {
	mu        sync.Mutex
	sent      []*speechpb.StreamingRecognizeRequest
	closed    bool
	responses chan *speechpb.StreamingRecognizeResponse
	recvErr   error
	sendErr   error
}

func newFakeStream() *fakeStream {
	return &fakeStream{responses: make(chan *speechpb.StreamingRecognizeResponse, 10)}
}

func (f *fakeStream) Send(req *speechpb.StreamingRecognizeRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, req)
	return nil
}

func (f *fakeStream) Recv() (*speechpb.StreamingRecognizeResponse, error) {
	resp, ok := <-f.responses
	if !ok {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.recvErr != nil {
			return nil, f.recvErr
		}
		return nil, io.EOF
	}
	return resp, nil
}

func (f *fakeStream) CloseSend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStream) sentRequests() []*speechpb.StreamingRecognizeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*speechpb.StreamingRecognizeRequest(nil), f.sent...)
}

type recordingListener struct {
	mu      sync.Mutex
	starts  int
	results []stt.ResultEvent
	errors  []stt.ErrorCode
	ended   chan struct{}
}

func newRecordingListener() *recordingListener {
	return &recordingListener{ended: make(chan struct{})}
}

func (l *recordingListener) OnStart() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.starts++
}

func (l *recordingListener) OnResult(ev stt.ResultEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, ev)
}

func (l *recordingListener) OnError(code stt.ErrorCode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, code)
}

func (l *recordingListener) OnEnd() { close(l.ended) }

func (l *recordingListener) waitEnd(t *testing.T) {
	t.Helper()
	select {
	case <-l.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnEnd")
	}
}

func newTestSession(stream *fakeStream) *Session {
	r := &Recognizer{
		cfg:  DefaultConfig(),
		open: func(ctx context.Context) (recognizeStream, error) { return stream, nil },
	}
	s, _ := r.NewSession()
	return s.(*Session)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.LanguageCode)
	}
	if cfg.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.SampleRateHz)
	}
	if cfg.AudioEncoding != "LINEAR16" {
		t.Errorf("expected default encoding 'LINEAR16', got %s", cfg.AudioEncoding)
	}
}

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected speechpb.RecognitionConfig_AudioEncoding
	}{
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},
		{"MULAW", speechpb.RecognitionConfig_MULAW},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
		{"AMR", speechpb.RecognitionConfig_AMR},
		{"AMR_WB", speechpb.RecognitionConfig_AMR_WB},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"SPEEX_WITH_HEADER_BYTE", speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS},
		{"linear16", speechpb.RecognitionConfig_LINEAR16}, // lowercase -> fallback
		{"invalid", speechpb.RecognitionConfig_LINEAR16},  // fallback
		{"", speechpb.RecognitionConfig_LINEAR16},         // fallback
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAudioEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSession_StartSendsConfigFirst(t *testing.T) {
	stream := newFakeStream()
	s := newTestSession(stream)
	l := newRecordingListener()

	s.Configure(stt.SessionConfig{
		Continuous:      false,
		InterimResults:  true,
		Language:        "fr-FR",
		MaxAlternatives: 3,
	})
	s.Subscribe(l)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.SendAudio(context.Background(), []byte{1, 2, 3}); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}

	sent := stream.sentRequests()
	if len(sent) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(sent))
	}
	sc := sent[0].GetStreamingConfig()
	if sc == nil {
		t.Fatal("first request must carry the streaming config")
	}
	if !sc.SingleUtterance {
		t.Error("non-continuous session should request single utterance")
	}
	if !sc.InterimResults {
		t.Error("expected interim results requested")
	}
	if sc.Config.LanguageCode != "fr-FR" {
		t.Errorf("expected language fr-FR, got %s", sc.Config.LanguageCode)
	}
	if sc.Config.MaxAlternatives != 3 {
		t.Errorf("expected 3 alternatives, got %d", sc.Config.MaxAlternatives)
	}
	if string(sent[1].GetAudioContent()) != "\x01\x02\x03" {
		t.Errorf("unexpected audio content %v", sent[1].GetAudioContent())
	}
	if l.starts != 1 {
		t.Errorf("expected OnStart once, got %d", l.starts)
	}

	close(stream.responses)
	l.waitEnd(t)
}

func TestSession_ResultsThenEnd(t *testing.T) {
	stream := newFakeStream()
	s := newTestSession(stream)
	l := newRecordingListener()
	s.Subscribe(l)
	s.Start(context.Background())

	stream.responses <- &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{{
			Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "hel"}},
		}},
	}
	stream.responses <- &speechpb.StreamingRecognizeResponse{} // speech event only
	stream.responses <- &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{{
			IsFinal:      true,
			Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "hello", Confidence: 0.9}},
		}},
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	close(stream.responses)
	l.waitEnd(t)

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.results) != 2 {
		t.Fatalf("expected 2 result events, got %d", len(l.results))
	}
	if l.results[0].Results[0].Final {
		t.Error("first result should be interim")
	}
	final := l.results[1].Results[0]
	if !final.Final || final.Alternatives[0].Transcript != "hello" {
		t.Errorf("unexpected final %+v", final)
	}
	if len(l.errors) != 0 {
		t.Errorf("expected no errors, got %v", l.errors)
	}
	if !stream.closed {
		t.Error("expected CloseSend on Stop")
	}
}

func TestSession_EndWithoutResultsIsNoSpeech(t *testing.T) {
	stream := newFakeStream()
	s := newTestSession(stream)
	l := newRecordingListener()
	s.Subscribe(l)
	s.Start(context.Background())

	close(stream.responses)
	l.waitEnd(t)

	if len(l.errors) != 1 || l.errors[0] != stt.CodeNoSpeech {
		t.Errorf("expected no-speech, got %v", l.errors)
	}
}

func TestSession_RecvErrorMapped(t *testing.T) {
	stream := newFakeStream()
	stream.recvErr = status.Error(codes.PermissionDenied, "billing disabled")
	s := newTestSession(stream)
	l := newRecordingListener()
	s.Subscribe(l)
	s.Start(context.Background())

	close(stream.responses)
	l.waitEnd(t)

	if len(l.errors) != 1 || l.errors[0] != stt.CodeServiceNotAllowed {
		t.Errorf("expected service-not-allowed, got %v", l.errors)
	}
}

func TestSession_StartFailure(t *testing.T) {
	stream := newFakeStream()
	stream.sendErr = errors.New("broken pipe")
	s := newTestSession(stream)
	l := newRecordingListener()
	s.Subscribe(l)

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	if l.starts != 0 {
		t.Error("OnStart must not fire when start fails")
	}
}

func TestSession_SendAudioBeforeStart(t *testing.T) {
	s := newTestSession(newFakeStream())
	if err := s.SendAudio(context.Background(), []byte{0}); err != ErrNotStarted {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want stt.ErrorCode
	}{
		{"permission denied", status.Error(codes.PermissionDenied, ""), stt.CodeServiceNotAllowed},
		{"unauthenticated", status.Error(codes.Unauthenticated, ""), stt.CodeServiceNotAllowed},
		{"unavailable", status.Error(codes.Unavailable, ""), stt.CodeNetwork},
		{"cancelled", status.Error(codes.Canceled, ""), stt.CodeAborted},
		{"context cancelled", context.Canceled, stt.CodeAborted},
		{"out of range", status.Error(codes.OutOfRange, ""), stt.CodeNoSpeech},
		{"invalid audio", status.Error(codes.InvalidArgument, ""), stt.CodeAudioCapture},
		{"plain error", errors.New("boom"), stt.CodeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorCode(tt.err); got != tt.want {
				t.Errorf("errorCode(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

// ctxStream blocks in Recv until its stream context is cancelled, like a
// live gRPC stream waiting on the server.
type ctxStream struct {
	ctx context.Context

	inSend  atomic.Int32
	overlap atomic.Bool
}

func (c *ctxStream) Send(*speechpb.StreamingRecognizeRequest) error {
	c.inSend.Add(1)
	defer c.inSend.Add(-1)
	time.Sleep(time.Millisecond)
	return nil
}

func (c *ctxStream) Recv() (*speechpb.StreamingRecognizeResponse, error) {
	<-c.ctx.Done()
	return nil, status.Error(codes.Canceled, c.ctx.Err().Error())
}

func (c *ctxStream) CloseSend() error {
	if c.inSend.Load() > 0 {
		c.overlap.Store(true)
	}
	return nil
}

func newCtxSession(stream *ctxStream) *Session {
	r := &Recognizer{
		cfg: DefaultConfig(),
		open: func(ctx context.Context) (recognizeStream, error) {
			stream.ctx = ctx
			return stream, nil
		},
	}
	s, _ := r.NewSession()
	return s.(*Session)
}

func TestSession_AbortCancelsStream(t *testing.T) {
	stream := &ctxStream{}
	s := newCtxSession(stream)
	l := newRecordingListener()
	s.Subscribe(l)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := s.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	l.waitEnd(t)

	if stream.ctx.Err() == nil {
		t.Error("expected stream context cancelled")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.errors) != 0 {
		t.Errorf("abort must not report an error, got %v", l.errors)
	}
	if err := s.SendAudio(context.Background(), []byte{1}); err != nil {
		t.Errorf("SendAudio after abort: %v", err)
	}
}

func TestSession_StopDoesNotOverlapSend(t *testing.T) {
	stream := &ctxStream{}
	s := newCtxSession(stream)
	s.Subscribe(newRecordingListener())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Abort()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.SendAudio(context.Background(), []byte{byte(j)})
			}
		}()
	}
	time.Sleep(5 * time.Millisecond)
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	wg.Wait()

	if stream.overlap.Load() {
		t.Error("CloseSend ran while a Send was in flight")
	}
}
