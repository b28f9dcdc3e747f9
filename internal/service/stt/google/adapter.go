// Package google provides a Google Cloud Speech-to-Text recognizer.
package google

import (
	"context"
	"errors"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"speech-translate-service/internal/service/stt"
)

// ErrNotStarted is returned when audio is sent before Start.
var ErrNotStarted = errors.New("recognition stream not started")

// Config holds Google STT configuration.
type Config struct {
	LanguageCode  string
	SampleRateHz  int32
	AudioEncoding string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LanguageCode:  "en-US",
		SampleRateHz:  16000,
		AudioEncoding: "LINEAR16",
	}
}

// recognizeStream is the subset of the generated streaming client we use.
type recognizeStream interface {
	Send(*speechpb.StreamingRecognizeRequest) error
	Recv() (*speechpb.StreamingRecognizeResponse, error)
	CloseSend() error
}

type streamOpener func(ctx context.Context) (recognizeStream, error)

// Recognizer implements stt.Recognizer using Google Cloud Speech-to-Text.
type Recognizer struct {
	client *speech.Client
	open   streamOpener
	cfg    Config
}

// New creates a Google recognizer.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Recognizer, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Recognizer{
		client: c,
		cfg:    cfg,
		open: func(ctx context.Context) (recognizeStream, error) {
			return c.StreamingRecognize(ctx)
		},
	}, nil
}

// NewSession creates an unstarted recognition session.
func (r *Recognizer) NewSession() (stt.Session, error) {
	sc := stt.DefaultSessionConfig()
	sc.Language = r.cfg.LanguageCode
	return &Session{
		open:    r.open,
		cfg:     r.cfg,
		session: sc,
	}, nil
}

// Close releases the underlying client connection.
func (r *Recognizer) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// Session is one StreamingRecognize call.
type Session struct {
	open    streamOpener
	cfg     Config
	session stt.SessionConfig

	// sendMu serializes Send and CloseSend on the stream.
	sendMu sync.Mutex

	mu       sync.Mutex
	listener stt.Listener
	stream   recognizeStream
	cancel   context.CancelFunc
	stopping bool
	aborted  bool
}

// Configure applies session settings; it must be called before Start.
func (s *Session) Configure(cfg stt.SessionConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = cfg
}

// Subscribe sets the event listener.
func (s *Session) Subscribe(l stt.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Start opens the stream, sends the streaming config and begins receiving.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stream != nil {
		s.mu.Unlock()
		return errors.New("recognition stream already started")
	}
	// The stream outlives the request that started it.
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := s.open(streamCtx)
	if err != nil {
		s.mu.Unlock()
		cancel()
		return err
	}

	if err := stream.Send(s.configRequest()); err != nil {
		s.mu.Unlock()
		cancel()
		return err
	}
	s.stream = stream
	s.cancel = cancel
	l := s.listener
	s.mu.Unlock()

	if l != nil {
		l.OnStart()
	}
	go s.listen(stream, l)
	return nil
}

func (s *Session) configRequest() *speechpb.StreamingRecognizeRequest {
	maxAlt := int32(s.session.MaxAlternatives)
	if maxAlt < 1 {
		maxAlt = 1
	}
	lang := s.session.Language
	if lang == "" {
		lang = s.cfg.LanguageCode
	}
	return &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        parseAudioEncoding(s.cfg.AudioEncoding),
					SampleRateHertz: s.cfg.SampleRateHz,
					LanguageCode:    lang,
					MaxAlternatives: maxAlt,
				},
				SingleUtterance: !s.session.Continuous,
				InterimResults:  s.session.InterimResults,
			},
		},
	}
}

// SendAudio sends audio bytes to Google Speech-to-Text.
func (s *Session) SendAudio(ctx context.Context, audio []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	stream := s.stream
	stopping := s.stopping
	s.mu.Unlock()

	if stream == nil {
		return ErrNotStarted
	}
	if stopping {
		return nil
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Stop half-closes the stream; the service flushes remaining results and
// the receive loop reports OnEnd.
func (s *Session) Stop() error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	if s.stream == nil || s.stopping {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	stream := s.stream
	s.mu.Unlock()
	return stream.CloseSend()
}

// Abort cancels the stream context. The receive loop ends without reporting
// an error and pending results are discarded.
func (s *Session) Abort() error {
	s.mu.Lock()
	s.stopping = true
	s.aborted = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

func (s *Session) isAborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// listen receives responses until the stream ends and maps them to listener
// events. It always finishes with OnEnd.
func (s *Session) listen(stream recognizeStream, l stt.Listener) {
	defer func() {
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		if l != nil {
			l.OnEnd()
		}
	}()

	sawResult := false
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			if !sawResult && l != nil {
				l.OnError(stt.CodeNoSpeech)
			}
			return
		}
		if err != nil {
			if s.isAborted() {
				log.Debug().Err(err).Msg("Streaming recognition aborted")
				return
			}
			code := errorCode(err)
			log.Warn().Err(err).Str("code", string(code)).Msg("Streaming recognition failed")
			if l != nil {
				l.OnError(code)
			}
			return
		}
		if resp.Error != nil && resp.Error.Code != 0 {
			code := codeFor(codes.Code(resp.Error.Code))
			log.Warn().Int32("grpc_code", resp.Error.Code).Str("message", resp.Error.Message).
				Msg("Streaming recognition returned an error")
			if l != nil {
				l.OnError(code)
			}
			return
		}

		ev, ok := toResultEvent(resp)
		if !ok {
			continue
		}
		sawResult = true
		if l != nil {
			l.OnResult(ev)
		}
	}
}

func toResultEvent(resp *speechpb.StreamingRecognizeResponse) (stt.ResultEvent, bool) {
	var ev stt.ResultEvent
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		res := stt.Result{Final: r.IsFinal}
		for _, alt := range r.Alternatives {
			res.Alternatives = append(res.Alternatives, stt.Alternative{
				Transcript: alt.Transcript,
				Confidence: float64(alt.Confidence),
			})
		}
		ev.Results = append(ev.Results, res)
	}
	return ev, len(ev.Results) > 0
}

// errorCode maps a stream error onto the recognition error codes.
func errorCode(err error) stt.ErrorCode {
	if errors.Is(err, context.Canceled) {
		return stt.CodeAborted
	}
	st, ok := status.FromError(err)
	if !ok {
		return stt.CodeNetwork
	}
	return codeFor(st.Code())
}

func codeFor(c codes.Code) stt.ErrorCode {
	switch c {
	case codes.PermissionDenied, codes.Unauthenticated:
		return stt.CodeServiceNotAllowed
	case codes.Canceled, codes.Aborted:
		return stt.CodeAborted
	case codes.OutOfRange:
		// audio stream exceeded the service's duration limit
		return stt.CodeNoSpeech
	case codes.InvalidArgument:
		return stt.CodeAudioCapture
	default:
		return stt.CodeNetwork
	}
}

// parseAudioEncoding converts a string encoding name to the protobuf enum.
func parseAudioEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	switch encoding {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
