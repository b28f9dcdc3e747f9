package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	grpcapi "speech-translate-service/internal/api/grpc"
	"speech-translate-service/internal/config"
	"speech-translate-service/internal/events"
	httpapi "speech-translate-service/internal/http"
	"speech-translate-service/internal/notify"
	"speech-translate-service/internal/observability"
	"speech-translate-service/internal/observability/logging"
	"speech-translate-service/internal/observability/metrics"
	"speech-translate-service/internal/service/speech"
	"speech-translate-service/internal/service/stt"
	"speech-translate-service/internal/service/stt/google"
	"speech-translate-service/internal/service/stt/mock"
	"speech-translate-service/internal/service/translation"
)

const serviceName = "speech-translate-service"

// shutdownTimeout bounds the graceful drain of the HTTP servers.
const shutdownTimeout = 15 * time.Second

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	publisher       *events.Publisher
	natsConn        *nats.Conn
	translations    *translation.Service
	recognizer      stt.Recognizer
	closeRecognizer func() error
	shutdownTracing func(context.Context) error

	httpServer   *http.Server
	httpListener net.Listener
	grpcServer   *grpcapi.Server
	grpcListener net.Listener
	obsServer    *observability.Server

	ready atomic.Bool
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Configuration) *Application {
	a := &Application{
		Cfg: cfg,
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	appLogger.Info().Msg("Speech translate service application created")
	return a
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	o := a.Cfg.Observability
	format := o.LogFormat
	if a.Cfg.Service.Environment == "dev" {
		format = "console"
	}
	logging.Init(logging.Config{
		Level:      o.LogLevel,
		Format:     format,
		TimeFormat: time.RFC3339,
		File:       o.LogFile,
		Service:    serviceName,
	})
	a.Logger = logging.WithComponent("application")

	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("environment", a.Cfg.Service.Environment).
		Msg("Logger setup completed")
}

// Start wires every component and opens the listeners. It must be called
// before Run.
func (a *Application) Start(ctx context.Context) error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()
	cfg := a.Cfg

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability.TracingEnabled, serviceName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	a.shutdownTracing = shutdownTracing

	a.publisher = events.New(&events.Config{
		Enabled:          cfg.Kafka.Enabled,
		Brokers:          cfg.Kafka.Brokers,
		TopicTranscript:  cfg.Kafka.TopicTranscript,
		TopicTranslation: cfg.Kafka.TopicTranslation,
		Principal:        cfg.Kafka.Principal,
	})

	sinks := notify.Multi{notify.NewLog()}
	if cfg.NATS.URL != "" {
		conn, err := notify.Connect(cfg.NATS.URL, serviceName, cfg.NATS.ConnectTimeout)
		if err != nil {
			startLogger.Warn().Err(err).Msg("NATS unavailable, notifications are logged only")
		} else {
			a.natsConn = conn
			sinks = append(sinks, notify.NewNATS(conn, cfg.NATS.SubjectPrefix))
		}
	}

	a.translations = translation.New(translation.Config{
		Endpoint: translation.EndpointConfig{
			URL:          cfg.Translation.EndpointURL,
			ClientID:     cfg.Translation.ClientID,
			OutputFormat: cfg.Translation.OutputFormat,
			Timeout:      cfg.Translation.RequestTimeout,
		},
		StoreDelay: cfg.Translation.StoreDelay,
	}, translation.WithPublisher(a.publisher))

	a.recognizer, a.closeRecognizer, err = newRecognizer(ctx, cfg.STT)
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Translations: a.translations,
		Ready:        a.ready.Load,
		Speech: httpapi.SpeechConfig{
			Recognizer: a.recognizer,
			Translator: a.translations,
			Publisher:  a.publisher,
			Notifier:   sinks,
			Session: stt.SessionConfig{
				Continuous:      cfg.STT.Continuous,
				InterimResults:  cfg.STT.InterimResults,
				Language:        cfg.STT.LanguageCode,
				MaxAlternatives: cfg.STT.MaxAlternatives,
			},
			Limits: speech.AudioLimits{
				MaxBytes:    cfg.AudioLimits.MaxAudioBytes,
				MaxDuration: cfg.AudioLimits.MaxDuration,
			},
			PermissionTimeout: cfg.STT.PermissionTimeout,
		},
	})
	a.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if a.httpListener, err = net.Listen("tcp", ":"+cfg.Service.HTTPPort); err != nil {
		return fmt.Errorf("listen http: %w", err)
	}

	a.grpcServer = grpcapi.New(metrics.DefaultMetrics)
	if a.grpcListener, err = net.Listen("tcp", ":"+cfg.Service.GRPCPort); err != nil {
		a.httpListener.Close()
		return fmt.Errorf("listen grpc: %w", err)
	}

	a.obsServer = observability.NewServer(cfg.Service.MetricsAddr)

	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Str("httpAddr", a.httpListener.Addr().String()).
		Str("grpcAddr", a.grpcListener.Addr().String()).
		Str("sttProvider", cfg.STT.Provider).
		Bool("kafka", cfg.Kafka.Enabled).
		Msg("Speech translate service starting")
	return nil
}

// HTTPAddr returns the address the API listens on.
func (a *Application) HTTPAddr() string {
	return a.httpListener.Addr().String()
}

// Run serves until ctx is cancelled or a server fails, then drains all
// servers.
func (a *Application) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.httpServer.Serve(a.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := a.grpcServer.Serve(a.grpcListener)
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})
	g.Go(a.obsServer.ListenAndServe)

	a.ready.Store(true)
	a.grpcServer.SetServing(true)
	a.obsServer.SetReady(true)

	g.Go(func() error {
		<-gctx.Done()
		a.ready.Store(false)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		a.grpcServer.GracefulStop()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn().Err(err).Msg("HTTP shutdown incomplete")
		}
		return a.obsServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown releases the clients opened by Start.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Error closing publisher")
		}
	}
	if a.natsConn != nil {
		a.natsConn.Close()
	}
	if a.closeRecognizer != nil {
		if err := a.closeRecognizer(); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Error closing recognizer")
		}
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Error flushing traces")
		}
	}

	shutdownLogger.Info().Msg("Speech translate service shut down")
}

// newRecognizer builds the configured recognizer. A nil recognizer means
// speech capture is unsupported.
func newRecognizer(ctx context.Context, cfg config.STTConfig) (stt.Recognizer, func() error, error) {
	switch cfg.Provider {
	case "mock":
		r := mock.New()
		r.Latency = 50 * time.Millisecond
		return stt.Detect(r), nil, nil
	case "google":
		r, err := google.New(ctx, google.Config{
			LanguageCode:  cfg.LanguageCode,
			SampleRateHz:  int32(cfg.SampleRateHz),
			AudioEncoding: cfg.AudioEncoding,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create google recognizer: %w", err)
		}
		return stt.Detect(r), r.Close, nil
	case "none", "":
		return stt.Detect(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown STT provider %q", cfg.Provider)
	}
}
