// Package translation translates text through a remote endpoint with an
// offline fallback and keeps the resulting records in memory.
package translation

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"speech-translate-service/internal/models"
	"speech-translate-service/internal/observability/logging"
	"speech-translate-service/internal/observability/metrics"
)

// EventPublisher receives translation.created events.
type EventPublisher interface {
	PublishTranslation(ctx context.Context, ev models.TranslationEvent) error
}

// Config configures the service.
type Config struct {
	Endpoint EndpointConfig
	// StoreDelay is the simulated latency of every collection operation.
	StoreDelay time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithHTTPClient sets the client used for endpoint calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.endpoint.http = c }
}

// WithPublisher sets the sink for translation events.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
		s.endpoint.metrics = m
	}
}

// Service owns the translation collection. Construct one per process.
type Service struct {
	endpoint  *endpointClient
	store     *store
	delay     time.Duration
	publisher EventPublisher
	now       func() time.Time
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// New creates a translation service.
func New(cfg Config, opts ...Option) *Service {
	if cfg.Endpoint.URL == "" {
		cfg.Endpoint = DefaultEndpointConfig()
	}
	tracer := otel.Tracer("speech-translate-service/translation")
	logger := logging.WithComponent("translation")

	s := &Service{
		endpoint: &endpointClient{
			cfg:     cfg.Endpoint,
			http:    http.DefaultClient,
			tracer:  tracer,
			metrics: metrics.DefaultMetrics,
			log:     logger,
		},
		store:   &store{},
		delay:   cfg.StoreDelay,
		now:     time.Now,
		tracer:  tracer,
		metrics: metrics.DefaultMetrics,
		log:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Translate translates text and records the result. Endpoint failures are
// absorbed by the offline fallback; only invalid input is an error.
func (s *Service) Translate(ctx context.Context, text, sourceLang, targetLang string) (models.TranslationRecord, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		s.metrics.RecordInvalidInput()
		return models.TranslationRecord{}, fmt.Errorf("%w: text is required for translation", ErrInvalidInput)
	}
	if sourceLang == targetLang {
		s.metrics.RecordInvalidInput()
		return models.TranslationRecord{}, fmt.Errorf("%w: source and target languages cannot be the same", ErrInvalidInput)
	}

	ctx, span := s.tracer.Start(ctx, "translation.translate", trace.WithAttributes(
		attribute.String("translation.source_lang", sourceLang),
		attribute.String("translation.target_lang", targetLang),
	))
	defer span.End()

	log := logging.WithLanguages("translation", sourceLang, targetLang)

	source := SourceEndpoint
	translated, ok, err := s.endpoint.fetch(ctx, trimmed, sourceLang, targetLang)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Translation endpoint failed, using offline translation")
		translated, source = fallback(text, sourceLang, targetLang)
		s.metrics.RecordFallback(source)
	case !ok:
		translated = text
	}
	span.SetAttributes(attribute.String("translation.path", source))
	s.metrics.RecordTranslation(source)

	rec := s.store.add(models.TranslationRecord{
		SourceText:     text,
		TranslatedText: translated,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Timestamp:      s.timestamp(),
	})
	s.metrics.SetStoreSize(s.store.len())
	log.Info().Int("id", rec.ID).Str("path", source).Msg("Translation recorded")

	s.publish(ctx, source, rec)
	return rec, nil
}

// GetAll returns a copy of every record in insertion order.
func (s *Service) GetAll(ctx context.Context) ([]models.TranslationRecord, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.metrics.RecordStoreOp("get_all", nil)
	return s.store.list(), nil
}

// GetByID returns the record with the given id.
func (s *Service) GetByID(ctx context.Context, id int) (models.TranslationRecord, error) {
	if err := s.wait(ctx); err != nil {
		return models.TranslationRecord{}, err
	}
	r, ok := s.store.get(id)
	if !ok {
		s.metrics.RecordStoreOp("get", ErrNotFound)
		return models.TranslationRecord{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	s.metrics.RecordStoreOp("get", nil)
	return r, nil
}

// Create stores a record built from d. The id is always assigned; the
// timestamp defaults to now.
func (s *Service) Create(ctx context.Context, d models.TranslationDraft) (models.TranslationRecord, error) {
	if err := s.wait(ctx); err != nil {
		return models.TranslationRecord{}, err
	}
	ts := d.Timestamp
	if ts == "" {
		ts = s.timestamp()
	}
	rec := s.store.add(models.TranslationRecord{
		SourceText:     d.SourceText,
		TranslatedText: d.TranslatedText,
		SourceLang:     d.SourceLang,
		TargetLang:     d.TargetLang,
		Timestamp:      ts,
	})
	s.metrics.RecordStoreOp("create", nil)
	s.metrics.SetStoreSize(s.store.len())
	s.log.Info().Int("id", rec.ID).Msg("Translation created")

	s.publish(ctx, SourceManual, rec)
	return rec, nil
}

// Update merges p into the record with the given id.
func (s *Service) Update(ctx context.Context, id int, p models.TranslationPatch) (models.TranslationRecord, error) {
	if err := s.wait(ctx); err != nil {
		return models.TranslationRecord{}, err
	}
	r, ok := s.store.update(id, p)
	if !ok {
		s.metrics.RecordStoreOp("update", ErrNotFound)
		return models.TranslationRecord{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	s.metrics.RecordStoreOp("update", nil)
	return r, nil
}

// Delete removes the record with the given id and returns it.
func (s *Service) Delete(ctx context.Context, id int) (models.TranslationRecord, error) {
	if err := s.wait(ctx); err != nil {
		return models.TranslationRecord{}, err
	}
	r, ok := s.store.remove(id)
	if !ok {
		s.metrics.RecordStoreOp("delete", ErrNotFound)
		return models.TranslationRecord{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	s.metrics.RecordStoreOp("delete", nil)
	s.metrics.SetStoreSize(s.store.len())
	s.log.Info().Int("id", id).Msg("Translation deleted")
	return r, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(models.TimestampLayout)
}

func (s *Service) publish(ctx context.Context, source string, rec models.TranslationRecord) {
	if s.publisher == nil {
		return
	}
	ev := models.TranslationEvent{
		EventType: models.EventTypeTranslationCreated,
		Source:    source,
		Record:    rec,
		Timestamp: s.now().UnixMilli(),
	}
	if err := s.publisher.PublishTranslation(ctx, ev); err != nil {
		s.log.Warn().Err(err).Int("id", rec.ID).Msg("Failed to publish translation event")
	}
}

// ParseID reads a leading integer the way a lenient parser would: leading
// whitespace, an optional sign, then digits up to the first non-digit.
// It reports false when no digits are found.
func ParseID(raw string) (int, bool) {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	sign := ""
	if s != "" && (s[0] == '+' || s[0] == '-') {
		sign, s = s[:1], s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(sign + s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
