// Package events publishes transcript and translation events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"speech-translate-service/internal/models"
	"speech-translate-service/internal/observability/metrics"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes domain events to one Kafka topic per event type.
// Without brokers it runs in log-only mode.
type Publisher struct {
	writerTranscript  messageWriter
	writerTranslation messageWriter
	principal         string
	topicTranscript   string
	topicTranslation  string
	enabled           bool
	metrics           *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers          []string
	TopicTranscript  string
	TopicTranslation string
	Principal        string
	Enabled          bool
}

// New creates a Kafka event publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:        cfg.Principal,
			topicTranscript:  cfg.TopicTranscript,
			topicTranslation: cfg.TopicTranslation,
			enabled:          false,
			metrics:          m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTranscript", cfg.TopicTranscript).
		Str("topicTranslation", cfg.TopicTranslation).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerTranscript:  newWriter(cfg.TopicTranscript),
		writerTranslation: newWriter(cfg.TopicTranslation),
		principal:         cfg.Principal,
		topicTranscript:   cfg.TopicTranscript,
		topicTranslation:  cfg.TopicTranslation,
		enabled:           true,
		metrics:           m,
	}
}

// PublishTranscript publishes a final transcript keyed by session id, so a
// session's transcripts stay ordered within one partition.
func (p *Publisher) PublishTranscript(ctx context.Context, ev models.TranscriptEvent) error {
	return p.publish(ctx, p.writerTranscript, p.topicTranscript, ev.EventType, ev.SessionID, ev)
}

// PublishTranslation publishes a translation record keyed by record id.
func (p *Publisher) PublishTranslation(ctx context.Context, ev models.TranslationEvent) error {
	return p.publish(ctx, p.writerTranslation, p.topicTranslation, ev.EventType, strconv.Itoa(ev.Record.ID), ev)
}

func (p *Publisher) publish(ctx context.Context, writer messageWriter, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordPublish(topic, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordPublish(topic, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordPublish(topic, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTranscript != nil {
		if e := p.writerTranscript.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing transcript writer")
			err = e
		}
	}
	if p.writerTranslation != nil {
		if e := p.writerTranslation.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing translation writer")
			err = e
		}
	}
	return err
}
