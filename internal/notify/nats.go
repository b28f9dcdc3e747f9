package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// publisher is the part of *nats.Conn the sink needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes notifications on "<prefix>.<event>".
type NATS struct {
	pub    publisher
	prefix string
}

// NewNATS creates a NATS sink on an existing connection.
func NewNATS(pub publisher, prefix string) *NATS {
	if prefix == "" {
		prefix = "notifications"
	}
	return &NATS{pub: pub, prefix: prefix}
}

// Subject returns the subject a notification is published on.
func (s *NATS) Subject(n Notification) string {
	return s.prefix + "." + string(n.Event)
}

func (s *NATS) Notify(n Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal notification")
		return
	}
	if err := s.pub.Publish(s.Subject(n), payload); err != nil {
		log.Warn().Err(err).Str("subject", s.Subject(n)).Msg("Failed to publish notification")
	}
}

// Connect dials the NATS servers in url (comma separated).
func Connect(url, name string, timeout time.Duration) (*nats.Conn, error) {
	if url == "" {
		return nil, errors.New("no NATS servers configured")
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	log.Info().Str("servers", url).Msg("Connected to NATS")
	return conn, nil
}
