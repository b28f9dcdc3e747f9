// eventviewer consumes the transcript and translation topics from Kafka and
// rebroadcasts every event to WebSocket clients.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"speech-translate-service/internal/observability/logging"
)

// viewerEvent is what clients receive: the raw event and where it came from.
type viewerEvent struct {
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	EventType string          `json:"eventType"`
	Event     json.RawMessage `json:"event"`
}

// Hub manages WebSocket connections
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan viewerEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan viewerEvent, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("clients", n).Msg("Client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("clients", n).Msg("Client disconnected")

		case event := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(event); err != nil {
					log.Warn().Err(err).Msg("Write error")
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev
	},
}

func wsHandler(ctx context.Context, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("WebSocket upgrade error")
			return
		}
		select {
		case hub.register <- conn:
		case <-ctx.Done():
			conn.Close()
			return
		}

		// Keep connection alive, handle disconnects
		go func() {
			defer func() {
				select {
				case hub.unregister <- conn:
				case <-ctx.Done():
				}
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}
}

func consumeKafka(ctx context.Context, hub *Hub, brokers []string, topic string, since time.Duration) error {
	// Use partition reader without consumer group (works better through port-forward)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-since)); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Could not rewind, reading from current offset")
	}
	log.Info().Str("topic", topic).Dur("since", since).Msg("Consuming from Kafka")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Str("topic", topic).Msg("Kafka read error")
			time.Sleep(time.Second)
			continue
		}
		if !json.Valid(msg.Value) {
			log.Warn().Str("topic", topic).Msg("Skipping non-JSON message")
			continue
		}

		ev := viewerEvent{Topic: topic, Key: string(msg.Key), Event: msg.Value}
		for _, h := range msg.Headers {
			if h.Key == "eventType" {
				ev.EventType = string(h.Value)
			}
		}
		log.Debug().Str("topic", topic).Str("key", ev.Key).Str("eventType", ev.EventType).Msg("Received event")

		select {
		case hub.broadcast <- ev:
		case <-ctx.Done():
			return nil
		}
	}
}

func main() {
	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicTranscript := flag.String("topic-transcript", "speech.transcript.final", "Final transcript topic")
	topicTranslation := flag.String("topic-translation", "translation.created", "Translation topic")
	since := flag.Duration("since", time.Hour, "Replay events newer than this")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console", Service: "eventviewer"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := newHub()
	brokerList := strings.Split(*brokers, ",")

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler(ctx, hub))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("event viewer: connect a WebSocket client to /ws\n"))
	})
	server := &http.Server{Addr: ":" + *port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.run(gctx)
		return nil
	})
	g.Go(func() error { return consumeKafka(gctx, hub, brokerList, *topicTranscript, *since) })
	g.Go(func() error { return consumeKafka(gctx, hub, brokerList, *topicTranslation, *since) })
	g.Go(func() error {
		log.Info().Str("port", *port).Strs("brokers", brokerList).Msg("Event viewer starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Event viewer stopped")
		os.Exit(1)
	}
}
