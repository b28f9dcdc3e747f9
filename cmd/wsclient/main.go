// wsclient streams a WAV file through the speech WebSocket and prints the
// transcripts and translations it receives.
package main

import (
	"encoding/binary"
	"flag"
	"io"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"speech-translate-service/internal/models"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

// 100ms of 16kHz 16-bit mono audio
const chunkSize = 3200
const chunkIntervalMs = 100

func main() {
	audioFile := flag.String("audio", "testdata/sample-16khz.wav", "Path to WAV file (16-bit mono PCM)")
	serverAddr := flag.String("server", "localhost:8080", "HTTP server address")
	sourceLang := flag.String("source", "en", "Source language")
	targetLang := flag.String("target", "es", "Target language")
	wait := flag.Duration("wait", 10*time.Second, "How long to wait for results after streaming")
	flag.Parse()

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	// Read and validate WAV header
	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatalf("Failed to read WAV header: %v", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("Not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d",
		audioFormat, numChannels, sampleRate, bitsPerSample)

	if audioFormat != 1 { // PCM
		log.Fatal("Only PCM format supported")
	}

	q := url.Values{}
	q.Set("sourceLang", *sourceLang)
	q.Set("targetLang", *targetLang)
	q.Set("permission", "granted")
	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/v1/speech/ws", RawQuery: q.Encode()}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()
	log.Printf("Connected to %s", u.String())

	listening := make(chan struct{}, 1)
	translated := make(chan struct{}, 1)
	go readLoop(conn, listening, translated)

	if err := conn.WriteJSON(models.SpeechClientMessage{Type: models.SpeechMsgStart}); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	select {
	case <-listening:
	case <-time.After(5 * time.Second):
		log.Fatal("Server never started listening")
	}

	audioChunk := make([]byte, chunkSize)
	var totalBytes int64
	var chunkNum int
	startTime := time.Now()

	for {
		n, err := f.Read(audioChunk)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to read audio: %v", err)
		}

		chunkNum++
		totalBytes += int64(n)
		if err := conn.WriteMessage(websocket.BinaryMessage, audioChunk[:n]); err != nil {
			log.Fatalf("Failed to send frame: %v", err)
		}
		if chunkNum%10 == 0 {
			log.Printf("Sent chunk %d (%d bytes total)", chunkNum, totalBytes)
		}

		// Simulate real-time streaming
		time.Sleep(chunkIntervalMs * time.Millisecond)
	}

	log.Printf("Finished streaming: %d chunks, %d bytes in %v", chunkNum, totalBytes, time.Since(startTime))
	conn.WriteJSON(models.SpeechClientMessage{Type: models.SpeechMsgStop})

	select {
	case <-translated:
	case <-time.After(*wait):
		log.Printf("No translation within %v", *wait)
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func readLoop(conn *websocket.Conn, listening, translated chan<- struct{}) {
	for {
		var msg models.SpeechServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case models.SpeechMsgState:
			log.Printf("State: %s (permission=%s error=%s)", msg.State, msg.Permission, msg.Error)
			if msg.State == "listening" {
				signal(listening)
			}
		case models.SpeechMsgPermissionRequest:
			// Permission was reported as granted on connect.
			log.Printf("Unexpected permission request")
		case models.SpeechMsgNotification:
			log.Printf("[%s] %s", msg.Level, msg.Message)
		case models.SpeechMsgTranscript:
			log.Printf("Transcript (%s): %s", msg.TurnID, msg.Text)
		case models.SpeechMsgTranslation:
			if msg.Record != nil {
				log.Printf("Translation #%d [%s->%s]: %s", msg.Record.ID, msg.Record.SourceLang, msg.Record.TargetLang, msg.Record.TranslatedText)
			}
			signal(translated)
		case models.SpeechMsgError:
			log.Printf("Error: %s", msg.Message)
		}
	}
}

func signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
