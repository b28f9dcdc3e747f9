package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"time"

	"speech-translate-service/internal/models"
	"speech-translate-service/internal/schema"
)

func main() {
	serverAddr := flag.String("server", "http://localhost:8080", "HTTP server base URL")
	text := flag.String("text", "hello", "Text to translate")
	sourceLang := flag.String("source", "en", "Source language")
	targetLang := flag.String("target", "es", "Target language")
	flag.Parse()

	body, err := json.Marshal(schema.TranslateRequest{
		Text:       *text,
		SourceLang: *sourceLang,
		TargetLang: *targetLang,
	})
	if err != nil {
		log.Fatalf("failed to encode request: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(*serverAddr+"/v1/translate", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("failed to call server: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("translate failed: %s: %s", resp.Status, data)
	}

	var rec models.TranslationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Fatalf("failed to decode record: %v", err)
	}
	log.Printf("Translation #%d [%s->%s] %q -> %q at %s",
		rec.ID, rec.SourceLang, rec.TargetLang, rec.SourceText, rec.TranslatedText, rec.Timestamp)
}
