package schema

import (
	"errors"
	"strings"
	"testing"

	"speech-translate-service/internal/models"
)

func strPtr(s string) *string { return &s }

func TestValidate_TranslateRequest(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		req     TranslateRequest
		wantErr string
	}{
		{"valid", TranslateRequest{Text: "hello", SourceLang: "en", TargetLang: "es"}, ""},
		{"auto source", TranslateRequest{Text: "hello", SourceLang: "auto", TargetLang: "fr"}, ""},
		{"region subtag", TranslateRequest{Text: "hello", SourceLang: "en-US", TargetLang: "zh-CN"}, ""},
		{"missing text", TranslateRequest{SourceLang: "en", TargetLang: "es"}, "text is required"},
		{"missing target", TranslateRequest{Text: "hi", SourceLang: "en"}, "targetLang is required"},
		{"bad source", TranslateRequest{Text: "hi", SourceLang: "not a lang", TargetLang: "es"}, "sourceLang"},
		{"auto target", TranslateRequest{Text: "hi", SourceLang: "en", TargetLang: "auto"}, "targetLang cannot be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected %q in %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestValidate_CreateAndPatch(t *testing.T) {
	v := New()

	if err := v.Validate(CreateRequest{SourceText: "hi"}); err != nil {
		t.Errorf("optional languages should pass: %v", err)
	}
	if err := v.Validate(CreateRequest{}); err == nil {
		t.Error("expected sourceText required")
	}
	if err := v.Validate(CreateRequest{SourceText: "hi", TargetLang: "###"}); err == nil {
		t.Error("expected invalid target language")
	}

	if err := v.Validate(PatchRequest{}); err != nil {
		t.Errorf("empty patch should pass: %v", err)
	}
	if err := v.Validate(PatchRequest{TargetLang: strPtr("de")}); err != nil {
		t.Errorf("valid patch: %v", err)
	}
	if err := v.Validate(PatchRequest{SourceLang: strPtr("??")}); err == nil {
		t.Error("expected invalid patch language")
	}
}

func TestValidate_TranscriptEvent(t *testing.T) {
	v := New()

	ok := models.TranscriptEvent{
		EventType: models.EventTypeTranscriptFinal,
		SessionID: "s",
		TurnID:    "s-turn-1",
		Text:      "hello",
		IsFinal:   true,
		Timestamp: 1,
	}
	if err := v.Validate(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := ok
	bad.Text = ""
	if err := v.Validate(bad); err == nil {
		t.Error("expected empty text to fail")
	}
}

func TestValidLanguage(t *testing.T) {
	for _, code := range []string{"auto", "en", "pt-BR", "zh-Hant"} {
		if !ValidLanguage(code) {
			t.Errorf("expected %q valid", code)
		}
	}
	for _, code := range []string{"", "english!", "12345678901"} {
		if ValidLanguage(code) {
			t.Errorf("expected %q invalid", code)
		}
	}
}
