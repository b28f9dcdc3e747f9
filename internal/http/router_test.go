package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"speech-translate-service/internal/models"
	"speech-translate-service/internal/observability/metrics"
	"speech-translate-service/internal/service/translation"
)

// translateEndpoint answers like the remote endpoint: [[["<text>", ...]]].
func translateEndpoint(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode([]any{[]any{[]any{"<" + q.Get("tl") + ">" + q.Get("q"), q.Get("q")}}})
}

func newTestTranslations(t *testing.T) *translation.Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(translateEndpoint))
	t.Cleanup(srv.Close)

	cfg := translation.Config{Endpoint: translation.DefaultEndpointConfig()}
	cfg.Endpoint.URL = srv.URL
	return translation.New(cfg,
		translation.WithHTTPClient(srv.Client()),
		translation.WithMetrics(metrics.NewMetrics(prometheus.NewRegistry())),
	)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(Deps{Translations: newTestTranslations(t)}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func decodeRecord(t *testing.T, data []byte) models.TranslationRecord {
	t.Helper()
	var rec models.TranslationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	ready := false
	srv := httptest.NewServer(NewRouter(Deps{
		Translations: newTestTranslations(t),
		Ready:        func() bool { return ready },
	}))
	defer srv.Close()

	if code, body := do(t, http.MethodGet, srv.URL+"/v1/liveness", ""); code != http.StatusOK || string(body) != "ok" {
		t.Errorf("liveness: %d %s", code, body)
	}
	if code, _ := do(t, http.MethodGet, srv.URL+"/v1/readiness", ""); code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before ready, got %d", code)
	}
	ready = true
	if code, _ := do(t, http.MethodGet, srv.URL+"/v1/readiness", ""); code != http.StatusOK {
		t.Errorf("expected 200 when ready, got %d", code)
	}
}

func TestTranslateEndpoint(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"ok", `{"text":"hello","sourceLang":"en","targetLang":"es"}`, http.StatusCreated},
		{"auto source", `{"text":"hello","sourceLang":"auto","targetLang":"fr"}`, http.StatusCreated},
		{"empty text", `{"text":"","sourceLang":"en","targetLang":"es"}`, http.StatusBadRequest},
		{"whitespace text", `{"text":"   ","sourceLang":"en","targetLang":"es"}`, http.StatusBadRequest},
		{"same languages", `{"text":"hi","sourceLang":"en","targetLang":"en"}`, http.StatusBadRequest},
		{"bad language", `{"text":"hi","sourceLang":"en","targetLang":"xx yy"}`, http.StatusBadRequest},
		{"malformed json", `{"text":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, http.MethodPost, srv.URL+"/v1/translate", tt.body)
			if code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, code, body)
			}
			if code == http.StatusCreated {
				rec := decodeRecord(t, body)
				if !strings.HasPrefix(rec.TranslatedText, "<") || rec.SourceText != "hello" {
					t.Errorf("unexpected record %+v", rec)
				}
			}
		})
	}
}

func TestTranslationsCRUD(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/v1/translations"

	code, body := do(t, http.MethodPost, base, `{"sourceText":"hi","translatedText":"hola","sourceLang":"en","targetLang":"es"}`)
	if code != http.StatusCreated {
		t.Fatalf("create: %d %s", code, body)
	}
	created := decodeRecord(t, body)
	if created.ID != 1 || created.Timestamp == "" {
		t.Errorf("unexpected created record %+v", created)
	}

	code, body = do(t, http.MethodGet, base, "")
	var all []models.TranslationRecord
	if code != http.StatusOK || json.Unmarshal(body, &all) != nil || len(all) != 1 {
		t.Fatalf("list: %d %s", code, body)
	}

	code, body = do(t, http.MethodGet, base+"/1", "")
	if code != http.StatusOK || decodeRecord(t, body) != created {
		t.Errorf("get: %d %s", code, body)
	}

	code, body = do(t, http.MethodPut, base+"/1", `{"translatedText":"buenas"}`)
	updated := decodeRecord(t, body)
	if code != http.StatusOK || updated.TranslatedText != "buenas" || updated.SourceText != "hi" {
		t.Errorf("update: %d %s", code, body)
	}

	code, body = do(t, http.MethodDelete, base+"/1", "")
	if code != http.StatusOK || decodeRecord(t, body).TranslatedText != "buenas" {
		t.Errorf("delete: %d %s", code, body)
	}

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		if code, _ := do(t, method, base+"/1", ""); code != http.StatusNotFound {
			t.Errorf("%s after delete: expected 404, got %d", method, code)
		}
	}
	if code, _ := do(t, http.MethodPut, base+"/1", `{}`); code != http.StatusNotFound {
		t.Errorf("update after delete: expected 404, got %d", code)
	}
}

func TestTranslationsIDParsing(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/v1/translations"

	do(t, http.MethodPost, base, `{"sourceText":"one"}`)
	do(t, http.MethodPost, base, `{"sourceText":"two"}`)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/2", http.StatusOK},
		{"/2abc", http.StatusOK},
		{"/abc", http.StatusNotFound},
		{"/99", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if code, body := do(t, http.MethodGet, base+tt.path, ""); code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, code, body)
			}
		})
	}
}

func TestCreateValidation(t *testing.T) {
	srv := newTestServer(t)

	code, body := do(t, http.MethodPost, srv.URL+"/v1/translations", `{"translatedText":"x"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil || !strings.Contains(resp.Error, "sourceText is required") {
		t.Errorf("unexpected error body %s", body)
	}
}

func TestLanguagesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	code, body := do(t, http.MethodGet, srv.URL+"/v1/languages", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var resp languagesResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Languages) == 0 || len(resp.DictionaryPairs) == 0 {
		t.Errorf("expected languages and dictionary pairs, got %+v", resp)
	}
}
