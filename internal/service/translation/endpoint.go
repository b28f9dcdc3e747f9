package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"speech-translate-service/internal/observability/metrics"
)

// EndpointConfig describes the remote translation endpoint.
type EndpointConfig struct {
	URL          string
	ClientID     string
	OutputFormat string
	// Timeout bounds one request; zero leaves it to the caller's context.
	Timeout time.Duration
}

// DefaultEndpointConfig returns the public web-client endpoint settings.
func DefaultEndpointConfig() EndpointConfig {
	return EndpointConfig{
		URL:          "https://translate.googleapis.com/translate_a/single",
		ClientID:     "gtx",
		OutputFormat: "t",
	}
}

type endpointClient struct {
	cfg     EndpointConfig
	http    *http.Client
	tracer  trace.Tracer
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// requestURL builds the GET url for one translation.
func (c *endpointClient) requestURL(text, sourceLang, targetLang string) string {
	q := url.Values{}
	q.Set("client", c.cfg.ClientID)
	q.Set("sl", sourceLang)
	q.Set("tl", targetLang)
	q.Set("dt", c.cfg.OutputFormat)
	q.Set("q", text)
	return c.cfg.URL + "?" + q.Encode()
}

// fetch calls the endpoint. A non-nil error means the caller should fall
// back; false means the response had an unexpected shape and the caller
// should keep the original text.
func (c *endpointClient) fetch(ctx context.Context, text, sourceLang, targetLang string) (string, bool, error) {
	ctx, span := c.tracer.Start(ctx, "translation.endpoint",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("translation.source_lang", sourceLang),
			attribute.String("translation.target_lang", targetLang),
		))
	defer span.End()

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	fail := func(reason string, err error) (string, bool, error) {
		c.metrics.RecordEndpointFailure(reason)
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		return "", false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(text, sourceLang, targetLang), nil)
	if err != nil {
		return fail("request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.RecordEndpointCall(time.Since(start).Seconds())
	if err != nil {
		return fail("network", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail("status", fmt.Errorf("translation endpoint error: %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail("read", err)
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return fail("decode", fmt.Errorf("decode translation response: %w", err))
	}

	translated, ok := parseResponse(data)
	if !ok {
		c.metrics.RecordStructuralMismatch()
		span.AddEvent("structural_mismatch")
		c.log.Warn().
			Str("sourceLang", sourceLang).
			Str("targetLang", targetLang).
			Int("bodyBytes", len(body)).
			Msg("Unexpected translation response shape, using original text")
		return "", false, nil
	}
	return translated, true, nil
}

// parseResponse extracts the translation from the nested-array body:
// the concatenation of element 0 of every entry of body[0]. It reports
// false when body, body[0] or body[0][0] is not a non-empty array, or when
// the concatenation is empty.
func parseResponse(data any) (string, bool) {
	top, ok := data.([]any)
	if !ok || len(top) == 0 {
		return "", false
	}
	segments, ok := top[0].([]any)
	if !ok || len(segments) == 0 {
		return "", false
	}
	if first, ok := segments[0].([]any); !ok || len(first) == 0 {
		return "", false
	}

	var out string
	for _, seg := range segments {
		item, ok := seg.([]any)
		if !ok || len(item) == 0 {
			continue
		}
		switch v := item[0].(type) {
		case string:
			out += v
		case nil:
		default:
			out += fmt.Sprint(v)
		}
	}
	if out == "" {
		return "", false
	}
	return out, true
}
