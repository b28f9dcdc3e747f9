// Package config loads service configuration from an optional YAML file
// and environment variables. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Configuration is the full service configuration.
type Configuration struct {
	Service       ServiceConfig       `yaml:"service"`
	Translation   TranslationConfig   `yaml:"translation"`
	STT           STTConfig           `yaml:"stt"`
	AudioLimits   AudioLimitsConfig   `yaml:"audio_limits"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	NATS          NATSConfig          `yaml:"nats"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServiceConfig struct {
	Principal   string `yaml:"principal"`
	Environment string `yaml:"environment"`
	HTTPPort    string `yaml:"http_port"`
	GRPCPort    string `yaml:"grpc_port"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type TranslationConfig struct {
	EndpointURL    string        `yaml:"endpoint_url"`
	ClientID       string        `yaml:"client_id"`
	OutputFormat   string        `yaml:"output_format"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // zero means no timeout
	StoreDelay     time.Duration `yaml:"store_delay"`
}

type STTConfig struct {
	Provider          string        `yaml:"provider"` // mock, google, none
	LanguageCode      string        `yaml:"language_code"`
	SampleRateHz      int           `yaml:"sample_rate_hz"`
	InterimResults    bool          `yaml:"interim_results"`
	Continuous        bool          `yaml:"continuous"`
	MaxAlternatives   int           `yaml:"max_alternatives"`
	AudioEncoding     string        `yaml:"audio_encoding"`
	PermissionTimeout time.Duration `yaml:"permission_timeout"`
}

type AudioLimitsConfig struct {
	MaxAudioBytes int64         `yaml:"max_audio_bytes"`
	MaxDuration   time.Duration `yaml:"max_duration"`
}

type KafkaConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Brokers          []string `yaml:"brokers"`
	TopicTranscript  string   `yaml:"topic_transcript"`
	TopicTranslation string   `yaml:"topic_translation"`
	Principal        string   `yaml:"principal"`
}

type NATSConfig struct {
	URL            string        `yaml:"url"`
	SubjectPrefix  string        `yaml:"subject_prefix"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	LogFile        string `yaml:"log_file"`
	TracingEnabled bool   `yaml:"tracing_enabled"`
}

// Default returns the built-in configuration.
func Default() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Principal:   "svc-speech-translate",
			Environment: "production",
			HTTPPort:    "8080",
			GRPCPort:    "50051",
			MetricsAddr: ":9090",
		},
		Translation: TranslationConfig{
			EndpointURL:  "https://translate.googleapis.com/translate_a/single",
			ClientID:     "gtx",
			OutputFormat: "t",
			StoreDelay:   500 * time.Millisecond,
		},
		STT: STTConfig{
			Provider:          "mock",
			LanguageCode:      "en-US",
			SampleRateHz:      16000,
			InterimResults:    true,
			Continuous:        false,
			MaxAlternatives:   1,
			AudioEncoding:     "LINEAR16",
			PermissionTimeout: 30 * time.Second,
		},
		AudioLimits: AudioLimitsConfig{
			MaxAudioBytes: 5 * 1024 * 1024,
			MaxDuration:   time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:          false,
			Brokers:          nil,
			TopicTranscript:  "speech.transcript.final",
			TopicTranslation: "translation.created",
		},
		NATS: NATSConfig{
			SubjectPrefix:  "notifications",
			ConnectTimeout: 2 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load builds the configuration from defaults, the file named by CONFIG_FILE
// (if any) and environment variables.
func Load() *Configuration {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Ignoring config file")
		}
	}

	applyEnv(cfg)
	return cfg
}

// LoadFile overlays the YAML document at path onto cfg.
func LoadFile(path string, cfg *Configuration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Configuration) {
	s := &cfg.Service
	s.Principal = envOrDefault("SERVICE_PRINCIPAL", s.Principal)
	s.Environment = envOrDefault("ENV", s.Environment)
	s.HTTPPort = envOrDefault("HTTP_PORT", s.HTTPPort)
	s.GRPCPort = envOrDefault("GRPC_PORT", s.GRPCPort)
	s.MetricsAddr = envOrDefault("METRICS_ADDR", s.MetricsAddr)

	t := &cfg.Translation
	t.EndpointURL = envOrDefault("TRANSLATION_ENDPOINT_URL", t.EndpointURL)
	t.ClientID = envOrDefault("TRANSLATION_CLIENT_ID", t.ClientID)
	t.OutputFormat = envOrDefault("TRANSLATION_OUTPUT_FORMAT", t.OutputFormat)
	t.RequestTimeout = envOrDefaultDuration("TRANSLATION_REQUEST_TIMEOUT", t.RequestTimeout)
	t.StoreDelay = envOrDefaultDuration("TRANSLATION_STORE_DELAY", t.StoreDelay)

	st := &cfg.STT
	st.Provider = strings.ToLower(envOrDefault("STT_PROVIDER", st.Provider))
	st.LanguageCode = envOrDefault("STT_LANGUAGE_CODE", st.LanguageCode)
	st.SampleRateHz = envOrDefaultInt("STT_SAMPLE_RATE_HZ", st.SampleRateHz)
	st.InterimResults = envOrDefaultBool("STT_INTERIM_RESULTS", st.InterimResults)
	st.Continuous = envOrDefaultBool("STT_CONTINUOUS", st.Continuous)
	st.MaxAlternatives = envOrDefaultInt("STT_MAX_ALTERNATIVES", st.MaxAlternatives)
	st.AudioEncoding = envOrDefault("STT_AUDIO_ENCODING", st.AudioEncoding)
	st.PermissionTimeout = envOrDefaultDuration("STT_PERMISSION_TIMEOUT", st.PermissionTimeout)

	a := &cfg.AudioLimits
	a.MaxAudioBytes = envOrDefaultInt64("AUDIO_MAX_BYTES", a.MaxAudioBytes)
	a.MaxDuration = envOrDefaultDuration("AUDIO_MAX_DURATION", a.MaxDuration)

	k := &cfg.Kafka
	k.Enabled = envOrDefaultBool("KAFKA_ENABLED", k.Enabled)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		k.Brokers = splitList(brokers)
	}
	k.TopicTranscript = envOrDefault("KAFKA_TOPIC_TRANSCRIPT", k.TopicTranscript)
	k.TopicTranslation = envOrDefault("KAFKA_TOPIC_TRANSLATION", k.TopicTranslation)
	k.Principal = envOrDefault("KAFKA_PRINCIPAL", k.Principal)
	if k.Principal == "" {
		k.Principal = s.Principal
	}

	n := &cfg.NATS
	n.URL = envOrDefault("NATS_URL", n.URL)
	n.SubjectPrefix = envOrDefault("NATS_SUBJECT_PREFIX", n.SubjectPrefix)
	n.ConnectTimeout = envOrDefaultDuration("NATS_CONNECT_TIMEOUT", n.ConnectTimeout)

	o := &cfg.Observability
	o.LogLevel = strings.ToLower(envOrDefault("LOG_LEVEL", o.LogLevel))
	o.LogFormat = envOrDefault("LOG_FORMAT", o.LogFormat)
	o.LogFile = envOrDefault("LOG_FILE", o.LogFile)
	o.TracingEnabled = envOrDefaultBool("TRACING_ENABLED", o.TracingEnabled)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
