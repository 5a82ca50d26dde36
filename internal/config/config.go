package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Logger is the process-wide structured logger. Handlers that need logging
// import it from here so the output format stays uniform.
var Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))

var warnOnce sync.Once

// Config carries everything read from the environment at startup.
type Config struct {
	Port string

	// APIKeys are the bearer keys accepted on /v1 routes.
	APIKeys []string

	// FlushTimeout is how long the block buffer waits on a quiet stream
	// before force-flushing accumulated text.
	FlushTimeout time.Duration

	// StrictDuplicates enables the fatal duplicate policy. Diagnostic only;
	// must stay off in production.
	StrictDuplicates bool

	// SecondStartPrefix is the normalized prefix length used by the
	// second-start replay detector.
	SecondStartPrefix int

	UpstreamURL         string
	UpstreamModel       string
	UpstreamKey         string
	UpstreamTimeout     time.Duration
	UpstreamFingerprint bool
}

// Load reads configuration from FISCSTREAM_* environment variables,
// falling back to development defaults.
func Load() Config {
	return Config{
		Port:                envString("PORT", "5001"),
		APIKeys:             apiKeys(),
		FlushTimeout:        envDuration("FISCSTREAM_FLUSH_TIMEOUT", 2*time.Second),
		StrictDuplicates:    envBool("FISCSTREAM_STRICT_DUPLICATES", false),
		SecondStartPrefix:   envInt("FISCSTREAM_SECONDSTART_PREFIX", 160),
		UpstreamURL:         envString("FISCSTREAM_UPSTREAM_URL", "https://api.openai.com/v1/chat/completions"),
		UpstreamModel:       envString("FISCSTREAM_UPSTREAM_MODEL", "gpt-4o-mini"),
		UpstreamKey:         envString("FISCSTREAM_UPSTREAM_KEY", ""),
		UpstreamTimeout:     envDuration("FISCSTREAM_UPSTREAM_TIMEOUT", 120*time.Second),
		UpstreamFingerprint: envBool("FISCSTREAM_UPSTREAM_FINGERPRINT", false),
	}
}

func apiKeys() []string {
	raw := strings.TrimSpace(os.Getenv("FISCSTREAM_API_KEYS"))
	if raw == "" {
		warnOnce.Do(func() {
			Logger.Warn("FISCSTREAM_API_KEYS is not set, using insecure default \"dev\"; set real keys in production")
		})
		return []string{"dev"}
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func logLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("FISCSTREAM_LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envString(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envInt(name string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
