package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	dataDir := defaultDataDir()

	section(v, "ai", map[string]any{
		"provider":         "gemini",
		"model":            "gemini-3-flash-preview",
		"linkModel":        "gemini-3-pro-preview",
		"timeout":          90 * time.Second,
		"apiKey":           "",
		"maxRetries":       2,
		"temperature":      0.2,
		"useSystemPrompts": true,
	})
	// empty ai.analyze values inherit from ai.*
	section(v, "ai.analyze", map[string]any{
		"provider":  "",
		"model":     "",
		"linkModel": "",
		"apiKey":    "",
	})
	section(v, "ai.analyze.circuitBreaker", map[string]any{
		"enabled":          true,
		"maxRequests":      3,
		"interval":         time.Minute,
		"timeout":          time.Minute,
		"minRequests":      3,
		"failureThreshold": 0.6,
	})

	section(v, "server", map[string]any{
		"host":                   "localhost",
		"port":                   "8080",
		"readTimeout":            30 * time.Second,
		"writeTimeout":           120 * time.Second,
		"idleTimeout":            120 * time.Second,
		"apiKeys":                []string{},
		"maxRequestSize":         2 << 20,
		"sessionTTL":             30 * time.Minute,
		"sessionCleanupInterval": time.Minute,
		"maxSessions":            1000,
	})
	section(v, "server.tls", map[string]any{
		"enabled":    false,
		"minVersion": "1.2",
	})
	section(v, "server.rateLimit", map[string]any{
		"enabled":        false,
		"requestsPerMin": 60,
		"burstCapacity":  10,
		"byIP":           true,
		"byAPIKey":       false,
		"window":         time.Minute,
	})

	section(v, "app", map[string]any{
		"logLevel":             "info",
		"defaultFormat":        "text",
		"supportedFormats":     []string{"json", "text", "markdown"},
		"maxFileSize":          1 << 20,
		"shareURL":             "https://resumecvpro.app",
		"motivationalInterval": 3 * time.Second,
	})

	section(v, "storage", map[string]any{
		"driver":        "file",
		"dir":           dataDir,
		"sqlitePath":    filepath.Join(dataDir, "resumecvpro.db"),
		"redisURL":      "",
		"keyPrefix":     "resumecvpro:",
		"watch":         true,
		"watchDebounce": 250 * time.Millisecond,
	})

	section(v, "jobFetch", map[string]any{
		"enabled":   true,
		"timeout":   15 * time.Second,
		"maxBytes":  2 << 20,
		"userAgent": "resumecvpro/1.0 (+https://resumecvpro.app)",
	})

	section(v, "vault", map[string]any{
		"enabled":           false,
		"address":           "",
		"token":             "",
		"tokenFile":         "",
		"namespace":         "",
		"secrets.mount":     defaultKVMount,
		"secrets.apiKeys":   "",
		"secrets.geminiKey": "",
	})

	// serviceVersion and serviceInstance are filled in at startup when empty
	section(v, "observability", map[string]any{
		"enabled":                            false,
		"serviceName":                        "resumecvpro",
		"serviceVersion":                     "",
		"serviceInstance":                    "",
		"consoleOutput":                      false,
		"prettyPrint":                        true,
		"sampleRate":                         1.0,
		"metrics.collectionInterval":         15 * time.Second,
		"customMetrics.aiOperations.enabled": true,
		"customMetrics.aiOperations.trackDuration":   true,
		"customMetrics.aiOperations.trackTokenUsage": true,
		"customMetrics.businessMetrics.enabled":      true,
		"customMetrics.trackRateLimits":              true,
		"healthCheck.timeout":                        15 * time.Second,
		"healthCheck.aiModelCheckTimeout":            10 * time.Second,
	})
	// an empty port serves metrics on the API listener
	section(v, "observability.prometheus", map[string]any{
		"enabled":  false,
		"endpoint": "/metrics",
		"port":     "9090",
	})
	section(v, "observability.otlp", map[string]any{
		"enabled":  false,
		"endpoint": "http://localhost:4318",
		"insecure": true,
		"headers":  map[string]string{},
	})
}

// section registers defaults for keys relative to prefix.
func section(v *viper.Viper, prefix string, values map[string]any) {
	for key, value := range values {
		v.SetDefault(prefix+"."+key, value)
	}
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".resumecvpro", "data")
	}
	return filepath.Join(".resumecvpro", "data")
}
