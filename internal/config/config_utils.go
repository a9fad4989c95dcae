package config

import (
	"os"
	"strings"
)

// Sources records where the loaded configuration came from.
type Sources struct {
	File        string   // empty when only defaults and environment were used
	EnvVars     []string // recognised variables that were set, values omitted
	PromptFiles []string // custom prompt files read at load time
}

// watchedEnv lists the variables reported in Sources.
var watchedEnv = []string{
	"RESUMECVPRO_AI_APIKEY",
	"RESUMECVPRO_AI_MODEL",
	"RESUMECVPRO_AI_LINKMODEL",
	"RESUMECVPRO_SERVER_PORT",
	"RESUMECVPRO_SERVER_HOST",
	"RESUMECVPRO_SERVER_APIKEYS",
	"RESUMECVPRO_APP_LOGLEVEL",
	"RESUMECVPRO_STORAGE_DRIVER",
	"RESUMECVPRO_VAULT_ENABLED",
	"GEMINI_API_KEY",
}

func collectSources(file string) Sources {
	s := Sources{File: file}
	for _, name := range watchedEnv {
		if os.Getenv(name) != "" {
			s.EnvVars = append(s.EnvVars, name)
		}
	}
	return s
}

// applyFallbacks fills credentials from conventional environment variables
// that do not follow the RESUMECVPRO_ prefix scheme.
func (c *Config) applyFallbacks() {
	if c.AI.APIKey == "" {
		c.AI.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if len(c.Server.APIKeys) == 0 {
		c.Server.APIKeys = splitKeys(os.Getenv("RESUMECVPRO_SERVER_APIKEYS"))
	}
}

// splitKeys parses a comma separated key list, dropping blanks.
func splitKeys(s string) []string {
	var keys []string
	for key := range strings.SplitSeq(s, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
