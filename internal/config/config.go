// Package config parses the legacy iwango.cfg format: one "Key=Value"
// or "Key: Value" pair per line, # starts a comment, keys are
// case-insensitive. Per-title overrides are keyed by the title code,
// e.g. "DaytonaServerName" or "golfMOTD".
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const DefaultServerName = "IWANGO_Server_1"

type Config struct {
	DatabasePath   string
	DiscordWebhook string
	DisableIPCheck bool
	LogLevel       string
	LogFormat      string // "json" or "console"

	titles map[string]*titleOverrides
}

type titleOverrides struct {
	serverName string
	motd       string
	launchPort int
}

func defaults() *Config {
	return &Config{
		DatabasePath: "iwango.db",
		LogLevel:     "info",
		LogFormat:    "console",
		titles:       make(map[string]*titleOverrides),
	}
}

// Load reads the config file at path. A missing file is not an error:
// every key has a default and the stock deployment runs without one.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	for i, line := range strings.Split(string(data), "\n") {
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := splitPair(line)
		if !ok {
			return nil, fmt.Errorf("parse config %s: line %d: no separator", path, i+1)
		}
		if err := cfg.set(key, value); err != nil {
			return nil, fmt.Errorf("parse config %s: line %d: %w", path, i+1, err)
		}
	}
	return cfg, nil
}

// splitPair splits at the first '=' or ':', whichever comes first.
func splitPair(line string) (key, value string, ok bool) {
	idx := strings.IndexAny(line, "=:")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func (c *Config) set(key, value string) error {
	switch strings.ToLower(key) {
	case "databasepath":
		c.DatabasePath = value
	case "discordwebhook":
		c.DiscordWebhook = value
	case "disableipcheck":
		c.DisableIPCheck = parseBool(value)
	case "loglevel":
		c.LogLevel = value
	case "logformat":
		c.LogFormat = value
	default:
		return c.setTitleKey(key, value)
	}
	return nil
}

func (c *Config) setTitleKey(key, value string) error {
	lk := strings.ToLower(key)
	switch {
	case strings.HasSuffix(lk, "servername"):
		c.overrides(strings.TrimSuffix(lk, "servername")).serverName = value
	case strings.HasSuffix(lk, "motd"):
		c.overrides(strings.TrimSuffix(lk, "motd")).motd = value
	case strings.HasSuffix(lk, "launchport"):
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("key %s: %w", key, err)
		}
		c.overrides(strings.TrimSuffix(lk, "launchport")).launchPort = port
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

func (c *Config) overrides(code string) *titleOverrides {
	o, ok := c.titles[code]
	if !ok {
		o = &titleOverrides{}
		c.titles[code] = o
	}
	return o
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// ServerName returns the advertised server name for a title code.
func (c *Config) ServerName(code string) string {
	if o, ok := c.titles[strings.ToLower(code)]; ok && o.serverName != "" {
		return o.serverName
	}
	return DefaultServerName
}

// MOTD returns the login message for a title code, or "".
func (c *Config) MOTD(code string) string {
	if o, ok := c.titles[strings.ToLower(code)]; ok {
		return o.motd
	}
	return ""
}

// LaunchPort returns the port advertised in the game-start handoff for
// a title code, or def when not configured.
func (c *Config) LaunchPort(code string, def int) int {
	if o, ok := c.titles[strings.ToLower(code)]; ok && o.launchPort != 0 {
		return o.launchPort
	}
	return def
}
