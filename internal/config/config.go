// Package config loads and validates the fieldnet node configuration from
// a YAML node file and environment variables. Environment variables win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all node configuration.
type Config struct {
	// Identity.
	NodeID  string
	MotorID string

	// Transport settings.
	WebSocketURL   string
	ReconnectDelay time.Duration

	// Simulation seeds; fixed seeds make runs reproducible.
	SimSeed   int64
	SpeakSeed int64

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// nodeFile mirrors config/node.yaml of a deployed node.
type nodeFile struct {
	NodeID    string `yaml:"node_id"`
	Transport struct {
		WebSocketURL string `yaml:"websocket_url"`
	} `yaml:"transport"`
}

// DefaultNodeFile is consulted when FIELDNET_NODE_CONFIG is unset.
const DefaultNodeFile = "config/node.yaml"

// Load reads the node YAML file (if present), then applies environment
// variables with sensible defaults on top.
func Load() (Config, error) {
	cfg := Config{
		NodeID:         "edge01",
		MotorID:        "motor01",
		WebSocketURL:   "",
		ReconnectDelay: 2 * time.Second,
		SimSeed:        42,
		SpeakSeed:      42,
		ServiceName:    "fieldnet",
		LogLevel:       "info",
	}

	path := envStr("FIELDNET_NODE_CONFIG", DefaultNodeFile)
	if blob, err := os.ReadFile(path); err == nil {
		var nf nodeFile
		if err := yaml.Unmarshal(blob, &nf); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if nf.NodeID != "" {
			cfg.NodeID = nf.NodeID
		}
		if nf.Transport.WebSocketURL != "" {
			cfg.WebSocketURL = nf.Transport.WebSocketURL
		}
	}

	cfg.NodeID = envStr("FIELDNET_NODE_ID", cfg.NodeID)
	cfg.MotorID = envStr("FIELDNET_MOTOR_ID", cfg.MotorID)
	cfg.WebSocketURL = envStr("FIELDNET_WS_URL", cfg.WebSocketURL)
	cfg.ReconnectDelay = envDuration("FIELDNET_RECONNECT_DELAY", cfg.ReconnectDelay)
	cfg.SimSeed = envInt64("FIELDNET_SIM_SEED", cfg.SimSeed)
	cfg.SpeakSeed = envInt64("FIELDNET_SPEAK_SEED", cfg.SpeakSeed)
	cfg.OTELEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)
	cfg.OTELInsecure = envBool("OTEL_EXPORTER_OTLP_INSECURE", cfg.OTELInsecure)
	cfg.ServiceName = envStr("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.LogLevel = envStr("FIELDNET_LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("config: FIELDNET_NODE_ID is required")
	}
	if c.MotorID == "" {
		return fmt.Errorf("config: FIELDNET_MOTOR_ID is required")
	}
	if c.WebSocketURL == "" {
		return fmt.Errorf("config: FIELDNET_WS_URL (or transport.websocket_url in the node file) is required")
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("config: FIELDNET_RECONNECT_DELAY must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
