// Package config loads service settings from defaults, an optional YAML
// file and the environment, in that order.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	KafkaBrokers      []string
	KafkaResultsTopic string
	KafkaGroupID      string

	WatchNodeID string
	CookieName  string

	// CORSAllowedOrigins are the foreign origins allowed to call the API.
	CORSAllowedOrigins []string

	AutoRollDelayMin time.Duration
	AutoRollDelayMax time.Duration
	MultiplyDelayMin time.Duration
	MultiplyDelayMax time.Duration

	LogFormat string
	LogLevel  string
}

// fileConfig mirrors Config in the YAML file. Delays are milliseconds.
type fileConfig struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	Kafka       struct {
		Brokers      []string `yaml:"brokers"`
		ResultsTopic string   `yaml:"results_topic"`
		GroupID      string   `yaml:"group_id"`
	} `yaml:"kafka"`
	WatchNodeID *string `yaml:"watch_node_id"`
	CookieName  string  `yaml:"cookie_name"`
	CORS        struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	AutoRoll    struct {
		DelayMinMS int `yaml:"delay_min_ms"`
		DelayMaxMS int `yaml:"delay_max_ms"`
	} `yaml:"autoroll"`
	Multiply struct {
		DelayMinMS int `yaml:"delay_min_ms"`
		DelayMaxMS int `yaml:"delay_max_ms"`
	} `yaml:"multiply"`
	Log struct {
		Format string `yaml:"format"`
		Level  string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:              "8080",
		KafkaResultsTopic: "betting.results",
		KafkaGroupID:      "betting-dashboard",
		WatchNodeID:       "double_your_btc_result",
		CookieName:        "betting_state",
		AutoRollDelayMin:  5000 * time.Millisecond,
		AutoRollDelayMax:  10000 * time.Millisecond,
		MultiplyDelayMin:  3000 * time.Millisecond,
		MultiplyDelayMax:  7000 * time.Millisecond,
		LogFormat:         "json",
		LogLevel:          "info",
	}
}

// Load builds a Config. path may be empty, in which case CONFIG_FILE is
// consulted. Only an unreadable or malformed file is an error; bad
// individual values fall back to their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&c.Port, fc.Port)
	setString(&c.DatabaseURL, fc.DatabaseURL)
	setString(&c.RedisURL, fc.RedisURL)
	if len(fc.Kafka.Brokers) > 0 {
		c.KafkaBrokers = fc.Kafka.Brokers
	}
	setString(&c.KafkaResultsTopic, fc.Kafka.ResultsTopic)
	setString(&c.KafkaGroupID, fc.Kafka.GroupID)
	// An explicit empty watch_node_id disables the watcher.
	if fc.WatchNodeID != nil {
		c.WatchNodeID = *fc.WatchNodeID
	}
	setString(&c.CookieName, fc.CookieName)
	if len(fc.CORS.AllowedOrigins) > 0 {
		c.CORSAllowedOrigins = fc.CORS.AllowedOrigins
	}
	setMillis(&c.AutoRollDelayMin, fc.AutoRoll.DelayMinMS)
	setMillis(&c.AutoRollDelayMax, fc.AutoRoll.DelayMaxMS)
	setMillis(&c.MultiplyDelayMin, fc.Multiply.DelayMinMS)
	setMillis(&c.MultiplyDelayMax, fc.Multiply.DelayMaxMS)
	setString(&c.LogFormat, fc.Log.Format)
	setString(&c.LogLevel, fc.Log.Level)
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		c.KafkaBrokers = splitList(v)
	}
	c.KafkaResultsTopic = getEnv("KAFKA_RESULTS_TOPIC", c.KafkaResultsTopic)
	c.KafkaGroupID = getEnv("KAFKA_GROUP_ID", c.KafkaGroupID)
	c.WatchNodeID = getEnv("WATCH_NODE_ID", c.WatchNodeID)
	c.CookieName = getEnv("COOKIE_NAME", c.CookieName)
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}
	c.AutoRollDelayMin = getEnvMillis("AUTOROLL_DELAY_MIN", c.AutoRollDelayMin)
	c.AutoRollDelayMax = getEnvMillis("AUTOROLL_DELAY_MAX", c.AutoRollDelayMax)
	c.MultiplyDelayMin = getEnvMillis("MULTIPLY_DELAY_MIN", c.MultiplyDelayMin)
	c.MultiplyDelayMax = getEnvMillis("MULTIPLY_DELAY_MAX", c.MultiplyDelayMax)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func (c *Config) normalize() {
	def := Default()
	if strings.TrimSpace(c.Port) == "" {
		c.Port = def.Port
	}
	if strings.TrimSpace(c.CookieName) == "" {
		c.CookieName = def.CookieName
	}
	if c.AutoRollDelayMin > c.AutoRollDelayMax {
		c.AutoRollDelayMin, c.AutoRollDelayMax = c.AutoRollDelayMax, c.AutoRollDelayMin
	}
	if c.MultiplyDelayMin > c.MultiplyDelayMax {
		c.MultiplyDelayMin, c.MultiplyDelayMax = c.MultiplyDelayMax, c.MultiplyDelayMin
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
		c.LogFormat = strings.ToLower(c.LogFormat)
	default:
		c.LogFormat = def.LogFormat
	}
}

// Level maps LogLevel onto slog. Unknown names mean info.
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// KafkaEnabled reports whether a results topic can be consumed.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaResultsTopic != ""
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvMillis(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	ms, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setMillis(dst *time.Duration, ms int) {
	if ms > 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
