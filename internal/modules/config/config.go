package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	telegramTokenENV  = "TELEGRAM_TOKEN"
	journalDSNENV     = "JOURNAL_DSN"
)

// Duration reads "10s" style YAML scalars, which plain time.Duration fields
// cannot.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config ...
type Config struct {
	// Endpoints of the remote terminal bridge: one REQ/REP port for
	// commands, one SUB port for pushed events.
	Terminal struct {
		Protocol string `yaml:"protocol"`
		Host     string `yaml:"host"`
		ReqPort  int    `yaml:"req_port"`
		SubPort  int    `yaml:"sub_port"`

		RequestTimeout Duration `yaml:"request_timeout"`
		EventQueueSize int      `yaml:"event_queue_size"`
	} `yaml:"terminal"`

	// Symbols subscribed at startup. "*" means subscribe everything.
	WatchSymbols []string `yaml:"watch_symbols"`

	// How often the runner drains queued events.
	ProcessInterval Duration `yaml:"process_interval"`

	Health struct {
		Addr string `yaml:"addr"`
	} `yaml:"health"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	// Postgres DSN of the order-event journal. Empty disables the journal.
	JournalDSN string `yaml:"journal_dsn"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	Debug bool `yaml:"debug"`
}

func NewConfig() (*Config, error) {
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	config := Config{}
	config.Terminal.Protocol = getenvDefault("MT4_PROTOCOL", "tcp")
	config.Terminal.Host = getenvDefault("MT4_HOST", "localhost")
	config.Terminal.ReqPort = intFromEnv("MT4_REQ_PORT", 32768)
	config.Terminal.SubPort = intFromEnv("MT4_SUB_PORT", 32769)
	config.Terminal.RequestTimeout = Duration(durationFromEnv("MT4_REQUEST_TIMEOUT", "10s"))
	config.Terminal.EventQueueSize = intFromEnv("MT4_EVENT_QUEUE_SIZE", 1024)
	config.ProcessInterval = Duration(durationFromEnv("PROCESS_INTERVAL", "100ms"))
	config.Health.Addr = getenvDefault("HEALTH_ADDR", ":8080")
	config.Debug = boolFromEnv("DEBUG", false)

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	token := os.Getenv(telegramTokenENV)
	if token != "" {
		config.Telegram.Token = token
	}

	dsn := os.Getenv(journalDSNENV)
	if dsn != "" {
		config.JournalDSN = dsn
	}

	if config.Terminal.EventQueueSize <= 0 {
		config.Terminal.EventQueueSize = 1024
	}
	if config.ProcessInterval <= 0 {
		config.ProcessInterval = Duration(100 * time.Millisecond)
	}

	return &config, nil
}

// ReqAddr is the command channel endpoint, e.g. "tcp://localhost:32768".
func (c *Config) ReqAddr() string {
	return fmt.Sprintf("%s://%s:%d", c.Terminal.Protocol, c.Terminal.Host, c.Terminal.ReqPort)
}

// SubAddr is the event channel endpoint.
func (c *Config) SubAddr() string {
	return fmt.Sprintf("%s://%s:%d", c.Terminal.Protocol, c.Terminal.Host, c.Terminal.SubPort)
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
