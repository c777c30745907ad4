// Package config holds the settings of an agent group process. Values come from a JSON
// file, from the environment, or both: the environment overrides the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Broker backends.
const (
	BrokerNATS  = "nats"
	BrokerLocal = "local"
)

// Snapshot backends.
const (
	SnapshotAvro   = "avro"
	SnapshotSQLite = "sqlite"
)

// Avro block codecs. An empty codec selects the writer default.
const (
	CodecNull      = "null"
	CodecDeflate   = "deflate"
	CodecSnappy    = "snappy"
	CodecZStandard = "zstandard"
)

// DefaultPollInterval is how long the dispatch loop sleeps between broker polls.
const DefaultPollInterval = 500 * time.Millisecond

// Config holds all agent group configuration.
type Config struct {
	Broker   Broker   `json:"broker"`
	Snapshot Snapshot `json:"snapshot"`
	Dispatch Dispatch `json:"dispatch"`
	Temporal Temporal `json:"temporal"`
}

// Broker selects and addresses the message broker.
type Broker struct {
	Backend  string `json:"backend"`
	URL      string `json:"url"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"-"` // never serialize

	// MaxBuffered bounds the undrained inbound messages held between dispatch polls.
	// Zero selects the broker default; overflow is dropped and reported.
	MaxBuffered int `json:"max_buffered"`
}

// Snapshot controls the per-group snapshot logs.
type Snapshot struct {
	Enabled bool   `json:"enabled"`
	Root    string `json:"root"`
	Backend string `json:"backend"`
	// Codec is the Avro block codec: null, deflate, snappy or zstandard.
	Codec string `json:"codec"`
}

type Dispatch struct {
	PollInterval Duration `json:"poll_interval"`
}

// Temporal addresses the cluster used to place groups on workers.
type Temporal struct {
	HostPort  string `json:"host_port"`
	Namespace string `json:"namespace"`
	TaskQueue string `json:"task_queue"`
}

// Duration is a time.Duration that reads and writes as a Go duration string in JSON.
// Plain numbers are taken as milliseconds, the same as in the environment.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v * float64(time.Millisecond)))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case nil:
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Broker: Broker{
			Backend: BrokerNATS,
		},
		Snapshot: Snapshot{
			Root:    "snapshots",
			Backend: SnapshotAvro,
			Codec:   CodecSnappy,
		},
		Dispatch: Dispatch{
			PollInterval: Duration(DefaultPollInterval),
		},
		Temporal: Temporal{
			Namespace: "default",
			TaskQueue: "agentgroup",
		},
	}
}

// Load reads a JSON file over the defaults and then applies the environment.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg = cfg.WithEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv reads configuration from environment variables with defaults.
func FromEnv() Config {
	return Default().WithEnv()
}

// WithEnv returns a copy of c with every variable that is set applied on top.
func (c Config) WithEnv() Config {
	c.Broker.Backend = getEnv("AGENTGROUP_BROKER", c.Broker.Backend)
	c.Broker.URL = getEnv("NATS_URL", c.Broker.URL)
	c.Broker.Name = getEnv("AGENTGROUP_NATS_NAME", c.Broker.Name)
	c.Broker.Username = getEnv("NATS_USER", c.Broker.Username)
	c.Broker.Password = getEnv("NATS_PASSWORD", c.Broker.Password)
	c.Broker.MaxBuffered = getIntEnv("AGENTGROUP_MAX_BUFFERED", c.Broker.MaxBuffered)

	c.Snapshot.Enabled = getBoolEnv("AGENTGROUP_SNAPSHOT_ENABLED", c.Snapshot.Enabled)
	c.Snapshot.Root = getEnv("AGENTGROUP_SNAPSHOT_ROOT", c.Snapshot.Root)
	c.Snapshot.Backend = getEnv("AGENTGROUP_SNAPSHOT_BACKEND", c.Snapshot.Backend)
	c.Snapshot.Codec = getEnv("AGENTGROUP_SNAPSHOT_CODEC", c.Snapshot.Codec)

	c.Dispatch.PollInterval = Duration(getDurationEnv("AGENTGROUP_POLL_INTERVAL", time.Duration(c.Dispatch.PollInterval)))

	c.Temporal.HostPort = getEnv("TEMPORAL_ADDRESS", c.Temporal.HostPort)
	c.Temporal.Namespace = getEnv("TEMPORAL_NAMESPACE", c.Temporal.Namespace)
	c.Temporal.TaskQueue = getEnv("AGENTGROUP_TASK_QUEUE", c.Temporal.TaskQueue)
	return c
}

// Validate checks that the selected backends and codec exist and that the limits are sane.
func (c Config) Validate() error {
	switch c.Broker.Backend {
	case BrokerNATS, BrokerLocal:
	default:
		return fmt.Errorf("unknown broker backend %q", c.Broker.Backend)
	}
	if c.Broker.MaxBuffered < 0 {
		return fmt.Errorf("max buffered messages must not be negative")
	}
	switch c.Snapshot.Backend {
	case SnapshotAvro, SnapshotSQLite:
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.Snapshot.Backend)
	}
	switch c.Snapshot.Codec {
	case "", CodecNull, CodecDeflate, CodecSnappy, CodecZStandard:
	default:
		return fmt.Errorf("unknown snapshot codec %q", c.Snapshot.Codec)
	}
	if c.Snapshot.Enabled && c.Snapshot.Root == "" {
		return fmt.Errorf("snapshot root is required when snapshots are enabled")
	}
	if c.Dispatch.PollInterval < 0 {
		return fmt.Errorf("poll interval must not be negative")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return defaultVal
}
