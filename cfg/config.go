package cfg

import (
	"encoding/json"
	"flag"
	"fmt"
	"hash/fnv"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
	"github.com/rs/zerolog/log"
)

// DefaultChannel is the pub/sub channel matched transactions are published on
const DefaultChannel = "program_transactions"

// Ingest source types
const (
	IngestNATS  = "nats"
	IngestKafka = "kafka"
)

// IngestConfiguration controls how host notifications reach the bridge
type IngestConfiguration struct {
	Type       string   `toml:"type"` // "nats" or "kafka"
	NatsURL    string   `toml:"nats_url"`
	Subject    string   `toml:"subject"`
	QueueGroup string   `toml:"queue_group"`
	Brokers    []string `toml:"brokers"`
	Topic      string   `toml:"topic"`
	GroupID    string   `toml:"group_id"`
	Workers    int      `toml:"workers"`
	BufferSize int      `toml:"buffer_size"`
}

// NotificationsConfiguration mirrors the host's notification enable switches
type NotificationsConfiguration struct {
	AccountData  bool `toml:"account_data"`
	Transactions bool `toml:"transactions"`
	Entries      bool `toml:"entries"`
}

// PublishConfiguration controls the outbound bus
type PublishConfiguration struct {
	Channel   string `toml:"channel"`
	Format    string `toml:"format"` // "text" or "json"
	TimeoutMS int    `toml:"timeout_ms"` // 0 uses the default, negative disables
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose          bool     `toml:"verbose"`
	Format           string   `toml:"format"` // "console" or "json"
	LogAccountOwners []string `toml:"log_account_owners"`
	LogAccounts      []string `toml:"log_accounts"`
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled bool `toml:"enabled"`
}

// AdminConfiguration for the HTTP admin/metrics listener
type AdminConfiguration struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
	// Token, when set, is required as a bearer token or X-Geyserbridge-Token header
	Token string `toml:"token"`
}

// SlotsConfiguration controls the slot status tracker
type SlotsConfiguration struct {
	RecentSize int `toml:"recent_size"`
}

// Configuration is the main configuration structure
type Configuration struct {
	InstanceID uint64 `toml:"instance_id"`

	// BusURL selects the outbound sink by scheme (redis://, nats://, kafka://).
	BusURL string `toml:"bus_url"`
	// RedisURL is the legacy name of BusURL.
	RedisURL         string   `toml:"redis_url"`
	TargetProgramIDs []string `toml:"target_program_ids"`

	Publish       PublishConfiguration       `toml:"publish"`
	Ingest        IngestConfiguration        `toml:"ingest"`
	Notifications NotificationsConfiguration `toml:"notifications"`
	Slots         SlotsConfiguration         `toml:"slots"`
	Logging       LoggingConfiguration       `toml:"logging"`
	Prometheus    PrometheusConfiguration    `toml:"prometheus"`
	Admin         AdminConfiguration         `toml:"admin"`
}

// legacyConfiguration is the original config.json layout
type legacyConfiguration struct {
	RedisURL         string   `json:"redis_url"`
	TargetProgramIDs []string `json:"target_program_ids"`
}

// Command line flags
var (
	ConfigPathFlag = flag.String("config", "config.toml", "Path to configuration file (.toml or legacy .json)")
	BusURLFlag     = flag.String("bus-url", "", "Outbound bus URL (overrides config)")
	AdminPortFlag  = flag.Int("admin-port", 0, "Admin HTTP port (overrides config)")
)

// Config is the process-wide configuration, populated with defaults
var Config = Default()

// Default returns a configuration with all defaults applied
func Default() *Configuration {
	return &Configuration{
		InstanceID:       0, // Auto-generate
		TargetProgramIDs: []string{},

		Publish: PublishConfiguration{
			Channel:   DefaultChannel,
			Format:    "text",
			TimeoutMS: 5000,
		},

		Ingest: IngestConfiguration{
			Type:       IngestNATS,
			NatsURL:    "nats://127.0.0.1:4222",
			Subject:    "geyser.notifications",
			Topic:      "geyser-notifications",
			GroupID:    "geyserbridge",
			Workers:    8,
			BufferSize: 1024,
		},

		Notifications: NotificationsConfiguration{
			AccountData:  true,
			Transactions: true,
			Entries:      false,
		},

		Slots: SlotsConfiguration{
			RecentSize: 512,
		},

		Logging: LoggingConfiguration{
			Verbose: false,
			Format:  "console",
		},

		Prometheus: PrometheusConfiguration{
			Enabled: true,
		},

		Admin: AdminConfiguration{
			Enabled:     true,
			BindAddress: "0.0.0.0",
			Port:        9191,
		},
	}
}

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config path is required")
	}

	if _, err := os.Stat(configPath); err != nil {
		return fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	log.Info().Str("path", configPath).Msg("Loading configuration")
	if err := decodeFile(configPath, Config); err != nil {
		return err
	}

	// Apply CLI overrides
	if *BusURLFlag != "" {
		Config.BusURL = *BusURLFlag
	}
	if *AdminPortFlag != 0 {
		Config.Admin.Port = *AdminPortFlag
	}

	if Config.BusURL == "" {
		Config.BusURL = Config.RedisURL
	}

	// Auto-generate instance ID if not set
	if Config.InstanceID == 0 {
		var err error
		Config.InstanceID, err = generateInstanceID()
		if err != nil {
			return fmt.Errorf("failed to generate instance ID: %w", err)
		}
		log.Info().Uint64("instance_id", Config.InstanceID).Msg("Auto-generated instance ID")
	}

	return nil
}

// decodeFile decodes a TOML file, or the legacy JSON layout for .json paths
func decodeFile(configPath string, into *Configuration) error {
	if strings.EqualFold(filepath.Ext(configPath), ".json") {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		var legacy legacyConfiguration
		if err := json.Unmarshal(data, &legacy); err != nil {
			return fmt.Errorf("failed to decode config: %w", err)
		}
		into.RedisURL = legacy.RedisURL
		into.TargetProgramIDs = legacy.TargetProgramIDs
		return nil
	}

	if _, err := toml.DecodeFile(configPath, into); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// generateInstanceID creates a stable instance ID based on machine ID
func generateInstanceID() (uint64, error) {
	id, err := machineid.ProtectedID("geyserbridge")
	if err != nil {
		return 0, err
	}

	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64(), nil
}

// Validate checks configuration for errors
func Validate() error {
	if Config.BusURL == "" {
		return fmt.Errorf("bus_url (or redis_url) is required")
	}

	u, err := url.Parse(Config.BusURL)
	if err != nil {
		return fmt.Errorf("invalid bus url: %w", err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("bus url %q has no scheme", Config.BusURL)
	}

	if Config.Publish.Channel == "" {
		return fmt.Errorf("publish channel must not be empty")
	}

	switch Config.Publish.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid publish format: %s", Config.Publish.Format)
	}

	switch Config.Ingest.Type {
	case IngestNATS:
		if Config.Ingest.NatsURL == "" || Config.Ingest.Subject == "" {
			return fmt.Errorf("nats ingest requires nats_url and subject")
		}
	case IngestKafka:
		if len(Config.Ingest.Brokers) == 0 || Config.Ingest.Topic == "" {
			return fmt.Errorf("kafka ingest requires brokers and topic")
		}
	default:
		return fmt.Errorf("invalid ingest type: %s", Config.Ingest.Type)
	}

	if Config.Ingest.Workers < 1 {
		return fmt.Errorf("ingest workers must be >= 1")
	}

	if Config.Ingest.BufferSize < 0 {
		return fmt.Errorf("ingest buffer size must be >= 0")
	}

	if Config.Slots.RecentSize < 1 {
		return fmt.Errorf("slot recent size must be >= 1")
	}

	if Config.Admin.Enabled && (Config.Admin.Port < 1 || Config.Admin.Port > 65535) {
		return fmt.Errorf("invalid admin port: %d", Config.Admin.Port)
	}

	return nil
}
