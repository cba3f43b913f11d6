package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration of the PAS client.
// It is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Telescope TelescopeConfig `yaml:"telescope"`
	Client    ClientConfig    `yaml:"client"`
	Panels    PanelsConfig    `yaml:"panels"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TelescopeConfig identifies the telescope and the panel positions this
// client controls.
type TelescopeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Positions are panel position codes, e.g. "1121". Only these panels
	// and the devices attached to them are loaded.
	Positions []string `yaml:"positions"`
}

// ClientConfig points at the OPC UA client settings file.
type ClientConfig struct {
	// SettingsFile is the key/value file holding the UaClientConfig group.
	SettingsFile string `yaml:"settings_file"`

	// SetupSecurity creates the PKI directories and a self-signed client
	// certificate on startup when none exists.
	SetupSecurity bool `yaml:"setup_security"`
}

// PanelsConfig controls how panel controller endpoints are addressed.
type PanelsConfig struct {
	Scheme  string `yaml:"scheme"`
	Port    int    `yaml:"port"`
	SimMode bool   `yaml:"sim_mode"`
	SimHost string `yaml:"sim_host"`
}

// DatabaseConfig contains mapping database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
	ReadOnly    bool   `yaml:"read_only"`

	// Migrate applies the embedded mapping schema on startup. Development
	// and test databases only.
	Migrate bool `yaml:"migrate"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the topology HTTP API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values
//  2. YAML file values
//  3. Environment variables (PASCLIENT_SECTION_KEY)
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Telescope: TelescopeConfig{
			ID:   "p2pas",
			Name: "pSCT",
		},
		Client: ClientConfig{
			SettingsFile: "configs/pasclient.yaml",
		},
		Panels: PanelsConfig{
			Scheme: "opc.tcp",
			Port:   4840,
		},
		Database: DatabaseConfig{
			Path:        "./data/mapping.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "pasclient",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "pas",
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "pas",
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies PASCLIENT_* environment overrides.
// LOCALIP is honoured for the simulation host, matching the panel
// simulator tooling.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PASCLIENT_POSITIONS"); v != "" {
		cfg.Telescope.Positions = splitList(v)
	}
	if v := os.Getenv("PASCLIENT_SETTINGS_FILE"); v != "" {
		cfg.Client.SettingsFile = v
	}

	if v := os.Getenv("PASCLIENT_SIM_MODE"); v != "" {
		cfg.Panels.SimMode = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("LOCALIP"); v != "" {
		cfg.Panels.SimHost = v
	}
	if v := os.Getenv("PASCLIENT_SIM_HOST"); v != "" {
		cfg.Panels.SimHost = v
	}

	if v := os.Getenv("PASCLIENT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("PASCLIENT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PASCLIENT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PASCLIENT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("PASCLIENT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("PASCLIENT_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("PASCLIENT_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Telescope.ID == "" {
		errs = append(errs, "telescope.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.ReadOnly && c.Database.Migrate {
		errs = append(errs, "database.migrate cannot be used with database.read_only")
	}

	if c.Panels.Scheme == "" {
		errs = append(errs, "panels.scheme is required")
	}
	if c.Panels.Port < 1 || c.Panels.Port > 65535 {
		errs = append(errs, "panels.port must be between 1 and 65535")
	}
	if c.Panels.SimMode && c.Panels.SimHost == "" {
		errs = append(errs, "panels.sim_host is required in sim mode (set LOCALIP)")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
