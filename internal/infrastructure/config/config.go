package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envPrefix is the prefix for all environment variable overrides.
const envPrefix = "AYLA"

// Config is the root configuration structure for the Ayla SDK and bridge daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Ayla     AylaConfig     `yaml:"ayla"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AylaConfig contains cloud account and service selection settings.
type AylaConfig struct {
	AppID           string `yaml:"app_id"`
	AppSecret       string `yaml:"app_secret"`
	CloudProvider   string `yaml:"cloud_provider"`
	ServiceLocation string `yaml:"service_location"`
	ServiceType     string `yaml:"service_type"`
	SessionName     string `yaml:"session_name"`
	Email           string `yaml:"email"`
	Password        string `yaml:"password"`
	UserAgent       string `yaml:"user_agent"`
	TimeoutMS       int    `yaml:"timeout_ms"`

	// ServiceURLs overrides base URLs per cloud service (e.g. "device", "user").
	ServiceURLs map[string]string `yaml:"service_urls"`

	AllowDSS             bool     `yaml:"allow_dss"`
	DSSSubscriptionTypes []string `yaml:"dss_subscription_types"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// CacheConfig contains local SDK cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTL     int  `yaml:"ttl"` // seconds an entry stays in memory
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

// MQTTReconnectConfig contains MQTT reconnection settings.
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

// APIConfig contains the local REST facade settings.
type APIConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig       `yaml:"cors"`
	JWTSecret string           `yaml:"jwt_secret"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// BridgeConfig controls how the daemon mirrors cloud state.
type BridgeConfig struct {
	PollInterval int      `yaml:"poll_interval"` // seconds
	DSNs         []string `yaml:"dsns"`          // empty means every device on the account
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// envOverrides lists every setting that may come from the environment.
// Empty values leave the file value untouched.
type envOverrides struct {
	AppID        string `envconfig:"APP_ID"`
	AppSecret    string `envconfig:"APP_SECRET"`
	Email        string `envconfig:"EMAIL"`
	Password     string `envconfig:"PASSWORD"`
	ServiceType  string `envconfig:"SERVICE_TYPE"`
	Location     string `envconfig:"SERVICE_LOCATION"`
	DatabasePath string `envconfig:"DATABASE_PATH"`
	MQTTHost     string `envconfig:"MQTT_HOST"`
	MQTTUsername string `envconfig:"MQTT_USERNAME"`
	MQTTPassword string `envconfig:"MQTT_PASSWORD"`
	InfluxToken  string `envconfig:"INFLUXDB_TOKEN"`
	APIHost      string `envconfig:"API_HOST"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
	LogLevel     string `envconfig:"LOG_LEVEL"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: AYLA_KEY
// For example: AYLA_APP_SECRET, AYLA_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Ayla: AylaConfig{
			CloudProvider:   "AWS",
			ServiceLocation: "USA",
			ServiceType:     "Development",
			SessionName:     "default",
			TimeoutMS:       5000,
			AllowDSS:        true,
			DSSSubscriptionTypes: []string{
				"datapoint",
				"datapointack",
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/ayla.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     300,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "aylad",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "ayla",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Bridge: BridgeConfig{
			PollInterval: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies AYLA_* environment variables on top of cfg.
func applyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return err
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Ayla.AppID, env.AppID)
	set(&cfg.Ayla.AppSecret, env.AppSecret)
	set(&cfg.Ayla.Email, env.Email)
	set(&cfg.Ayla.Password, env.Password)
	set(&cfg.Ayla.ServiceType, env.ServiceType)
	set(&cfg.Ayla.ServiceLocation, env.Location)
	set(&cfg.Database.Path, env.DatabasePath)
	set(&cfg.MQTT.Broker.Host, env.MQTTHost)
	set(&cfg.MQTT.Auth.Username, env.MQTTUsername)
	set(&cfg.MQTT.Auth.Password, env.MQTTPassword)
	set(&cfg.InfluxDB.Token, env.InfluxToken)
	set(&cfg.API.Host, env.APIHost)
	set(&cfg.API.JWTSecret, env.JWTSecret)
	set(&cfg.Logging.Level, env.LogLevel)
	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Ayla.AppID == "" {
		errs = append(errs, "ayla.app_id is required")
	}
	if c.Ayla.AppSecret == "" {
		errs = append(errs, "ayla.app_secret is required (set AYLA_APP_SECRET environment variable)")
	}
	if !oneOf(c.Ayla.CloudProvider, "AWS", "GCP", "VPC") {
		errs = append(errs, "ayla.cloud_provider must be AWS, GCP or VPC")
	}
	if !oneOf(c.Ayla.ServiceLocation, "USA", "China", "Europe") {
		errs = append(errs, "ayla.service_location must be USA, China or Europe")
	}
	if !oneOf(c.Ayla.ServiceType, "Development", "Field") {
		errs = append(errs, "ayla.service_type must be Development or Field")
	}
	if c.Ayla.SessionName == "" {
		errs = append(errs, "ayla.session_name is required")
	}
	if c.Ayla.TimeoutMS <= 0 {
		errs = append(errs, "ayla.timeout_ms must be positive")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	const minJWTSecretLength = 32
	if c.API.JWTSecret != "" && len(c.API.JWTSecret) < minJWTSecretLength {
		errs = append(errs, "api.jwt_secret must be at least 32 characters")
	}

	if c.Bridge.PollInterval < 0 {
		errs = append(errs, "bridge.poll_interval must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Timeout returns the default cloud request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Ayla.TimeoutMS) * time.Millisecond
}

// CacheTTL returns how long cache entries stay in memory.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

// PollInterval returns the bridge poll interval. Zero disables polling.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Bridge.PollInterval) * time.Second
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}
