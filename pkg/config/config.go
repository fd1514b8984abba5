package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the bridge relay configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
	Redis       RedisConfig       `yaml:"redis"`
	Relayer     RelayerConfig     `yaml:"relayer"`
	Chains      ChainsConfig      `yaml:"chains"`
	Attestation AttestationConfig `yaml:"attestation"`
	Bridge      BridgeConfig      `yaml:"bridge"`
	Auth        AuthConfig        `yaml:"auth"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Events      EventsConfig      `yaml:"events"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// MonitoringConfig contains metrics settings
type MonitoringConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

// RedisConfig contains the state store connection settings.
// An empty address leaves the store unconfigured and intake answers 503.
type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db" validate:"min=0"`
	KeyPrefix string `yaml:"key_prefix" default:"bridge:"`
}

// RelayerConfig holds the relay signing key shared by every chain client.
type RelayerConfig struct {
	PrivateKey string `yaml:"private_key"`
}

// ChainConfig describes one EVM network and its CCTP deployment
type ChainConfig struct {
	Name                string        `yaml:"name"`
	RPCURL              string        `yaml:"rpc_url" validate:"required,url"`
	ChainID             int64         `yaml:"chain_id" validate:"required,gt=0"`
	Domain              uint32        `yaml:"domain"`
	USDCAddress         string        `yaml:"usdc_address" validate:"omitempty,eth_addr"`
	TokenMessenger      string        `yaml:"token_messenger" validate:"omitempty,eth_addr"`
	MessageTransmitter  string        `yaml:"message_transmitter" validate:"required,eth_addr"`
	GasLimit            uint64        `yaml:"gas_limit" default:"300000"`
	MaxGasPrice         string        `yaml:"max_gas_price" validate:"omitempty,numeric"`
	ConfirmationTimeout time.Duration `yaml:"confirmation_timeout"`
}

// ChainsConfig lists the supported source chains and the single destination chain
type ChainsConfig struct {
	Destination ChainConfig            `yaml:"destination"`
	Sources     map[string]ChainConfig `yaml:"sources" validate:"required,min=1,dive"`
}

// AttestationConfig contains the attestation oracle settings
type AttestationConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	PollInterval   time.Duration `yaml:"poll_interval" default:"5s" validate:"gt=0"`
	Timeout        time.Duration `yaml:"timeout" default:"15m" validate:"gt=0"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"10s" validate:"gt=0"`
}

// BridgeConfig contains record retention and run ownership settings
type BridgeConfig struct {
	RecordTTL       time.Duration `yaml:"record_ttl" default:"24h" validate:"gt=0"`
	PaymentClaimTTL time.Duration `yaml:"payment_claim_ttl" default:"24h" validate:"gt=0"`
	RunLease        time.Duration `yaml:"run_lease" default:"1h" validate:"gt=0"`
}

// AuthConfig contains operator authentication settings.
// An empty secret disables the manual retry endpoint.
type AuthConfig struct {
	OperatorJWTSecret string `yaml:"operator_jwt_secret"`
	OperatorJWTIssuer string `yaml:"operator_jwt_issuer"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"5432"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"bridge_archive"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
}

// ArchiveConfig contains settings for the terminal record archive
type ArchiveConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Database DatabaseConfig `yaml:"database"`
}

// EventsConfig contains settings for the terminal event publisher
type EventsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url" validate:"required_if=Enabled true"`
	Exchange   string `yaml:"exchange" default:"bridge.events"`
	RoutingKey string `yaml:"routing_key" default:"bridge.terminal"`
}

// Load loads configuration from a YAML file. ${VAR} references are expanded
// from the environment before parsing so secrets can stay out of the file.
func Load(configPath string) (*Config, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(raw))))
}

// Parse decodes, defaults and validates a YAML configuration document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := setDefaults(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// defaults.Set does not descend into map values, so chain entries are
// defaulted one by one and written back.
func setDefaults(cfg *Config) error {
	if err := defaults.Set(cfg); err != nil {
		return err
	}
	if err := defaults.Set(&cfg.Chains.Destination); err != nil {
		return err
	}
	for name, chain := range cfg.Chains.Sources {
		if err := defaults.Set(&chain); err != nil {
			return err
		}
		if chain.Name == "" {
			chain.Name = name
		}
		cfg.Chains.Sources[name] = chain
	}
	if cfg.Chains.Destination.Name == "" {
		cfg.Chains.Destination.Name = "destination"
	}
	return nil
}

func validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return err
	}

	seen := map[int64]string{cfg.Chains.Destination.ChainID: cfg.Chains.Destination.Name}
	for name, chain := range cfg.Chains.Sources {
		if chain.USDCAddress == "" {
			return fmt.Errorf("chains.sources.%s.usdc_address is required", name)
		}
		if chain.TokenMessenger == "" {
			return fmt.Errorf("chains.sources.%s.token_messenger is required", name)
		}
		if chain.Domain == cfg.Chains.Destination.Domain {
			return fmt.Errorf("chains.sources.%s.domain must differ from the destination domain", name)
		}
		// one TxQueue per (chain id, signer) is only sound if chain ids are unique
		if other, ok := seen[chain.ChainID]; ok {
			return fmt.Errorf("chains.sources.%s.chain_id %d already used by %s", name, chain.ChainID, other)
		}
		seen[chain.ChainID] = name
	}

	if cfg.Archive.Enabled && cfg.Archive.Database.Host == "" {
		return fmt.Errorf("archive.database.host is required when archive is enabled")
	}
	return nil
}

// StoreConfigured reports whether the state store is configured
func (c *Config) StoreConfigured() bool {
	return c.Redis.Address != ""
}

// RelayKeyConfigured reports whether the relay signing key is configured
func (c *Config) RelayKeyConfigured() bool {
	return c.Relayer.PrivateKey != ""
}
