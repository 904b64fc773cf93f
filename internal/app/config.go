package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"walletlink/internal/domain"
	"walletlink/internal/logging"
	"walletlink/internal/protocol/namespace"
	"walletlink/internal/services/sign"
	"walletlink/internal/store"
)

// Relay backends.
const (
	RelayNATS   = "nats"
	RelayMemory = "memory"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds runtime wiring options for building the app.
type Config struct {
	Log      logging.Config  `yaml:"log"`
	Relay    RelayConfig     `yaml:"relay"`
	Store    StoreConfig     `yaml:"store"`
	Keystore KeystoreConfig  `yaml:"keystore"`
	Verify   VerifyConfig    `yaml:"verify"`
	Engine   EngineConfig    `yaml:"engine"`
	Metadata domain.Metadata `yaml:"metadata"`
	Wallet   WalletConfig    `yaml:"wallet"`
}

type RelayConfig struct {
	Backend         string        `yaml:"backend"`
	URL             string        `yaml:"url"`
	ClientID        string        `yaml:"client_id"`
	Stream          string        `yaml:"stream"`
	MaxAge          time.Duration `yaml:"max_age"`
	ReconnectWait   time.Duration `yaml:"reconnect_wait"`
	MaxReconnects   int           `yaml:"max_reconnects"`
	CredentialsFile string        `yaml:"credentials_file"`
}

type StoreConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

// KeystoreConfig names the environment variable holding the passphrase
// that seals private keys and topic secrets at rest. Keys are stored in
// the clear when the variable is unset or empty.
type KeystoreConfig struct {
	PassphraseEnv string `yaml:"passphrase_env"`
}

type VerifyConfig struct {
	URL       string        `yaml:"url"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cache_size"`
}

type EngineConfig struct {
	SessionTTL       time.Duration `yaml:"session_ttl"`
	ProposalTTL      time.Duration `yaml:"proposal_ttl"`
	StrictNamespaces bool          `yaml:"strict_namespaces"`
}

// WalletConfig lists the CAIP-10 accounts offered when approving.
type WalletConfig struct {
	Accounts []string `yaml:"accounts"`
}

// LoadConfig loads configuration from a YAML file. A missing file yields
// the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: logging.DefaultConfig(logging.ProfileRuntime),
		Relay: RelayConfig{
			Backend:       RelayNATS,
			URL:           "nats://127.0.0.1:4222",
			Stream:        "RELAY",
			MaxAge:        24 * time.Hour,
			ReconnectWait: 2 * time.Second,
			MaxReconnects: -1,
		},
		Store: StoreConfig{
			Backend: store.BackendSQLite,
			Path:    "walletlink.db",
		},
		Keystore: KeystoreConfig{PassphraseEnv: "WALLETLINK_PASSPHRASE"},
		Verify: VerifyConfig{
			Timeout:   5 * time.Second,
			CacheSize: 256,
		},
		Engine: EngineConfig{
			SessionTTL:  sign.DefaultSessionTTL,
			ProposalTTL: sign.DefaultProposalTTL,
		},
		Metadata: domain.Metadata{
			Name:        "walletlink",
			Description: "walletlink node",
			URL:         "https://walletlink.invalid",
			Icons:       []string{},
		},
	}
}

// Validate reports the first setting that cannot be wired.
func (c *Config) Validate() error {
	switch c.Relay.Backend {
	case RelayNATS:
		if c.Relay.URL == "" {
			return fmt.Errorf("%w: relay.url is required for nats", ErrInvalidConfig)
		}
	case RelayMemory:
	default:
		return fmt.Errorf("%w: relay.backend %q", ErrInvalidConfig, c.Relay.Backend)
	}
	switch c.Store.Backend {
	case store.BackendMemory:
	case store.BackendFile, store.BackendSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store.path is required for %s", ErrInvalidConfig, c.Store.Backend)
		}
	case store.BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("%w: store.redis_addr is required for redis", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: store.backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	if c.Engine.SessionTTL <= 0 || c.Engine.ProposalTTL <= 0 {
		return fmt.Errorf("%w: engine lifetimes must be positive", ErrInvalidConfig)
	}
	for _, a := range c.Wallet.Accounts {
		if !namespace.IsAccount(a) {
			return fmt.Errorf("%w: wallet account %q is not CAIP-10", ErrInvalidConfig, a)
		}
	}
	return nil
}

func (c *Config) namespaceMode() namespace.Mode {
	if c.Engine.StrictNamespaces {
		return namespace.Exact
	}
	return namespace.Superset
}

func (c *Config) passphrase() string {
	if c.Keystore.PassphraseEnv == "" {
		return ""
	}
	return os.Getenv(c.Keystore.PassphraseEnv)
}
