package infra

import (
	"fmt"
	"math/big"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DB_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"crashcore"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"crashcore"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"crashcore"`

	// Chain
	ChainRPCURL      string `env:"CHAIN_RPC_URL"`
	DepositAddress   string `env:"DEPOSIT_ADDRESS"`
	HotWalletPrivKey string `env:"HOT_WALLET_PRIVKEY"`
	ChainID          int64  `env:"CHAIN_ID" envDefault:"5003"`

	// Auth
	JWTSecret   string `env:"JWT_SECRET"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"3200"`

	// Round engine tunables
	BetWindowSec      int     `env:"T_BET" envDefault:"15"`
	CashWindowSec     int     `env:"T_CASH" envDefault:"3"`
	HouseEdge         float64 `env:"HOUSE_EDGE" envDefault:"0.01"`
	CashoutBufferMS   int64   `env:"CASHOUT_BUFFER_MS" envDefault:"50"`
	TickRateHz        int     `env:"TICK_RATE_HZ" envDefault:"10"`
	PerPlayerCooldown int64   `env:"PER_PLAYER_COOLDOWN_MS" envDefault:"1000"`
	RoundCap          int     `env:"ROUND_CAP" envDefault:"500"`

	// Indexer tunables
	ConfirmBlocks uint64 `env:"C_CONF" envDefault:"12"`
	ReorgBlocks   uint64 `env:"C_REORG" envDefault:"25"`
	PollInterval  int    `env:"INDEXER_POLL_SEC" envDefault:"5"`

	// Solvency tunables (wei, decimal strings)
	HotMin          string `env:"B_MIN" envDefault:"1000000000000000000"`
	HotMax          string `env:"B_MAX" envDefault:"100000000000000000000"`
	LiabilityFactor int64  `env:"LIABILITY_FACTOR" envDefault:"80"`
	PayoutRetries   int    `env:"N_RETRY" envDefault:"5"`

	// Stake limits (wei, decimal strings)
	MinStake string `env:"MIN_STAKE" envDefault:"1000000000000000"`
	MaxStake string `env:"MAX_STAKE" envDefault:"5000000000000000000"`
	CapMult  int64  `env:"CAP_MULT" envDefault:"1000000000"`

	// Kafka (settlement event fan-out, optional)
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaTopic   string `env:"KAFKA_SETTLEMENT_TOPIC" envDefault:"crash.settlements"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks required settings and rejects insecure configuration.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass the secret checks (local dev only).
func (c *Config) Validate() error {
	if c.ChainRPCURL == "" {
		return fmt.Errorf("CHAIN_RPC_URL is required")
	}
	if c.DepositAddress == "" {
		return fmt.Errorf("DEPOSIT_ADDRESS is required")
	}
	if _, ok := new(big.Int).SetString(c.HotMin, 10); !ok {
		return fmt.Errorf("B_MIN is not a valid wei amount")
	}
	if _, ok := new(big.Int).SetString(c.HotMax, 10); !ok {
		return fmt.Errorf("B_MAX is not a valid wei amount")
	}
	if _, ok := new(big.Int).SetString(c.MinStake, 10); !ok {
		return fmt.Errorf("MIN_STAKE is not a valid wei amount")
	}
	if _, ok := new(big.Int).SetString(c.MaxStake, 10); !ok {
		return fmt.Errorf("MAX_STAKE is not a valid wei amount")
	}
	if c.HouseEdge <= 0 || c.HouseEdge >= 1 {
		return fmt.Errorf("HOUSE_EDGE must be in (0,1)")
	}
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.AdminAPIKey == "" {
		return fmt.Errorf("ADMIN_API_KEY is required; set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	if c.HotWalletPrivKey == "" {
		return fmt.Errorf("HOT_WALLET_PRIVKEY is required")
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DB_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// MinStakeWei parses MIN_STAKE. Call after Validate.
func (c *Config) MinStakeWei() *big.Int { v, _ := new(big.Int).SetString(c.MinStake, 10); return v }

// MaxStakeWei parses MAX_STAKE. Call after Validate.
func (c *Config) MaxStakeWei() *big.Int { v, _ := new(big.Int).SetString(c.MaxStake, 10); return v }

// HotMinWei parses B_MIN. Call after Validate.
func (c *Config) HotMinWei() *big.Int { v, _ := new(big.Int).SetString(c.HotMin, 10); return v }

// HotMaxWei parses B_MAX. Call after Validate.
func (c *Config) HotMaxWei() *big.Int { v, _ := new(big.Int).SetString(c.HotMax, 10); return v }
