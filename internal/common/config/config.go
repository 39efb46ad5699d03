package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port          int    `env:"PORT" envDefault:"8080"`
		Origin        string `env:"ORIGIN" envDefault:"http://localhost:3000"`
		SecureCookies bool   `env:"SECURE_COOKIES" envDefault:"false"`
	}

	Postgres struct {
		Host            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
		Port            int           `env:"POSTGRES_PORT" envDefault:"5432"`
		User            string        `env:"POSTGRES_USER" envDefault:"postgres"`
		Password        string        `env:"POSTGRES_PASSWORD" envDefault:""`
		Database        string        `env:"POSTGRES_DB" envDefault:"deathmatch"`
		SSLMode         string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
		MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"20"`
		MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
		ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
		AutoMigrate     bool          `env:"POSTGRES_AUTO_MIGRATE" envDefault:"true"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Chain struct {
		RPCURL            string        `env:"CHAIN_RPC_URL" envDefault:"https://testnet-rpc.monad.xyz/"`
		ChainID           int64         `env:"CHAIN_ID" envDefault:"10143"`
		PoolContract      string        `env:"POOL_CONTRACT_ADDRESS,required"`
		PoolID            int64         `env:"POOL_ID" envDefault:"1"`
		NativeSymbol      string        `env:"CHAIN_NATIVE_SYMBOL" envDefault:"MON"`
		RPCRateLimit      int           `env:"CHAIN_RPC_RATE_LIMIT" envDefault:"10"`
		RPCBurst          int           `env:"CHAIN_RPC_BURST" envDefault:"5"`
		ReadTimeout       time.Duration `env:"CHAIN_READ_TIMEOUT" envDefault:"10s"`
		PollInterval      time.Duration `env:"CHAIN_POLL_INTERVAL" envDefault:"4s"`
		PollMaxBackoff    time.Duration `env:"CHAIN_POLL_MAX_BACKOFF" envDefault:"1m"`
		ObservationWindow time.Duration `env:"CHAIN_OBSERVATION_WINDOW" envDefault:"2s"`
		ConfirmTimeout    time.Duration `env:"ACTION_CONFIRM_TIMEOUT" envDefault:"2m"`
		ReceiptPoll       time.Duration `env:"CHAIN_RECEIPT_POLL" envDefault:"3s"`
		// Hex private keys (without 0x) the backend may sign with, comma separated.
		SignerKeys []string `env:"CHAIN_SIGNER_KEYS" envSeparator:","`
	}

	Game struct {
		EntryFee string `env:"GAME_ENTRY_FEE" envDefault:"1"`
		MinBet   string `env:"GAME_MIN_BET" envDefault:"0.1"`
		MaxBet   string `env:"GAME_MAX_BET" envDefault:"10"`
	}

	Session struct {
		ProtectedRoute     string        `env:"SESSION_PROTECTED_ROUTE" envDefault:"/home"`
		PublicRoute        string        `env:"SESSION_PUBLIC_ROUTE" envDefault:"/"`
		WalletCookieMaxAge int           `env:"SESSION_WALLET_COOKIE_MAX_AGE" envDefault:"86400"`
		IdentityTTL        time.Duration `env:"SESSION_IDENTITY_TTL" envDefault:"24h"`
		SocialSessionTTL   time.Duration `env:"SESSION_SOCIAL_TTL" envDefault:"720h"`
		SocialBridgeSecret string        `env:"SOCIAL_BRIDGE_SECRET" envDefault:""`
		MountIdleTimeout   time.Duration `env:"SESSION_MOUNT_IDLE_TIMEOUT" envDefault:"30m"`
		RequireWalletProof bool          `env:"SESSION_REQUIRE_WALLET_PROOF" envDefault:"false"`
		WalletProofTTL     time.Duration `env:"WALLET_PROOF_TTL" envDefault:"5m"`
		WalletProofDomain  string        `env:"WALLET_PROOF_DOMAIN" envDefault:"monad-deathmatch.app"`
	}

	Telegram struct {
		BotToken    string        `env:"BOT_TOKEN" envDefault:""`
		InitDataTTL time.Duration `env:"TELEGRAM_INIT_DATA_TTL" envDefault:"24h"`
	}

	BetLabel struct {
		TTL time.Duration `env:"BET_LABEL_TTL" envDefault:"720h"`
	}

	Profile struct {
		CacheTTL time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"30s"`
	}
}

// PostgresDSN собирает строку подключения к Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.User, c.Postgres.Password,
		c.Postgres.Database, c.Postgres.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// GameRules are the business constants in native units.
type GameRules struct {
	EntryFee decimal.Decimal
	MinBet   decimal.Decimal
	MaxBet   decimal.Decimal
}

func (c *Config) GameRules() (GameRules, error) {
	var rules GameRules
	var err error
	if rules.EntryFee, err = decimal.NewFromString(c.Game.EntryFee); err != nil {
		return rules, fmt.Errorf("invalid GAME_ENTRY_FEE: %w", err)
	}
	if rules.MinBet, err = decimal.NewFromString(c.Game.MinBet); err != nil {
		return rules, fmt.Errorf("invalid GAME_MIN_BET: %w", err)
	}
	if rules.MaxBet, err = decimal.NewFromString(c.Game.MaxBet); err != nil {
		return rules, fmt.Errorf("invalid GAME_MAX_BET: %w", err)
	}
	if rules.MinBet.GreaterThan(rules.MaxBet) {
		return rules, fmt.Errorf("GAME_MIN_BET %s exceeds GAME_MAX_BET %s", rules.MinBet, rules.MaxBet)
	}
	return rules, nil
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		// .env может отсутствовать, в production переменные задаются окружением
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
