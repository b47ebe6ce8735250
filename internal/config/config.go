package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config top-level struct
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Auth      AuthConfig      `yaml:"auth"`
	Purchase  PurchaseConfig  `yaml:"purchase"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// PurchaseConfig controls the purchase workflow. LedgerStrict decides what a
// failed ledger write does after the balance deduction and ticket insert
// succeeded: true rolls the whole purchase back, false issues the ticket
// anyway and only logs the gap.
type PurchaseConfig struct {
	TicketPrefix string `yaml:"ticket_prefix"`
	SuffixLen    int    `yaml:"suffix_len"`
	LedgerStrict bool   `yaml:"ledger_strict"`
}

// Load reads yaml file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// override secrets from env if present
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		cfg.Postgres.DSN = cfg.Postgres.DSN + " password=" + pw
	}
	if sec := os.Getenv("JWT_SECRET"); sec != "" {
		cfg.Auth.Secret = sec
	}
	if cfg.Purchase.TicketPrefix == "" {
		cfg.Purchase.TicketPrefix = "SL"
	}
	if cfg.Purchase.SuffixLen == 0 {
		cfg.Purchase.SuffixLen = 9
	}
	return &cfg, nil
}
