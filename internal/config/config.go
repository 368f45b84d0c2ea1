// Package config handles service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Cache backends for the shared tier.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds the service configuration.
type Config struct {
	BaseRPCURL           string
	BaseWSURL            string
	ReferenceCoinAddress string
	NFTContractAddress   string
	DAOTokenAddress      string
	DAOProfileHandle     string

	ZoraAPIURL   string
	ZoraAPIKey   string
	NeynarAPIURL string
	NeynarAPIKey string
	SubgraphURL  string

	CacheBackend     string
	PostgresDSN      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	ClickhouseDSN    string
	RevalidateSecret string

	MinCoinBalance     float64
	MinNFTBalance      int64
	MaxFarcasterUsers  int
	MaxItemsPerCreator int
	LRUSize            int
	LRUTTL             time.Duration
	RevalidateAfter    time.Duration
	RequestTimeout     time.Duration

	HTTPAddr    string
	LogLevel    string
	Environment string
}

// SocialEnabled reports whether the social API credential is present.
func (c *Config) SocialEnabled() bool {
	return c.NeynarAPIKey != ""
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first without overriding set variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c := &Config{
		BaseRPCURL:           os.Getenv("BASE_RPC_URL"),
		BaseWSURL:            os.Getenv("BASE_WS_URL"),
		ReferenceCoinAddress: strings.ToLower(os.Getenv("REFERENCE_COIN_ADDRESS")),
		NFTContractAddress:   strings.ToLower(envString("NFT_CONTRACT_ADDRESS", "0x880fb3cf5c6cc2d7dfc13a993e839a9411200c17")),
		DAOTokenAddress:      strings.ToLower(os.Getenv("DAO_TOKEN_ADDRESS")),
		DAOProfileHandle:     os.Getenv("DAO_PROFILE_HANDLE"),

		ZoraAPIURL:   envString("ZORA_API_URL", "https://api-sdk.zora.engineering"),
		ZoraAPIKey:   os.Getenv("ZORA_API_KEY"),
		NeynarAPIURL: envString("NEYNAR_API_URL", "https://api.neynar.com"),
		NeynarAPIKey: os.Getenv("NEYNAR_API_KEY"),
		SubgraphURL:  os.Getenv("SUBGRAPH_URL"),

		CacheBackend:     strings.ToLower(envString("CACHE_BACKEND", BackendMemory)),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		ClickhouseDSN:    os.Getenv("CLICKHOUSE_DSN"),
		RevalidateSecret: os.Getenv("REVALIDATE_SECRET"),

		HTTPAddr:    envString("HTTP_ADDR", ":8080"),
		LogLevel:    envString("LOG_LEVEL", "info"),
		Environment: envString("ENVIRONMENT", "production"),
	}

	var err error
	if c.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if c.MinCoinBalance, err = envFloat("MIN_COIN_BALANCE", 1000); err != nil {
		return nil, err
	}
	minNFT, err := envInt("MIN_NFT_BALANCE", 1)
	if err != nil {
		return nil, err
	}
	c.MinNFTBalance = int64(minNFT)
	if c.MaxFarcasterUsers, err = envInt("MAX_FARCASTER_USERS", 50); err != nil {
		return nil, err
	}
	if c.MaxItemsPerCreator, err = envInt("MAX_ITEMS_PER_CREATOR", 6); err != nil {
		return nil, err
	}
	if c.LRUSize, err = envInt("LRU_SIZE", 16); err != nil {
		return nil, err
	}
	if c.LRUTTL, err = envDuration("LRU_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if c.RevalidateAfter, err = envDuration("REVALIDATE_AFTER", 10*time.Minute); err != nil {
		return nil, err
	}
	if c.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks required values and their consistency.
func (c *Config) Validate() error {
	if c.BaseRPCURL == "" {
		return fmt.Errorf("BASE_RPC_URL is required")
	}
	if !common.IsHexAddress(c.ReferenceCoinAddress) {
		return fmt.Errorf("REFERENCE_COIN_ADDRESS must be a hex address, got %q", c.ReferenceCoinAddress)
	}
	if !common.IsHexAddress(c.NFTContractAddress) {
		return fmt.Errorf("NFT_CONTRACT_ADDRESS must be a hex address, got %q", c.NFTContractAddress)
	}
	if c.DAOTokenAddress != "" && !common.IsHexAddress(c.DAOTokenAddress) {
		return fmt.Errorf("DAO_TOKEN_ADDRESS must be a hex address, got %q", c.DAOTokenAddress)
	}

	switch c.CacheBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for CACHE_BACKEND=postgres")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q (memory, postgres, redis)", c.CacheBackend)
	}

	if c.MinCoinBalance <= 0 || c.MinNFTBalance <= 0 {
		return fmt.Errorf("MIN_COIN_BALANCE and MIN_NFT_BALANCE must be positive")
	}
	if c.MaxFarcasterUsers <= 0 || c.MaxItemsPerCreator <= 0 || c.LRUSize <= 0 {
		return fmt.Errorf("MAX_FARCASTER_USERS, MAX_ITEMS_PER_CREATOR and LRU_SIZE must be positive")
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
