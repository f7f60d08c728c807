package types

import "time"

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DatabaseSchema  string `envconfig:"DATABASE_SCHEMA" default:"bloodlink"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`

	// Token verification. JWTSecret verifies HS256 tokens; JWKSURL verifies
	// asymmetric tokens through a cached key set. One of the two is required.
	JWTSecret string `envconfig:"JWT_SECRET"`
	JWKSURL   string `envconfig:"JWKS_URL"`
	JWTIssuer string `envconfig:"JWT_ISSUER"`

	// Optional encrypted cookie carrying the access token (base64 encoded)
	// openssl rand -base64 32
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	// Realtime fan-out across instances. Disabled when RedisAddr is empty.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisChannel  string `envconfig:"REDIS_CHANNEL" default:"bloodlink:realtime"`

	WSAllowedOrigins []string `envconfig:"WS_ALLOWED_ORIGINS" default:"localhost:*,127.0.0.1:*"`

	RequestTTL     time.Duration `envconfig:"REQUEST_TTL" default:"24h"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"60s"`
	SweepTimeout   time.Duration `envconfig:"SWEEP_TIMEOUT" default:"10s"`
	SweepBatchSize uint64        `envconfig:"SWEEP_BATCH_SIZE" default:"500"`
	MatchLimit     int           `envconfig:"MATCH_LIMIT" default:"100"`
	SearchLimit    int           `envconfig:"SEARCH_LIMIT" default:"50"`
}
