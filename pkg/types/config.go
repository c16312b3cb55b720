package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"5000"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DBMaxConns      int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns      int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	DBPingTimeout   uint   `envconfig:"DB_PING_TIMEOUT_SEC" default:"5"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Session tokens
	JWTSecret     string `envconfig:"JWT_SECRET"`
	TokenTTLHours int    `envconfig:"TOKEN_TTL_HOURS" default:"168"` // 7 days

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	// Comma separated list of origins allowed by CORS
	ClientURL string `envconfig:"CLIENT_URL" default:"http://localhost:5173"`

	// Public forms and login
	RateLimitPerSec int `envconfig:"RATE_LIMIT_PER_SEC" default:"5"`
	RateLimitBurst  int `envconfig:"RATE_LIMIT_BURST" default:"20"`

	// Comma separated IPs or CIDRs whose X-Forwarded-For header is honored
	TrustedProxies string `envconfig:"TRUSTED_PROXIES"`

	AuditArchiveBucket string `envconfig:"AUDIT_ARCHIVE_BUCKET"`
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
