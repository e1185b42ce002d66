package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 30 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const (
	StatsInterval = time.Minute
	StatsTimeout  = 10 * time.Second
)

// Unlock code generation
const (
	CodeGroupLength      = 4
	CodeGroupCount       = 3
	CodeGenerateAttempts = 10
)

// Rate limiting windows for public endpoints
const (
	RedeemRateLimitWindow = time.Minute
	IssueRateLimitPerMin  = 20
)

const (
	AppName    = "FCF Tessere Unlock Server"
	AppVersion = "1.0.0"
)
