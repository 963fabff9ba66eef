// Package config loads the authsvc configuration via go-zero's conf loader.
package config

import (
	"time"

	"github.com/zeromicro/go-zero/rest"
)

// Config is the root configuration, loaded with conf.MustLoad from a single
// YAML file; every leaf also accepts the environment variable named in
// parentheses in spec.md §6 via the json ",env=" tag.
type Config struct {
	rest.RestConf

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Password    PasswordConfig
	RateLimit   RateLimitConfig
	Backpressure BackpressureConfig
	CORS        CORSConfig
	Env         string `json:",env=ENV,default=development,options=development|test|production"`
}

type DatabaseConfig struct {
	PrimaryURL string `json:",env=DB_PRIMARY_DB_URL"`
	ReplicaURL string `json:",env=DB_REPLICA_DB_URL,optional"`
	PoolMin    int    `json:",env=DB_POOL_MIN_SIZE,default=20"`
	PoolMax    int    `json:",env=DB_POOL_MAX_SIZE,default=100"`
}

type RedisConfig struct {
	URL string `json:",env=REDIS_URL"`
}

type JWTConfig struct {
	Algorithm             string `json:",env=JWT_ALGORITHM,default=RS256"`
	AccessTokenExpireMins int    `json:",env=JWT_ACCESS_TOKEN_EXPIRE_MINUTES,default=30"`
	RefreshTokenExpireDays int   `json:",env=JWT_REFRESH_TOKEN_EXPIRE_DAYS,default=7"`
	Issuer                string `json:",env=JWT_ISSUER,default=auth-system"`
	PrivateKeyPath        string `json:",env=JWT_PRIVATE_KEY_PATH,optional"`
	PublicKeyPath         string `json:",env=JWT_PUBLIC_KEY_PATH,optional"`
	SecretKey             string `json:",env=JWT_SECRET_KEY,optional"`
}

func (c JWTConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMins) * time.Minute
}

func (c JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpireDays) * 24 * time.Hour
}

type PasswordConfig struct {
	MinLength         int `json:",env=PASSWORD_MIN_LENGTH,default=8"`
	MaxFailedAttempts int `json:",env=PASSWORD_MAX_FAILED_ATTEMPTS,default=5"`
	LockoutMinutes    int `json:",env=PASSWORD_LOCKOUT_MINUTES,default=15"`
}

func (c PasswordConfig) LockoutWindow() time.Duration {
	return time.Duration(c.LockoutMinutes) * time.Minute
}

type RateLimitConfig struct {
	// Buckets maps a path prefix to (max requests, window). Populated with
	// the defaults below when empty, mirroring the original's RATE_LIMITS table.
	Buckets map[string]Bucket `json:",optional"`
}

type Bucket struct {
	MaxRequests int
	WindowSecs  int
}

type BackpressureConfig struct {
	Enable         bool `json:",env=BACKPRESSURE_ENABLE,default=true"`
	MaxConcurrent  int  `json:",env=BACKPRESSURE_MAX_CONCURRENT,default=100"`
	QueueCapacity  int  `json:",env=BACKPRESSURE_QUEUE_CAPACITY,default=50"`
	WaitTimeoutSec int  `json:",env=BACKPRESSURE_WAIT_TIMEOUT,default=2"`
}

func (c BackpressureConfig) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutSec) * time.Second
}

func (c BackpressureConfig) RejectThreshold() int {
	return c.MaxConcurrent + c.QueueCapacity
}

type CORSConfig struct {
	AllowedOrigins []string `json:",env=CORS_ALLOWED_ORIGINS,optional"`
}

// DefaultBuckets is the original's RATE_LIMITS table, used whenever the
// loaded config leaves RateLimit.Buckets empty.
func DefaultBuckets() map[string]Bucket {
	return map[string]Bucket{
		"/api/v1/auth/login":          {MaxRequests: 5, WindowSecs: 60},
		"/api/v1/auth/refresh":        {MaxRequests: 10, WindowSecs: 60},
		"/api/v1/auth/logout":         {MaxRequests: 10, WindowSecs: 60},
		"/api/v1/users/register":      {MaxRequests: 3, WindowSecs: 3600},
		"/api/v1/users/password":      {MaxRequests: 5, WindowSecs: 3600},
		"/api/v1/*":                   {MaxRequests: 100, WindowSecs: 60},
		"*":                           {MaxRequests: 1000, WindowSecs: 60},
	}
}
