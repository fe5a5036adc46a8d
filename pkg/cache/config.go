package cache

import "time"

// RedisOption configures Redis cache.
type RedisOption func(*RedisConfig)

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	Prefix       string
}

// WithRedisAddr sets the host:port address.
func WithRedisAddr(addr string) RedisOption {
	return func(c *RedisConfig) {
		c.Addr = addr
	}
}

// WithRedisAuth sets password and database number.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithRedisPool sets connection pool settings.
func WithRedisPool(poolSize, minIdleConns int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = poolSize
		c.MinIdleConns = minIdleConns
		c.PoolTimeout = timeout
	}
}

// WithRedisPrefix sets key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}

// MemoryOption configures Memory cache.
type MemoryOption func(*MemoryConfig)

// MemoryConfig holds memory cache configuration.
type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
}

// WithMemoryMaxSize sets max cache size.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		c.MaxSize = size
	}
}

// WithMemoryCleanup sets cleanup interval.
func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		c.CleanupInterval = interval
	}
}
