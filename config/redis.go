package config

import (
	"github.com/redis/go-redis/v9"
)

// RedisOptions returns the client options for c.
func (c RedisConfig) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:        c.Addr,
		DialTimeout: defaultConnectTimeout,
	}
}
