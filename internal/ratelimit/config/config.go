// Package config holds the per-class rate limit table.
package config

import (
	"time"

	"gatekeeper/internal/ratelimit/models"
)

// Config maps each limit class to its window and maximum count.
type Config struct {
	Limits map[models.LimitClass]models.Limit
}

// DefaultConfig returns the production limits:
// login 5 per 15 minutes, api 100 per minute, whitelist checks 50 per minute.
func DefaultConfig() *Config {
	return &Config{
		Limits: map[models.LimitClass]models.Limit{
			models.ClassLogin:          {Window: 15 * time.Minute, MaxCount: 5},
			models.ClassAPI:            {Window: time.Minute, MaxCount: 100},
			models.ClassWhitelistCheck: {Window: time.Minute, MaxCount: 50},
		},
	}
}

// Get returns the limit for class and whether one is configured.
func (c *Config) Get(class models.LimitClass) (models.Limit, bool) {
	l, ok := c.Limits[class]
	if !ok || l.MaxCount <= 0 || l.Window <= 0 {
		return models.Limit{}, false
	}
	return l, true
}

// With returns a copy of c with class overridden.
func (c *Config) With(class models.LimitClass, limit models.Limit) *Config {
	limits := make(map[models.LimitClass]models.Limit, len(c.Limits)+1)
	for k, v := range c.Limits {
		limits[k] = v
	}
	limits[class] = limit
	return &Config{Limits: limits}
}
