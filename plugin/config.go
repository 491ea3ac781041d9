package plugin

import "time"

// Config holds plugin-level configuration.
type Config struct {
	// InitialBackoff is the wait before the first retry of a transient
	// write failure.
	InitialBackoff time.Duration `json:"initial_backoff"`

	// MaxBackoff is the retry ceiling. Once the doubled wait reaches or
	// passes this value the transaction gives up.
	MaxBackoff time.Duration `json:"max_backoff"`
}

// DefaultConfig returns the standard backoff ladder: 25ms doubling up to a
// 2s ceiling, roughly seven retries over three seconds.
func DefaultConfig() Config {
	return Config{
		InitialBackoff: 25 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// validate clamps values to acceptable bounds.
func (c *Config) validate() {
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 25 * time.Millisecond
	}
	if c.MaxBackoff <= c.InitialBackoff {
		c.MaxBackoff = 2 * time.Second
	}
}
