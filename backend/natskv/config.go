package natskv

import "time"

// Config holds configuration for the JetStream KV backend.
type Config struct {
	// BucketPrefix is prepended to logical store names to form bucket
	// names, keeping docstore buckets apart from other KV users.
	BucketPrefix string `json:"bucket_prefix"`

	// Description is attached to buckets this backend creates.
	Description string `json:"description"`

	// History is the per-key revision history depth.
	History uint8 `json:"history"`

	// Replicas is the JetStream replica count for new buckets.
	Replicas int `json:"replicas"`

	// Timeout bounds each store operation.
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns sensible defaults for a single-node deployment.
func DefaultConfig() Config {
	return Config{
		BucketPrefix: "docstore_",
		Description:  "docstore documents",
		History:      1,
		Replicas:     1,
		Timeout:      5 * time.Second,
	}
}

// validate clamps values to acceptable bounds.
func (c *Config) validate() {
	if c.BucketPrefix == "" {
		c.BucketPrefix = "docstore_"
	}
	if c.History < 1 {
		c.History = 1
	}
	if c.Replicas < 1 {
		c.Replicas = 1
	}
	if c.Replicas > 5 {
		c.Replicas = 5 // JetStream maximum
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
}
