package remediator

import (
	"fmt"
	"time"
)

// Config holds configuration for the remediator component.
type Config struct {
	// StreamName is the JetStream stream holding the pipeline topics.
	StreamName string

	// ConsumerName is the durable consumer name for validation records.
	ConsumerName string

	// InputSubject carries approved ValidationRecords.
	InputSubject string

	// WorkDir is the parent directory for execution scratch space
	// (empty uses the OS temp dir).
	WorkDir string

	// NpmTimeout bounds npm_fix executions; package-manager installs
	// legitimately run long.
	NpmTimeout time.Duration

	// DefaultTimeout bounds every other execution.
	DefaultTimeout time.Duration
}

// DefaultConfig returns sensible defaults. The input subject has no
// default: it is resolved from topic configuration by the caller.
func DefaultConfig() Config {
	return Config{
		StreamName:     "TRIAGE",
		ConsumerName:   "remediator",
		NpmTimeout:     10 * time.Minute,
		DefaultTimeout: 5 * time.Minute,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.StreamName == "" {
		return fmt.Errorf("stream name is required")
	}
	if c.ConsumerName == "" {
		return fmt.Errorf("consumer name is required")
	}
	if c.InputSubject == "" {
		return fmt.Errorf("input subject is required")
	}
	if c.NpmTimeout <= 0 || c.DefaultTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}
