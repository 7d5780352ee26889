package diagnoser

import (
	"fmt"
	"time"
)

// Config holds configuration for the diagnoser component.
type Config struct {
	// StreamName is the JetStream stream holding the pipeline topics.
	StreamName string

	// ConsumerName is the durable consumer name for failure events.
	ConsumerName string

	// InputSubject carries inbound FailureEvents.
	InputSubject string

	// OutputSubject receives published DiagnosisRecords.
	OutputSubject string

	// Provider names the llm provider used for analysis.
	Provider string

	// Model overrides the provider default model when non-empty.
	Model string

	// RouteTimeout bounds each model call.
	RouteTimeout time.Duration
}

// DefaultConfig returns sensible defaults. Subjects have no default:
// they are resolved from topic configuration by the caller.
func DefaultConfig() Config {
	return Config{
		StreamName:   "TRIAGE",
		ConsumerName: "diagnoser",
		Provider:     "anthropic",
		RouteTimeout: 30 * time.Second,
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
	if c.OutputSubject == "" {
		return fmt.Errorf("output subject is required")
	}
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	return nil
}
