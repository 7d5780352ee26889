package validator

import "fmt"

// Config holds configuration for the validator component.
type Config struct {
	// StreamName is the JetStream stream holding the pipeline topics.
	StreamName string

	// ConsumerName is the durable consumer name for diagnosis records.
	ConsumerName string

	// InputSubject carries inbound DiagnosisRecords.
	InputSubject string

	// OutputSubject receives approved ValidationRecords.
	OutputSubject string

	// ApprovedKeywords is the raw keyword list (see ParseKeywords).
	ApprovedKeywords string

	// KeywordFile, when set, is watched for changes and its contents
	// replace the keyword set at runtime.
	KeywordFile string
}

// DefaultConfig returns sensible defaults. Subjects have no default:
// they are resolved from topic configuration by the caller.
func DefaultConfig() Config {
	return Config{
		StreamName:   "TRIAGE",
		ConsumerName: "validator",
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
	return nil
}
