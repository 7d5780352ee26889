// Package config provides configuration loading and topic resolution
// for triagent. Configuration comes from a YAML file with environment
// variable overrides; an optional .env file is loaded first so local
// runs behave like deployed ones.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/c360studio/triagent/bus"
	"gopkg.in/yaml.v3"
)

// Default topic names used when the environment does not override them.
const (
	DefaultFailureTopic     = "pipeline-failures"
	DefaultValidationTopic  = "validation-requests"
	DefaultRemediationTopic = "remediation-tasks"
)

// projectEnvVars is the prioritized list of environment variables a
// project id is resolved from. Order matters and is part of the
// configuration contract.
var projectEnvVars = []string{"GCP_PROJECT", "GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT"}

// Config is the complete triagent configuration.
type Config struct {
	NATS     NATSConfig     `yaml:"nats"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Model    ModelConfig    `yaml:"model"`
	Policy   PolicyConfig   `yaml:"policy"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// Verbose toggles extra diagnostic output (VERBOSE_LOGS=1).
	Verbose bool `yaml:"verbose"`
}

// NATSConfig configures the bus connection.
type NATSConfig struct {
	// URL is the NATS server URL (empty = nats://127.0.0.1:4222).
	URL string `yaml:"url"`
	// Stream is the JetStream stream holding the pipeline topics.
	Stream string `yaml:"stream"`
}

// PipelineConfig names the topics connecting the stages.
// Topic values may be bare names or fully-qualified
// projects/<id>/topics/<name> paths.
type PipelineConfig struct {
	// Project scopes bare topic names. When empty it is resolved from
	// the environment (GCP_PROJECT, GOOGLE_CLOUD_PROJECT, GCLOUD_PROJECT).
	Project string `yaml:"project"`

	FailureTopic     string `yaml:"failure_topic"`
	ValidationTopic  string `yaml:"validation_topic"`
	RemediationTopic string `yaml:"remediation_topic"`
}

// ModelConfig selects the diagnosis provider.
type ModelConfig struct {
	// Provider is one of the registered llm providers.
	Provider string `yaml:"provider"`
	// Model overrides the provider default when non-empty.
	Model string `yaml:"model"`
	// BaseURL points the provider at a non-default endpoint (mock server).
	BaseURL string `yaml:"base_url"`
	// Timeout bounds each provider call.
	Timeout time.Duration `yaml:"timeout"`
}

// PolicyConfig configures the validation policy.
type PolicyConfig struct {
	// ApprovedKeywords is the raw keyword list. Comma-separated,
	// space-separated, and single-token shapes are all accepted.
	ApprovedKeywords string `yaml:"approved_keywords"`
	// KeywordFile, when set, is watched for keyword changes and takes
	// precedence over ApprovedKeywords.
	KeywordFile string `yaml:"keyword_file"`
}

// MetricsConfig configures the analytics observer.
type MetricsConfig struct {
	// Addr is the listen address for the /metrics endpoint
	// (empty disables the HTTP listener).
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:    "",
			Stream: "TRIAGE",
		},
		Pipeline: PipelineConfig{
			FailureTopic:     DefaultFailureTopic,
			ValidationTopic:  DefaultValidationTopic,
			RemediationTopic: DefaultRemediationTopic,
		},
		Model: ModelConfig{
			Provider: "anthropic",
			Timeout:  30 * time.Second,
		},
		Metrics: MetricsConfig{
			Addr: ":9464",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.NATS.Stream == "" {
		return fmt.Errorf("nats.stream is required")
	}
	if c.Model.Provider == "" {
		return fmt.Errorf("model.provider is required")
	}
	if c.Pipeline.FailureTopic == "" || c.Pipeline.ValidationTopic == "" || c.Pipeline.RemediationTopic == "" {
		return fmt.Errorf("pipeline topics must be non-empty")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file over defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays the recognized environment variables onto c.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("FAILURE_TOPIC"); strings.TrimSpace(v) != "" {
		c.Pipeline.FailureTopic = strings.TrimSpace(v)
	}
	if v := os.Getenv("VALIDATION_TOPIC"); strings.TrimSpace(v) != "" {
		c.Pipeline.ValidationTopic = strings.TrimSpace(v)
	}
	if v := os.Getenv("REMEDIATION_TOPIC"); strings.TrimSpace(v) != "" {
		c.Pipeline.RemediationTopic = strings.TrimSpace(v)
	}
	if v := os.Getenv("APPROVED_KEYWORDS"); v != "" {
		c.Policy.ApprovedKeywords = v
	}
	if v := os.Getenv("APPROVED_KEYWORDS_FILE"); v != "" {
		c.Policy.KeywordFile = v
	}
	if v := os.Getenv("MODEL_PROVIDER"); v != "" {
		c.Model.Provider = v
	}
	if os.Getenv("VERBOSE_LOGS") == "1" {
		c.Verbose = true
	}
}

// Project resolves the project id scoping bare topic names: the
// configured value first, then the prioritized environment variables.
// A missing project id is a fatal configuration error for the caller.
func (c *Config) Project() (string, error) {
	if c.Pipeline.Project != "" {
		return c.Pipeline.Project, nil
	}
	for _, key := range projectEnvVars {
		if v := os.Getenv(key); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("missing project id: set one of %s", strings.Join(projectEnvVars, ", "))
}

// FailureTopic resolves the inbound failure-event topic.
func (c *Config) FailureTopic() (bus.Topic, error) {
	return c.resolveTopic(c.Pipeline.FailureTopic, DefaultFailureTopic)
}

// ValidationTopic resolves the diagnoser→validator topic.
func (c *Config) ValidationTopic() (bus.Topic, error) {
	return c.resolveTopic(c.Pipeline.ValidationTopic, DefaultValidationTopic)
}

// RemediationTopic resolves the validator→remediator topic.
func (c *Config) RemediationTopic() (bus.Topic, error) {
	return c.resolveTopic(c.Pipeline.RemediationTopic, DefaultRemediationTopic)
}

// resolveTopic applies the documented precedence: a fully-qualified
// projects/<id>/topics/<name> value is used verbatim; anything else is
// treated as a bare topic name (falling back to def when empty) and
// combined with the resolved project id.
func (c *Config) resolveTopic(value, def string) (bus.Topic, error) {
	if topic, ok := bus.ParseTopicPath(value); ok {
		return topic, nil
	}

	name := strings.TrimSpace(value)
	if name == "" {
		name = def
	}

	project, err := c.Project()
	if err != nil {
		return bus.Topic{}, err
	}
	return bus.Topic{Project: project, Name: name}, nil
}
