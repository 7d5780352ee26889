package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProjectEnv(t *testing.T) {
	t.Helper()
	for _, key := range projectEnvVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "TRIAGE", cfg.NATS.Stream)
	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, DefaultValidationTopic, cfg.Pipeline.ValidationTopic)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
nats:
  url: nats://broker:4222
pipeline:
  project: ci-ops
  validation_topic: custom-validation
model:
  provider: openai
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, "custom-validation", cfg.Pipeline.ValidationTopic)
	assert.Equal(t, "openai", cfg.Model.Provider)
	// Defaults survive for unset fields.
	assert.Equal(t, "TRIAGE", cfg.NATS.Stream)
	assert.Equal(t, DefaultRemediationTopic, cfg.Pipeline.RemediationTopic)
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()

	t.Setenv("VALIDATION_TOPIC", "projects/p1/topics/val")
	t.Setenv("REMEDIATION_TOPIC", "rem-override")
	t.Setenv("APPROVED_KEYWORDS", "fix,update")
	t.Setenv("VERBOSE_LOGS", "1")

	cfg.ApplyEnv()
	assert.Equal(t, "projects/p1/topics/val", cfg.Pipeline.ValidationTopic)
	assert.Equal(t, "rem-override", cfg.Pipeline.RemediationTopic)
	assert.Equal(t, "fix,update", cfg.Policy.ApprovedKeywords)
	assert.True(t, cfg.Verbose)
}

func TestProject_EnvPrecedence(t *testing.T) {
	clearProjectEnv(t)
	cfg := DefaultConfig()

	_, err := cfg.Project()
	require.Error(t, err)

	t.Setenv("GCLOUD_PROJECT", "low-priority")
	project, err := cfg.Project()
	require.NoError(t, err)
	assert.Equal(t, "low-priority", project)

	t.Setenv("GOOGLE_CLOUD_PROJECT", "mid-priority")
	project, err = cfg.Project()
	require.NoError(t, err)
	assert.Equal(t, "mid-priority", project)

	t.Setenv("GCP_PROJECT", "top-priority")
	project, err = cfg.Project()
	require.NoError(t, err)
	assert.Equal(t, "top-priority", project)

	cfg.Pipeline.Project = "configured"
	project, err = cfg.Project()
	require.NoError(t, err)
	assert.Equal(t, "configured", project)
}

func TestResolveTopic(t *testing.T) {
	clearProjectEnv(t)

	cfg := DefaultConfig()
	cfg.Pipeline.Project = "ci-ops"

	t.Run("fully qualified used verbatim", func(t *testing.T) {
		cfg.Pipeline.ValidationTopic = "projects/other/topics/val"
		topic, err := cfg.ValidationTopic()
		require.NoError(t, err)
		assert.Equal(t, "projects/other/topics/val", topic.Path())
	})

	t.Run("bare name combined with project", func(t *testing.T) {
		cfg.Pipeline.ValidationTopic = "my-validation"
		topic, err := cfg.ValidationTopic()
		require.NoError(t, err)
		assert.Equal(t, "projects/ci-ops/topics/my-validation", topic.Path())
	})

	t.Run("empty falls back to default name", func(t *testing.T) {
		cfg.Pipeline.ValidationTopic = "  "
		topic, err := cfg.ValidationTopic()
		require.NoError(t, err)
		assert.Equal(t, DefaultValidationTopic, topic.Name)
	})

	t.Run("missing project is fatal", func(t *testing.T) {
		bare := DefaultConfig()
		bare.Pipeline.ValidationTopic = "val"
		_, err := bare.ValidationTopic()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing project id")
	})
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	clearProjectEnv(t)
	t.Setenv("TRIAGENT_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	// TRIAGENT_CONFIG points at a nonexistent path, but it was not
	// passed explicitly, so defaults apply.
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "TRIAGE", cfg.NATS.Stream)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nats: ["), 0o644))

	_, err := Load(path, nil)
	require.Error(t, err)
}
