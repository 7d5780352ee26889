package remediator

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/c360studio/triagent/triage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestComponent(t *testing.T) *Component {
	t.Helper()
	cfg := DefaultConfig()
	cfg.InputSubject = "projects.test.topics.remediation-tasks"
	return &Component{
		config:   cfg,
		logger:   slog.Default(),
		executor: NewExecutor(t.TempDir()),
	}
}

func encodeTask(t *testing.T, record triage.ValidationRecord) []byte {
	t.Helper()
	data, err := json.Marshal(record)
	require.NoError(t, err)
	return data
}

func TestHandleGates(t *testing.T) {
	c := newTestComponent(t)
	ctx := context.Background()

	t.Run("unapproved task is skipped", func(t *testing.T) {
		status := c.Handle(ctx, encodeTask(t, triage.ValidationRecord{
			ID:       "rem-1",
			Approved: false,
			Command:  "npm install",
			Risk:     triage.RiskLow,
		}))
		assert.Equal(t, triage.StatusSkipped, status.Code)
		assert.Equal(t, "Not approved", status.Reason)
	})

	t.Run("empty command is skipped", func(t *testing.T) {
		status := c.Handle(ctx, encodeTask(t, triage.ValidationRecord{
			ID:       "rem-2",
			Approved: true,
			Risk:     triage.RiskLow,
		}))
		assert.Equal(t, triage.StatusSkipped, status.Code)
		assert.Equal(t, "No valid command", status.Reason)
	})

	t.Run("manual review sentinel is skipped", func(t *testing.T) {
		status := c.Handle(ctx, encodeTask(t, triage.ValidationRecord{
			ID:       "rem-3",
			Approved: true,
			Command:  triage.ManualReviewCommand,
			Risk:     triage.RiskLow,
		}))
		assert.Equal(t, triage.StatusSkipped, status.Code)
	})

	t.Run("non-low risk is rejected even when approved", func(t *testing.T) {
		status := c.Handle(ctx, encodeTask(t, triage.ValidationRecord{
			ID:       "rem-4",
			Approved: true,
			Command:  "npm install",
			Risk:     triage.RiskMedium,
		}))
		assert.Equal(t, triage.StatusRejected, status.Code)
		assert.Contains(t, status.Reason, "medium")
	})

	t.Run("dangerous command is rejected despite approval and low risk", func(t *testing.T) {
		status := c.Handle(ctx, encodeTask(t, triage.ValidationRecord{
			ID:       "rem-5",
			Approved: true,
			Command:  "rm -rf node_modules",
			Risk:     triage.RiskLow,
		}))
		assert.Equal(t, triage.StatusRejected, status.Code)
		assert.Contains(t, status.Reason, "Dangerous pattern")
	})

	t.Run("malformed payload fails the gates", func(t *testing.T) {
		status := c.Handle(ctx, []byte("not json"))
		assert.Equal(t, triage.StatusSkipped, status.Code)
	})
}

func TestHandleExecution(t *testing.T) {
	c := newTestComponent(t)
	ctx := context.Background()

	var observed *triage.ExecutionResult
	c.onResult = func(r *triage.ExecutionResult) { observed = r }

	status := c.Handle(ctx, encodeTask(t, triage.ValidationRecord{
		ID:          "rem-6",
		DiagnosisID: "diag-6",
		Approved:    true,
		Command:     "echo fix applied",
		FixType:     triage.FixTypeOther,
		Risk:        triage.RiskLow,
	}))

	assert.Equal(t, triage.StatusExecuted, status.Code)
	require.NotNil(t, observed)
	assert.Equal(t, "rem-6", observed.TaskID)
	assert.Equal(t, "echo fix applied", observed.Command)
	assert.True(t, observed.Success)
	assert.Equal(t, "fix applied\n", observed.Stdout)
	assert.NotEmpty(t, observed.ID)
	assert.False(t, observed.EndedAt.Before(observed.StartedAt))
}

func TestHandleExecutionFailure(t *testing.T) {
	c := newTestComponent(t)

	status := c.Handle(context.Background(), encodeTask(t, triage.ValidationRecord{
		ID:       "rem-7",
		Approved: true,
		Command:  "cat no-such-file.txt",
		FixType:  triage.FixTypeOther,
		Risk:     triage.RiskLow,
	}))

	assert.Equal(t, triage.StatusFailed, status.Code)
	assert.NotEmpty(t, status.Reason)
}

func TestHandleTaskWithoutID(t *testing.T) {
	c := newTestComponent(t)

	var observed *triage.ExecutionResult
	c.onResult = func(r *triage.ExecutionResult) { observed = r }

	status := c.Handle(context.Background(), encodeTask(t, triage.ValidationRecord{
		Approved: true,
		Command:  "pwd",
		Risk:     triage.RiskLow,
	}))

	assert.Equal(t, triage.StatusExecuted, status.Code)
	require.NotNil(t, observed)
	assert.Equal(t, "unknown", observed.TaskID)
}

func TestNpmTimeoutSelection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputSubject = "projects.test.topics.remediation-tasks"
	assert.Greater(t, cfg.NpmTimeout, cfg.DefaultTimeout)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing stream", func(c *Config) { c.StreamName = "" }, "stream name"},
		{"missing consumer", func(c *Config) { c.ConsumerName = "" }, "consumer name"},
		{"missing subject", func(c *Config) { c.InputSubject = "" }, "input subject"},
		{"zero timeout", func(c *Config) { c.DefaultTimeout = 0 }, "timeouts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.InputSubject = "projects.test.topics.remediation-tasks"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
