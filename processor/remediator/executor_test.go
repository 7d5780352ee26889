package remediator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorRun(t *testing.T) {
	exec := NewExecutor("")

	t.Run("successful command captures stdout", func(t *testing.T) {
		result := exec.Run(context.Background(), "echo hello", 5*time.Second)
		assert.True(t, result.Success)
		assert.Equal(t, "hello\n", result.Stdout)
	})

	t.Run("quoted arguments stay intact", func(t *testing.T) {
		result := exec.Run(context.Background(), "echo 'manual review required'", 5*time.Second)
		assert.True(t, result.Success)
		assert.Equal(t, "manual review required\n", result.Stdout)
	})

	t.Run("timeout reports failure", func(t *testing.T) {
		result := exec.Run(context.Background(), "sleep 5", 100*time.Millisecond)
		assert.False(t, result.Success)
		assert.Contains(t, result.Stderr, "timed out after")
	})

	t.Run("missing binary reports launch failure", func(t *testing.T) {
		result := exec.Run(context.Background(), "definitely-not-a-binary-xyz", 5*time.Second)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Stderr)
	})

	t.Run("empty command fails without running", func(t *testing.T) {
		result := exec.Run(context.Background(), "", 5*time.Second)
		assert.False(t, result.Success)
		assert.Equal(t, "empty command", result.Stderr)
	})

	t.Run("output is truncated to the limit", func(t *testing.T) {
		long := strings.Repeat("x", outputLimit+500)
		result := exec.Run(context.Background(), "echo "+long, 5*time.Second)
		require.True(t, result.Success)
		assert.Len(t, result.Stdout, outputLimit)
	})
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "npm install", []string{"npm", "install"}},
		{"flags", "npm install --legacy-peer-deps", []string{"npm", "install", "--legacy-peer-deps"}},
		{"single quotes", "echo 'manual review required'", []string{"echo", "manual review required"}},
		{"double quotes", `echo "two words"`, []string{"echo", "two words"}},
		{"extra spaces", "  npm   ci  ", []string{"npm", "ci"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitCommand(tt.in))
		})
	}
}
