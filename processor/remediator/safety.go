package remediator

import (
	"fmt"
	"strings"
)

// dangerousPatterns rejects a command when any pattern appears
// anywhere in it: filesystem deletion, permission/ownership changes,
// privilege escalation, command substitution or piping to a shell, and
// process/system control. The denylist is consulted before the
// allowlist and cannot be overridden by it.
var dangerousPatterns = []string{
	"rm -rf", "sudo rm", "rm -f /",
	"format", "fdisk", "mkfs",
	"dd if=", "kill -9",
	"shutdown", "reboot",
	"chmod 777", "chown -R",
	"curl | sh", "wget | sh",
	"$(", "`", "|sh", "|bash",
	"eval", "exec",
	"/etc/", "/var/", "/usr/",
	"passwd", "su -", "sudo su",
}

// safePrefixes approves a command only when it starts with a known
// benign prefix: package-manager installs, version-control pulls, and
// basic read-only utilities.
var safePrefixes = []string{
	"npm install", "npm update", "npm ci",
	"git pull", "git checkout", "git reset",
	"echo ", "cat ", "ls ", "pwd",
	"mkdir -p", "touch ",
	"pip install", "pip upgrade",
}

// CheckSafety re-evaluates a command independently of any upstream
// approval. Ordering is the core safety invariant: denylist first, then
// allowlist prefixes, then default deny.
func CheckSafety(command string) (bool, string) {
	lower := strings.ToLower(command)

	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return false, fmt.Sprintf("Dangerous pattern detected: %s", pattern)
		}
	}

	for _, prefix := range safePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true, fmt.Sprintf("Safe command pattern: %s", prefix)
		}
	}

	return false, "Command requires manual review"
}
