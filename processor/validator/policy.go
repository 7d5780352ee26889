package validator

import (
	"fmt"
	"strings"

	"github.com/c360studio/triagent/triage"
)

// DefaultKeywords is the approved-keyword set used when configuration
// is absent or unparsable.
var DefaultKeywords = []string{"fix", "update", "install", "upgrade", "patch", "resolve", "npm"}

// dangerousTokens rejects a command outright, before any approval rule
// is consulted. The check is unconditional: keyword approval cannot
// override it.
var dangerousTokens = []string{"rm -rf", "sudo", "delete"}

// Decision is the outcome of policy evaluation.
type Decision struct {
	Approved bool
	Reason   string
}

// Evaluate applies the validation policy to a command. Rules are
// evaluated in precedence order and the first decisive rule wins:
//
//  1. dangerous token → reject
//  2. empty or manual-review sentinel command → reject
//  3. approved keyword → approve
//  4. standard npm install pattern → approve
//  5. declared low risk → approve
//  6. otherwise → reject
func Evaluate(command string, risk triage.Risk, keywords []string) Decision {
	lower := strings.ToLower(command)

	for _, token := range dangerousTokens {
		if strings.Contains(lower, token) {
			return Decision{Approved: false, Reason: "Dangerous command detected"}
		}
	}

	// An approved record must carry an executable command: empty
	// commands and the manual-review sentinel never pass, whatever the
	// declared risk.
	if strings.TrimSpace(command) == "" || command == triage.ManualReviewCommand {
		return Decision{Approved: false, Reason: "No executable command"}
	}

	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return Decision{Approved: true, Reason: fmt.Sprintf("Contains approved keyword: %s", keyword)}
		}
	}

	if strings.Contains(lower, "npm install") {
		return Decision{Approved: true, Reason: "Standard npm install command"}
	}

	if risk == triage.RiskLow {
		return Decision{Approved: true, Reason: "Low risk operation"}
	}

	return Decision{Approved: false, Reason: "Unknown command"}
}

// ParseKeywords parses a raw keyword list, tolerating three shapes in
// precedence order: comma-separated, space-separated, single token.
// Parsing never fails; an empty or unusable value falls back to
// DefaultKeywords. Keywords are lowercased.
func ParseKeywords(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultKeywords
	}

	if strings.Contains(raw, ",") {
		if keywords := splitKeywords(raw, ","); len(keywords) > 0 {
			return keywords
		}
		return DefaultKeywords
	}

	if strings.ContainsAny(raw, " \t") {
		if keywords := splitKeywords(raw, ""); len(keywords) > 0 {
			return keywords
		}
	}

	return []string{strings.ToLower(raw)}
}

// splitKeywords splits on sep (or any whitespace when sep is empty)
// and drops empty tokens.
func splitKeywords(raw, sep string) []string {
	var parts []string
	if sep == "" {
		parts = strings.Fields(raw)
	} else {
		parts = strings.Split(raw, sep)
	}

	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}
