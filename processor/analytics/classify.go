package analytics

import (
	"strings"
	"time"
)

// errorPatterns classifies failure text into coarse categories for
// pattern analysis. First match wins in the listed order.
var errorPatterns = []struct {
	errorType string
	patterns  []string
}{
	{"timeout", []string{"timeout", "timed out", "deadline exceeded"}},
	{"api_limit", []string{"rate limit", "quota exceeded", "429"}},
	{"dependency", []string{"dependency", "package", "module not found"}},
	{"network", []string{"connection", "network", "dns"}},
	{"auth", []string{"authentication", "unauthorized", "401", "403"}},
	{"resource", []string{"memory", "cpu", "disk space", "resource"}},
	{"validation", []string{"rejected", "validation", "unknown command"}},
}

// ErrorType classifies failure text into one of the known categories,
// or "unknown".
func ErrorType(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range errorPatterns {
		for _, pattern := range entry.patterns {
			if strings.Contains(lower, pattern) {
				return entry.errorType
			}
		}
	}
	return "unknown"
}

// anomalyInputs are the signals the score is computed from.
type anomalyInputs struct {
	failed        bool
	confidence    float64
	highRisk      bool
	hasConfidence bool
	at            time.Time
}

// anomalyScore computes a heuristic score in [0, 1]. Failures dominate,
// low-confidence diagnoses and high-risk commands add weight, and the
// early-morning hours carry a small bump because issues cluster there.
func anomalyScore(in anomalyInputs) float64 {
	score := 0.0

	if in.failed {
		score += 0.4
	}
	if in.hasConfidence && in.confidence < 0.5 {
		score += 0.3
	}
	if in.highRisk {
		score += 0.2
	}

	now := in.at
	if now.IsZero() {
		now = time.Now()
	}
	switch now.Hour() {
	case 2, 3, 4:
		score += 0.1
	}

	if score > 1.0 {
		return 1.0
	}
	return score
}
