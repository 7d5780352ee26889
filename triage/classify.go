package triage

import "strings"

// Classification is the normalized outcome of heuristic analysis of
// free-text model output.
type Classification struct {
	Diagnosis  string
	FixType    FixType
	Command    string
	Risk       Risk
	Confidence float64
}

// Classify maps free-text analysis to a fixed classification using
// ordered pattern matching. Rule order is part of the contract: the
// first matching rule wins, and every outcome is one of the four
// enumerated combinations below.
func Classify(text string) Classification {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "legacy-peer-deps") || strings.Contains(lower, "peer-deps"):
		return Classification{
			Diagnosis:  "react dependency conflict",
			FixType:    FixTypeNpm,
			Command:    "npm install --legacy-peer-deps",
			Risk:       RiskLow,
			Confidence: 0.9,
		}
	case strings.Contains(lower, "npm install") && strings.Contains(lower, "react"):
		return Classification{
			Diagnosis:  "react version mismatch",
			FixType:    FixTypeNpm,
			Command:    "npm install --save",
			Risk:       RiskLow,
			Confidence: 0.8,
		}
	case strings.Contains(lower, "npm ci") || strings.Contains(lower, "clean install"):
		return Classification{
			Diagnosis:  "npm cache issue",
			FixType:    FixTypeNpm,
			Command:    "npm ci",
			Risk:       RiskLow,
			Confidence: 0.7,
		}
	default:
		return Classification{
			Diagnosis:  "complex issue requiring manual review",
			FixType:    FixTypeManualReview,
			Command:    ManualReviewCommand,
			Risk:       RiskHigh,
			Confidence: 0.3,
		}
	}
}
