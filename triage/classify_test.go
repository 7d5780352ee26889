package triage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		wantFixType    FixType
		wantCommand    string
		wantRisk       Risk
		wantConfidence float64
	}{
		{
			name:           "legacy-peer-deps signal",
			text:           "The build fails due to a peer dependency conflict. Run npm install --legacy-peer-deps to resolve.",
			wantFixType:    FixTypeNpm,
			wantCommand:    "npm install --legacy-peer-deps",
			wantRisk:       RiskLow,
			wantConfidence: 0.9,
		},
		{
			name:           "peer-deps alone is enough",
			text:           "Looks like a peer-deps mismatch between react and react-dom.",
			wantFixType:    FixTypeNpm,
			wantCommand:    "npm install --legacy-peer-deps",
			wantRisk:       RiskLow,
			wantConfidence: 0.9,
		},
		{
			name:           "npm install plus react",
			text:           "React version mismatch detected; npm install should reconcile the tree.",
			wantFixType:    FixTypeNpm,
			wantCommand:    "npm install --save",
			wantRisk:       RiskLow,
			wantConfidence: 0.8,
		},
		{
			name:           "clean install signal",
			text:           "The lockfile is stale. A clean install will fix the cache.",
			wantFixType:    FixTypeNpm,
			wantCommand:    "npm ci",
			wantRisk:       RiskLow,
			wantConfidence: 0.7,
		},
		{
			name:           "npm ci signal",
			text:           "Suggest running npm ci in the workspace.",
			wantFixType:    FixTypeNpm,
			wantCommand:    "npm ci",
			wantRisk:       RiskLow,
			wantConfidence: 0.7,
		},
		{
			name:           "unrecognized text defaults to manual review",
			text:           "The kubernetes deployment manifest has an invalid apiVersion.",
			wantFixType:    FixTypeManualReview,
			wantCommand:    ManualReviewCommand,
			wantRisk:       RiskHigh,
			wantConfidence: 0.3,
		},
		{
			name:           "empty text defaults to manual review",
			text:           "",
			wantFixType:    FixTypeManualReview,
			wantCommand:    ManualReviewCommand,
			wantRisk:       RiskHigh,
			wantConfidence: 0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			assert.Equal(t, tt.wantFixType, got.FixType)
			assert.Equal(t, tt.wantCommand, got.Command)
			assert.Equal(t, tt.wantRisk, got.Risk)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 0.001)
		})
	}
}

// The first-match rule ordering is load-bearing: a response that
// mentions both peer-deps and npm ci must classify as the peer-deps
// fix, not the cache fix.
func TestClassify_FirstMatchWins(t *testing.T) {
	got := Classify("Either npm ci or npm install --legacy-peer-deps would work here.")
	assert.Equal(t, "npm install --legacy-peer-deps", got.Command)
	assert.InDelta(t, 0.9, got.Confidence, 0.001)
}

// Every classification outcome must be one of the four enumerated
// combinations; there is no out-of-policy path through Classify.
func TestClassify_OnlyEnumeratedOutcomes(t *testing.T) {
	inputs := []string{
		"peer-deps", "npm install react", "npm ci", "something else entirely",
		"rm -rf the whole disk", "NPM INSTALL --LEGACY-PEER-DEPS",
	}

	allowed := map[Classification]bool{
		{"react dependency conflict", FixTypeNpm, "npm install --legacy-peer-deps", RiskLow, 0.9}:        true,
		{"react version mismatch", FixTypeNpm, "npm install --save", RiskLow, 0.8}:                       true,
		{"npm cache issue", FixTypeNpm, "npm ci", RiskLow, 0.7}:                                          true,
		{"complex issue requiring manual review", FixTypeManualReview, ManualReviewCommand, RiskHigh, 0.3}: true,
	}

	for _, in := range inputs {
		got := Classify(in)
		assert.True(t, allowed[got], "unexpected classification %+v for %q", got, in)
	}
}

func TestClassify_ManualReviewInvariant(t *testing.T) {
	got := Classify("no recognizable signal")
	require.Equal(t, FixTypeManualReview, got.FixType)
	assert.Equal(t, RiskHigh, got.Risk)
	assert.Equal(t, ManualReviewCommand, got.Command)
}

func TestNewID(t *testing.T) {
	a := NewID("diag")
	b := NewID("diag")

	assert.True(t, strings.HasPrefix(a, "diag-"))
	assert.NotEqual(t, a, b)

	parts := strings.SplitN(a, "-", 3)
	require.Len(t, parts, 3)
	assert.Len(t, parts[2], 8)
}

func TestMetadataFrom_DefaultsToUnknown(t *testing.T) {
	meta := MetadataFrom(&FailureEvent{Repository: "org/app"})
	assert.Equal(t, "org/app", meta.Repository)
	assert.Equal(t, "unknown", meta.BuildID)
	assert.Equal(t, "unknown", meta.Provider)
	assert.Equal(t, "unknown", meta.Step)
}
