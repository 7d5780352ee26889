package diagnoser

import (
	"fmt"

	"github.com/c360studio/triagent/triage"
)

// BuildPrompt renders the deterministic diagnostic prompt for a
// failure event. Missing fields are embedded as the literal "unknown"
// (or "no details" for the error text) so the prompt shape is stable
// regardless of how sparse the event was.
func BuildPrompt(event *triage.FailureEvent) string {
	errText := event.Error
	if errText == "" {
		errText = event.Log
	}
	if errText == "" {
		if event.Raw != "" {
			errText = event.Raw
		} else {
			errText = "no details"
		}
	}

	return fmt.Sprintf(
		"Analyze this CI/CD failure and propose a safe, specific fix "+
			"as a one-line command, plus a short diagnosis. If unsure, pick the safest, "+
			"non-destructive remediation.\n\n"+
			"Build Status: %s\n"+
			"Step: %s\n"+
			"Error: %s\n"+
			"Provider: %s\n",
		orUnknown(event.BuildStatus),
		orUnknown(event.Step),
		errText,
		orUnknown(event.Provider),
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
