package triage

// Status is the small per-invocation outcome a stage reports to its
// trigger. It exists for observability only: the transport never
// branches on it for redelivery.
type Status struct {
	Code   string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Status codes reported by stage handlers.
const (
	StatusOK            = "ok"
	StatusApproved      = "approved"
	StatusRejected      = "rejected"
	StatusSkipped       = "skipped"
	StatusExecuted      = "executed"
	StatusFailed        = "failed"
	StatusPublishFailed = "publish_failed"
)

// Truncate bounds s to max bytes, appending an ellipsis when content
// was dropped. Used to keep model output and subprocess streams inside
// record size limits.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
