package bus

import (
	"encoding/base64"
	"encoding/json"
)

// pushEnvelope is the push-delivery wrapper some transports put around
// a payload: the record JSON is base64-encoded under message.data.
type pushEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
}

// ExtractPayload returns the record payload carried by an inbound
// message. It accepts either a push-style envelope with base64 JSON
// under message.data or a bare JSON payload. Decode failures never
// produce an error: the undecodable content is degraded to a
// {"raw": "..."} payload so the stage still observes the message.
func ExtractPayload(data []byte) []byte {
	var env pushEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Message.Data == "" {
		// Not an envelope; the payload is the message itself.
		return data
	}

	decoded, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil || !json.Valid(decoded) {
		return rawPayload(env.Message.Data)
	}
	return decoded
}

// rawPayload wraps an undecodable string as a degraded raw record.
func rawPayload(s string) []byte {
	out, err := json.Marshal(map[string]string{"raw": s})
	if err != nil {
		// Marshal of map[string]string cannot realistically fail; keep
		// the pipeline moving regardless.
		return []byte(`{"raw":""}`)
	}
	return out
}
