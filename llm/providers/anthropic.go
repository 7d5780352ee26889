package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/c360studio/triagent/llm"
)

// AnthropicProvider implements the Anthropic messages API.
type AnthropicProvider struct{}

// anthropicVersion is the API version to use.
const anthropicVersion = "2023-06-01"

func init() {
	llm.RegisterProvider(&AnthropicProvider{})
}

// Name returns the provider identifier.
func (a *AnthropicProvider) Name() string {
	return "anthropic"
}

// DefaultModel returns the model used when the caller names none.
func (a *AnthropicProvider) DefaultModel() string {
	return "claude-3-haiku-20240307"
}

// BuildURL constructs the Anthropic messages endpoint.
func (a *AnthropicProvider) BuildURL(baseURL, _ string) string {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return baseURL + "/v1/messages"
}

// SetHeaders adds Anthropic-specific authentication headers.
func (a *AnthropicProvider) SetHeaders(req *http.Request) {
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	req.Header.Set("anthropic-version", anthropicVersion)
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildRequestBody creates the Anthropic messages request body.
func (a *AnthropicProvider) BuildRequestBody(model, prompt string, maxTokens int) ([]byte, error) {
	return json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
}

// ParseResponse extracts text from an Anthropic response.
// Content blocks come back in multiple shapes; text blocks are
// concatenated, and when no text field is present the first block is
// stringified rather than failing the call.
func (a *AnthropicProvider) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Content []json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse anthropic response: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropic response has no content")
	}

	var text strings.Builder
	for _, raw := range resp.Content {
		var block struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &block); err == nil && block.Text != "" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		// No recognizable text field; fall back to the raw first block.
		return string(resp.Content[0]), nil
	}
	return text.String(), nil
}
