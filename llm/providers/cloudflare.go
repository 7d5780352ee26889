package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/c360studio/triagent/llm"
)

// CloudflareProvider implements the Cloudflare Workers AI API.
type CloudflareProvider struct{}

func init() {
	llm.RegisterProvider(&CloudflareProvider{})
}

// Name returns the provider identifier.
func (c *CloudflareProvider) Name() string {
	return "cloudflare"
}

// DefaultModel returns the model used when the caller names none.
func (c *CloudflareProvider) DefaultModel() string {
	return "@cf/meta/llama-2-7b-chat-fp16"
}

// BuildURL constructs the Workers AI run endpoint for a model.
// The account id comes from CLOUDFLARE_ACCOUNT_ID.
func (c *CloudflareProvider) BuildURL(baseURL, model string) string {
	if baseURL == "" {
		baseURL = "https://api.cloudflare.com/client/v4"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	account := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	return fmt.Sprintf("%s/accounts/%s/ai/run/%s", baseURL, account, model)
}

// SetHeaders adds the Workers AI bearer token.
func (c *CloudflareProvider) SetHeaders(req *http.Request) {
	if token := os.Getenv("CLOUDFLARE_API_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

type cloudflareRequest struct {
	Messages  []cloudflareMessage `json:"messages"`
	MaxTokens int                 `json:"max_tokens"`
}

type cloudflareMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildRequestBody creates the Workers AI request body.
func (c *CloudflareProvider) BuildRequestBody(_, prompt string, maxTokens int) ([]byte, error) {
	return json.Marshal(cloudflareRequest{
		Messages:  []cloudflareMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})
}

// ParseResponse validates the Workers AI envelope before extracting
// text. A missing success flag or result object is an error, not a
// crash: the router converts it into a RouteError for the caller.
func (c *CloudflareProvider) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Success bool `json:"success"`
		Result  *struct {
			Response string `json:"response"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse cloudflare response: %w", err)
	}
	if !resp.Success {
		return "", fmt.Errorf("cloudflare API success=false")
	}
	if resp.Result == nil {
		return "", fmt.Errorf("cloudflare response has no result")
	}
	return resp.Result.Response, nil
}
