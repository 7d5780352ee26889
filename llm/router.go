// Package llm provides a provider-agnostic router for text-generation
// calls. Providers register themselves via init(); the router resolves
// a provider by name, performs the HTTP call with a bounded timeout,
// and normalizes both successes and failures so callers never see a
// provider-specific error shape.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// defaultTimeout bounds every provider call to avoid pipeline stalls.
	defaultTimeout = 30 * time.Second

	// defaultMaxTokens limits response length for diagnosis prompts.
	defaultMaxTokens = 300

	// maxResponseSize limits the response body read to prevent memory
	// exhaustion on a misbehaving endpoint.
	maxResponseSize = 1 * 1024 * 1024 // 1MB
)

// Result is the normalized outcome of a successful routing call.
type Result struct {
	// Provider is the provider that produced the response.
	Provider string `json:"provider"`

	// Response is the extracted plain-text completion.
	Response string `json:"response"`

	// Raw is the unparsed provider response body, kept for tracing.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// RouteOptions selects the provider and model for a call.
type RouteOptions struct {
	// Provider names one of the registered providers. Defaults to "openai".
	Provider string

	// Model overrides the provider's default model when non-empty.
	Model string

	// MaxTokens overrides the default response length limit when positive.
	MaxTokens int
}

// Router routes prompts to registered providers.
// A Router is safe for concurrent use and is intended to be constructed
// once and reused across stage invocations.
type Router struct {
	httpClient *http.Client
	baseURLs   map[string]string
	logger     *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) RouterOption {
	return func(r *Router) {
		r.httpClient = c
	}
}

// WithBaseURL overrides the endpoint base URL for a provider.
// Used to point a provider at a mock server in tests.
func WithBaseURL(provider, baseURL string) RouterOption {
	return func(r *Router) {
		r.baseURLs[provider] = baseURL
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a Router with a bounded default timeout.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURLs:   make(map[string]string),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route sends a prompt to the selected provider and returns the
// normalized result. All failures, including an unknown provider name,
// come back as a *RouteError tagged with the literal provider name the
// caller asked for.
func (r *Router) Route(ctx context.Context, prompt string, opts RouteOptions) (*Result, error) {
	name := strings.ToLower(strings.TrimSpace(opts.Provider))
	if name == "" {
		name = "openai"
	}

	provider := GetProvider(name)
	if provider == nil {
		return nil, NewRouteError(name, "unknown provider", nil)
	}

	model := opts.Model
	if model == "" {
		model = provider.DefaultModel()
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body, err := provider.BuildRequestBody(model, prompt, maxTokens)
	if err != nil {
		return nil, NewRouteError(name, "build request body", err)
	}

	url := provider.BuildURL(r.baseURLs[name], model)

	r.logger.Debug("Routing prompt",
		"provider", name,
		"model", model,
		"url", url,
		"prompt_len", len(prompt))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewRouteError(name, "create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq)

	httpResp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewRouteError(name, "request failed", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewRouteError(name, "read response", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, NewRouteError(name, httpStatusCause(httpResp.StatusCode, respBody), nil)
	}

	text, err := provider.ParseResponse(respBody)
	if err != nil {
		return nil, NewRouteError(name, "parse response", err)
	}

	return &Result{
		Provider: name,
		Response: text,
		Raw:      json.RawMessage(respBody),
	}, nil
}

// httpStatusCause builds a short cause string from an HTTP error,
// including a truncated body excerpt for log context.
func httpStatusCause(statusCode int, body []byte) string {
	excerpt := strings.TrimSpace(string(body))
	if len(excerpt) > 200 {
		excerpt = excerpt[:200] + "..."
	}
	if excerpt == "" {
		return fmt.Sprintf("HTTP %d", statusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", statusCode, excerpt)
}
