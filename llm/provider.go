package llm

import (
	"net/http"
	"sync"
)

// Provider defines the interface for text-generation provider adapters.
type Provider interface {
	// Name returns the provider identifier (e.g., "anthropic", "cloudflare").
	Name() string

	// DefaultModel returns the model used when the caller does not name one.
	DefaultModel() string

	// BuildURL constructs the full API endpoint URL for a model.
	// baseURL may be empty to use the provider's public endpoint.
	BuildURL(baseURL, model string) string

	// SetHeaders adds provider-specific authentication headers.
	SetHeaders(req *http.Request)

	// BuildRequestBody creates the JSON request body for the provider.
	BuildRequestBody(model, prompt string, maxTokens int) ([]byte, error)

	// ParseResponse extracts plain text from provider-specific JSON.
	// Implementations must degrade to a stringified representation when
	// the expected text field is absent rather than failing the call.
	ParseResponse(body []byte) (string, error)
}

// providerRegistry holds registered providers.
var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name, or nil if unknown.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	return names
}
