// Package secrets provides secret retrieval as a key-value lookup by
// name. The pipeline treats the backing mechanism as opaque: a Store
// returns the secret string or fails, nothing more.
package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store looks up a secret value by name.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

// EnvStore reads secrets from environment variables. Secret names are
// mapped to env keys by uppercasing and replacing dashes with
// underscores ("openai-api-key" → "OPENAI_API_KEY").
type EnvStore struct{}

// NewEnvStore creates an environment-backed store.
func NewEnvStore() *EnvStore {
	return &EnvStore{}
}

// Get returns the env value for a secret name.
func (s *EnvStore) Get(_ context.Context, name string) (string, error) {
	key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("secret %s not set (env %s)", name, key)
	}
	return value, nil
}

// DirStore reads secrets from files in a directory, one file per
// secret name. This matches mounted-secret layouts where each secret
// is projected as a file.
type DirStore struct {
	dir string
}

// NewDirStore creates a directory-backed store rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Get reads and trims the file named after the secret.
func (s *DirStore) Get(_ context.Context, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", name, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("secret %s is empty", name)
	}
	return value, nil
}

// providerKeys maps secret names to the env vars the llm providers
// read their credentials from.
var providerKeys = map[string]string{
	"openai-api-key":        "OPENAI_API_KEY",
	"anthropic-api-key":     "ANTHROPIC_API_KEY",
	"cloudflare-api-token":  "CLOUDFLARE_API_TOKEN",
	"cloudflare-account-id": "CLOUDFLARE_ACCOUNT_ID",
}

// ExportProviderKeys resolves the known provider credentials through
// the store and exports them into the process environment for the
// provider adapters. Missing secrets are skipped: a deployment only
// configures the providers it uses.
func ExportProviderKeys(ctx context.Context, store Store) error {
	for name, envKey := range providerKeys {
		if os.Getenv(envKey) != "" {
			continue
		}
		value, err := store.Get(ctx, name)
		if err != nil {
			continue
		}
		if err := os.Setenv(envKey, value); err != nil {
			return fmt.Errorf("export %s: %w", envKey, err)
		}
	}
	return nil
}
