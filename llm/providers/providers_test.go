package providers

import (
	"testing"

	"github.com/c360studio/triagent/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisteredProviders(t *testing.T) {
	for _, name := range []string{"openai", "anthropic", "cloudflare"} {
		assert.NotNil(t, llm.GetProvider(name), "provider %s should be registered", name)
	}
}

func TestOpenAIProvider_BuildURL(t *testing.T) {
	p := &OpenAIProvider{}

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"empty uses default", "", "https://api.openai.com/v1/chat/completions"},
		{"custom base URL", "http://localhost:11434/v1", "http://localhost:11434/v1/chat/completions"},
		{"trailing slash handled", "http://localhost:11434/v1/", "http://localhost:11434/v1/chat/completions"},
		{"full path passed through", "http://mock/v1/chat/completions", "http://mock/v1/chat/completions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.BuildURL(tt.baseURL, "gpt-3.5-turbo"))
		})
	}
}

func TestOpenAIProvider_ParseResponse(t *testing.T) {
	p := &OpenAIProvider{}

	body := []byte(`{"choices":[{"message":{"role":"assistant","content":"run npm ci"}}]}`)
	text, err := p.ParseResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "run npm ci", text)

	_, err = p.ParseResponse([]byte(`{"choices":[]}`))
	assert.Error(t, err)

	_, err = p.ParseResponse([]byte(`not json`))
	assert.Error(t, err)
}

func TestAnthropicProvider_BuildRequestBody(t *testing.T) {
	p := &AnthropicProvider{}

	body, err := p.BuildRequestBody("claude-3-haiku-20240307", "analyze this failure", 300)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"model":"claude-3-haiku-20240307"`)
	assert.Contains(t, string(body), `"max_tokens":300`)
	assert.Contains(t, string(body), `"role":"user"`)
}

func TestAnthropicProvider_ParseResponse_TextBlocks(t *testing.T) {
	p := &AnthropicProvider{}

	body := []byte(`{"content":[{"type":"text","text":"use "},{"type":"text","text":"legacy-peer-deps"}]}`)
	text, err := p.ParseResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "use legacy-peer-deps", text)
}

// A content block without a text field must degrade to its stringified
// form, never fail the call.
func TestAnthropicProvider_ParseResponse_FallbackToRawBlock(t *testing.T) {
	p := &AnthropicProvider{}

	body := []byte(`{"content":[{"type":"tool_use","input":{"a":1}}]}`)
	text, err := p.ParseResponse(body)
	require.NoError(t, err)
	assert.Contains(t, text, "tool_use")
}

func TestAnthropicProvider_ParseResponse_Empty(t *testing.T) {
	p := &AnthropicProvider{}

	_, err := p.ParseResponse([]byte(`{"content":[]}`))
	assert.Error(t, err)
}

func TestCloudflareProvider_ParseResponse(t *testing.T) {
	p := &CloudflareProvider{}

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr string
	}{
		{
			name: "success envelope",
			body: `{"success":true,"result":{"response":"npm install --legacy-peer-deps"}}`,
			want: "npm install --legacy-peer-deps",
		},
		{
			name:    "success false",
			body:    `{"success":false,"errors":[{"message":"bad token"}]}`,
			wantErr: "success=false",
		},
		{
			name:    "missing result",
			body:    `{"success":true}`,
			wantErr: "no result",
		},
		{
			name:    "malformed body",
			body:    `<!doctype html>`,
			wantErr: "parse cloudflare response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := p.ParseResponse([]byte(tt.body))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestCloudflareProvider_BuildURL(t *testing.T) {
	p := &CloudflareProvider{}

	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "acct123")
	got := p.BuildURL("", "@cf/meta/llama-2-7b-chat-fp16")
	assert.Equal(t, "https://api.cloudflare.com/client/v4/accounts/acct123/ai/run/@cf/meta/llama-2-7b-chat-fp16", got)
}
