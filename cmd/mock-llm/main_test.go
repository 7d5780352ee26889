package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postChat(t *testing.T, s *server, prompt string) chatResponse {
	t.Helper()

	body, err := json.Marshal(chatRequest{
		Model:    "gpt-4o-mini",
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleChatCompletions(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRespondMatchesFailureSignatures(t *testing.T) {
	s := &server{rules: defaultRules}

	tests := []struct {
		name     string
		prompt   string
		contains string
	}{
		{"peer dependency conflict", "Error: fix with --legacy-peer-deps", "npm install --legacy-peer-deps"},
		{"react install failure", "npm install react failed with ERESOLVE", "version mismatch"},
		{"lockfile drift", "try npm ci to get a clean install", "npm ci"},
		{"unknown failure", "segfault in the build container", "Manual investigation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postChat(t, s, tt.prompt)
			require.Len(t, resp.Choices, 1)
			assert.Contains(t, resp.Choices[0].Message.Content, tt.contains)
			assert.Equal(t, "assistant", resp.Choices[0].Message.Role)
			assert.Equal(t, "stop", resp.Choices[0].FinishReason)
		})
	}
}

func TestHandleChatCompletionsRejectsBadRequests(t *testing.T) {
	s := &server{rules: defaultRules}

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.handleChatCompletions(rec, httptest.NewRequest(http.MethodGet, "/v1/chat/completions", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader([]byte("{")))
		s.handleChatCompletions(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoadRules(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "responses.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"match":"oom","response":"add memory"}]`), 0o644))

		rules, err := loadRules(path)
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "oom", rules[0].Match)
	})

	t.Run("empty file errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "responses.json")
		require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

		_, err := loadRules(path)
		assert.Error(t, err)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := loadRules(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}

func TestLastUserMessage(t *testing.T) {
	assert.Equal(t, "", lastUserMessage(nil))
	assert.Equal(t, "second", lastUserMessage([]chatMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "first"},
		{Role: "user", Content: "second"},
	}))
}
