// Package main implements a mock LLM server for offline pipeline
// testing. It serves OpenAI-compatible /v1/chat/completions responses,
// picking a canned diagnosis by scanning the prompt for failure
// signatures. Point the diagnoser at it with model.base_url (provider
// "openai") and the whole pipeline runs without a real model.
//
// Usage:
//
//	mock-llm -port 11434
//	mock-llm -port 11434 -responses /path/to/responses.json
//
// A responses file replaces the built-in table: a JSON array of
// {"match": "...", "response": "..."} entries tried in order against
// the lowercased prompt, with an optional entry whose match is empty
// serving as the fallback.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// rule maps a prompt substring to a canned assistant response. An
// empty Match always matches and acts as the fallback.
type rule struct {
	Match    string `json:"match"`
	Response string `json:"response"`
}

// defaultRules covers the failure signatures the diagnoser classifies,
// so every downstream branch can be exercised offline.
var defaultRules = []rule{
	{
		Match:    "legacy-peer-deps",
		Response: "Diagnosis: Peer dependency conflict in the npm tree.\nCommand: npm install --legacy-peer-deps",
	},
	{
		Match:    "react",
		Response: "The build failed during npm install of react packages. Reinstalling the react dependencies should resolve the version mismatch.",
	},
	{
		Match:    "npm ci",
		Response: "Lockfile is out of sync. A clean install with npm ci after removing node_modules should fix it.",
	},
	{
		Match:    "",
		Response: "The failure cause is unclear from the logs. Manual investigation of the build environment is recommended.",
	},
}

type server struct {
	rules []rule
	calls atomic.Int64
}

func main() {
	port := flag.Int("port", 11434, "port to listen on")
	responsesPath := flag.String("responses", "", "JSON file of match/response rules (optional)")
	flag.Parse()

	rules := defaultRules
	if *responsesPath != "" {
		loaded, err := loadRules(*responsesPath)
		if err != nil {
			log.Fatalf("Failed to load responses from %s: %v", *responsesPath, err)
		}
		rules = loaded
		log.Printf("Loaded %d response rule(s) from %s", len(rules), *responsesPath)
	}

	s := &server{rules: rules}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock LLM server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func loadRules(path string) ([]rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rules []rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("no rules in %s", path)
	}
	return rules, nil
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	callNum := s.calls.Add(1)
	prompt := lastUserMessage(req.Messages)
	content := s.respond(prompt)

	log.Printf("[call %d] model=%s prompt_bytes=%d response_bytes=%d",
		callNum, req.Model, len(prompt), len(content))

	resp := chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{
			{
				Index:        0,
				Message:      chatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{
			PromptTokens:     len(prompt) / 4,
			CompletionTokens: len(content) / 4,
			TotalTokens:      (len(prompt) + len(content)) / 4,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// respond picks the first rule whose match appears in the prompt.
func (s *server) respond(prompt string) string {
	lower := strings.ToLower(prompt)
	for _, r := range s.rules {
		if r.Match == "" || strings.Contains(lower, strings.ToLower(r.Match)) {
			return r.Response
		}
	}
	return "No matching response configured."
}

func lastUserMessage(messages []chatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
