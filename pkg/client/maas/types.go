package maas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Token is a minted MaaS API token.
type Token struct {
	Token      string    `json:"token"`
	Expiration string    `json:"expiration,omitempty"`
	ExpiresAt  Timestamp `json:"expiresAt"`
}

// Timestamp decodes either unix seconds or an RFC 3339 string.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	if data[0] == '"' {
		var text string

		err := json.Unmarshal(data, &text)
		if err != nil {
			return fmt.Errorf("decode timestamp: %w", err)
		}

		parsed, err := time.Parse(time.RFC3339, text)
		if err != nil {
			return fmt.Errorf("decode timestamp %q: %w", text, err)
		}

		t.Time = parsed

		return nil
	}

	seconds, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("decode timestamp %s: %w", data, err)
	}

	t.Time = time.Unix(seconds, 0).UTC()

	return nil
}

// Model is an entry of the model catalog.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
	URL     string `json:"url,omitempty"`
	Ready   bool   `json:"ready"`
}

type modelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// ChatMessage is one OpenAI-style chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is an OpenAI-compatible chat completion request.
type ChatRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// ChatChoice is one completion choice.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// Usage reports token consumption; Limitador counts total_tokens.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is an OpenAI-compatible chat completion response.
type ChatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

type tokenRequest struct {
	Expiration string `json:"expiration"`
}

type tierLookupRequest struct {
	Groups []string `json:"groups"`
}

type tierLookupResponse struct {
	Tier string `json:"tier"`
}
