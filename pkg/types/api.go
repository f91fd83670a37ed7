package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ChatMessage is a single entry of a chat completion request.
type ChatMessage struct {
	// Author role (system, user, assistant).
	// example: user
	Role string `json:"role" example:"user"`
	// Message text. Accepts a plain string or an array of OpenAI content parts.
	// example: Write a haiku about the ocean.
	Content MessageContent `json:"content" swaggertype:"string" example:"Write a haiku about the ocean."`
}

// MessageContent holds the text of a message. OpenAI clients send either a
// string or a list of typed parts; only text parts are kept.
type MessageContent string

// UnmarshalJSON accepts a string, null, or an array of content parts.
func (c *MessageContent) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "null" {
		*c = ""
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = MessageContent(s)
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var parts []ContentPart
		if err := json.Unmarshal(b, &parts); err != nil {
			return err
		}
		var sb strings.Builder
		for _, p := range parts {
			if p.Type == "" || p.Type == "text" {
				sb.WriteString(p.Text)
			}
		}
		*c = MessageContent(sb.String())
		return nil
	}
	return fmt.Errorf("content must be a string or an array of parts")
}

// Text returns the content as a plain string.
func (c MessageContent) Text() string { return string(c) }

// ContentPart is one element of an array-form message content.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ChatCompletionRequest is the body of POST /v1/chat/completions.
// Only messages are consulted; the remaining fields are accepted for client compatibility.
type ChatCompletionRequest struct {
	// Optional model identifier; ignored, the configured model always serves.
	// example: MLC_LLM_Model
	Model string `json:"model,omitempty" example:"MLC_LLM_Model"`
	// Conversation so far. The content of the last entry becomes the prompt.
	Messages []ChatMessage `json:"messages"`
	// Accepted for compatibility; responses always stream.
	// example: true
	Stream bool `json:"stream,omitempty" example:"true"`
}

// LastContent returns the content of the final message, or false when there are no messages.
func (r ChatCompletionRequest) LastContent() (string, bool) {
	if len(r.Messages) == 0 {
		return "", false
	}
	return r.Messages[len(r.Messages)-1].Content.Text(), true
}

// ChatCompletionChunk is one streamed SSE payload.
type ChatCompletionChunk struct {
	// example: chatcmpl-temp
	ID string `json:"id" example:"chatcmpl-temp"`
	// example: chat.completion.chunk
	Object  string        `json:"object" example:"chat.completion.chunk"`
	Model   string        `json:"model" example:"MLC_LLM_Model"`
	Choices []ChunkChoice `json:"choices"`
}

// ChunkChoice carries the delta for one streamed token.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChunkDelta is the incremental content of a chunk.
type ChunkDelta struct {
	Content string `json:"content"`
}

// StreamError is the payload of an SSE error frame.
type StreamError struct {
	// example: Process killed after 1200s timeout.
	Error string `json:"error" example:"Process killed after 1200s timeout."`
}

// ModelInfo describes the advertised model.
type ModelInfo struct {
	// example: MLC_LLM_Model
	ID string `json:"id" example:"MLC_LLM_Model"`
	// example: model
	Object string `json:"object" example:"model"`
}

// ModelsResponse is returned by GET /v1/models.
type ModelsResponse struct {
	Data []ModelInfo `json:"data"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// PreflightCheck is a single named readiness probe.
type PreflightCheck struct {
	// example: cli_executable
	Name string `json:"name" example:"cli_executable"`
	OK   bool   `json:"ok" example:"true"`
	// Optional detail explaining a failure.
	Detail string `json:"detail,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Advertised model id.
	// example: MLC_LLM_Model
	Model string `json:"model" example:"MLC_LLM_Model"`
	// Path of the inference CLI.
	// example: /workspace/mlc-llm/build/apps/mlc_cli_chat/mlc_cli_chat
	CLIPath string `json:"cli_path" example:"/workspace/mlc-llm/build/apps/mlc_cli_chat/mlc_cli_chat"`
	// Compute device passed to the CLI.
	// example: opencl
	Device string `json:"device" example:"opencl"`
	// Per-request wall-clock limit in seconds.
	// example: 1200
	TimeoutSeconds int `json:"timeout_seconds" example:"1200"`
	// Number of CLI children currently running.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Upper bound on concurrent children (0 = unlimited).
	// example: 0
	MaxConcurrent int `json:"max_concurrent" example:"0"`
	// Readiness probes.
	Checks []PreflightCheck `json:"checks"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
