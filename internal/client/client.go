// Package client talks to a running mlcshim server. It backs the chat and
// models subcommands and the end-to-end tests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tmaxmax/go-sse"

	"mlcshim/pkg/types"
)

// ErrIncompleteStream is returned when the server closes the stream without a terminal frame.
var ErrIncompleteStream = errors.New("stream ended without [DONE]")

// APIError is a non-2xx JSON error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("server returned %d: %s", e.Status, e.Message) }

// StreamError is an error frame received mid-stream.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string { return "stream error: " + e.Message }

// Client is a minimal HTTP client for the shim's API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for baseURL. A nil hc uses a client without timeout;
// callers bound requests through their context.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Models returns the advertised models.
func (c *Client) Models(ctx context.Context) ([]types.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var body types.ModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	return body.Data, nil
}

// StreamChat posts messages and calls onToken for every streamed token in
// order. It returns nil after [DONE], a *StreamError for an error frame, and
// the callback's error if onToken fails.
func (c *Client) StreamChat(ctx context.Context, messages []types.ChatMessage, onToken func(string) error) error {
	payload, err := json.Marshal(types.ChatCompletionRequest{Messages: messages, Stream: true})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	for ev, err := range sse.Read(resp.Body, nil) {
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read stream: %w", err)
		}
		if ev.Data == "[DONE]" {
			return nil
		}
		if strings.HasPrefix(ev.Data, `{"error"`) {
			var se types.StreamError
			if err := json.Unmarshal([]byte(ev.Data), &se); err != nil {
				return fmt.Errorf("decode error frame: %w", err)
			}
			return &StreamError{Message: se.Error}
		}
		var chunk types.ChatCompletionChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return fmt.Errorf("decode chunk: %w", err)
		}
		for _, ch := range chunk.Choices {
			if err := onToken(ch.Delta.Content); err != nil {
				return err
			}
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return ErrIncompleteStream
}

func decodeAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var er types.ErrorResponse
	if err := json.Unmarshal(b, &er); err == nil && er.Error != "" {
		return &APIError{Status: resp.StatusCode, Message: er.Error}
	}
	return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(b))}
}
