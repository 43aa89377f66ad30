package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client wraps calls to the receptionist API, as used by a telephony gateway
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// StartCall announces an answered call and returns the greeting to speak
func (c *Client) StartCall(ctx context.Context, req *IncomingCallRequest) (*CallReply, error) {
	var out ApiResponse[CallReply]
	if err := c.doJSON(ctx, http.MethodPost, "/api/call/incoming", req, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ProcessSpeech sends a caller utterance and returns the reply to speak
func (c *Client) ProcessSpeech(ctx context.Context, req *SpeechRequest) (*CallReply, error) {
	var out ApiResponse[CallReply]
	if err := c.doJSON(ctx, http.MethodPost, "/api/call/process-speech", req, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// EndCall tells the receptionist the caller hung up
func (c *Client) EndCall(ctx context.Context, callID string) error {
	path := fmt.Sprintf("/api/call/%s/end", url.PathEscape(callID))
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// GetCall returns the stored transcript of an active call
func (c *Client) GetCall(ctx context.Context, callID string) (*CallTranscript, error) {
	path := fmt.Sprintf("/api/call/%s", url.PathEscape(callID))

	var out ApiResponse[CallTranscript]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// TestConversation runs one utterance against a tenant outside a live call
func (c *Client) TestConversation(ctx context.Context, req *TestConversationRequest) (*CallReply, error) {
	var out ApiResponse[CallReply]
	if err := c.doJSON(ctx, http.MethodPost, "/api/test/conversation", req, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// doJSON is a helper to perform JSON requests to the backend
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	// Create request body if input is provided
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request '%s %s' failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("receptionist '%s %s' failed: %d: %s", method, path, resp.StatusCode, string(b))
	}

	// If no output expected, return early
	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
