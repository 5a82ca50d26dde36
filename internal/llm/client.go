// Package llm streams completion tokens from an OpenAI-compatible chat
// endpoint. The rest of the service only sees a stream.TokenSource; nothing
// vendor-specific leaks past this package.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"fiscstream/internal/stream"
)

// Options configure the upstream client.
type Options struct {
	BaseURL     string
	Model       string
	APIKey      string
	Timeout     time.Duration
	Fingerprint bool
}

// Client talks to one upstream completion endpoint.
type Client struct {
	opts  Options
	httpc Doer
}

func NewClient(opts Options) *Client {
	return &Client{opts: opts, httpc: newHTTPClient(opts.Timeout, opts.Fingerprint)}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Stream opens a completion stream for one question. The returned source is
// single-use; wrap it in a stream.OnceSource before iterating.
func (c *Client) Stream(ctx context.Context, question string) (stream.TokenSource, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.opts.Model,
		Stream:   true,
		Messages: []chatMessage{{Role: "user", Content: question}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode upstream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Accept-Encoding", "br")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "br") {
		reader = brotli.NewReader(resp.Body)
	}
	return newSSESource(reader, resp.Body), nil
}
