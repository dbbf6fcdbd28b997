// Package llm talks to a local Ollama server. The hardware extractor uses it
// to turn document text into structured data.
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

	"go.uber.org/zap"
)

// DefaultEndpoint is used when no endpoint is configured.
const DefaultEndpoint = "http://localhost:11434"

// DefaultModel is used when neither the client nor the call names a model.
const DefaultModel = "llama3.1"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single request. Zero values are omitted.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Stop        []string
	// Format asks Ollama to constrain output, e.g. "json".
	Format string
}

// Response is the decoded reply.
type Response struct {
	Text         string         `json:"text"`
	FinishReason string         `json:"finish_reason"`
	Usage        map[string]int `json:"usage,omitempty"`
}

// Model is the subset of the client other packages depend on.
type Model interface {
	Generate(ctx context.Context, prompt string, options *Options) (*Response, error)
	Chat(ctx context.Context, messages []Message, options *Options) (*Response, error)
}

// Client is an Ollama HTTP client.
type Client struct {
	Endpoint string
	Model    string
	Logger   *zap.Logger
	Debug    bool
	client   *http.Client
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaResponse struct {
	Response        string         `json:"response"`
	Message         *ollamaMessage `json:"message"`
	DoneReason      string         `json:"done_reason"`
	EvalCount       int            `json:"eval_count"`
	PromptEvalCount int            `json:"prompt_eval_count"`
}

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewClient builds a new Ollama client.
func NewClient(endpoint, model string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Model:    model,
		Logger:   zap.NewNop(),
		client: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}
}

// Generate implements single prompt completion.
func (c *Client) Generate(ctx context.Context, prompt string, options *Options) (*Response, error) {
	payload := map[string]interface{}{
		"model":  c.model(options),
		"prompt": prompt,
		"stream": false,
	}
	c.applyOptions(payload, options)
	return c.doRequest(ctx, "/api/generate", payload)
}

// Chat implements chat style conversation.
func (c *Client) Chat(ctx context.Context, messages []Message, options *Options) (*Response, error) {
	converted := make([]ollamaMessage, 0, len(messages))
	for _, msg := range messages {
		converted = append(converted, ollamaMessage{Role: msg.Role, Content: msg.Content})
	}
	payload := map[string]interface{}{
		"model":    c.model(options),
		"messages": converted,
		"stream":   false,
	}
	c.applyOptions(payload, options)
	return c.doRequest(ctx, "/api/chat", payload)
}

// ListModels returns the models installed on the server.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama error: %s", resp.Status)
	}
	var tags ollamaTags
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// SetHTTPClient swaps the transport, mostly for tests.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.client = client
}

func (c *Client) getHTTPClient() *http.Client {
	if c.client != nil {
		return c.client
	}
	c.client = &http.Client{Timeout: 60 * time.Second}
	return c.client
}

func (c *Client) model(options *Options) string {
	if options != nil && options.Model != "" {
		return options.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return DefaultModel
}

func (c *Client) applyOptions(payload map[string]interface{}, options *Options) {
	if options == nil {
		return
	}
	opts := map[string]interface{}{}
	if options.Temperature != 0 {
		opts["temperature"] = options.Temperature
	}
	if options.MaxTokens != 0 {
		opts["num_predict"] = options.MaxTokens
	}
	if options.Stop != nil {
		opts["stop"] = options.Stop
	}
	if len(opts) > 0 {
		payload["options"] = opts
	}
	if options.Format != "" {
		payload["format"] = options.Format
	}
}

func (c *Client) doRequest(ctx context.Context, path string, payload interface{}) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	c.logPayload("request", path, body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(msg))
		if detail != "" {
			return nil, fmt.Errorf("ollama error: %s: %s", resp.Status, detail)
		}
		return nil, fmt.Errorf("ollama error: %s", resp.Status)
	}
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logPayload("response", path, responseBody)
	return decodeResponse(bytes.NewReader(responseBody))
}

func decodeResponse(body io.Reader) (*Response, error) {
	var raw ollamaResponse
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, err
	}
	resp := &Response{
		Text:         raw.Response,
		FinishReason: raw.DoneReason,
		Usage:        normalizeUsage(raw),
	}
	if resp.Text == "" && raw.Message != nil {
		resp.Text = raw.Message.Content
	}
	return resp, nil
}

func normalizeUsage(raw ollamaResponse) map[string]int {
	usage := make(map[string]int)
	if raw.EvalCount > 0 {
		usage["completion_tokens"] = raw.EvalCount
	}
	if raw.PromptEvalCount > 0 {
		usage["prompt_tokens"] = raw.PromptEvalCount
	}
	if len(usage) == 0 {
		return nil
	}
	return usage
}

func (c *Client) logPayload(kind, path string, payload []byte) {
	if !c.Debug || c.Logger == nil {
		return
	}
	c.Logger.Debug("ollama "+kind,
		zap.String("path", path),
		zap.String("payload", truncate(string(payload), 2048)))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
