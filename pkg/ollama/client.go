package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/koala-nodes/aspect-latent/pkg/types"
)

// DefaultTimeout bounds a single request when the caller's context has no deadline
const DefaultTimeout = 300 * time.Second

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInlineComment = regexp.MustCompile(`(?m)//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// Client wraps the Ollama API client
type Client struct {
	client *api.Client
}

// NewClient creates a client for the server at ollamaURL. Any path such as
// /api/chat is dropped; the SDK adds its own.
func NewClient(ollamaURL string) (*Client, error) {
	return NewClientWithHTTP(ollamaURL, http.DefaultClient)
}

// NewClientWithHTTP is NewClient with a caller supplied http.Client
func NewClientWithHTTP(ollamaURL string, httpClient *http.Client) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %q", parsedURL.Scheme)
	}

	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}
	return &Client{client: api.NewClient(baseURL, httpClient)}, nil
}

// AnalyzeImage sends the image with prompt to model and parses the subject it reports
func (c *Client) AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}

	stream := false
	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream:  &stream,
		Options: modelOptions(model),
	}

	var content string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %w", err)
	}
	if content == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}

	return parseAnalysisResult(content), nil
}

// modelOptions tunes sampling for the MiniCPM-V 4.x family
func modelOptions(model string) map[string]any {
	opts := map[string]any{}
	m := strings.ToLower(model)
	if strings.Contains(m, "minicpm-v4") || strings.Contains(m, "minicpm-v-4") || strings.Contains(m, "minicpmv4") {
		opts["temperature"] = 0.7
		opts["top_p"] = 0.8
		opts["num_ctx"] = 4096
	}
	return opts
}

// parseAnalysisResult never fails: unusable output becomes a centered "none" subject
func parseAnalysisResult(raw string) *types.AnalysisResult {
	raw = sanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return fallback("model returned non-JSON response")
	}

	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return fallback("failed to parse model response")
	}
	return &result
}

func fallback(description string) *types.AnalysisResult {
	return &types.AnalysisResult{
		Primary: types.Subject{
			Label: "none",
			Box:   types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
			Cx:    0.5,
			Cy:    0.5,
		},
		Description: description,
	}
}

// sanitizeModelJSON strips code fences, comments and trailing commas and keeps
// the outermost object
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reInlineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
