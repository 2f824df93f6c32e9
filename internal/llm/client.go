// Package llm implements the inference client for the translation backend:
// a single synchronous chat-completions call wrapped in an adaptive
// retry/backoff state machine.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/spherical/book-translator/internal/domain"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel   = "google/gemini-2.5-flash"

	// maxErrorBody bounds how much of a failing response body is read for
	// the recorded error message.
	maxErrorBody = 2048
)

// ClientConfig holds the connection settings for the backend.
type ClientConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client handles communication with an OpenRouter-compatible chat API.
// It is stateless across calls; retry counters live per invocation.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	prompt     *PromptTemplate
	retrier    *Retrier
	logger     zerolog.Logger
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image)
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents an image URL in the message
type ImageURL struct {
	URL string `json:"url"`
}

// Request represents the API request structure
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Response represents the API response structure
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice represents a single completion choice
type Choice struct {
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// ChoiceMessage is the completed assistant message
type ChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewClient creates a new inference client.
func NewClient(cfg ClientConfig, prompt *PromptTemplate, retrier *Retrier, logger zerolog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if prompt == nil {
		prompt = NewPromptTemplate(defaultPromptTemplate)
	}
	if retrier == nil {
		retrier = NewRetrier(DefaultPolicy(), logger)
	}
	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		prompt:     prompt,
		retrier:    retrier,
		logger:     logger,
	}
}

// Translate sends one page plus the context window to the backend and
// returns the translated text. Failures come back classified; only fatal
// and exhausted outcomes surface to the caller, everything retryable is
// handled inside.
func (c *Client) Translate(ctx context.Context, page domain.Page, contextWindow []string) (string, error) {
	if page.IsEmpty() {
		return "", domain.FatalError(fmt.Sprintf("page %d", page.Number), domain.ErrEmptyPage)
	}

	body, err := json.Marshal(c.buildRequest(page, contextWindow))
	if err != nil {
		return "", domain.FatalError("marshaling request", err)
	}

	return c.retrier.Do(ctx, func(ctx context.Context) (string, error) {
		return c.attempt(ctx, body)
	})
}

// attempt performs one HTTP round trip and classifies the outcome.
func (c *Client) attempt(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", domain.FatalError("building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Title", "Book Translator")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", domain.TransientError("sending request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp)
	}

	var parsed Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", domain.TransientError("decoding response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", domain.TransientError("response contained no choices", nil)
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", domain.TransientError("backend returned an empty translation", nil)
	}
	return text, nil
}

// buildRequest constructs the chat request for a page. Image pages carry the
// rendered page as a base64 data URL next to the instruction text.
func (c *Client) buildRequest(page domain.Page, contextWindow []string) *Request {
	parts := []ContentPart{
		{Type: "text", Text: c.prompt.Render(page.Text, contextWindow)},
	}

	if page.Kind == domain.PageImage {
		mime := page.ImageMIME
		if mime == "" {
			mime = "image/png"
		}
		dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(page.Image))
		parts = append(parts, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}})
	}

	return &Request{
		Model:    c.model,
		Messages: []Message{{Role: "user", Content: parts}},
	}
}

// classifyStatus maps a non-200 response onto the failure taxonomy:
// 429 is a rate limit, 5xx and 408 are transient, everything else is fatal.
func classifyStatus(resp *http.Response) error {
	excerpt := readErrorExcerpt(resp.Body)
	msg := fmt.Sprintf("API returned status %d: %s", resp.StatusCode, excerpt)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.RateLimitError(msg, nil)
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode >= 500:
		return domain.TransientError(msg, nil)
	default:
		return domain.FatalError(msg, nil)
	}
}

func readErrorExcerpt(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return domain.TruncateExcerpt(strings.TrimSpace(string(data)), 300)
}
