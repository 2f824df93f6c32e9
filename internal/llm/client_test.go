package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/book-translator/internal/domain"
	"github.com/spherical/book-translator/internal/observability"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	retrier := NewRetrier(Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Minute}, observability.Nop())
	retrier.sleep = func(context.Context, time.Duration) error { return nil }

	return NewClient(ClientConfig{
		APIKey:  "sk-or-test",
		Model:   "test/model",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, nil, retrier, observability.Nop())
}

func completionResponse(text string) string {
	resp := Response{
		ID:      "gen-1",
		Choices: []Choice{{Message: ChoiceMessage{Role: "assistant", Content: text}, FinishReason: "stop"}},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestTranslateSuccess(t *testing.T) {
	var captured Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-or-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(completionResponse("  translated page  ")))
	})

	page := domain.Page{Number: 1, Kind: domain.PageText, Text: "pagina uno"}
	out, err := client.Translate(context.Background(), page, []string{"prior"})

	require.NoError(t, err)
	assert.Equal(t, "translated page", out)
	assert.Equal(t, "test/model", captured.Model)
	require.Len(t, captured.Messages, 1)
	require.Len(t, captured.Messages[0].Content, 1)
	text := captured.Messages[0].Content[0].Text
	assert.Contains(t, text, "pagina uno")
	assert.Contains(t, text, "prior")
}

func TestTranslateImagePage(t *testing.T) {
	var captured Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(completionResponse("image text translated")))
	})

	page := domain.Page{Number: 2, Kind: domain.PageImage, Image: []byte{0x89, 0x50}, ImageMIME: "image/png"}
	out, err := client.Translate(context.Background(), page, nil)

	require.NoError(t, err)
	assert.Equal(t, "image text translated", out)
	require.Len(t, captured.Messages[0].Content, 2)
	imagePart := captured.Messages[0].Content[1]
	assert.Equal(t, "image_url", imagePart.Type)
	require.NotNil(t, imagePart.ImageURL)
	assert.True(t, strings.HasPrefix(imagePart.ImageURL.URL, "data:image/png;base64,"))
}

func TestTranslateEmptyPageIsFatal(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	page := domain.Page{Number: 3, Kind: domain.PageText, Text: "   "}
	_, err := client.Translate(context.Background(), page, nil)

	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeFatal, domain.TypeOf(err))
	assert.ErrorIs(t, err, domain.ErrEmptyPage)
	assert.Zero(t, calls, "empty pages must not reach the backend")
}

func TestTranslateRetriesRateLimit(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limited"}}`))
			return
		}
		w.Write([]byte(completionResponse("finally")))
	})

	page := domain.Page{Number: 1, Kind: domain.PageText, Text: "testo"}
	out, err := client.Translate(context.Background(), page, nil)

	require.NoError(t, err)
	assert.Equal(t, "finally", out)
	assert.Equal(t, 3, calls)
}

func TestTranslateExhaustsOnPersistentOverload(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	page := domain.Page{Number: 1, Kind: domain.PageText, Text: "testo"}
	_, err := client.Translate(context.Background(), page, nil)

	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeExhausted, domain.TypeOf(err))
	assert.Equal(t, 3, calls)
}

func TestTranslateBadRequestIsFatal(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid model"}}`))
	})

	page := domain.Page{Number: 1, Kind: domain.PageText, Text: "testo"}
	_, err := client.Translate(context.Background(), page, nil)

	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeFatal, domain.TypeOf(err))
	assert.Equal(t, 1, calls, "4xx must not be retried")
	assert.Contains(t, err.Error(), "invalid model")
}

func TestTranslateEmptyCompletionRetries(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(completionResponse("")))
	})

	page := domain.Page{Number: 1, Kind: domain.PageText, Text: "testo"}
	_, err := client.Translate(context.Background(), page, nil)

	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeExhausted, domain.TypeOf(err))
	assert.Equal(t, 3, calls)
}

func TestTranslateErrorMessageIsBounded(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(strings.Repeat("x", 10_000)))
	})

	page := domain.Page{Number: 1, Kind: domain.PageText, Text: "testo"}
	_, err := client.Translate(context.Background(), page, nil)

	require.Error(t, err)
	assert.Less(t, len(err.Error()), 1000)
}
