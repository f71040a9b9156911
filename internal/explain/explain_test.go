package explain

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/symptomdx/internal/diagnostics"
	"github.com/Skufu/symptomdx/internal/features"
	apperrors "github.com/Skufu/symptomdx/pkg/errors"
	"github.com/Skufu/symptomdx/pkg/logger"
)

var ranked = []diagnostics.Prediction{
	{Label: "Common Cold", Prob: 0.61},
	{Label: "Influenza", Prob: 0.2},
	{Label: "COVID-19", Prob: 0.1},
	{Label: "Migraine", Prob: 0.05},
	{Label: "Arthritis", Prob: 0.03},
	{Label: "Dermatitis", Prob: 0.01},
}

var payload = Payload{
	Sample: features.Sample{Symptoms: "fever cough", Age: "29", Sex: "female", Duration: "0"},
	Notes:  "worse at night",
}

type fakeCompleter struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	reply   string
	err     error
	block   bool
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

type memoryCache struct {
	data   map[string]string
	getErr error
}

func (m *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func TestFormatPrompt(t *testing.T) {
	prompt := FormatPrompt(payload, ranked)

	assert.True(t, strings.HasPrefix(prompt, "Based on the following symptom analysis"))
	assert.Contains(t, prompt, "1. Common Cold (61.0%)")
	assert.Contains(t, prompt, "5. Arthritis (3.0%)")
	assert.NotContains(t, prompt, "Dermatitis")
	assert.Contains(t, prompt, "- symptoms: fever cough")
	assert.Contains(t, prompt, "- age: 29")
	assert.Contains(t, prompt, "- notes: worse at night")
	assert.NotContains(t, prompt, "- duration:")
	assert.NotContains(t, prompt, "- history:")
	assert.Contains(t, prompt, "6) Clear disclaimer that you are not a medical professional")
}

func TestGenerateDisabled(t *testing.T) {
	g := NewGenerator(nil, nil, Config{}, logger.Nop())
	assert.False(t, g.Enabled())

	res := g.Generate(context.Background(), payload, ranked)
	assert.Equal(t, DisabledMessage, res.Error)
	assert.False(t, res.OK())

	var nilGen *Generator
	assert.Equal(t, DisabledMessage, nilGen.Generate(context.Background(), payload, ranked).Error)
}

func TestGenerateUsesCache(t *testing.T) {
	completer := &fakeCompleter{reply: "Likely a cold."}
	cache := &memoryCache{data: map[string]string{}}
	g := NewGenerator(completer, cache, Config{Model: "test-model"}, logger.Nop())

	first := g.Generate(context.Background(), payload, ranked)
	second := g.Generate(context.Background(), payload, ranked)

	assert.True(t, first.OK())
	assert.Equal(t, first, second)
	assert.Equal(t, 1, completer.calls)
	assert.Len(t, cache.data, 1)
}

func TestGenerateCacheReadErrorFallsThrough(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	g := NewGenerator(completer, &memoryCache{data: map[string]string{}, getErr: errors.New("down")}, Config{}, logger.Nop())

	res := g.Generate(context.Background(), payload, ranked)
	assert.Equal(t, "ok", res.Explanation)
	assert.Equal(t, 1, completer.calls)
}

func TestGenerateContainsUpstreamErrors(t *testing.T) {
	completer := &fakeCompleter{err: apperrors.Wrap(apperrors.ErrUpstream, "status 500")}
	g := NewGenerator(completer, nil, Config{}, logger.Nop())

	res := g.Generate(context.Background(), payload, ranked)
	assert.Empty(t, res.Explanation)
	assert.True(t, strings.HasPrefix(res.Error, "Failed to generate explanation: "))
	assert.Contains(t, res.Error, "status 500")
}

func TestGenerateTimeout(t *testing.T) {
	completer := &fakeCompleter{block: true}
	g := NewGenerator(completer, nil, Config{Timeout: 20 * time.Millisecond}, logger.Nop())

	start := time.Now()
	res := g.Generate(context.Background(), payload, ranked)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Contains(t, res.Error, context.DeadlineExceeded.Error())
}

func TestGenerateRateLimitedByContext(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	g := NewGenerator(completer, nil, Config{Timeout: 20 * time.Millisecond, RatePerMin: 1}, logger.Nop())

	assert.True(t, g.Generate(context.Background(), payload, ranked).OK())
	res := g.Generate(context.Background(), Payload{Sample: features.Sample{Symptoms: "rash"}}, ranked)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, 1, completer.calls)
}

func newChatServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		if seen != nil {
			_ = json.Unmarshal(raw, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const chatReply = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-3.5-turbo",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Rest and fluids."}}]
}`

func TestOpenAIClientComplete(t *testing.T) {
	var seen map[string]any
	srv := newChatServer(t, http.StatusOK, chatReply, &seen)

	client, err := NewOpenAIClient("test-key", srv.URL+"/v1/chat/completions", "")
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "system", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Rest and fluids.", text)

	assert.Equal(t, DefaultModel, seen["model"])
	assert.Equal(t, 0.7, seen["temperature"])
	messages, ok := seen["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestOpenAIClientUpstreamFailure(t *testing.T) {
	srv := newChatServer(t, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, nil)

	client, err := NewOpenAIClient("test-key", srv.URL+"/v1", "gpt-4o-mini")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "system", "prompt")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUpstream))

	empty := newChatServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`, nil)
	client, err = NewOpenAIClient("test-key", empty.URL+"/v1/", "m")
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), "system", "prompt")
	assert.True(t, apperrors.Is(err, apperrors.ErrUpstream))
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", "", "")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestGeneratorEndToEndWithOpenAI(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, chatReply, nil)
	client, err := NewOpenAIClient("test-key", srv.URL+"/v1", "")
	require.NoError(t, err)

	res := NewGenerator(client, nil, Config{Timeout: 5 * time.Second}, logger.Nop()).Generate(context.Background(), payload, ranked)
	assert.Equal(t, Result{Explanation: "Rest and fluids."}, res)
}

// Runs against a real Redis when REDIS_ADDR is set.
func TestRedisCacheIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	cache, err := NewRedisCache(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	key := cacheKey("test", time.Now().String())
	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, "cached", time.Minute))
	v, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cached", v)
}
