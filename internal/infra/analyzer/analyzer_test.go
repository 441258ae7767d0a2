package analyzer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"biaswatch/internal/resilience/retry"
	"biaswatch/internal/usecase/analysis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelReply = `{"summary": "Resumen", "biasScore": 0.3, "biasLeaning": "center", "reliabilityScore": 0.8, "factCheck": {"verdict": "verified"}}`

func testConfig(baseURL string) Config {
	return Config{
		Model:         "test-model",
		MaxTokens:     512,
		Timeout:       5 * time.Second,
		MaxInputChars: 1000,
		BaseURL:       baseURL,
	}
}

func fastRetry() retry.Config {
	cfg := retry.AIAPIConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

var (
	_ analysis.Analyzer = (*Claude)(nil)
	_ analysis.Analyzer = (*OpenAI)(nil)
	_ analysis.Analyzer = (*NoOp)(nil)
)

/* ───────── Claude ───────── */

func claudeMessage(text string) string {
	b, _ := json.Marshal(map[string]any{
		"id":            "msg_01",
		"type":          "message",
		"role":          "assistant",
		"model":         "test-model",
		"content":       []map[string]any{{"type": "text", "text": text}},
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 321, "output_tokens": 87},
	})
	return string(b)
}

func TestClaude_Analyze_Success(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, claudeMessage(modelReply))
	}))
	defer server.Close()

	c := NewClaude("test-key", testConfig(server.URL))
	resp, err := c.Analyze(context.Background(), "Título: Prueba\n\nTexto")
	require.NoError(t, err)

	assert.Equal(t, modelReply, resp.Body)
	assert.Equal(t, analysis.Usage{Input: 321, Output: 87}, resp.Usage)
	assert.Equal(t, "test-model", body["model"])
	assert.NotEmpty(t, body["system"])
	assert.Equal(t, "claude", c.Name())
}

func TestClaude_Analyze_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"boom"}}`)
			return
		}
		_, _ = io.WriteString(w, claudeMessage(modelReply))
	}))
	defer server.Close()

	c := NewClaude("test-key", testConfig(server.URL))
	c.retryConfig = fastRetry()

	resp, err := c.Analyze(context.Background(), "texto")
	require.NoError(t, err)
	assert.Equal(t, modelReply, resp.Body)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClaude_Analyze_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer server.Close()

	c := NewClaude("test-key", testConfig(server.URL))
	c.retryConfig = fastRetry()

	_, err := c.Analyze(context.Background(), "texto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claude api error")
	assert.Equal(t, int32(1), calls.Load())

	var httpErr *retry.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
}

func TestClaude_Analyze_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`)
	}))
	defer server.Close()

	c := NewClaude("test-key", testConfig(server.URL))
	c.retryConfig = fastRetry()

	_, err := c.Analyze(context.Background(), "texto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

/* ───────── OpenAI ───────── */

func chatCompletion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 210, "completion_tokens": 64, "total_tokens": 274},
	})
	return string(b)
}

func TestOpenAI_Analyze_Success(t *testing.T) {
	var req map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletion(modelReply))
	}))
	defer server.Close()

	o := NewOpenAI("test-key", testConfig(server.URL+"/v1"))
	resp, err := o.Analyze(context.Background(), "Título: Prueba")
	require.NoError(t, err)

	assert.Equal(t, modelReply, resp.Body)
	assert.Equal(t, analysis.Usage{Input: 210, Output: 64}, resp.Usage)
	assert.Equal(t, "test-model", req["model"])
	messages, ok := req["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
	assert.Equal(t, "openai", o.Name())
}

func TestOpenAI_Analyze_ErrorHandling(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{"401 unauthorized is not retried", http.StatusUnauthorized, 1},
		{"429 rate limit is retried", http.StatusTooManyRequests, 2},
		{"503 unavailable is retried", http.StatusServiceUnavailable, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"error":{"message":"fallo","type":"server_error"}}`)
			}))
			defer server.Close()

			o := NewOpenAI("test-key", testConfig(server.URL+"/v1"))
			o.retryConfig = fastRetry()

			_, err := o.Analyze(context.Background(), "texto")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "openai api error")
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestOpenAI_Analyze_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[],"usage":{}}`)
	}))
	defer server.Close()

	o := NewOpenAI("test-key", testConfig(server.URL+"/v1"))
	_, err := o.Analyze(context.Background(), "texto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

/* ───────── NoOp + helpers ───────── */

func TestNoOp_AnalyzeParses(t *testing.T) {
	input := "Título: El Gobierno aprueba los presupuestos\nFuente: El Diario\nCategoría: economia\nURL: https://example.es/a\n\nEl Consejo de Ministros aprobó ayer el proyecto."
	resp, err := NewNoOp().Analyze(context.Background(), input)
	require.NoError(t, err)

	got, err := analysis.NewPipeline(nil).Parse(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "El Gobierno aprueba los presupuestos. El Consejo de Ministros aprobó ayer el proyecto.", got.Summary)
	assert.Equal(t, "unverified", string(got.FactCheck.Verdict))
	assert.Zero(t, resp.Usage)
}

func TestUserPrompt_Truncates(t *testing.T) {
	text := strings.Repeat("ñ", 1200)

	prompt, truncated := userPrompt(text, 1000)
	assert.True(t, truncated)
	assert.Equal(t, 1000, strings.Count(prompt, "ñ"))
	assert.True(t, strings.HasSuffix(prompt, truncatedSuffix))

	_, truncated = userPrompt("corto", 1000)
	assert.False(t, truncated)
}

func TestLoadConfigs(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "gpt-4.1-mini")
	t.Setenv("ANALYZER_MAX_TOKENS", "800")

	cfg, err := LoadOpenAIConfig()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1-mini", cfg.Model)
	assert.Equal(t, 800, cfg.MaxTokens)
	assert.Equal(t, 45*time.Second, cfg.Timeout)

	claude, err := LoadClaudeConfig()
	require.NoError(t, err)
	assert.NotEmpty(t, claude.Model)

	t.Setenv("ANALYZER_MAX_INPUT_CHARS", "10")
	_, err = LoadClaudeConfig()
	assert.Error(t, err)
}
