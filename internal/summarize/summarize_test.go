package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/n2p5/ytt/internal/quota"
)

type stubBackend struct {
	resp   string
	err    error
	prompt string
	calls  int
}

func (s *stubBackend) Generate(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.prompt = prompt
	return s.resp, s.err
}

func testConfig() quota.Config {
	cfg := quota.DefaultConfig()
	cfg.MaxAttempts = 1
	return cfg
}

func TestLoadTemplate(t *testing.T) {
	dir := t.TempDir()

	withPlaceholder := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(withPlaceholder, []byte("Summarize:\n{text}\nBe brief."), 0644))
	tmpl, err := LoadTemplate(withPlaceholder)
	require.NoError(t, err)
	assert.Equal(t, "Summarize:\nhello\nBe brief.", tmpl.Render("hello"))

	without := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(without, []byte("Summarize this.\n"), 0644))
	tmpl, err = LoadTemplate(without)
	require.NoError(t, err)
	assert.Equal(t, "Summarize this.\n\nhello", tmpl.Render("hello"))

	empty := filepath.Join(dir, "c.txt")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0644))
	_, err = LoadTemplate(empty)
	assert.Error(t, err)

	_, err = LoadTemplate(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestSummarizeRotatesKeys(t *testing.T) {
	exhausted := &stubBackend{err: &openai.APIError{HTTPStatusCode: 429, Message: "You exceeded your current quota"}}
	ok := &stubBackend{resp: "  short summary \n"}
	s, err := New("TL;DR: {text}", []Keyed{{"k1", exhausted}, {"k2", ok}}, testConfig(), ClassifyOpenAI, zerolog.Nop())
	require.NoError(t, err)

	out, err := s.Summarize(context.Background(), "long transcript")
	require.NoError(t, err)
	assert.Equal(t, "short summary", out)
	assert.Equal(t, "TL;DR: long transcript", ok.prompt)
	assert.Equal(t, 1, exhausted.calls)

	_, err = s.Summarize(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, 1, exhausted.calls, "exhausted key is not reused")
}

func TestSummarizeEmptyResponseIsRejected(t *testing.T) {
	s, err := New("{text}", []Keyed{{"k1", &stubBackend{resp: " "}}}, testConfig(), ClassifyGemini, zerolog.Nop())
	require.NoError(t, err)

	_, err = s.Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, quota.ErrRequestRejected)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestSummarizeQuotaExhausted(t *testing.T) {
	b := &stubBackend{err: genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "Quota exceeded"}}
	s, err := New("{text}", []Keyed{{"k1", b}}, testConfig(), ClassifyGemini, zerolog.Nop())
	require.NoError(t, err)

	_, err = s.Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, quota.ErrQuotaExhausted)
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code   int
		detail string
		want   quota.Outcome
	}{
		{401, "", quota.QuotaExceeded},
		{403, "", quota.QuotaExceeded},
		{429, "RESOURCE_EXHAUSTED quota", quota.QuotaExceeded},
		{429, "slow down", quota.TransientFailure},
		{400, "API key not valid", quota.QuotaExceeded},
		{400, "invalid argument", quota.PermanentFailure},
		{404, "model not found", quota.PermanentFailure},
		{500, "", quota.TransientFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyStatus(tt.code, tt.detail), "code %d %q", tt.code, tt.detail)
	}
	assert.Equal(t, quota.TransientFailure, ClassifyOpenAI(errors.New("connection reset")))
	assert.Equal(t, quota.TransientFailure, ClassifyGemini(context.DeadlineExceeded))
}

func TestOpenAIBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "summary"}}},
		})
	}))
	defer srv.Close()

	b := NewOpenAI("sk-test", srv.URL+"/v1", "test-model", &http.Client{Timeout: 5 * time.Second})
	out, err := b.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "summary", out)
}
