package tagger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/ner-recall/internal/core/domain"
	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
)

func newChatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			assert.Equal(t, "test-model", req.Model)
			if assert.Len(t, req.Messages, 1) {
				assert.Contains(t, req.Messages[0].Content, "PER, LOC")
			}
		}

		w.Header().Set(headerContentType, contentTypeJSON)

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))

			return
		}

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion",
			Model:  "test-model",
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(srv.Close)

	return srv
}

func newTestLLM(t *testing.T, baseURL string) *LLM {
	t.Helper()

	logger := zerolog.Nop()
	tagger, err := NewLLM(LLMConfig{
		Name:     "gpt",
		Layer:    "ner",
		APIKey:   "sk-test",
		BaseURL:  baseURL + "/v1",
		Model:    "test-model",
		Labels:   []string{"PER", "LOC"},
		LabelMap: map[string]string{"PERSON": "PER"},
	}, &logger)
	require.NoError(t, err)

	return tagger
}

func TestLLM_Tag(t *testing.T) {
	content := `Sure, here you go: {"entities": [
		{"text": "Anna", "label": "person"},
		{"text": "Anna", "label": "Person"},
		{"text": "Wien", "label": "loc"},
		{"text": "Graz", "label": "LOC"},
		{"text": "", "label": "LOC"}
	]}`

	srv := newChatServer(t, http.StatusOK, content)
	tagger := newTestLLM(t, srv.URL)

	doc := domain.NewDocument("Anna met Anna in Wien.")
	require.NoError(t, tagger.Tag(context.Background(), doc))

	layer, ok := doc.Layer("ner")
	require.True(t, ok)

	want := []domain.Span{
		{Start: 0, End: 4, Text: "Anna", Labels: []string{"PER"}},
		{Start: 9, End: 13, Text: "Anna", Labels: []string{"PER"}},
		{Start: 17, End: 21, Text: "Wien", Labels: []string{"LOC"}},
	}
	assert.Equal(t, want, layer.Spans)
}

func TestLLM_NoEntities(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, `{"entities": []}`)
	tagger := newTestLLM(t, srv.URL)

	doc := domain.NewDocument("nothing here")
	require.NoError(t, tagger.Tag(context.Background(), doc))

	layer, ok := doc.Layer("ner")
	require.True(t, ok)
	assert.Empty(t, layer.Spans)
}

func TestLLM_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := newChatServer(t, http.StatusInternalServerError, "")
		tagger := newTestLLM(t, srv.URL)

		doc := domain.NewDocument("Anna")
		require.Error(t, tagger.Tag(context.Background(), doc))
		assert.False(t, doc.HasLayer("ner"))
	})

	t.Run("malformed content", func(t *testing.T) {
		srv := newChatServer(t, http.StatusOK, "no entities, sorry")
		tagger := newTestLLM(t, srv.URL)

		err := tagger.Tag(context.Background(), domain.NewDocument("Anna"))
		require.ErrorIs(t, err, apperrors.ErrBadFormat)
	})
}

func TestNewLLM_RequiresLayer(t *testing.T) {
	logger := zerolog.Nop()

	_, err := NewLLM(LLMConfig{Name: "gpt"}, &logger)
	require.ErrorIs(t, err, apperrors.ErrNoOutputChannels)
}

func TestRuneIndex(t *testing.T) {
	haystack := []rune("Z\u00fcrich und Z\u00fcrich")

	assert.Equal(t, 0, runeIndex(haystack, []rune("Z\u00fcrich"), 0))
	assert.Equal(t, 11, runeIndex(haystack, []rune("Z\u00fcrich"), 1))
	assert.Equal(t, -1, runeIndex(haystack, []rune("Bern"), 0))
	assert.Equal(t, -1, runeIndex(haystack, []rune("Z\u00fcrich"), 12))
}
