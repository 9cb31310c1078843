package glm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peachbot/peachbot/internal/config"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&config.GLMConfig{
		APIKey:         "test-key",
		Model:          "glm-4-flash",
		EmbeddingModel: "embedding-3",
		BaseURL:        serverURL,
	})
}

func chatResponse(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
}

func TestClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, chatResponse("  你好呀！  "))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	got, err := client.Generate(context.Background(), "system", "hello", 0.8)
	require.NoError(t, err)
	assert.Equal(t, "你好呀！", got)
}

func TestClient_Generate_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, chatResponse("ok"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	got, err := client.Generate(context.Background(), "system", "hello", 0.8)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Generate_AbortsOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), "system", "hello", 0.8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Extract(t *testing.T) {
	payload := `{"fragments":[{"content":"我最喜欢吃北京烤鸭","speaker":"user","type":"preference","sentiment":"positive","importance_score":7,"reasoning":"明确偏好"}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatResponse("```json\n"+payload+"\n```"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	fragments, err := client.Extract(context.Background(), "user: 我最喜欢吃北京烤鸭")
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Equal(t, "我最喜欢吃北京烤鸭", fragments[0].Content)
	assert.Equal(t, "user", fragments[0].Speaker)
	assert.Equal(t, "preference", fragments[0].Type)
	assert.Equal(t, "明确偏好", fragments[0].Reasoning)
}

func TestClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2,0.3]}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	vec, err := client.Embed(context.Background(), "北京烤鸭")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestClient_Embed_EmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Embed(context.Background(), "text")
	require.Error(t, err)
}

func TestParseFragments(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{
			name:    "wrapper object",
			content: `{"fragments":[{"content":"a","speaker":"user"}]}`,
			want:    1,
		},
		{
			name:    "bare array",
			content: `[{"content":"a","speaker":"user"},{"content":"b","speaker":"assistant"}]`,
			want:    2,
		},
		{
			name:    "fenced wrapper",
			content: "```json\n{\"fragments\":[{\"content\":\"a\",\"speaker\":\"user\"}]}\n```",
			want:    1,
		},
		{
			name:    "fence without language tag",
			content: "```\n[{\"content\":\"a\",\"speaker\":\"user\"}]\n```",
			want:    1,
		},
		{
			name:    "empty fragments list",
			content: `{"fragments":[]}`,
			want:    0,
		},
		{
			name:    "prose instead of JSON",
			content: "抱歉，我无法提取记忆。",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFragments(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}
