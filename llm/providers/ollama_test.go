package providers

import (
	"testing"

	"github.com/draftforge/draftforge/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_BuildURL(t *testing.T) {
	p := &OllamaProvider{}

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "default URL when empty",
			baseURL: "",
			want:    "http://localhost:11434/v1/chat/completions",
		},
		{
			name:    "custom base URL",
			baseURL: "http://gpu-box:8000/v1",
			want:    "http://gpu-box:8000/v1/chat/completions",
		},
		{
			name:    "trailing slash trimmed",
			baseURL: "http://gpu-box:8000/v1/",
			want:    "http://gpu-box:8000/v1/chat/completions",
		},
		{
			name:    "full endpoint passes through",
			baseURL: "http://gpu-box:8000/v1/chat/completions",
			want:    "http://gpu-box:8000/v1/chat/completions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.BuildURL(tt.baseURL, "llama3"))
		})
	}
}

func TestOllamaProvider_BuildRequestBody(t *testing.T) {
	p := &OllamaProvider{}
	temp := 0.7

	body, err := p.BuildRequestBody("llama3", []llm.Message{
		{Role: "system", Content: "You are a proposal writer."},
		{Role: "user", Content: "Write the summary."},
	}, &temp, 2000)
	require.NoError(t, err)

	bodyStr := string(body)
	assert.Contains(t, bodyStr, `"model":"llama3"`)
	assert.Contains(t, bodyStr, `"temperature":0.7`)
	assert.Contains(t, bodyStr, `"max_tokens":2000`)
	// Chat completions keeps system messages in the message list.
	assert.Contains(t, bodyStr, `"role":"system"`)
	assert.Contains(t, bodyStr, `"role":"user"`)
}

func TestOllamaProvider_BuildRequestBody_OmitsUnsetFields(t *testing.T) {
	p := &OllamaProvider{}

	body, err := p.BuildRequestBody("llama3", []llm.Message{
		{Role: "user", Content: "Hi"},
	}, nil, 0)
	require.NoError(t, err)

	bodyStr := string(body)
	assert.NotContains(t, bodyStr, `"temperature"`)
	assert.NotContains(t, bodyStr, `"max_tokens"`)
}

func TestOllamaProvider_BuildRequestBody_ZeroTemperature(t *testing.T) {
	p := &OllamaProvider{}
	temp := 0.0

	body, err := p.BuildRequestBody("llama3", []llm.Message{
		{Role: "user", Content: "Hi"},
	}, &temp, 0)
	require.NoError(t, err)

	assert.Contains(t, string(body), `"temperature":0`)
}

func TestOllamaProvider_ParseResponse(t *testing.T) {
	p := &OllamaProvider{}

	body := []byte(`{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "llama3",
		"choices": [
			{
				"index": 0,
				"message": {"role": "assistant", "content": "Here is the summary."},
				"finish_reason": "stop"
			}
		]
	}`)

	resp, err := p.ParseResponse(body, "llama3")
	require.NoError(t, err)
	assert.Equal(t, "Here is the summary.", resp.Content)
	assert.Equal(t, "llama3", resp.Model)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestOllamaProvider_ParseResponse_NoChoices(t *testing.T) {
	p := &OllamaProvider{}

	_, err := p.ParseResponse([]byte(`{"model": "llama3", "choices": []}`), "llama3")
	assert.ErrorContains(t, err, "no choices")
}
