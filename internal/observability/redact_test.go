package observability

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactJSONMasksCredentialsAtAnyDepth(t *testing.T) {
	in := map[string]any{
		"embedding_api_key": "sk-live-xyz",
		"request": map[string]any{
			"vector_store_dsn": "postgres://user:pw@host/db",
			"landmark_id":      "LP-00001",
		},
		"providers": []any{
			map[string]any{"token": "tok-abc"},
			"unaffected",
		},
		"article_title": "Wyckoff House",
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)

	out := RedactJSON(b)
	var v any
	require.NoError(t, json.Unmarshal(out, &v))
	m, ok := v.(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "[REDACTED]", m["embedding_api_key"])
	req := m["request"].(map[string]any)
	assert.Equal(t, "[REDACTED]", req["vector_store_dsn"])
	assert.Equal(t, "LP-00001", req["landmark_id"], "non-sensitive fields survive redaction untouched")
	providers := m["providers"].([]any)
	assert.Equal(t, "[REDACTED]", providers[0].(map[string]any)["token"])
	assert.Equal(t, "unaffected", providers[1])
	assert.Equal(t, "Wyckoff House", m["article_title"])
}

func TestRedactJSONPassesThroughEmptyAndInvalidPayloads(t *testing.T) {
	assert.Nil(t, RedactJSON(json.RawMessage(nil)))

	raw := json.RawMessage([]byte("not json"))
	assert.Equal(t, "not json", string(RedactJSON(raw)))
}
