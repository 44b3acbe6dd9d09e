package obs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandlerFormatByEnv(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newHandler("production", &buf)).Info("ping", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ping", line["msg"])
	assert.Equal(t, "v", line["k"])

	buf.Reset()
	slog.New(newHandler("dev", &buf)).Info("ping")
	assert.False(t, json.Valid(buf.Bytes()))
	assert.Contains(t, buf.String(), "ping")
}
