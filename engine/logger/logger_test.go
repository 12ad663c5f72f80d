package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsSilent(t *testing.T) {
	Set(nil)
	assert.False(t, L().Enabled(t.Context(), slog.LevelError))
}

func TestSetRoutesOutput(t *testing.T) {
	var buf bytes.Buffer
	Set(slog.New(slog.NewTextHandler(&buf, nil)))
	defer Set(nil)

	L().Info("frame", "pass", "gbuffer")
	assert.Contains(t, buf.String(), "pass=gbuffer")
}
