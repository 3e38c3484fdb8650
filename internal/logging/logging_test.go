package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/UkralStul/yatube-api/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithOutput(&config.Log{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())

	l.Info("skipped")
	l.WithField("model", "post").Warn("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "post", entry["model"])
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(&config.Log{Level: "loud", Format: "text"})
	assert.ErrorContains(t, err, "invalid log.level")

	_, err = New(&config.Log{Level: "info", Format: "xml"})
	assert.ErrorContains(t, err, `invalid log.format "xml"`)
}

func TestGorm_WritesThroughLogrus(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithOutput(&config.Log{Level: "info", Format: "text"}, &buf)
	require.NoError(t, err)

	Gorm(l, false).Info(context.Background(), "hidden %d", 1)
	assert.Empty(t, buf.String())

	Gorm(l, true).Info(context.Background(), "migrated %d tables", 5)
	assert.Contains(t, buf.String(), "migrated 5 tables")
}
