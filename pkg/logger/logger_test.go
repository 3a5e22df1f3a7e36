package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestLogger_WritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelInfo, Format: "json"})

	log.With(Component("enrollment")).Info("enrolled",
		AccountID("acc-1"),
		CourseID("course-1"),
		Err(errors.New("boom")),
	)
	log.Debug("hidden")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "enrolled", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "enrollment", entry["component"])
	assert.Equal(t, "acc-1", entry["account_id"])
	assert.Equal(t, "course-1", entry["course_id"])
	assert.Equal(t, "boom", entry["error"])
}

func TestFromContext(t *testing.T) {
	log := Nop()
	ctx := WithContext(context.Background(), log)

	fallback := Nop()

	assert.Same(t, log, FromContext(ctx, fallback))
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
}
