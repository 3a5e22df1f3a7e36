package eventhandler

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/internal/infrastructure/messaging"
	"github.com/alem-hub/learnhub/pkg/logger"
)

func TestActivityLogHandler_LogsMilestonesAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: logger.LevelInfo, Format: "json", Output: &buf})

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{})
	defer bus.Close()
	require.NoError(t, NewActivityLogHandler(log).Register(bus))

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, bus.Publish(shared.NewPointsAwardedEvent("acc-1", 500, 1000, "course_completed", at)))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("acc-1", 1, 2, at)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "level up", entry["message"])
	assert.Equal(t, "acc-1", entry["aggregate_id"])
	assert.EqualValues(t, 2, entry["new_level"])
}
