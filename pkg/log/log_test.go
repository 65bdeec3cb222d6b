package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ensErrors "github.com/YuminosukeSato/ensembles/pkg/errors"
)

func TestTestLogger(t *testing.T) {
	logger, buffer := NewTestLogger(LevelDebug)

	logger.Debug("debug message", "key1", "value1", "number", 42)
	logger.Info("info message", OperationKey, OperationFit)
	logger.Warn("warning message")
	logger.Error("error message", fmt.Errorf("boom"), "code", "X")

	require.NotEmpty(t, buffer.String())
	assert.True(t, logger.ContainsMessage("debug message"))
	assert.True(t, logger.ContainsMessage("error message"))
	assert.True(t, logger.ContainsField("key1", "value1"))
	assert.True(t, logger.ContainsField("number", 42.0))
	assert.True(t, logger.ContainsField(ErrAttrKey, "boom"))

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestTestLoggerLevelFilter(t *testing.T) {
	logger, _ := NewTestLogger(LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.False(t, logger.ContainsMessage("hidden"))
	assert.True(t, logger.ContainsMessage("shown"))
	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
}

func TestTestLoggerWith(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)
	logger.With(ModelNameKey, "DecisionTreeRegressor").Info("fitted", NodesKey, 7)

	assert.True(t, logger.ContainsField(ModelNameKey, "DecisionTreeRegressor"))
	assert.True(t, logger.ContainsField(NodesKey, 7.0))
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo).With(ModelNameKey, "RandomForestRegressor")

	logger.Debug("not written")
	logger.Info("forest fitted", EstimatorsKey, 10)
	logger.Error("fit failed", ensErrors.NewValueError("Fit", "bad"), PhaseKey, PhaseTraining)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "forest fitted", first["message"])
	assert.Equal(t, "RandomForestRegressor", first[ModelNameKey])
	assert.Equal(t, 10.0, first[EstimatorsKey])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "error", second["level"])
	assert.Contains(t, second["error"], "bad")

	assert.True(t, logger.Enabled(context.Background(), LevelWarn))
	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
}

func TestProviderSwap(t *testing.T) {
	provider, logger := NewTestLoggerProvider(LevelDebug)
	SetProvider(provider)
	defer SetProvider(NewZerologProvider(&bytes.Buffer{}, LevelWarn))

	GetLoggerWithName("tree").Info("grown")
	assert.True(t, logger.ContainsField(ComponentKey, "tree"))

	ensErrors.Warn(ensErrors.NewZeroStepWarning(3, 1.5))
	assert.True(t, logger.ContainsMessage("boosting round 3"))
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger := NewSlogLogger(slog.New(handler))

	logger.Error("write failed", ensErrors.New("disk full"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "disk full", entry[ErrAttrKey])
	assert.Equal(t, "ERROR", entry[slog.LevelKey])
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
