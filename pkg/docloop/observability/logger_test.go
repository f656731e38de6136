package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLogger returns a debug-level JSON logger writing to the returned buffer.
func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// records decodes every JSON log line in buf.
func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestLogRun(t *testing.T) {
	logger, buf := newTestLogger()

	LogRunStart(logger, "run-1", "essay")
	LogRunComplete(logger, "run-1", "completed", 12.5, 6, 1)
	LogRunError(logger, "run-1", errors.New("provider down"), 3, "drafting")

	recs := records(t, buf)
	require.Len(t, recs, 3)

	assert.Equal(t, "document run starting", recs[0]["msg"])
	assert.Equal(t, "run-1", recs[0]["run_id"])
	assert.Equal(t, "essay", recs[0]["document_type"])

	assert.Equal(t, "completed", recs[1]["outcome"])
	assert.InDelta(t, 6, recs[1]["rounds"], 0)
	assert.InDelta(t, 1, recs[1]["iterations"], 0)

	assert.Equal(t, "ERROR", recs[2]["level"])
	assert.Equal(t, "provider down", recs[2]["error"])
	assert.Equal(t, "drafting", recs[2]["last_stage"])
}

func TestLogStep(t *testing.T) {
	logger, buf := newTestLogger()

	LogStepStart(logger, "submit_plan")
	LogStepComplete(logger, "submit_plan", "Document plan created. Moving to drafting.", 2)
	LogStepError(logger, "submit_draft", errors.New("missing content"))

	recs := records(t, buf)
	require.Len(t, recs, 3)
	assert.Equal(t, "DEBUG", recs[0]["level"])
	assert.Equal(t, "Document plan created. Moving to drafting.", recs[1]["msg"])
	assert.Equal(t, "submit_plan", recs[1]["handler"])
	assert.Equal(t, "missing content", recs[2]["error"])
}

func TestLogTransition(t *testing.T) {
	logger, buf := newTestLogger()

	LogTransition(logger, "revision", "revision", 1)
	assert.Zero(t, buf.Len(), "same-stage transitions are not logged")

	LogTransition(logger, "revision", "review", 2)
	recs := records(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "revision", recs[0]["from"])
	assert.Equal(t, "review", recs[0]["to"])
	assert.InDelta(t, 2, recs[0]["iteration"], 0)
}

func TestLogCheckpointAndDecision(t *testing.T) {
	logger, buf := newTestLogger()

	LogCheckpoint(logger, 3, 1024)
	LogCheckpointError(logger, 4, "save", errors.New("disk full"))
	LogDecision(logger, "submit_feedback", "redo")

	recs := records(t, buf)
	require.Len(t, recs, 3)
	assert.InDelta(t, 1024, recs[0]["size_bytes"], 0)
	assert.Equal(t, "WARN", recs[1]["level"])
	assert.Equal(t, "save", recs[1]["operation"])
	assert.Equal(t, "redo", recs[2]["decision"])
}

func TestLogNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogRunStart(nil, "r", "essay")
		LogRunComplete(nil, "r", "completed", 0, 0, 0)
		LogRunError(nil, "r", errors.New("x"), 0, "")
		LogStepStart(nil, "h")
		LogStepComplete(nil, "h", "m", 0)
		LogStepError(nil, "h", errors.New("x"))
		LogTransition(nil, "a", "b", 1)
		LogDecision(nil, "h", "stop")
		LogCheckpoint(nil, 1, 1)
		LogCheckpointError(nil, 1, "save", errors.New("x"))
	})
}

func TestTimedOperation(t *testing.T) {
	elapsed := TimedOperation()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, elapsed(), 2.0)
}
