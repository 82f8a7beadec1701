// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/studyflow-cli/internal/config"
)

// memSink is an in-memory WriteSyncer for capturing log output.
type memSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *memSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *memSink) Sync() error { return nil }

func (s *memSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestInitializeConsoleFormat(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	sink := &memSink{}
	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "studyflow-test",
	}, zapcore.AddSync(sink))

	logger := GetLogger()
	require.NotNil(t, logger)
	logger.Info("hello from the console encoder")

	out := sink.String()
	assert.Contains(t, out, "hello from the console encoder")
	assert.Contains(t, out, "studyflow-test.")
	// Colorized level token.
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "\x1b[32m")
}

func TestInitializeJSONFormat(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	sink := &memSink{}
	Initialize(config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "studyflow-test",
	}, zapcore.AddSync(sink))

	GetLogger().Warn("structured entry")

	out := sink.String()
	assert.Contains(t, out, `"msg":"structured entry"`)
	assert.Contains(t, out, `"level":"WARN"`)
}

func TestInitializeIsIdempotent(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	first := &memSink{}
	second := &memSink{}
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "a"}, zapcore.AddSync(first))
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "b"}, zapcore.AddSync(second))

	GetLogger().Info("only the first sink sees this")

	assert.Contains(t, first.String(), "only the first sink sees this")
	assert.Empty(t, second.String())
}

func TestLevelFiltering(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	sink := &memSink{}
	Initialize(config.LoggerConfig{Level: "warn", Format: "json", ServiceName: "studyflow-test"}, zapcore.AddSync(sink))

	logger := GetLogger()
	logger.Debug("suppressed")
	logger.Info("also suppressed")
	logger.Error("kept")

	out := sink.String()
	assert.False(t, strings.Contains(out, "suppressed"))
	assert.Contains(t, out, "kept")
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	sink := &memSink{}
	Initialize(config.LoggerConfig{Level: "shout", Format: "json", ServiceName: "studyflow-test"}, zapcore.AddSync(sink))

	logger := GetLogger()
	logger.Debug("below info, dropped")
	logger.Info("at info, kept")

	out := sink.String()
	assert.False(t, strings.Contains(out, "dropped"))
	assert.Contains(t, out, "at info, kept")
}
