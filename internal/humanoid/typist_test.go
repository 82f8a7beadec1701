// File: internal/humanoid/typist_test.go
package humanoid

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/studyflow-cli/internal/config"
)

// mockSender implements KeySender and records everything dispatched to it.
type mockSender struct {
	mu         sync.Mutex
	typed      strings.Builder
	pressed    []string
	sleeps     []time.Duration
	failOnKeys string // when non-empty, SendKeys of this string errors
}

func (m *mockSender) SendKeys(ctx context.Context, keys string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOnKeys != "" && keys == m.failOnKeys {
		return errors.New("dispatch rejected")
	}
	m.typed.WriteString(keys)
	return nil
}

func (m *mockSender) PressKey(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pressed = append(m.pressed, name)
	if name == "Enter" {
		m.typed.WriteString("\n")
	}
	return nil
}

func (m *mockSender) Sleep(ctx context.Context, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleeps = append(m.sleeps, d)
	return ctx.Err()
}

func pacedConfig() config.HumanoidConfig {
	return config.HumanoidConfig{
		Enabled:          true,
		KeyDelayMinMs:    20,
		KeyDelayMaxMs:    48,
		BurstMin:         2,
		BurstMax:         5,
		PauseProbability: 0.2,
		PauseMinMs:       60,
		PauseMaxMs:       250,
	}
}

func newTestTypist(cfg config.HumanoidConfig) *Typist {
	return NewTypist(cfg, rand.New(rand.NewSource(42)), zap.NewNop())
}

func TestTypeDeliversExactText(t *testing.T) {
	typist := newTestTypist(pacedConfig())
	sender := &mockSender{}

	text := "The theme develops gradually.\nIt resolves in the final act."
	require.NoError(t, typist.Type(context.Background(), sender, text))

	assert.Equal(t, text, sender.typed.String())
	assert.Contains(t, sender.pressed, "Enter")
}

func TestTypePacingProducesInterKeyDelays(t *testing.T) {
	typist := newTestTypist(pacedConfig())
	sender := &mockSender{}

	require.NoError(t, typist.Type(context.Background(), sender, "short answer"))

	// One sleep per keystroke, at minimum.
	require.GreaterOrEqual(t, len(sender.sleeps), len("short answer"))
	for _, d := range sender.sleeps {
		assert.GreaterOrEqual(t, d, 20*time.Millisecond)
		assert.LessOrEqual(t, d, 250*time.Millisecond)
	}
}

func TestDisabledPolicySendsWholeLines(t *testing.T) {
	cfg := pacedConfig()
	cfg.Enabled = false
	typist := newTestTypist(cfg)
	sender := &mockSender{}

	require.NoError(t, typist.Type(context.Background(), sender, "a b c d e f"))

	assert.Equal(t, "a b c d e f", sender.typed.String())
	assert.Empty(t, sender.sleeps, "zero-delay policy must not sleep")
}

func TestTypePropagatesSendFailure(t *testing.T) {
	typist := newTestTypist(pacedConfig())
	sender := &mockSender{failOnKeys: "x"}

	err := typist.Type(context.Background(), sender, "ax")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dispatch rejected")
}

func TestTypeHonorsContextCancellation(t *testing.T) {
	typist := newTestTypist(pacedConfig())
	sender := &mockSender{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := typist.Type(ctx, sender, "this should stop almost immediately")
	require.ErrorIs(t, err, context.Canceled)
	// Far fewer keys than the full text.
	assert.Less(t, sender.typed.Len(), 10)
}

func TestRandomDelayStaysInRange(t *testing.T) {
	typist := newTestTypist(pacedConfig())
	for i := 0; i < 100; i++ {
		d := typist.RandomDelay(800*time.Millisecond, 1800*time.Millisecond)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.Less(t, d, 1800*time.Millisecond)
	}
	// Degenerate range collapses to min.
	assert.Equal(t, time.Second, typist.RandomDelay(time.Second, time.Second))
}
