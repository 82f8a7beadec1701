// File: internal/humanoid/typist.go
// Human-pacing typing simulation. The pacing policy (per-key delay bounds,
// burst sizes, pause probability) is configuration, so tests can swap it for
// a zero-delay policy; the delays exist to throttle apparent interaction
// speed and give the page's own debounced handlers room, not for correctness.
package humanoid

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/studyflow-cli/internal/config"
)

// KeySender is the slice of the browser layer the typist drives. The caller
// ensures the target element is focused before Type is invoked.
type KeySender interface {
	// SendKeys dispatches raw keys to the currently focused element.
	SendKeys(ctx context.Context, keys string) error
	// PressKey dispatches one named key ("Enter", "Tab", ...).
	PressKey(ctx context.Context, name string) error
	// Sleep pauses execution, respecting context cancellation.
	Sleep(ctx context.Context, d time.Duration) error
}

// Typist delivers text the way a person does: word bursts with per-keystroke
// jitter, occasional pauses between bursts, Enter between lines.
type Typist struct {
	cfg config.HumanoidConfig

	mu  sync.Mutex
	rng *rand.Rand

	logger *zap.Logger
}

// NewTypist builds a Typist from the pacing policy. A nil rng seeds from the
// clock; tests inject a fixed-seed source for determinism.
func NewTypist(cfg config.HumanoidConfig, rng *rand.Rand, logger *zap.Logger) *Typist {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Typist{
		cfg:    cfg,
		rng:    rng,
		logger: logger.Named("typist"),
	}
}

// Type writes text into the focused element line by line. Within a line,
// words are grouped into bursts of BurstMin..BurstMax; each burst is typed
// rune by rune with a randomized inter-key delay, and bursts are separated by
// an occasional thinking pause. Pacing is skipped entirely when the policy is
// disabled.
func (t *Typist) Type(ctx context.Context, sender KeySender, text string) error {
	lines := strings.Split(text, "\n")
	for li, line := range lines {
		if err := t.typeLine(ctx, sender, line); err != nil {
			return err
		}
		if li < len(lines)-1 {
			if err := sender.PressKey(ctx, "Enter"); err != nil {
				return err
			}
			if err := t.pause(ctx, sender, 40, 120); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Typist) typeLine(ctx context.Context, sender KeySender, line string) error {
	if line == "" {
		return nil
	}
	if !t.cfg.Enabled {
		return sender.SendKeys(ctx, line)
	}

	words := strings.Split(line, " ")
	var buf strings.Builder
	burst := t.burstSize()
	buffered := 0

	flush := func() error {
		if buf.Len() == 0 {
			return nil
		}
		if err := t.sendBurst(ctx, sender, buf.String()); err != nil {
			return err
		}
		buf.Reset()
		buffered = 0
		burst = t.burstSize()

		t.mu.Lock()
		shouldPause := t.rng.Float64() < t.cfg.PauseProbability
		t.mu.Unlock()
		if shouldPause {
			return t.pause(ctx, sender, t.cfg.PauseMinMs, t.cfg.PauseMaxMs)
		}
		return nil
	}

	for wi, word := range words {
		buf.WriteString(word)
		if wi < len(words)-1 {
			buf.WriteString(" ")
		}
		buffered++
		if buffered >= burst {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// sendBurst types one burst rune by rune with the configured inter-key delay.
func (t *Typist) sendBurst(ctx context.Context, sender KeySender, burst string) error {
	for _, r := range burst {
		if err := sender.SendKeys(ctx, string(r)); err != nil {
			return err
		}
		if err := sender.Sleep(ctx, t.keyDelay()); err != nil {
			return err
		}
	}
	return nil
}

func (t *Typist) burstSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	span := t.cfg.BurstMax - t.cfg.BurstMin
	if span <= 0 {
		return max(1, t.cfg.BurstMin)
	}
	return t.cfg.BurstMin + t.rng.Intn(span+1)
}

func (t *Typist) keyDelay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	span := t.cfg.KeyDelayMaxMs - t.cfg.KeyDelayMinMs
	ms := t.cfg.KeyDelayMinMs
	if span > 0 {
		ms += t.rng.Intn(span + 1)
	}
	return time.Duration(ms) * time.Millisecond
}

func (t *Typist) pause(ctx context.Context, sender KeySender, minMs, maxMs int) error {
	if !t.cfg.Enabled || maxMs <= 0 {
		return nil
	}
	t.mu.Lock()
	span := maxMs - minMs
	ms := minMs
	if span > 0 {
		ms += t.rng.Intn(span + 1)
	}
	t.mu.Unlock()
	return sender.Sleep(ctx, time.Duration(ms)*time.Millisecond)
}

// RandomDelay returns a duration uniformly drawn from [min, max], used by
// callers to pace consecutive field fills.
func (t *Typist) RandomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return min + time.Duration(t.rng.Int63n(int64(max-min)))
}
