// File: internal/browser/session/session.go
// A Session owns one Chrome tab driven over CDP and is the single shared
// mutable resource of a run. It is reused across assignments so the
// authenticated platform cookies survive, and it is never touched by two
// logical operations at once: the workflow is strictly sequential.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/studyflow-cli/internal/config"
	"github.com/xkilldash9x/studyflow-cli/internal/humanoid"
)

// networkIdleCheckFrequency is how often the idle waiter samples the in-flight
// request counter.
const networkIdleCheckFrequency = 100 * time.Millisecond

// Session wraps a chromedp browser context with the interaction primitives
// the Smart-Fill engine and the classroom scrapers consume.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	cfg    config.BrowserConfig
	logger *zap.Logger
	typist *humanoid.Typist

	// In-flight request tracking for network-idle detection.
	mu         sync.RWMutex
	activeReqs int
}

// NewSession launches a browser and attaches a tab to it. The typist may be
// nil, in which case typing degrades to direct key dispatch with no pacing.
func NewSession(parent context.Context, cfg config.BrowserConfig, typist *humanoid.Typist, logger *zap.Logger) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)

	ctxOpts := []chromedp.ContextOption{}
	if cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(logger.Sugar().Debugf))
	}
	tabCtx, cancel := chromedp.NewContext(allocCtx, ctxOpts...)

	s := &Session{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		cfg:         cfg,
		logger:      logger.Named("session"),
		typist:      typist,
	}

	chromedp.ListenTarget(tabCtx, s.trackNetworkEvent)

	// Starting the browser eagerly surfaces launch failures here instead of
	// on the first Navigate.
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	s.logger.Info("Browser session started.", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// Close tears down the tab and the browser process.
func (s *Session) Close() error {
	s.logger.Info("Closing browser session.")
	s.cancel()
	s.allocCancel()
	return nil
}

// trackNetworkEvent maintains the in-flight request counter used by
// WaitNetworkIdle.
func (s *Session) trackNetworkEvent(ev interface{}) {
	switch ev.(type) {
	case *network.EventRequestWillBeSent:
		s.mu.Lock()
		s.activeReqs++
		s.mu.Unlock()
	case *network.EventLoadingFinished, *network.EventLoadingFailed:
		s.mu.Lock()
		if s.activeReqs > 0 {
			s.activeReqs--
		}
		s.mu.Unlock()
	}
}

// WaitNetworkIdle blocks until no request has been in flight for quietPeriod,
// or until ctx expires. A timeout is not an error to the caller's pipeline:
// uncontrolled third-party pages sometimes never go fully quiet, so callers
// proceed regardless.
func (s *Session) WaitNetworkIdle(ctx context.Context, quietPeriod time.Duration) error {
	opCtx, opCancel := s.operationContext(ctx)
	defer opCancel()

	timer := time.NewTimer(quietPeriod)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	defer timer.Stop()

	idle := false
	ticker := time.NewTicker(networkIdleCheckFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-opCtx.Done():
			return opCtx.Err()
		case <-timer.C:
			return nil
		case <-ticker.C:
			s.mu.RLock()
			active := s.activeReqs
			s.mu.RUnlock()

			if active > 0 {
				if idle {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					idle = false
				}
			} else if !idle {
				timer.Reset(quietPeriod)
				idle = true
			}
		}
	}
}

// operationContext derives a context that carries the chromedp target but is
// cancelled when either the session or the caller's context ends. chromedp
// actions need the session context's values, while callers own the deadline.
func (s *Session) operationContext(callerCtx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(callerCtx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// Sleep pauses for d, respecting both the caller's context and session
// shutdown.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}
