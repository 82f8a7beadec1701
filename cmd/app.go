// File: cmd/app.go
// Wiring. One browser session backs every collaborator: the scanner, the
// fill engine, the paster and the material fetcher all share the same tab so
// the authenticated platform cookies stay in one place.
package cmd

import (
	"context"
	"math/rand"
	"time"

	"github.com/xkilldash9x/studyflow-cli/internal/browser/session"
	"github.com/xkilldash9x/studyflow-cli/internal/classroom"
	"github.com/xkilldash9x/studyflow-cli/internal/config"
	"github.com/xkilldash9x/studyflow-cli/internal/drafting"
	"github.com/xkilldash9x/studyflow-cli/internal/humanoid"
	"github.com/xkilldash9x/studyflow-cli/internal/observability"
	"github.com/xkilldash9x/studyflow-cli/internal/smartfill"
	"github.com/xkilldash9x/studyflow-cli/internal/style"
	"github.com/xkilldash9x/studyflow-cli/internal/workflow"
)

// application is a fully wired workflow plus the teardown for the resources
// behind it.
type application struct {
	wf    *workflow.Workflow
	close func()
}

// buildApplication assembles the workflow from the validated configuration.
func buildApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	logger := observability.GetLogger()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	typist := humanoid.NewTypist(cfg.Humanoid, rng, logger)
	sess, err := session.NewSession(ctx, cfg.Browser, typist, logger)
	if err != nil {
		return nil, err
	}

	drafter, err := drafting.NewDrafter(ctx, cfg.Drafting, logger)
	if err != nil {
		sess.Close()
		return nil, err
	}

	engine := smartfill.NewEngine(sess, cfg.Fill, rng, logger)
	wf := workflow.New(cfg.Workflow, workflow.Components{
		Browser:  sess,
		Fetcher:  sess,
		Scanner:  classroom.NewScanner(sess, cfg.Workflow.TodoURL, logger),
		Style:    style.NewLoader(cfg.Style, rng, logger),
		Drafter:  drafter,
		Paster:   classroom.NewPaster(sess, engine, logger),
		Detector: engine,
		State:    classroom.NewStateStore(cfg.Workflow.StateFile, logger),
	}, rng, logger)

	return &application{
		wf:    wf,
		close: func() { sess.Close() },
	}, nil
}
