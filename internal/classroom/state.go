// File: internal/classroom/state.go
// Run-state persistence. One JSON file keyed by assignment identity records
// what has been attempted, what succeeded, and what the schedule loop has
// merely seen. A corrupted file is reset rather than aborting a run; losing
// history is recoverable, refusing to run is not.
package classroom

import (
	"fmt"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// RunState is the persisted shape of the store.
type RunState struct {
	// Bootstrapped is set once the schedule loop has baselined the
	// assignments that already existed when it first ran.
	Bootstrapped bool                                `json:"bootstrapped"`
	Assignments  map[string]schemas.AssignmentRecord `json:"assignments"`
}

// StateStore loads, mutates and saves the run state. Safe for use from one
// process; the workflow's lock file guards against concurrent processes.
type StateStore struct {
	path   string
	logger *zap.Logger

	mu    sync.Mutex
	state RunState
}

// NewStateStore opens the store at path, reading any existing state. A
// missing file starts empty; an unreadable one is logged and reset.
func NewStateStore(path string, logger *zap.Logger) *StateStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &StateStore{
		path:   path,
		logger: logger.Named("state"),
		state:  RunState{Assignments: make(map[string]schemas.AssignmentRecord)},
	}
	s.load()
	return s
}

func (s *StateStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read state file, starting fresh",
				zap.String("path", s.path), zap.Error(err))
		}
		return
	}
	var loaded RunState
	if err := jsonit.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn("State file is corrupted, resetting",
			zap.String("path", s.path), zap.Error(err))
		return
	}
	if loaded.Assignments == nil {
		loaded.Assignments = make(map[string]schemas.AssignmentRecord)
	}
	s.state = loaded
}

func (s *StateStore) save() error {
	data, err := jsonit.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run state: %w", err)
	}
	return nil
}

// Bootstrapped reports whether the schedule baseline has been taken.
func (s *StateStore) Bootstrapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Bootstrapped
}

// Bootstrap records every currently visible assignment as baseline-seen and
// marks the store bootstrapped. Subsequent scheduled scans only process items
// that were not part of this baseline.
func (s *StateStore) Bootstrap(assignments []schemas.Assignment, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range assignments {
		s.state.Assignments[a.Key()] = schemas.AssignmentRecord{
			CourseName:     a.CourseName,
			Title:          a.Title,
			URL:            a.URL,
			Status:         schemas.StatusBootstrappedSeen,
			DeliveryMethod: schemas.DeliveryNotAttempted,
			LastSeen:       now,
		}
	}
	s.state.Bootstrapped = true
	return s.save()
}

// MarkSeen refreshes the last-seen timestamp without touching attempt state.
func (s *StateStore) MarkSeen(a schemas.Assignment, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.state.Assignments[a.Key()]
	rec.CourseName = a.CourseName
	rec.Title = a.Title
	rec.URL = a.URL
	rec.LastSeen = now
	s.state.Assignments[a.Key()] = rec
	return s.save()
}

// MarkAttempt records the outcome of one delivery attempt.
func (s *StateStore) MarkAttempt(a schemas.Assignment, status schemas.AssignmentStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.state.Assignments[a.Key()]
	rec.CourseName = a.CourseName
	rec.Title = a.Title
	rec.URL = a.URL
	rec.Status = status
	rec.DeliveryMethod = a.DeliveryMethod
	rec.DeliveryDetails = a.DeliveryDetails
	rec.LastAttempt = now
	rec.LastSeen = now
	if status == schemas.StatusSuccess {
		rec.LastSuccess = now
	}
	s.state.Assignments[a.Key()] = rec
	return s.save()
}

// ShouldProcess decides whether an assignment is due for processing:
// unknown and baseline-seen items always are, succeeded ones never are, and
// failed ones wait out the retry cool-off.
func (s *StateStore) ShouldProcess(a schemas.Assignment, now time.Time, retryAfter time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state.Assignments[a.Key()]
	if !ok {
		return true
	}
	switch rec.Status {
	case schemas.StatusSuccess:
		return false
	case schemas.StatusFailed:
		if retryAfter < time.Minute {
			retryAfter = time.Minute
		}
		return now.Sub(rec.LastAttempt) >= retryAfter
	default:
		return true
	}
}

// Record returns the stored record for an assignment, if any.
func (s *StateStore) Record(a schemas.Assignment) (schemas.AssignmentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state.Assignments[a.Key()]
	return rec, ok
}
