// File: internal/classroom/scanner_test.go
package classroom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBrowser serves canned scrape payloads keyed by the current URL.
type fakeBrowser struct {
	navigated   []string
	current     string
	navErr      map[string]error
	settleCalls int

	expandClicks int
	items        []todoItem
	enrich       map[string]enrichResult
	enrichErr    map[string]error
}

func (b *fakeBrowser) Navigate(_ context.Context, url string) error {
	b.navigated = append(b.navigated, url)
	if err := b.navErr[url]; err != nil {
		return err
	}
	b.current = url
	return nil
}

func (b *fakeBrowser) Settle(context.Context) error {
	b.settleCalls++
	return nil
}

func (b *fakeBrowser) Evaluate(_ context.Context, _ string, out any) error {
	switch v := out.(type) {
	case *int:
		*v = b.expandClicks
	case *[]todoItem:
		*v = b.items
	case *enrichResult:
		if err := b.enrichErr[b.current]; err != nil {
			return err
		}
		*v = b.enrich[b.current]
	default:
		return errors.New("unexpected evaluate output type")
	}
	return nil
}

func (b *fakeBrowser) Sleep(context.Context, time.Duration) error { return nil }

const todoURL = "https://classroom.example.com/u/0/a/not-turned-in/all"

func TestScannerScan(t *testing.T) {
	itemURL := "https://classroom.example.com/c/course9/a/work7"
	b := &fakeBrowser{
		expandClicks: 2,
		items: []todoItem{
			{Title: "Chapter 4 questions", URL: itemURL, DueText: "Due tomorrow", ClassName: "History"},
		},
		enrich: map[string]enrichResult{
			itemURL: {
				Description: "Answer all questions in complete sentences.",
				Attachments: []string{"https://docs.google.com/document/d/doc1/edit"},
				CourseName:  "World History",
			},
		},
	}

	s := NewScanner(b, todoURL, zap.NewNop())
	assignments, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, assignments, 1)

	a := assignments[0]
	assert.Equal(t, "Chapter 4 questions", a.Title)
	assert.Equal(t, "course9", a.CourseID)
	assert.Equal(t, "work7", a.AssignmentID)
	assert.Equal(t, "Due tomorrow", a.DueDate)
	assert.Equal(t, "Answer all questions in complete sentences.", a.Instructions)
	assert.Equal(t, []string{"https://docs.google.com/document/d/doc1/edit"}, a.AttachmentURLs)
	// The list view's class name wins over the detail page's.
	assert.Equal(t, "History", a.CourseName)

	assert.Equal(t, []string{todoURL, itemURL}, b.navigated)
	// Expanding sections triggers a second settle wait.
	assert.Equal(t, 1, b.settleCalls)
}

func TestScannerFillsCourseNameFromDetailPage(t *testing.T) {
	itemURL := "https://classroom.example.com/c/course9/a/work8"
	b := &fakeBrowser{
		items: []todoItem{{Title: "Untitled quiz", URL: itemURL}},
		enrich: map[string]enrichResult{
			itemURL: {CourseName: "Biology"},
		},
	}

	s := NewScanner(b, todoURL, zap.NewNop())
	assignments, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "Biology", assignments[0].CourseName)
}

func TestScannerToleratesEnrichFailure(t *testing.T) {
	itemURL := "https://classroom.example.com/c/course9/a/work9"
	b := &fakeBrowser{
		items:     []todoItem{{Title: "Reading log", URL: itemURL, ClassName: "English"}},
		enrichErr: map[string]error{itemURL: errors.New("page hung")},
	}

	s := NewScanner(b, todoURL, zap.NewNop())
	assignments, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "Reading log", assignments[0].Title)
	assert.Empty(t, assignments[0].Instructions)
}

func TestScannerRequiresTodoURL(t *testing.T) {
	s := NewScanner(&fakeBrowser{}, "", zap.NewNop())
	_, err := s.Scan(context.Background())
	assert.Error(t, err)
}

func TestScannerNavigationFailure(t *testing.T) {
	b := &fakeBrowser{navErr: map[string]error{todoURL: errors.New("net::ERR_TIMED_OUT")}}
	s := NewScanner(b, todoURL, zap.NewNop())
	_, err := s.Scan(context.Background())
	assert.Error(t, err)
}
