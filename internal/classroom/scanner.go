// File: internal/classroom/scanner.go
// To-do list scraping. The platform's pending-work page is an uncontrolled
// third-party UI, so everything here is heuristic: anchor-based item
// discovery, text-shape filters for titles, and a second navigation per item
// to pick up instructions and attachment links.
package classroom

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
)

// Browser is the capability surface the classroom layer needs from the
// browser session. *session.Session satisfies it.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	Settle(ctx context.Context) error
	Evaluate(ctx context.Context, script string, out any) error
	Sleep(ctx context.Context, d time.Duration) error
}

// assignmentPathRe pulls course and assignment identifiers out of an item
// URL of the form .../c/<course>/a/<assignment>.
var assignmentPathRe = regexp.MustCompile(`/c/([^/?#]+)/a/([^/?#]+)`)

// todoItem is the raw per-item payload scraped from the to-do page.
type todoItem struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	DueText   string `json:"due_text"`
	ClassName string `json:"class_name"`
}

// expandSectionsJS clicks every expander ("View all", collapsed week
// sections, the Missing tab) so the item list is fully materialized before
// scraping. Returns the number of elements clicked.
const expandSectionsJS = `(function() {
	const wanted = ['view all', 'missing', 'this week', 'next week', 'later'];
	let clicked = 0;
	const els = Array.from(document.querySelectorAll('a, button, [role="tab"], [role="button"]'));
	for (const el of els) {
		const t = (el.textContent || '').replace(/\s+/g, ' ').trim().toLowerCase();
		if (!wanted.includes(t)) continue;
		try { el.click(); clicked++; } catch (e) {}
	}
	return clicked;
})()`

// todoScanJS collects one entry per assignment link, with best-effort title,
// class name and due text pulled from the surrounding list item.
const todoScanJS = `(function() {
	const results = [];
	const seen = new Set();
	const links = document.querySelectorAll('a[href*="/c/"][href*="/a/"]');
	for (const a of links) {
		const href = (a.href || '').split('?')[0];
		if (!href || seen.has(href)) continue;
		seen.add(href);

		const container = a.closest('li') || a.closest('[role="listitem"]') || a;
		const fullText = container.textContent || '';

		let title = '';
		for (const s of a.querySelectorAll('div, span, p')) {
			const t = (s.textContent || '').trim();
			if (t.length > 3 && t.length < 200 &&
				!/^Posted/.test(t) && !/^Due/.test(t) &&
				!/^(Mon|Tue|Wed|Thu|Fri|Sat|Sun)/.test(t) &&
				!/^\d{1,2}:\d{2}/.test(t)) {
				title = t;
				break;
			}
		}
		if (!title) title = (a.textContent || '').trim().split('\n')[0].substring(0, 150);
		if (!title || title.length < 2) continue;

		let className = '';
		let foundTitle = false;
		for (const s of container.querySelectorAll('div, span')) {
			const t = (s.textContent || '').trim();
			if (t === title) { foundTitle = true; continue; }
			if (foundTitle && t.length > 2 && t.length < 100 &&
				!/^Posted/.test(t) && !/^Due/.test(t)) {
				className = t;
				break;
			}
		}

		let dueText = '';
		const m = fullText.match(/(Due|Posted|Missing).{0,60}/i);
		if (m) dueText = m[0].trim();

		results.push({ title: title, url: href, due_text: dueText, class_name: className });
	}
	return results;
})()`

// enrichJS runs on an assignment's own page and pulls the longest plausible
// instruction block, any material links, and the course name.
const enrichJS = `(function() {
	let desc = '';
	for (const sel of ['[dir="ltr"]', '[role="main"] div']) {
		for (const el of document.querySelectorAll(sel)) {
			const t = (el.textContent || '').trim();
			if (t.length > 20 && t.length > desc.length && t.length < 5000) desc = t;
		}
		if (desc.length > 20) break;
	}

	let courseName = '';
	for (const b of document.querySelectorAll('a[href*="/c/"] span, h1 span, header span')) {
		const t = (b.textContent || '').trim();
		if (t.length > 2 && t.length < 100) { courseName = t; break; }
	}

	const attachments = [];
	const links = document.querySelectorAll(
		'a[href*="drive.google.com"], a[href*="docs.google.com"], a[href*="youtube.com"]');
	for (const l of links) attachments.push(l.href);

	return {
		description: desc.substring(0, 2000),
		attachments: Array.from(new Set(attachments)),
		course_name: courseName,
	};
})()`

type enrichResult struct {
	Description string   `json:"description"`
	Attachments []string `json:"attachments"`
	CourseName  string   `json:"course_name"`
}

// Scanner discovers pending assignments.
type Scanner struct {
	b       Browser
	todoURL string
	logger  *zap.Logger
}

func NewScanner(b Browser, todoURL string, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{b: b, todoURL: todoURL, logger: logger.Named("scanner")}
}

// Scan scrapes the to-do page and enriches every discovered assignment from
// its own page. Per-item enrichment failures are logged and tolerated; the
// item keeps whatever the list view provided.
func (s *Scanner) Scan(ctx context.Context) ([]schemas.Assignment, error) {
	if s.todoURL == "" {
		return nil, fmt.Errorf("no to-do page URL configured")
	}
	if err := s.b.Navigate(ctx, s.todoURL); err != nil {
		return nil, fmt.Errorf("failed to open to-do page: %w", err)
	}

	var clicked int
	if err := s.b.Evaluate(ctx, expandSectionsJS, &clicked); err == nil && clicked > 0 {
		s.logger.Debug("Expanded to-do sections", zap.Int("clicked", clicked))
		if err := s.b.Settle(ctx); err != nil {
			return nil, err
		}
	}

	var items []todoItem
	if err := s.b.Evaluate(ctx, todoScanJS, &items); err != nil {
		return nil, fmt.Errorf("to-do page scrape failed: %w", err)
	}
	s.logger.Info("To-do page scanned", zap.Int("items", len(items)))

	assignments := make([]schemas.Assignment, 0, len(items))
	for _, item := range items {
		a := schemas.Assignment{
			CourseName: item.ClassName,
			Title:      item.Title,
			URL:        item.URL,
			DueDate:    item.DueText,
		}
		if m := assignmentPathRe.FindStringSubmatch(item.URL); m != nil {
			a.CourseID = m[1]
			a.AssignmentID = m[2]
		}
		assignments = append(assignments, a)
	}

	for i := range assignments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.enrich(ctx, &assignments[i]); err != nil {
			s.logger.Warn("Could not enrich assignment",
				zap.String("title", assignments[i].Title), zap.Error(err))
		}
	}

	s.logger.Info("Scan complete", zap.Int("assignments", len(assignments)))
	return assignments, nil
}

func (s *Scanner) enrich(ctx context.Context, a *schemas.Assignment) error {
	if a.URL == "" {
		return nil
	}
	if err := s.b.Navigate(ctx, a.URL); err != nil {
		return err
	}
	var info enrichResult
	if err := s.b.Evaluate(ctx, enrichJS, &info); err != nil {
		return err
	}
	a.Instructions = info.Description
	a.AttachmentURLs = info.Attachments
	if a.CourseName == "" {
		a.CourseName = info.CourseName
	}
	return nil
}
