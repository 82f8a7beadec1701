// File: api/schemas/assignment.go
package schemas

import "time"

// DeliveryMethod records how a draft reached (or failed to reach) the
// submission surface.
type DeliveryMethod string

const (
	DeliveryNotAttempted DeliveryMethod = "not_attempted"
	DeliveryFieldsFilled DeliveryMethod = "fields_filled"
	DeliveryDocEdited    DeliveryMethod = "doc_edited"
	DeliveryEditorTyped  DeliveryMethod = "editor_typed"
	DeliveryFailed       DeliveryMethod = "failed"
)

// Assignment is one pending item scraped from the platform to-do list plus
// the metadata collected from its detail page.
type Assignment struct {
	CourseID     string `json:"course_id,omitempty"`
	CourseName   string `json:"course_name"`
	AssignmentID string `json:"assignment_id,omitempty"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	DueDate      string `json:"due_date,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	// AttachmentURLs are links to attached materials in scrape order.
	AttachmentURLs []string `json:"attachment_urls,omitempty"`

	// Delivery outcome, populated by the paster.
	DeliveryMethod  DeliveryMethod `json:"delivery_method,omitempty"`
	DeliveryDetails string         `json:"delivery_details,omitempty"`
}

// Key returns the stable identity used by the run-state store. Course and
// assignment IDs win when present; the URL (stripped of query/fragment) is
// the fallback.
func (a Assignment) Key() string {
	if a.CourseID != "" && a.AssignmentID != "" {
		return a.CourseID + ":" + a.AssignmentID
	}
	if a.AssignmentID != "" {
		return a.AssignmentID
	}
	if a.URL != "" {
		return stripQuery(a.URL)
	}
	return a.CourseName + "|" + a.Title
}

func stripQuery(url string) string {
	for i := 0; i < len(url); i++ {
		if url[i] == '?' || url[i] == '#' {
			return url[:i]
		}
	}
	return url
}

// AssignmentStatus is the run-state lifecycle of one assignment.
type AssignmentStatus string

const (
	StatusSuccess          AssignmentStatus = "success"
	StatusFailed           AssignmentStatus = "failed"
	StatusBootstrappedSeen AssignmentStatus = "bootstrapped_seen"
)

// AssignmentRecord is the persisted per-assignment entry in the run-state
// store.
type AssignmentRecord struct {
	CourseName      string           `json:"course_name"`
	Title           string           `json:"title"`
	URL             string           `json:"url"`
	Status          AssignmentStatus `json:"status"`
	DeliveryMethod  DeliveryMethod   `json:"delivery_method"`
	DeliveryDetails string           `json:"delivery_details"`
	LastAttempt     time.Time        `json:"last_attempt"`
	LastSeen        time.Time        `json:"last_seen"`
	LastSuccess     time.Time        `json:"last_success,omitzero"`
}
