package posts

import (
	"time"

	"github.com/google/uuid"

	"github.com/adevav/adevav-api/internal/policy"
)

// Status is the publication state of a post.
type Status string

const (
	StatusDraft         Status = "Draft"
	StatusPendingReview Status = "Pending Review"
	StatusPublished     Status = "Published"
)

// ValidStatus reports whether s names a known publication state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusPublished:
		return true
	}
	return false
}

// Post is a content item. Visibility is a rank threshold from the role
// hierarchy, not an assignable role: viewers whose role ranks at or above it
// may see the post, and Private posts are visible to their author only.
type Post struct {
	ID          uuid.UUID
	AuthorID    uuid.UUID
	Title       string
	Slug        string
	Body        string
	Status      Status
	Visibility  policy.Role
	PublishedOn *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
