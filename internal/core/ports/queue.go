package ports

import (
	"context"

	"github.com/google/uuid"
)

// NewSubmissionEvent holds the data for a freshly submitted video that
// reviewers need to see.
type NewSubmissionEvent struct {
	SubmissionID int64
	UserID       uuid.UUID
	FileID       string
	Caption      string // Formatted submitter info for the reviewers
}

// ReviewQueue is the abstract notifier that puts new submissions in
// front of the review team.
type ReviewQueue interface {
	// Publish posts the submission for review and returns the storage
	// reference of the posted item (the channel message id in the
	// Telegram adapter).
	Publish(ctx context.Context, event NewSubmissionEvent) (storageRef string, err error)
}
