package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the review status of a submitted video.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// ContentRef is the opaque reference to the submitted media as received
// from the transport. All three fields are required.
type ContentRef struct {
	FileID       string
	FileUniqueID string // Dedup key assigned by the transport
	MessageID    int
}

// Submission is one unit of user work awaiting review. Status moves
// pending->approved or pending->rejected exactly once; ReviewedBy and
// ReviewedAt are set atomically with that transition.
type Submission struct {
	ID              int64
	UserID          uuid.UUID
	FileID          string
	FileUniqueID    string
	MessageID       int
	Status          SubmissionStatus
	ReviewedBy      *uuid.UUID
	ReviewedAt      *time.Time
	RejectionReason *string
	CreatedAt       time.Time
}
