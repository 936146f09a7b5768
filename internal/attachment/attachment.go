package attachment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusTemporary Status = "TEMPORARY"
	StatusLinked    Status = "LINKED"
	StatusDeleted   Status = "DELETED"
	StatusFailed    Status = "FAILED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTemporary, StatusLinked, StatusDeleted, StatusFailed:
		return true
	}

	return false
}

// Terminal statuses admit no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDeleted || s == StatusFailed
}

var transitions = map[Status][]Status{
	StatusTemporary: {StatusLinked, StatusDeleted, StatusFailed},
	StatusLinked:    {StatusDeleted, StatusTemporary},
}

// CanTransition reports whether from may move to to. Staying in the same
// status is not a transition.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}

	return false
}

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrExpired is returned when linking an upload that has expired or was
	// claimed by the cleanup.
	ErrExpired = errors.New("attachment expired")
)

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// CheckTransition returns a *TransitionError when from cannot move to to.
func CheckTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}

	return &TransitionError{From: from, To: to}
}

type Attachment struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	FileName      string
	OriginalName  string
	FileSize      int64
	MimeType      string
	StoragePath   string
	Status        Status
	UploadedAt    time.Time
	UploadedBy    uuid.UUID
	ExpiresAt     *time.Time
	LinkedAt      *time.Time
	ClaimedAt     *time.Time
	FailureReason string
	DeletedAt     *time.Time
	DeletedBy     *uuid.UUID
}

// Expired reports whether a TEMPORARY upload is past its expiry at now.
func (a *Attachment) Expired(now time.Time) bool {
	return a.Status == StatusTemporary && a.ExpiresAt != nil && a.ExpiresAt.Before(now)
}

// Linkable reports whether a can gain an expense link at now.
func (a *Attachment) Linkable(now time.Time) error {
	switch a.Status {
	case StatusLinked:
		return nil
	case StatusTemporary:
		if a.ClaimedAt != nil || a.Expired(now) {
			return ErrExpired
		}

		return nil
	}

	return &TransitionError{From: a.Status, To: StatusLinked}
}

// Link joins an attachment to an expense.
type Link struct {
	ExpenseID    uuid.UUID
	AttachmentID uuid.UUID
	TenantID     uuid.UUID
	LinkedAt     time.Time
	LinkedBy     uuid.UUID
	DisplayOrder int
	Description  string
}
