package attachment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=attachment
type Repository interface {
	Create(ctx context.Context, caller tenant.Caller, a *Attachment) error
	FindByID(ctx context.Context, caller tenant.Caller, id uuid.UUID) (*Attachment, error)
	// ListByExpense returns the attachments linked to a live expense in
	// display order.
	ListByExpense(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID) ([]*Attachment, error)

	// LinkToExpense inserts the link and, for a TEMPORARY attachment, moves it
	// to LINKED and clears expires_at, all in one transaction. link.LinkedAt
	// is the reference time for the expiry check.
	LinkToExpense(ctx context.Context, caller tenant.Caller, link *Link) (*Attachment, error)
	// Unlink removes one link. When it was the last link the attachment goes
	// back to TEMPORARY expiring at revertExpiry, or to DELETED when
	// revertExpiry is nil.
	Unlink(ctx context.Context, caller tenant.Caller, expenseID, attachmentID uuid.UUID, revertExpiry *time.Time) error
	// Transition moves the attachment to status to under a row lock. Moving
	// to the current status is a no-op.
	Transition(ctx context.Context, caller tenant.Caller, id uuid.UUID, to Status, reason string) error
	HardDelete(ctx context.Context, caller tenant.Caller, id uuid.UUID) error

	// FindExpired, ClaimExpired and ExpireClaimed run across tenants for the
	// cleanup job.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*Attachment, error)
	ClaimExpired(ctx context.Context, now, staleBefore time.Time, limit int) ([]*Attachment, error)
	ExpireClaimed(ctx context.Context, id uuid.UUID) error
	// FindOrphaned lists live attachments without a link row uploaded
	// before the given time.
	FindOrphaned(ctx context.Context, caller tenant.Caller, before time.Time) ([]*Attachment, error)
}

type Config struct {
	TempTTL         time.Duration
	OrphanGrace     time.Duration
	ClaimStaleAfter time.Duration
	ClaimBatch      int
}

var DefaultConfig = Config{
	TempTTL:         24 * time.Hour,
	OrphanGrace:     72 * time.Hour,
	ClaimStaleAfter: 15 * time.Minute,
	ClaimBatch:      100,
}

type Service struct {
	repo Repository
	cfg  Config
	now  func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo Repository, cfg Config, opts ...Option) *Service {
	if cfg.TempTTL <= 0 {
		cfg.TempTTL = DefaultConfig.TempTTL
	}

	if cfg.OrphanGrace <= 0 {
		cfg.OrphanGrace = DefaultConfig.OrphanGrace
	}

	if cfg.ClaimStaleAfter <= 0 {
		cfg.ClaimStaleAfter = DefaultConfig.ClaimStaleAfter
	}

	if cfg.ClaimBatch <= 0 {
		cfg.ClaimBatch = DefaultConfig.ClaimBatch
	}

	s := &Service{repo: repo, cfg: cfg, now: time.Now}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type UploadParams struct {
	FileName     string
	OriginalName string
	FileSize     int64
	MimeType     string
	StoragePath  string
}

// Upload records a TEMPORARY attachment that expires after the configured TTL
// unless it gets linked first.
func (s *Service) Upload(ctx context.Context, caller tenant.Caller, params UploadParams) (*Attachment, error) {
	now := s.now().UTC()
	expires := now.Add(s.cfg.TempTTL)

	a := &Attachment{
		TenantID:     caller.TenantID,
		FileName:     strings.TrimSpace(params.FileName),
		OriginalName: params.OriginalName,
		FileSize:     params.FileSize,
		MimeType:     params.MimeType,
		StoragePath:  params.StoragePath,
		Status:       StatusTemporary,
		UploadedAt:   now,
		UploadedBy:   caller.UserID,
		ExpiresAt:    &expires,
	}

	if a.OriginalName == "" {
		a.OriginalName = a.FileName
	}

	switch {
	case a.FileSize <= 0:
		return nil, database.NewConstraintError(database.ConstraintCheck, "attachments", "attachments_file_size_check")
	case a.FileName == "":
		return nil, database.NewConstraintError(database.ConstraintNotNull, "attachments", "file_name")
	case a.StoragePath == "":
		return nil, database.NewConstraintError(database.ConstraintNotNull, "attachments", "storage_path")
	}

	if err := s.repo.Create(ctx, caller, a); err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Service) Get(ctx context.Context, caller tenant.Caller, id uuid.UUID) (*Attachment, error) {
	return s.repo.FindByID(ctx, caller, id)
}

func (s *Service) ListForExpense(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID) ([]*Attachment, error) {
	return s.repo.ListByExpense(ctx, caller, expenseID)
}

type LinkParams struct {
	AttachmentID uuid.UUID
	ExpenseID    uuid.UUID
	DisplayOrder int
	Description  string
}

// LinkToExpense attaches the file to an expense. The first link moves a
// TEMPORARY upload to LINKED and clears its expiry so the cleanup no longer
// sees it.
func (s *Service) LinkToExpense(ctx context.Context, caller tenant.Caller, params LinkParams) (*Attachment, error) {
	if params.DisplayOrder < 0 {
		return nil, database.NewConstraintError(database.ConstraintCheck, "expense_attachments", "expense_attachments_display_order_check")
	}

	link := &Link{
		ExpenseID:    params.ExpenseID,
		AttachmentID: params.AttachmentID,
		TenantID:     caller.TenantID,
		LinkedAt:     s.now().UTC(),
		LinkedBy:     caller.UserID,
		DisplayOrder: params.DisplayOrder,
		Description:  params.Description,
	}

	a, err := s.repo.LinkToExpense(ctx, caller, link)
	if err != nil {
		return nil, fmt.Errorf("linking attachment: %w", err)
	}

	return a, nil
}

// Unlink removes the link between an attachment and an expense. An
// attachment left without links becomes TEMPORARY again with a fresh expiry
// when reusable is set and DELETED otherwise.
func (s *Service) Unlink(ctx context.Context, caller tenant.Caller, expenseID, attachmentID uuid.UUID, reusable bool) error {
	var revert *time.Time

	if reusable {
		t := s.now().UTC().Add(s.cfg.TempTTL)
		revert = &t
	}

	return s.repo.Unlink(ctx, caller, expenseID, attachmentID, revert)
}

func (s *Service) MarkFailed(ctx context.Context, caller tenant.Caller, id uuid.UUID, reason string) error {
	return s.repo.Transition(ctx, caller, id, StatusFailed, reason)
}

// Delete moves the attachment to DELETED. Deleting twice succeeds.
func (s *Service) Delete(ctx context.Context, caller tenant.Caller, id uuid.UUID) error {
	return s.repo.Transition(ctx, caller, id, StatusDeleted, "")
}

// Purge removes the row and, through the cascade, its expense links.
func (s *Service) Purge(ctx context.Context, caller tenant.Caller, id uuid.UUID) error {
	return s.repo.HardDelete(ctx, caller, id)
}

func (s *Service) FindExpired(ctx context.Context) ([]*Attachment, error) {
	return s.repo.FindExpired(ctx, s.now().UTC(), s.cfg.ClaimBatch)
}

// ClaimExpired marks a batch of expired uploads as taken by this run. Two
// concurrent runs never receive the same attachment; a claim older than
// ClaimStaleAfter is considered abandoned and may be taken again.
func (s *Service) ClaimExpired(ctx context.Context) ([]*Attachment, error) {
	now := s.now().UTC()

	return s.repo.ClaimExpired(ctx, now, now.Add(-s.cfg.ClaimStaleAfter), s.cfg.ClaimBatch)
}

// ExpireClaimed finishes the cleanup of a claimed upload by moving it to DELETED.
func (s *Service) ExpireClaimed(ctx context.Context, id uuid.UUID) error {
	return s.repo.ExpireClaimed(ctx, id)
}

// FindOrphaned lists attachments that are not DELETED, have no link and
// were uploaded before the orphan grace period.
func (s *Service) FindOrphaned(ctx context.Context, caller tenant.Caller) ([]*Attachment, error) {
	return s.repo.FindOrphaned(ctx, caller, s.now().UTC().Add(-s.cfg.OrphanGrace))
}
