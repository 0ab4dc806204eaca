package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/healthify/healthify/internal/apperror"
)

// perPage is the number of audit entries shown per page in the admin feed.
const perPage = 50

// maxAccountHistoryEntries caps the number of history entries returned for
// a single account to prevent unbounded result sets.
const maxAccountHistoryEntries = 100

// AuditService handles business logic for the audit log. It validates
// inputs, enforces limits, and delegates persistence to the repository.
type AuditService interface {
	// Log records an audit entry. Designed to be fire-and-forget friendly:
	// errors are logged but callers may choose to ignore them since audit
	// failures should not block the primary operation.
	Log(ctx context.Context, entry *Entry) error

	// RecentActivity returns the paginated audit feed across all accounts.
	// Returns entries, total count, and any error.
	RecentActivity(ctx context.Context, page int) ([]Entry, int, error)

	// AccountHistory returns the recent audit history for a single account.
	AccountHistory(ctx context.Context, accountID string) ([]Entry, error)
}

// auditService implements AuditService.
type auditService struct {
	repo AuditRepository
}

// NewAuditService creates a new audit service with the given repository.
func NewAuditService(repo AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// Log validates and persists an audit entry. Missing required fields cause
// a validation error. Persistence failures are recorded via slog so the
// caller can treat this as fire-and-forget when appropriate.
func (s *auditService) Log(ctx context.Context, entry *Entry) error {
	if entry.AccountID == "" {
		return apperror.NewBadRequest("account ID is required for audit entry")
	}
	if entry.Action == "" {
		return apperror.NewBadRequest("action is required for audit entry")
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		slog.Error("failed to write audit log entry",
			slog.String("account_id", entry.AccountID),
			slog.String("action", entry.Action),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("writing audit entry: %w", err))
	}

	return nil
}

// RecentActivity returns the paginated admin audit feed.
// Pages are 1-indexed. Invalid page numbers are clamped to 1.
func (s *auditService) RecentActivity(ctx context.Context, page int) ([]Entry, int, error) {
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * perPage
	entries, total, err := s.repo.ListRecent(ctx, perPage, offset)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing audit activity: %w", err))
	}

	return entries, total, nil
}

// AccountHistory returns the recent audit history for a single account.
// Limited to maxAccountHistoryEntries to prevent excessively large responses.
func (s *auditService) AccountHistory(ctx context.Context, accountID string) ([]Entry, error) {
	if accountID == "" {
		return nil, apperror.NewBadRequest("account ID is required")
	}

	entries, err := s.repo.ListByAccount(ctx, accountID, maxAccountHistoryEntries)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing account history: %w", err))
	}

	return entries, nil
}
