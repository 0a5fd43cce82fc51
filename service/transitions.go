package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kevinaaaquil/transcribe/models"
	"github.com/kevinaaaquil/transcribe/store"
	"github.com/kevinaaaquil/transcribe/utils"
)

// ClaimPage assigns the page to userID. Claiming a page the same user
// already holds succeeds again and refreshes claimedAt.
func (m *Manager) ClaimPage(ctx context.Context, book string, page int, userID, userName string) (models.PageRecord, error) {
	if userID == "" {
		return models.PageRecord{}, &ForbiddenError{Msg: "missing user identity"}
	}
	_, after, err := m.mutate(ctx, book, page, "claim", userID, func(rec *models.PageRecord) error {
		switch rec.Status {
		case models.StatusInProgress:
			if !rec.ClaimedByUser(userID) {
				return &ConflictError{ClaimedBy: rec.Claimant(), Status: rec.Status}
			}
		case models.StatusCompleted:
			return &ConflictError{ClaimedBy: rec.Claimant(), Status: rec.Status}
		}
		now := m.now().UTC()
		name, id := userName, userID
		rec.Status = models.StatusInProgress
		rec.ClaimedBy = &name
		rec.ClaimedByID = &id
		rec.ClaimedAt = &now
		rec.CompletedAt = nil
		return nil
	})
	return after, err
}

// CompletePage marks a page done. Only the current claimant may do so.
func (m *Manager) CompletePage(ctx context.Context, book string, page int, userID string) (models.PageRecord, error) {
	_, after, err := m.mutate(ctx, book, page, "complete", userID, func(rec *models.PageRecord) error {
		if userID == "" || !rec.ClaimedByUser(userID) {
			return &ForbiddenError{Msg: "not your claim"}
		}
		now := m.now().UTC()
		rec.Status = models.StatusCompleted
		rec.CompletedAt = &now
		return nil
	})
	return after, err
}

// ReleasePage returns a claimed or completed page to the pool. Only the
// current claimant may do so; observers hear about it once it is persisted.
func (m *Manager) ReleasePage(ctx context.Context, book string, page int, userID string) (models.PageRecord, error) {
	before, after, err := m.mutate(ctx, book, page, "release", userID, func(rec *models.PageRecord) error {
		if userID == "" || !rec.ClaimedByUser(userID) {
			return &ForbiddenError{Msg: "not your claim"}
		}
		rec.ClearClaim()
		return nil
	})
	if err != nil {
		return after, err
	}

	book, _ = utils.CleanBookID(book)
	ev := models.ReleaseEvent{
		ID:             uuid.NewString(),
		Book:           book,
		Page:           page,
		UserID:         userID,
		PreviousStatus: before.Status,
		At:             m.now().UTC(),
	}
	for _, o := range m.observers {
		if err := o.PageReleased(ctx, ev); err != nil {
			m.log.Error("release observer failed", "book", book, "page", page, "eventId", ev.ID, "error", err)
		}
	}
	return after, nil
}

// mutate runs one read-modify-write of the book's ledger under the book
// lock. apply edits the target record in place or rejects the transition;
// a rejected transition writes nothing. When the conditional write loses a
// race the ledger is re-read and apply runs again on the fresh record.
func (m *Manager) mutate(ctx context.Context, book string, page int, op, userID string, apply func(*models.PageRecord) error) (before, after models.PageRecord, err error) {
	book, err = utils.CleanBookID(book)
	if err != nil {
		return before, after, err
	}
	release, err := m.locks.acquire(ctx, book)
	if err != nil {
		return before, after, &StorageError{Op: "lock ledger", Err: err}
	}
	defer release()

	logger := m.log.With("op", op, "book", book, "page", page, "userId", userID)
	for attempt := 1; ; attempt++ {
		ledger, version, found, err := m.load(ctx, book)
		if err != nil {
			return before, after, err
		}
		if !found {
			ledger, version, err = m.reconcileLocked(ctx, book)
			if err != nil {
				return before, after, err
			}
		}

		rec := ledger.Page(page)
		if rec == nil {
			return before, after, notFoundf("page %d not found in book %q", page, book)
		}
		before = rec.Clone()
		if err := apply(rec); err != nil {
			logger.Debug("transition rejected", "error", err)
			return before, before, err
		}

		_, err = store.SaveJSON(ctx, m.blobs, m.LedgerPath(book), ledger, store.IfVersion(version))
		if errors.Is(err, store.ErrPreconditionFailed) {
			if attempt >= m.maxAttempts {
				logger.Error("giving up after repeated write conflicts", "attempts", attempt)
				return before, before, &StorageError{Op: "write ledger", Err: errContention}
			}
			logger.Warn("ledger changed underneath transition, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			logger.Error("ledger write failed", "error", err)
			return before, before, &StorageError{Op: "write ledger", Err: err}
		}
		logger.Info("page transition", "from", before.Status, "to", rec.Status)
		return before, rec.Clone(), nil
	}
}
