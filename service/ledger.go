// Package service holds the page ledger: the per-book record of which pages
// are available, being transcribed, or done, kept in step with the page
// images in the blob store.
//
// Every ledger write is a whole-document replace conditioned on the version
// that was read. Writers in this process queue on a per-book lock; writers in
// other processes lose the conditional write and the transition is re-read
// and re-applied against the fresh ledger.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kevinaaaquil/transcribe/models"
	"github.com/kevinaaaquil/transcribe/store"
	"github.com/kevinaaaquil/transcribe/utils"
	"golang.org/x/sync/singleflight"
)

const defaultMaxWriteAttempts = 5

// Options tunes a Manager. Zero values pick sensible defaults.
type Options struct {
	// LedgerPrefix is where ledgers live; the ledger of book b is
	// <LedgerPrefix><b>.json.
	LedgerPrefix string
	// MaxWriteAttempts bounds how often a transition is retried after losing
	// a conditional write.
	MaxWriteAttempts int
	Now              func() time.Time
	Logger           *slog.Logger
	Observers        []ReleaseObserver
}

// Manager reconciles ledgers against the image census and applies the
// claim, complete and release transitions.
type Manager struct {
	blobs        store.BlobStore
	census       *Census
	ledgerPrefix string
	maxAttempts  int
	now          func() time.Time
	log          *slog.Logger
	observers    []ReleaseObserver

	locks  bookLocks
	flight singleflight.Group
}

func NewManager(blobs store.BlobStore, census *Census, opts Options) *Manager {
	m := &Manager{
		blobs:        blobs,
		census:       census,
		ledgerPrefix: opts.LedgerPrefix,
		maxAttempts:  opts.MaxWriteAttempts,
		now:          opts.Now,
		log:          opts.Logger,
		observers:    opts.Observers,
	}
	if m.ledgerPrefix == "" {
		m.ledgerPrefix = "data/pages/"
	}
	if m.maxAttempts < 1 {
		m.maxAttempts = defaultMaxWriteAttempts
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	return m
}

// LedgerPath returns the blob path of book's ledger.
func (m *Manager) LedgerPath(book string) string {
	return m.ledgerPrefix + book + ".json"
}

func (m *Manager) load(ctx context.Context, book string) (models.Ledger, string, bool, error) {
	var ledger models.Ledger
	version, found, err := store.ReadJSON(ctx, m.blobs, m.LedgerPath(book), &ledger)
	if err != nil {
		return nil, "", false, &StorageError{Op: "read ledger", Err: err}
	}
	return ledger, version, found, nil
}

// GetOrReconcileLedger returns the book's ledger after reconciling it with
// the current page images. Concurrent calls for one book share one pass.
func (m *Manager) GetOrReconcileLedger(ctx context.Context, book string) (models.LedgerView, error) {
	book, err := utils.CleanBookID(book)
	if err != nil {
		return models.LedgerView{}, err
	}
	v, err, _ := m.flight.Do(book, func() (any, error) {
		return m.Reconcile(context.WithoutCancel(ctx), book)
	})
	if err != nil {
		return models.LedgerView{}, err
	}
	return models.NewLedgerView(book, v.(models.Ledger).Clone()), nil
}

// Reconcile sizes book's ledger to the image census. Existing pages keep
// their status and claim fields; thumbnails are always recomputed. The
// ledger is written only when it was missing or had the wrong shape.
func (m *Manager) Reconcile(ctx context.Context, book string) (models.Ledger, error) {
	book, err := utils.CleanBookID(book)
	if err != nil {
		return nil, err
	}
	images, err := m.census.Take(ctx, book)
	if err != nil {
		return nil, err
	}
	existing, _, found, err := m.load(ctx, book)
	if err != nil {
		return nil, err
	}
	if found && fitsCensus(existing, images) {
		refreshThumbnails(existing, newThumbnailIndex(images.Images))
		return existing, nil
	}

	release, err := m.locks.acquire(ctx, book)
	if err != nil {
		return nil, &StorageError{Op: "lock ledger", Err: err}
	}
	defer release()
	ledger, _, err := m.reconcileLocked(ctx, book)
	return ledger, err
}

// reconcileLocked is Reconcile for callers already holding the book lock. It
// also returns the version of the ledger as stored.
func (m *Manager) reconcileLocked(ctx context.Context, book string) (models.Ledger, string, error) {
	for attempt := 1; ; attempt++ {
		images, err := m.census.Take(ctx, book)
		if err != nil {
			return nil, "", err
		}
		existing, version, found, err := m.load(ctx, book)
		if err != nil {
			return nil, "", err
		}
		idx := newThumbnailIndex(images.Images)
		if found && fitsCensus(existing, images) {
			refreshThumbnails(existing, idx)
			return existing, version, nil
		}

		ledger := rebuildLedger(existing, images.Count(), idx)
		newVersion, err := store.SaveJSON(ctx, m.blobs, m.LedgerPath(book), ledger, store.IfVersion(version))
		if errors.Is(err, store.ErrPreconditionFailed) {
			if attempt >= m.maxAttempts {
				return nil, "", &StorageError{Op: "write ledger", Err: errContention}
			}
			m.log.Warn("ledger changed during reconcile, retrying", "book", book, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, "", &StorageError{Op: "write ledger", Err: err}
		}
		if found {
			m.log.Info("ledger resized", "book", book, "from", len(existing), "to", len(ledger))
		} else {
			m.log.Info("ledger created", "book", book, "pages", len(ledger))
		}
		return ledger, newVersion, nil
	}
}

func fitsCensus(l models.Ledger, images ImageSet) bool {
	return len(l) == images.Count() && l.Dense()
}

// rebuildLedger builds a dense ledger of n pages, carrying over the state of
// every page number that exists in old.
func rebuildLedger(old models.Ledger, n int, idx thumbnailIndex) models.Ledger {
	byNumber := make(map[int]models.PageRecord, len(old))
	for _, p := range old {
		if _, dup := byNumber[p.Number]; !dup && p.Number >= 1 {
			byNumber[p.Number] = p
		}
	}
	out := make(models.Ledger, n)
	for i := 1; i <= n; i++ {
		rec, ok := byNumber[i]
		if ok {
			rec = rec.Clone()
		} else {
			rec = models.NewAvailablePage(i)
		}
		rec.Thumbnail = idx.resolve(i)
		out[i-1] = rec
	}
	return out
}

func refreshThumbnails(l models.Ledger, idx thumbnailIndex) {
	for i := range l {
		l[i].Thumbnail = idx.resolve(l[i].Number)
	}
}
