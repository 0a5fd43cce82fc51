package service

import (
	"context"
	"log/slog"

	"github.com/kevinaaaquil/transcribe/models"
)

// ReleaseObserver is told about every persisted release. Observers are
// best-effort: their errors are logged and never undo the release.
type ReleaseObserver interface {
	PageReleased(ctx context.Context, ev models.ReleaseEvent) error
}

// ReleaseObserverFunc adapts a function to ReleaseObserver.
type ReleaseObserverFunc func(ctx context.Context, ev models.ReleaseEvent) error

func (f ReleaseObserverFunc) PageReleased(ctx context.Context, ev models.ReleaseEvent) error {
	return f(ctx, ev)
}

// LogObserver writes releases to the log.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) PageReleased(ctx context.Context, ev models.ReleaseEvent) error {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "page released",
		"eventId", ev.ID, "book", ev.Book, "page", ev.Page,
		"userId", ev.UserID, "previousStatus", ev.PreviousStatus)
	return nil
}

// ReleaseRecorder persists release events; store.DB implements it.
type ReleaseRecorder interface {
	InsertReleaseEvent(ctx context.Context, ev *models.ReleaseEvent) error
}

// RecordingObserver hands releases to a ReleaseRecorder so the point
// economy can charge for them.
type RecordingObserver struct {
	Recorder ReleaseRecorder
}

func (o RecordingObserver) PageReleased(ctx context.Context, ev models.ReleaseEvent) error {
	return o.Recorder.InsertReleaseEvent(ctx, &ev)
}
