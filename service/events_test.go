package service_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/kevinaaaquil/transcribe/models"
	"github.com/kevinaaaquil/transcribe/service"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []*models.ReleaseEvent
}

func (r *recorder) InsertReleaseEvent(_ context.Context, ev *models.ReleaseEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func TestLogObserver(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	obs := service.LogObserver{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	err := obs.PageReleased(context.Background(), models.ReleaseEvent{
		ID: "ev1", Book: "b", Page: 4, UserID: "u1", PreviousStatus: models.StatusCompleted,
	})
	require.NoError(t, err)
	out := buf.String()
	require.Contains(t, out, "page released")
	require.Contains(t, out, "eventId=ev1")
	require.Contains(t, out, "page=4")
	require.Contains(t, out, "previousStatus=completed")
}

func TestRecordingObserver(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	obs := service.RecordingObserver{Recorder: rec}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, obs.PageReleased(context.Background(), models.ReleaseEvent{ID: "ev1", Book: "b", Page: 1, At: at}))
	require.Len(t, rec.events, 1)
	require.Equal(t, "ev1", rec.events[0].ID)
	require.Equal(t, at, rec.events[0].At)
}
