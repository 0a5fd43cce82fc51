package store

import (
	"context"

	"github.com/kevinaaaquil/transcribe/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// InsertReleaseEvent records a page release. Re-inserting the same event id
// is a no-op.
func (db *DB) InsertReleaseEvent(ctx context.Context, ev *models.ReleaseEvent) error {
	_, err := db.ReleaseEvents().InsertOne(ctx, ev)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}
