package store

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// blobDoc is one blob in the blobs collection. version increments on every
// write and doubles as the compare-and-swap token.
type blobDoc struct {
	Path       string    `bson:"_id"`
	Data       []byte    `bson:"data,omitempty"`
	Size       int64     `bson:"size"`
	Version    int64     `bson:"version"`
	UploadedAt time.Time `bson:"uploadedAt"`
}

// Read implements BlobStore on the blobs collection.
func (db *DB) Read(ctx context.Context, path string) ([]byte, string, error) {
	var doc blobDoc
	err := db.Blobs().FindOne(ctx, bson.M{"_id": path}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, "", ErrNotExist
	}
	if err != nil {
		return nil, "", err
	}
	return doc.Data, strconv.FormatInt(doc.Version, 10), nil
}

func (db *DB) Write(ctx context.Context, path string, data []byte, cond Condition) (string, error) {
	now := time.Now().UTC()
	set := bson.M{"data": data, "size": int64(len(data)), "uploadedAt": now}

	switch {
	case cond.MustNotExist:
		doc := blobDoc{Path: path, Data: data, Size: int64(len(data)), Version: 1, UploadedAt: now}
		if _, err := db.Blobs().InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return "", ErrPreconditionFailed
			}
			return "", err
		}
		return "1", nil

	case cond.MatchVersion != "":
		v, err := strconv.ParseInt(cond.MatchVersion, 10, 64)
		if err != nil {
			return "", ErrPreconditionFailed
		}
		res, err := db.Blobs().UpdateOne(ctx,
			bson.M{"_id": path, "version": v},
			bson.M{"$set": set, "$inc": bson.M{"version": 1}},
		)
		if err != nil {
			return "", err
		}
		if res.MatchedCount == 0 {
			return "", ErrPreconditionFailed
		}
		return strconv.FormatInt(v+1, 10), nil
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(bson.M{"version": 1})
	var doc blobDoc
	err := db.Blobs().FindOneAndUpdate(ctx,
		bson.M{"_id": path},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(doc.Version, 10), nil
}

func (db *DB) List(ctx context.Context, prefix string) ([]Object, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix) + "[^/]+$"}}
	opts := options.Find().
		SetProjection(bson.M{"data": 0}).
		SetSort(bson.M{"_id": 1})
	cur, err := db.Blobs().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []blobDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Object, 0, len(docs))
	for _, d := range docs {
		out = append(out, Object{
			Path:       d.Path,
			URL:        joinURL(db.baseURL, d.Path),
			Size:       d.Size,
			UploadedAt: d.UploadedAt,
		})
	}
	return out, nil
}

var _ BlobStore = (*DB)(nil)
