package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-service/internal/model"
	"catalog-service/prometheus"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// documents implements the id-keyed operations shared by every collection.
type documents[T any] struct {
	coll    *mongo.Collection
	name    string
	metrics *prometheus.Metrics
}

func newDocuments[T any](coll *mongo.Collection, metrics *prometheus.Metrics) documents[T] {
	return documents[T]{coll: coll, name: coll.Name(), metrics: metrics}
}

func (d documents[T]) track(op string) func() {
	start := time.Now()
	done := d.metrics.TrackDBOperation(d.name, op)
	return func() { done(start) }
}

func (d documents[T]) insert(ctx context.Context, doc any) error {
	defer d.track("insert")()
	if _, err := d.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert into %s: %w", d.name, err)
	}
	return nil
}

func (d documents[T]) findOne(ctx context.Context, op string, filter bson.M) (*T, error) {
	defer d.track(op)()
	var out T
	err := d.coll.FindOne(ctx, filter).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", d.name, err)
	}
	return &out, nil
}

func (d documents[T]) getByID(ctx context.Context, id string) (*T, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return d.findOne(ctx, "find_by_id", bson.M{model.FieldID: oid})
}

// list returns a page in creation order together with the collection size.
func (d documents[T]) list(ctx context.Context, skip, limit int64) ([]T, int64, error) {
	defer d.track("list")()

	total, err := d.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", d.name, err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: model.FieldID, Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := d.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", d.name, err)
	}

	items := make([]T, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", d.name, err)
	}
	return items, total, nil
}

// update applies patch only if the stored document still has version. It
// reports false when nothing matched, either because the document is gone or
// because another write got there first.
func (d documents[T]) update(ctx context.Context, id string, version int64, patch model.Patch) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	defer d.track("update")()

	doc := bson.M{"$inc": bson.M{model.FieldVersion: 1}}
	if len(patch.Set) > 0 {
		doc["$set"] = bson.M(patch.Set)
	}
	if len(patch.Unset) > 0 {
		unset := bson.M{}
		for _, field := range patch.Unset {
			unset[field] = ""
		}
		doc["$unset"] = unset
	}

	res, err := d.coll.UpdateOne(ctx, bson.M{model.FieldID: oid, model.FieldVersion: version}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, ErrDuplicateEmail
		}
		return false, fmt.Errorf("update %s: %w", d.name, err)
	}
	return res.MatchedCount > 0, nil
}

func (d documents[T]) delete(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	defer d.track("delete")()

	res, err := d.coll.DeleteOne(ctx, bson.M{model.FieldID: oid})
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", d.name, err)
	}
	return res.DeletedCount > 0, nil
}
