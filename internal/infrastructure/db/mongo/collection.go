package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/core/ports"
)

// Collection is a generic ports.Repository backed by one MongoDB collection.
type Collection[T any, P domain.EntityPtr[T]] struct {
	col      *mongo.Collection
	counters *Counters
	now      func() time.Time
}

func NewCollection[T any, P domain.EntityPtr[T]](db *mongo.Database, name string, counters *Counters) *Collection[T, P] {
	return &Collection[T, P]{col: db.Collection(name), counters: counters, now: time.Now}
}

// Create assigns the next id and inserts the document.
func (r *Collection[T, P]) Create(ctx context.Context, e *T) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.counters.Next(ctx, r.col.Name())
	if err != nil {
		return err
	}
	p := P(e)
	p.SetEntityID(id)
	p.Touch(r.now().UTC())

	if _, err := r.col.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert %s: %w", r.col.Name(), err)
	}
	return nil
}

func (r *Collection[T, P]) FindByID(ctx context.Context, id int64) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	e := new(T)
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", r.col.Name(), err)
	}
	return e, nil
}

// List returns one page ordered by id plus the total matching count.
func (r *Collection[T, P]) List(ctx context.Context, filter ports.ListFilter) ([]*T, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter = filter.Normalize()
	query := bson.M{}
	if filter.Scope != nil {
		query[filter.Scope.Field] = bson.M{"$in": append([]int64{}, filter.Scope.IDs...)}
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.col.Name(), err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(filter.Offset())).
		SetLimit(int64(filter.Limit))

	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.col.Name(), err)
	}
	var docs []T
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", r.col.Name(), err)
	}

	items := make([]*T, len(docs))
	for i := range docs {
		items[i] = &docs[i]
	}
	return items, total, nil
}

func (r *Collection[T, P]) Update(ctx context.Context, e *T) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	p := P(e)
	p.Touch(r.now().UTC())
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": p.EntityID()}, e)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.col.Name(), err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Collection[T, P]) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.col.Name(), err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// EnsureIndexes creates ascending indexes on the given fields.
func (r *Collection[T, P]) EnsureIndexes(ctx context.Context, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	models := make([]mongo.IndexModel, 0, len(fields))
	for _, f := range fields {
		models = append(models, mongo.IndexModel{Keys: bson.D{{Key: f, Value: 1}}})
	}
	_, err := r.col.Indexes().CreateMany(ctx, models)
	return err
}
