// Package mongostore implements billing.Store on a MongoDB collection.
//
// Each account is one document keyed by user ID, with its orders embedded.
// Writes are guarded by the document's version field: an update matches on
// {_id, version} and increments it, so a stale copy never overwrites newer state.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

// DefaultCollection is used when New is given no collection name.
const DefaultCollection = "billing_accounts"

type Store struct {
	coll *mongo.Collection
}

var _ billing.Store = (*Store)(nil)

type Option func(*options)

type options struct {
	collection string
}

// WithCollection overrides the collection name.
func WithCollection(name string) Option {
	return func(o *options) {
		if name != "" {
			o.collection = name
		}
	}
}

func New(db *mongo.Database, opts ...Option) *Store {
	o := options{collection: DefaultCollection}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{coll: db.Collection(o.collection)}
}

// EnsureIndexes creates the indexes the finders rely on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orders.order_id", Value: 1}},
			Options: mongoopts.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"orders.order_id": bson.M{"$exists": true}}).
				SetName("orders_order_id"),
		},
		{
			Keys:    bson.D{{Key: "subscription.expiry", Value: 1}},
			Options: mongoopts.Index().SetName("subscription_expiry"),
		},
		{
			Keys:    bson.D{{Key: "orders.status", Value: 1}, {Key: "orders.created_at", Value: 1}},
			Options: mongoopts.Index().SetName("orders_status_created"),
		},
	})
	return err
}

func (s *Store) FindByID(ctx context.Context, userID string) (*billing.Account, error) {
	return s.findOne(ctx, bson.M{"_id": userID}, billing.ErrAccountNotFound)
}

func (s *Store) FindByOrderID(ctx context.Context, orderID string) (*billing.Account, error) {
	return s.findOne(ctx, bson.M{"orders.order_id": orderID}, billing.ErrOrderNotFound)
}

func (s *Store) FindByExpiryRange(ctx context.Context, start, end time.Time) ([]*billing.Account, error) {
	return s.find(ctx, bson.M{
		"subscription.expiry": bson.M{"$gte": start, "$lt": end},
	})
}

func (s *Store) FindWithPendingOrders(ctx context.Context, createdBefore time.Time) ([]*billing.Account, error) {
	// $elemMatch keeps both conditions on the same order.
	return s.find(ctx, bson.M{
		"orders": bson.M{"$elemMatch": bson.M{
			"status":     billing.OrderPending,
			"created_at": bson.M{"$lt": createdBefore},
		}},
	})
}

func (s *Store) Save(ctx context.Context, acc *billing.Account) error {
	doc := *acc
	doc.Version = acc.Version + 1
	if doc.Orders == nil {
		doc.Orders = []billing.PaymentOrder{}
	}

	if acc.Version == 0 {
		if _, err := s.coll.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return billing.ErrVersionConflict
			}
			return err
		}
		acc.Version = doc.Version
		return nil
	}

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": acc.ID, "version": acc.Version}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return billing.ErrVersionConflict
	}
	acc.Version = doc.Version
	return nil
}

func (s *Store) ResetUsage(ctx context.Context, at time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx, bson.M{}, bson.M{
		"$unset": bson.M{"subscription.usage": ""},
		"$set":   bson.M{"subscription.usage_reset_at": at},
		"$inc":   bson.M{"version": 1},
	})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M, notFound error) (*billing.Account, error) {
	var acc billing.Account
	if err := s.coll.FindOne(ctx, filter).Decode(&acc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound
		}
		return nil, err
	}
	return &acc, nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]*billing.Account, error) {
	cur, err := s.coll.Find(ctx, filter, mongoopts.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []*billing.Account
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
