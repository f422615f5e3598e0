package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type blacklistRepo struct {
	coll *mongo.Collection
}

func (r *blacklistRepo) Add(ctx context.Context, t domain.BlacklistedToken) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: t.Fingerprint}},
		bson.D{{Key: "$setOnInsert", Value: bson.D{
			{Key: "accountId", Value: t.AccountID},
			{Key: "expiresAt", Value: t.ExpiresAt},
			{Key: "createdAt", Value: t.CreatedAt},
		}}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *blacklistRepo) Contains(ctx context.Context, fingerprint string, now time.Time) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{
		{Key: "_id", Value: fingerprint},
		{Key: "expiresAt", Value: bson.D{{Key: "$gt", Value: now}}},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *blacklistRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{{Key: "expiresAt", Value: bson.D{{Key: "$lte", Value: before}}}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
