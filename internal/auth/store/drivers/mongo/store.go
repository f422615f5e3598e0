// Package mongo stores accounts, OTPs and the token blacklist in MongoDB.
// Each account variant lives in its own collection. Every conditional state
// change is a single-document update, so no multi-document transactions (and
// therefore no replica set) are required.
package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	collectionOTPs      = "otps"
	collectionBlacklist = "token_blacklist"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to uri and uses the named database.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Accounts(v domain.Variant) store.Accounts {
	return &accountsRepo{coll: s.db.Collection(v.Collection()), variant: v}
}

func (s *Store) OTPs() store.OTPs           { return &otpsRepo{coll: s.db.Collection(collectionOTPs)} }
func (s *Store) Blacklist() store.Blacklist { return &blacklistRepo{coll: s.db.Collection(collectionBlacklist)} }

// ApplyMigrations creates the indexes the repositories depend on. Index
// creation is idempotent so this runs on every start.
func (s *Store) ApplyMigrations() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, v := range domain.Variants {
		_, err := s.db.Collection(v.Collection()).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "countryCode", Value: 1}, {Key: "phoneNumber", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("identity_unique"),
		})
		if err != nil {
			return err
		}
	}

	_, err := s.db.Collection(collectionOTPs).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "variant", Value: 1},
				{Key: "countryCode", Value: 1},
				{Key: "phoneNumber", Value: 1},
				{Key: "purpose", Value: 1},
				{Key: "isUsed", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("otp_lookup"),
		},
		{
			// Mongo removes expired OTPs on its own; housekeeping only
			// covers the gap until the TTL monitor runs.
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("otp_ttl"),
		},
	})
	if err != nil {
		return err
	}

	_, err = s.db.Collection(collectionBlacklist).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("blacklist_ttl"),
	})
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func mapDuplicate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// matched maps an UpdateResult with no matched document to store.ErrNotFound.
func matched(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return mapDuplicate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
