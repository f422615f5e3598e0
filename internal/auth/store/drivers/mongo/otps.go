package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type otpsRepo struct {
	coll *mongo.Collection
}

type otpDoc struct {
	ID          string    `bson:"_id"`
	Variant     string    `bson:"variant"`
	CountryCode string    `bson:"countryCode"`
	PhoneNumber string    `bson:"phoneNumber"`
	OTP         string    `bson:"otp"`
	Purpose     string    `bson:"purpose"`
	Attempts    int       `bson:"attempts"`
	IsUsed      bool      `bson:"isUsed"`
	CreatedAt   time.Time `bson:"createdAt"`
	ExpiresAt   time.Time `bson:"expiresAt"`
}

func mapOTP(d otpDoc) domain.OTPRecord {
	return domain.OTPRecord{
		ID:        d.ID,
		Variant:   domain.Variant(d.Variant),
		Identity:  domain.Identity{CountryCode: d.CountryCode, PhoneNumber: d.PhoneNumber},
		Code:      d.OTP,
		Purpose:   domain.Purpose(d.Purpose),
		Attempts:  d.Attempts,
		IsUsed:    d.IsUsed,
		CreatedAt: d.CreatedAt,
		ExpiresAt: d.ExpiresAt,
	}
}

func tupleFilter(v domain.Variant, identity domain.Identity, purpose domain.Purpose) bson.D {
	return bson.D{
		{Key: "variant", Value: string(v)},
		{Key: "countryCode", Value: identity.CountryCode},
		{Key: "phoneNumber", Value: identity.PhoneNumber},
		{Key: "purpose", Value: string(purpose)},
		{Key: "isUsed", Value: false},
	}
}

func activeFilter(v domain.Variant, identity domain.Identity, purpose domain.Purpose, now time.Time) bson.D {
	return append(tupleFilter(v, identity, purpose), bson.E{Key: "expiresAt", Value: bson.D{{Key: "$gt", Value: now}}})
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// Replace invalidates before inserting. The two writes are not atomic, so
// concurrent sends for one tuple can leave an older record unused. That
// record stays unreachable because GetActive and Reissue only ever pick the
// newest, and Consume is keyed by the id GetActive returned.
func (r *otpsRepo) Replace(ctx context.Context, rec domain.OTPRecord) error {
	_, err := r.coll.UpdateMany(ctx,
		tupleFilter(rec.Variant, rec.Identity, rec.Purpose),
		bson.D{{Key: "$set", Value: bson.D{{Key: "isUsed", Value: true}}}},
	)
	if err != nil {
		return err
	}

	_, err = r.coll.InsertOne(ctx, otpDoc{
		ID:          rec.ID,
		Variant:     string(rec.Variant),
		CountryCode: rec.Identity.CountryCode,
		PhoneNumber: rec.Identity.PhoneNumber,
		OTP:         rec.Code,
		Purpose:     string(rec.Purpose),
		Attempts:    rec.Attempts,
		IsUsed:      rec.IsUsed,
		CreatedAt:   rec.CreatedAt,
		ExpiresAt:   rec.ExpiresAt,
	})
	return mapDuplicate(err)
}

func (r *otpsRepo) GetActive(
	ctx context.Context,
	v domain.Variant,
	identity domain.Identity,
	purpose domain.Purpose,
	now time.Time,
) (domain.OTPRecord, error) {
	var d otpDoc
	err := r.coll.FindOne(ctx, activeFilter(v, identity, purpose, now),
		options.FindOne().SetSort(newestFirst),
	).Decode(&d)
	if err != nil {
		return domain.OTPRecord{}, mapNotFound(err)
	}
	return mapOTP(d), nil
}

func (r *otpsRepo) Reissue(
	ctx context.Context,
	v domain.Variant,
	identity domain.Identity,
	purpose domain.Purpose,
	code string,
	now, expiresAt time.Time,
) (domain.OTPRecord, error) {
	var d otpDoc
	err := r.coll.FindOneAndUpdate(ctx,
		activeFilter(v, identity, purpose, now),
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "otp", Value: code},
			{Key: "attempts", Value: 0},
			{Key: "expiresAt", Value: expiresAt},
		}}},
		options.FindOneAndUpdate().SetSort(newestFirst).SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return domain.OTPRecord{}, mapNotFound(err)
	}
	return mapOTP(d), nil
}

// Consume uses a pipeline update so the attempt and the code comparison land
// in the same document write.
func (r *otpsRepo) Consume(ctx context.Context, id, code string, maxAttempts int, now time.Time) error {
	var d otpDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{
			{Key: "_id", Value: id},
			{Key: "isUsed", Value: false},
			{Key: "expiresAt", Value: bson.D{{Key: "$gt", Value: now}}},
			{Key: "attempts", Value: bson.D{{Key: "$lt", Value: maxAttempts}}},
		},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.D{
				{Key: "attempts", Value: bson.D{{Key: "$add", Value: bson.A{"$attempts", 1}}}},
				{Key: "isUsed", Value: bson.D{{Key: "$eq", Value: bson.A{"$otp", code}}}},
			}}},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return mapNotFound(err)
	}
	if !d.IsUsed {
		return store.ErrCodeMismatch
	}
	return nil
}

func (r *otpsRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{{Key: "expiresAt", Value: bson.D{{Key: "$lte", Value: before}}}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
