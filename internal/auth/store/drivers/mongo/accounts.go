package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type accountsRepo struct {
	coll    *mongo.Collection
	variant domain.Variant
}

type mediaDoc struct {
	Key          string    `bson:"key"`
	URL          string    `bson:"url"`
	OriginalName string    `bson:"originalName"`
	MimeType     string    `bson:"mimeType"`
	Size         int64     `bson:"size"`
	Width        int       `bson:"width"`
	Height       int       `bson:"height"`
	UploadedAt   time.Time `bson:"uploadedAt"`
}

type accountDoc struct {
	ID           string     `bson:"_id"`
	CountryCode  string     `bson:"countryCode"`
	PhoneNumber  string     `bson:"phoneNumber"`
	Name         string     `bson:"name"`
	Role         string     `bson:"role"`
	IsActive     bool       `bson:"isActive"`
	IsVerified   bool       `bson:"isVerified"`
	LastLogin    *time.Time `bson:"lastLogin,omitempty"`
	RefreshToken string     `bson:"refreshToken,omitempty"`
	Media        *mediaDoc  `bson:"media,omitempty"`
	CreatedAt    time.Time  `bson:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt"`
}

func toMediaDoc(m *domain.Media) *mediaDoc {
	if m == nil {
		return nil
	}
	return &mediaDoc{
		Key:          m.Key,
		URL:          m.URL,
		OriginalName: m.OriginalName,
		MimeType:     m.MimeType,
		Size:         m.Size,
		Width:        m.Width,
		Height:       m.Height,
		UploadedAt:   m.UploadedAt,
	}
}

func (r *accountsRepo) mapAccount(d accountDoc) domain.Account {
	a := domain.Account{
		ID:           d.ID,
		Variant:      r.variant,
		Identity:     domain.Identity{CountryCode: d.CountryCode, PhoneNumber: d.PhoneNumber},
		DisplayName:  d.Name,
		Role:         domain.Role(d.Role),
		IsActive:     d.IsActive,
		IsVerified:   d.IsVerified,
		LastLogin:    d.LastLogin,
		RefreshToken: d.RefreshToken,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.Media != nil {
		a.Media = &domain.Media{
			Key:          d.Media.Key,
			URL:          d.Media.URL,
			OriginalName: d.Media.OriginalName,
			MimeType:     d.Media.MimeType,
			Size:         d.Media.Size,
			Width:        d.Media.Width,
			Height:       d.Media.Height,
			UploadedAt:   d.Media.UploadedAt,
		}
	}
	return a
}

func (r *accountsRepo) findOne(ctx context.Context, filter bson.D) (domain.Account, error) {
	var d accountDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return r.mapAccount(d), nil
}

func (r *accountsRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *accountsRepo) GetByIdentity(ctx context.Context, identity domain.Identity) (domain.Account, error) {
	return r.findOne(ctx, bson.D{
		{Key: "countryCode", Value: identity.CountryCode},
		{Key: "phoneNumber", Value: identity.PhoneNumber},
	})
}

func (r *accountsRepo) Create(ctx context.Context, a domain.Account) error {
	_, err := r.coll.InsertOne(ctx, accountDoc{
		ID:           a.ID,
		CountryCode:  a.Identity.CountryCode,
		PhoneNumber:  a.Identity.PhoneNumber,
		Name:         a.DisplayName,
		Role:         string(a.Role),
		IsActive:     a.IsActive,
		IsVerified:   a.IsVerified,
		LastLogin:    a.LastLogin,
		RefreshToken: a.RefreshToken,
		Media:        toMediaDoc(a.Media),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	})
	return mapDuplicate(err)
}

func (r *accountsRepo) set(ctx context.Context, filter bson.D, fields bson.D) error {
	return matched(r.coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: fields}}))
}

func byID(id string) bson.D { return bson.D{{Key: "_id", Value: id}} }

func (r *accountsRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.set(ctx, byID(id), bson.D{{Key: "lastLogin", Value: at}, {Key: "updatedAt", Value: at}})
}

func (r *accountsRepo) SetRefreshToken(ctx context.Context, id, fingerprint string, at time.Time) error {
	return r.set(ctx, byID(id), bson.D{{Key: "refreshToken", Value: fingerprint}, {Key: "updatedAt", Value: at}})
}

func (r *accountsRepo) RotateRefreshToken(ctx context.Context, id, current, next string, at time.Time) error {
	filter := bson.D{{Key: "_id", Value: id}, {Key: "refreshToken", Value: current}}
	return r.set(ctx, filter, bson.D{{Key: "refreshToken", Value: next}, {Key: "updatedAt", Value: at}})
}

func (r *accountsRepo) ClearRefreshToken(ctx context.Context, id string, at time.Time) error {
	return matched(r.coll.UpdateOne(ctx, byID(id), bson.D{
		{Key: "$unset", Value: bson.D{{Key: "refreshToken", Value: ""}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: at}}},
	}))
}

func (r *accountsRepo) UpdateIdentity(ctx context.Context, id string, identity domain.Identity, at time.Time) error {
	return r.set(ctx, byID(id), bson.D{
		{Key: "countryCode", Value: identity.CountryCode},
		{Key: "phoneNumber", Value: identity.PhoneNumber},
		{Key: "updatedAt", Value: at},
	})
}

func (r *accountsRepo) SetActive(ctx context.Context, id string, active bool, at time.Time) (domain.Account, error) {
	var d accountDoc
	err := r.coll.FindOneAndUpdate(ctx, byID(id),
		bson.D{{Key: "$set", Value: bson.D{{Key: "isActive", Value: active}, {Key: "updatedAt", Value: at}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return r.mapAccount(d), nil
}

func (r *accountsRepo) SetMedia(ctx context.Context, id string, m *domain.Media, at time.Time) error {
	if m == nil {
		return matched(r.coll.UpdateOne(ctx, byID(id), bson.D{
			{Key: "$unset", Value: bson.D{{Key: "media", Value: ""}}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: at}}},
		}))
	}
	return r.set(ctx, byID(id), bson.D{{Key: "media", Value: toMediaDoc(m)}, {Key: "updatedAt", Value: at}})
}
