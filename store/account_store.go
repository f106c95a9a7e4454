package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"go-pharmacy/models"
)

// AccountStore persists accounts of both kinds. Lookup methods that span
// kinds check end users before pharmacies. A nil account with a nil
// error means "no match".
type AccountStore interface {
	Exists(ctx context.Context, kind models.AccountKind, email, licenseNumber string) (bool, error)
	Insert(ctx context.Context, acct *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByVerificationToken(ctx context.Context, token string, now time.Time) (*models.Account, error)
	FindByResetToken(ctx context.Context, token string, now time.Time) (*models.Account, error)
	MarkVerified(ctx context.Context, acct *models.Account) error
	SetResetToken(ctx context.Context, acct *models.Account, token string, expiry time.Time) error
	UpdatePassword(ctx context.Context, acct *models.Account, passwordHash string) error
}

// accountKinds fixes the cross-kind lookup order.
var accountKinds = []models.AccountKind{models.KindUser, models.KindPharmacy}

// MongoAccountStore keeps each account kind in its own collection, which
// scopes the email uniqueness invariant per kind.
type MongoAccountStore struct {
	collections map[models.AccountKind]*mongo.Collection
}

func NewAccountStore(db *mongo.Database) *MongoAccountStore {
	return &MongoAccountStore{
		collections: map[models.AccountKind]*mongo.Collection{
			models.KindUser:     db.Collection("users"),
			models.KindPharmacy: db.Collection("pharmacies"),
		},
	}
}

func (s *MongoAccountStore) collection(kind models.AccountKind) (*mongo.Collection, error) {
	coll, ok := s.collections[kind]
	if !ok {
		return nil, errors.New("unknown account kind: " + string(kind))
	}
	return coll, nil
}

// Exists reports whether an account of the given kind already uses the
// email or, for pharmacies, the license number.
func (s *MongoAccountStore) Exists(ctx context.Context, kind models.AccountKind, email, licenseNumber string) (bool, error) {
	coll, err := s.collection(kind)
	if err != nil {
		return false, err
	}
	filter := bson.M{"email": email}
	if licenseNumber != "" {
		filter = bson.M{"$or": bson.A{
			bson.M{"email": email},
			bson.M{"license_number": licenseNumber},
		}}
	}
	count, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MongoAccountStore) Insert(ctx context.Context, acct *models.Account) error {
	coll, err := s.collection(acct.Kind)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	res, err := coll.InsertOne(ctx, acct)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		acct.ID = oid
	}
	return nil
}

func (s *MongoAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findAcrossKinds(ctx, bson.M{"email": email})
}

func (s *MongoAccountStore) FindByVerificationToken(ctx context.Context, token string, now time.Time) (*models.Account, error) {
	return s.findAcrossKinds(ctx, bson.M{
		"verification_token":        token,
		"verification_token_expiry": bson.M{"$gt": now},
	})
}

func (s *MongoAccountStore) FindByResetToken(ctx context.Context, token string, now time.Time) (*models.Account, error) {
	return s.findAcrossKinds(ctx, bson.M{
		"reset_password_token":  token,
		"reset_password_expiry": bson.M{"$gt": now},
	})
}

func (s *MongoAccountStore) findAcrossKinds(ctx context.Context, filter bson.M) (*models.Account, error) {
	for _, kind := range accountKinds {
		coll := s.collections[kind]
		var acct models.Account
		err := coll.FindOne(ctx, filter).Decode(&acct)
		if err == nil {
			acct.Kind = kind
			return &acct, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
	}
	return nil, nil
}

// MarkVerified flips the verification flag and clears the consumed token
// so it cannot be replayed.
func (s *MongoAccountStore) MarkVerified(ctx context.Context, acct *models.Account) error {
	coll, err := s.collection(acct.Kind)
	if err != nil {
		return err
	}
	_, err = coll.UpdateOne(ctx, bson.M{"_id": acct.ID}, bson.M{
		"$set": bson.M{
			"is_verified": true,
			"updated_at":  time.Now().UTC(),
		},
		"$unset": bson.M{
			"verification_token":        "",
			"verification_token_expiry": "",
		},
	})
	return err
}

func (s *MongoAccountStore) SetResetToken(ctx context.Context, acct *models.Account, token string, expiry time.Time) error {
	coll, err := s.collection(acct.Kind)
	if err != nil {
		return err
	}
	_, err = coll.UpdateOne(ctx, bson.M{"_id": acct.ID}, bson.M{
		"$set": bson.M{
			"reset_password_token":  token,
			"reset_password_expiry": expiry,
			"updated_at":            time.Now().UTC(),
		},
	})
	return err
}

// UpdatePassword replaces the password hash and clears the consumed
// reset token.
func (s *MongoAccountStore) UpdatePassword(ctx context.Context, acct *models.Account, passwordHash string) error {
	coll, err := s.collection(acct.Kind)
	if err != nil {
		return err
	}
	_, err = coll.UpdateOne(ctx, bson.M{"_id": acct.ID}, bson.M{
		"$set": bson.M{
			"password":   passwordHash,
			"updated_at": time.Now().UTC(),
		},
		"$unset": bson.M{
			"reset_password_token":  "",
			"reset_password_expiry": "",
		},
	})
	return err
}
