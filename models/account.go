package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountKind distinguishes the two credentialed entity variants. Each
// kind lives in its own collection; the kind itself is not persisted.
type AccountKind string

const (
	KindUser     AccountKind = "user"
	KindPharmacy AccountKind = "pharmacy"
)

// Account represents a credentialed entity: an end user or a pharmacy.
// Both variants share the full auth lifecycle (verification, login,
// password reset); pharmacies additionally carry a unique license number.
type Account struct {
	ID                      primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Kind                    AccountKind        `bson:"-" json:"type,omitempty"`
	Name                    string             `bson:"name" json:"name"`
	Email                   string             `bson:"email" json:"email"`
	Password                string             `bson:"password" json:"-"`
	Address                 string             `bson:"address" json:"address"`
	LicenseNumber           string             `bson:"license_number,omitempty" json:"licenseNumber,omitempty"`
	IsVerified              bool               `bson:"is_verified" json:"is_verified"`
	VerificationToken       string             `bson:"verification_token,omitempty" json:"-"`
	VerificationTokenExpiry *time.Time         `bson:"verification_token_expiry,omitempty" json:"-"`
	ResetPasswordToken      string             `bson:"reset_password_token,omitempty" json:"-"`
	ResetPasswordExpiry     *time.Time         `bson:"reset_password_expiry,omitempty" json:"-"`
	CreatedAt               time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt               time.Time          `bson:"updated_at" json:"updated_at"`
}

// AccountSummary is the public-safe view returned on login.
type AccountSummary struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Type  AccountKind        `json:"type"`
}

// Summary strips the account down to the fields safe to hand to clients.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{ID: a.ID, Name: a.Name, Email: a.Email, Type: a.Kind}
}

// VerificationTokenValid reports whether token matches the pending
// verification token and its expiry has not passed.
func (a *Account) VerificationTokenValid(token string, now time.Time) bool {
	if a.VerificationToken == "" || a.VerificationToken != token {
		return false
	}
	return a.VerificationTokenExpiry != nil && now.Before(*a.VerificationTokenExpiry)
}

// ResetTokenValid reports whether token matches the pending reset token
// and its expiry has not passed.
func (a *Account) ResetTokenValid(token string, now time.Time) bool {
	if a.ResetPasswordToken == "" || a.ResetPasswordToken != token {
		return false
	}
	return a.ResetPasswordExpiry != nil && now.Before(*a.ResetPasswordExpiry)
}
