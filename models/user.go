package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a transcriber as stored in the users collection. Accounts are
// created by the auth service; this backend only reads them to resolve the
// display name shown on claims.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Name      string             `bson:"name,omitempty" json:"name,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// DisplayName prefers the user's name and falls back to the email address.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
