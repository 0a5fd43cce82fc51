package models

import "time"

// ReleaseEvent records that a claimant gave a page back. The point economy
// consumes these; ID is unique per release so redelivery is harmless.
type ReleaseEvent struct {
	ID             string     `bson:"_id" json:"id"`
	Book           string     `bson:"book" json:"book"`
	Page           int        `bson:"page" json:"page"`
	UserID         string     `bson:"userId" json:"userId"`
	PreviousStatus PageStatus `bson:"previousStatus" json:"previousStatus"`
	At             time.Time  `bson:"at" json:"at"`
}
