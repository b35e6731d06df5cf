package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LeagueMember records a user's membership in a league
type LeagueMember struct {
	UserID   primitive.ObjectID `bson:"userId" json:"userId"`
	JoinedAt time.Time          `bson:"joinedAt" json:"joinedAt"`
}

// League is a private or public group that plays games together
type League struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name       string             `bson:"name" json:"name"`
	Code       string             `bson:"code" json:"code"` // invite code
	Visibility string             `bson:"visibility" json:"visibility"` // "public" or "private"
	CreatorID  primitive.ObjectID `bson:"creatorId" json:"creatorId"`
	Members    []LeagueMember     `bson:"members" json:"members"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsMember reports whether the user already belongs to the league.
func (l *League) IsMember(userID primitive.ObjectID) bool {
	for _, m := range l.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
