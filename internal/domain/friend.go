package domain

import (
	"bytes"
	"time"
)

// Friend stores an unordered pair canonically: UserID1 is always the
// byte-wise smaller uuid. At most one of {Friend, FriendRequest} exists for
// any pair.
type Friend struct {
	UserID1    UserID    `gorm:"type:uuid;primaryKey" json:"uuid1"`
	UserID2    UserID    `gorm:"type:uuid;primaryKey" json:"uuid2"`
	AcceptedAt time.Time `gorm:"not null" json:"accepted_at"`
}

func (Friend) TableName() string { return "friends" }

type FriendRequest struct {
	SenderID    UserID    `gorm:"type:uuid;primaryKey" json:"sender_uuid"`
	ReceiverID  UserID    `gorm:"type:uuid;primaryKey" json:"receiver_uuid"`
	RequestedAt time.Time `gorm:"not null" json:"requested_at"`
}

func (FriendRequest) TableName() string { return "friend_requests" }

// CanonicalPair orders two user ids byte-wise for Friend row storage.
func CanonicalPair(a, b UserID) (UserID, UserID) {
	if bytes.Compare(a[:], b[:]) < 0 {
		return a, b
	}
	return b, a
}
