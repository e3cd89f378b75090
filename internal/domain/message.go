package domain

import "github.com/google/uuid"

const MaxMessageLength = 4000

// Message ids are v7 UUIDs, so the id doubles as the sort key for history
// pagination. The author is immutable once written.
type Message struct {
	ID        MessageID  `gorm:"type:uuid;primaryKey" json:"uuid"`
	ChannelID ChannelID  `gorm:"type:uuid;index;not null" json:"channel_uuid"`
	AuthorID  UserID     `gorm:"type:uuid;index;not null" json:"author_uuid"`
	Text      string     `gorm:"type:text;not null" json:"message"`
	ReplyTo   *uuid.UUID `gorm:"type:uuid" json:"reply_to,omitempty"`

	User *User `gorm:"-" json:"user,omitempty"`
}

func (Message) TableName() string { return "messages" }
