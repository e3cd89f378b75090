package domain

import "github.com/google/uuid"

// Channel is a message stream within a guild. Channels chain the same way
// roles do, via IsAbove.
type Channel struct {
	ID          ChannelID  `gorm:"type:uuid;primaryKey" json:"uuid"`
	GuildID     GuildID    `gorm:"type:uuid;index;not null" json:"guild_uuid"`
	Name        string     `gorm:"size:32;not null" json:"name"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
	IsAbove     *uuid.UUID `gorm:"type:uuid" json:"is_above,omitempty"`
}

func (Channel) TableName() string { return "channels" }

// ChannelPermission replaces (not merges with) the guild-level mask for one
// role on one channel.
type ChannelPermission struct {
	ChannelID   ChannelID  `gorm:"type:uuid;primaryKey" json:"channel_uuid"`
	RoleID      RoleID     `gorm:"type:uuid;primaryKey" json:"role_uuid"`
	Permissions Permission `gorm:"not null;default:0" json:"permissions"`
}

func (ChannelPermission) TableName() string { return "channel_permissions" }
