package domain

import "github.com/google/uuid"

// Role carries a guild-scoped permission grant. Roles of one guild form a
// singly-linked chain via IsAbove: each row points at the role immediately
// beneath it, the bottom-most row points nowhere.
type Role struct {
	ID          RoleID     `gorm:"type:uuid;primaryKey" json:"uuid"`
	GuildID     GuildID    `gorm:"type:uuid;index;not null" json:"guild_uuid"`
	Name        string     `gorm:"size:50;not null" json:"name"`
	Color       int32      `gorm:"not null;default:0" json:"color"`
	Permissions Permission `gorm:"not null;default:0" json:"permissions"`
	IsAbove     *uuid.UUID `gorm:"type:uuid" json:"is_above,omitempty"`
}

func (Role) TableName() string { return "roles" }

type RoleMember struct {
	RoleID   RoleID   `gorm:"type:uuid;primaryKey"`
	MemberID MemberID `gorm:"type:uuid;primaryKey"`
}

func (RoleMember) TableName() string { return "role_members" }
