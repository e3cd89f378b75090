package domain

import "time"

type Guild struct {
	ID          GuildID   `gorm:"type:uuid;primaryKey" json:"uuid"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	Icon        *string   `gorm:"type:text" json:"icon,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"-"`
	UpdatedAt   time.Time `gorm:"not null" json:"-"`

	MemberCount int64 `gorm:"-" json:"member_count,omitempty"`
}

func (Guild) TableName() string { return "guilds" }

// Member is a user's presence inside one guild. There is no owner pointer on
// the guild row; exactly one member carries is_owner.
type Member struct {
	ID       MemberID `gorm:"type:uuid;primaryKey" json:"uuid"`
	GuildID  GuildID  `gorm:"type:uuid;uniqueIndex:ux_members_guild_user;not null" json:"guild_uuid"`
	UserID   UserID   `gorm:"type:uuid;uniqueIndex:ux_members_guild_user;not null" json:"user_uuid"`
	Nickname *string  `gorm:"size:64" json:"nickname,omitempty"`
	IsOwner  bool     `gorm:"not null;default:false" json:"is_owner"`

	User *User `gorm:"-" json:"user,omitempty"`
}

func (Member) TableName() string { return "members" }

type Invite struct {
	ID        string    `gorm:"primaryKey;size:32" json:"id"`
	GuildID   GuildID   `gorm:"type:uuid;index;not null" json:"guild_uuid"`
	CreatorID MemberID  `gorm:"type:uuid;not null" json:"creator_uuid"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
}

func (Invite) TableName() string { return "invites" }

type GuildBan struct {
	GuildID  GuildID   `gorm:"type:uuid;primaryKey" json:"guild_uuid"`
	UserID   UserID    `gorm:"type:uuid;primaryKey" json:"user_uuid"`
	Reason   *string   `gorm:"type:text" json:"reason,omitempty"`
	BannedAt time.Time `gorm:"not null" json:"banned_at"`
}

func (GuildBan) TableName() string { return "guild_bans" }
