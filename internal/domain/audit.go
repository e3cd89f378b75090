package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction enumerates the privileged guild changes worth recording.
type AuditAction int32

const (
	AuditMemberBan AuditAction = iota + 1
	AuditMemberKick
	AuditMemberJoin
	AuditMemberLeave
	AuditChannelCreate
	AuditChannelDelete
	AuditChannelModify
	AuditRoleCreate
	AuditRoleDelete
	AuditRoleModify
	AuditGuildModify
	AuditInviteCreate
	AuditInviteDelete
)

// AuditLog rows are append-only; nothing updates or deletes them.
type AuditLog struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"uuid"`
	GuildID     GuildID     `gorm:"type:uuid;index;not null" json:"guild_uuid"`
	ActionID    AuditAction `gorm:"not null" json:"action_id"`
	ActorID     MemberID    `gorm:"type:uuid;not null" json:"actor_uuid"`
	TargetID    *uuid.UUID  `gorm:"type:uuid" json:"target_uuid,omitempty"`
	Message     *string     `gorm:"type:text" json:"message,omitempty"`
	ChangedFrom *string     `gorm:"type:text" json:"changed_from,omitempty"`
	ChangedTo   *string     `gorm:"type:text" json:"changed_to,omitempty"`
	CreatedAt   time.Time   `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
