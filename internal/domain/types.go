package domain

import "github.com/google/uuid"

type UserID = uuid.UUID
type GuildID = uuid.UUID
type MemberID = uuid.UUID
type RoleID = uuid.UUID
type ChannelID = uuid.UUID
type MessageID = uuid.UUID

// NewID allocates a time-ordered (v7) UUID. Creation order and identity are
// the same thing for users, guilds, members, channels, roles and messages,
// so pagination sorts by id instead of timestamps.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
