package cache

import (
	"time"

	"github.com/google/uuid"
)

// Logical cache keys and their lifetimes. Channel rows get a short fresh
// window on read-through but a long one right after a write, when the row is
// known-good.
const (
	TTLUser         = 30 * time.Minute
	TTLChannelFresh = time.Minute
	TTLChannelWrite = 30 * time.Minute
	TTLGuildLists   = 30 * time.Minute
	TTLRole         = time.Minute
	TTLMemberRoles  = 5 * time.Minute
	TTLEmailToken   = 24 * time.Hour

	// A second verification / reset mail inside this window is refused.
	ResendCooldown = time.Hour
)

func KeyUser(id uuid.UUID) string          { return "user:" + id.String() }
func KeyChannel(id uuid.UUID) string       { return "channel:" + id.String() }
func KeyGuildChannels(id uuid.UUID) string { return "guild:" + id.String() + ":channels" }
func KeyGuildRoles(id uuid.UUID) string    { return "guild:" + id.String() + ":roles" }
func KeyRole(id uuid.UUID) string          { return "role:" + id.String() }
func KeyMemberRoles(id uuid.UUID) string   { return "member:" + id.String() + ":roles" }
func KeyEmailVerify(id uuid.UUID) string   { return "user:" + id.String() + ":email_verify" }
func KeyPasswordReset(id uuid.UUID) string { return "user:" + id.String() + ":password_reset" }
func KeyResetToken(token string) string    { return "token:" + token }
