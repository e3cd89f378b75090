package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"concord/internal/cache"
	"concord/internal/domain"
	"concord/internal/store"

	"github.com/google/uuid"
)

// GuildService owns guild lifecycle and everything scoped under a guild:
// channels, roles, invites, bans, the audit log.
type GuildService struct {
	store *store.Store
	cache cache.Cache
	perms *PermissionService
	now   func() time.Time
}

func NewGuildService(st *store.Store, c cache.Cache, perms *PermissionService) *GuildService {
	return &GuildService{
		store: st,
		cache: c,
		perms: perms,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (g *GuildService) audit(ctx context.Context, entry domain.AuditLog) {
	entry.ID = domain.NewID()
	entry.CreatedAt = g.now()
	_ = g.store.Audit().Create(ctx, &entry)
}

// CreateGuild inserts the guild and its founding owner member in one
// transaction.
func (g *GuildService) CreateGuild(ctx context.Context, userID domain.UserID, name string, description *string) (*domain.Guild, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, fmt.Errorf("%w: invalid guild name", domain.ErrBadRequest)
	}
	now := g.now()
	guild := &domain.Guild{
		ID:          domain.NewID(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := g.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Guilds().Create(ctx, guild); err != nil {
			return err
		}
		founder := &domain.Member{
			ID:      domain.NewID(),
			GuildID: guild.ID,
			UserID:  userID,
			IsOwner: true,
		}
		return tx.Members().Create(ctx, founder)
	})
	if err != nil {
		return nil, err
	}
	guild.MemberCount = 1
	return guild, nil
}

func (g *GuildService) GetGuild(ctx context.Context, userID domain.UserID, guildID domain.GuildID) (*domain.Guild, error) {
	if _, err := g.perms.MemberOf(ctx, guildID, userID); err != nil {
		return nil, err
	}
	guild, err := g.store.Guilds().GetByID(ctx, guildID)
	if err != nil {
		return nil, err
	}
	guild.MemberCount, _ = g.store.Guilds().MemberCount(ctx, guildID)
	return guild, nil
}

func (g *GuildService) UpdateGuild(ctx context.Context, userID domain.UserID, guildID domain.GuildID, name, description, icon *string) (*domain.Guild, error) {
	member, err := g.perms.MemberOf(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if err := g.perms.Require(ctx, member, domain.PermManageGuild); err != nil {
		return nil, err
	}
	guild, err := g.store.Guilds().GetByID(ctx, guildID)
	if err != nil {
		return nil, err
	}
	oldName := guild.Name
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" || len(trimmed) > 100 {
			return nil, fmt.Errorf("%w: invalid guild name", domain.ErrBadRequest)
		}
		guild.Name = trimmed
	}
	if description != nil {
		guild.Description = description
	}
	if icon != nil {
		guild.Icon = icon
	}
	guild.UpdatedAt = g.now()
	if err := g.store.Guilds().Update(ctx, guild); err != nil {
		return nil, err
	}
	g.audit(ctx, domain.AuditLog{
		GuildID:     guildID,
		ActionID:    domain.AuditGuildModify,
		ActorID:     member.ID,
		ChangedFrom: &oldName,
		ChangedTo:   &guild.Name,
	})
	return guild, nil
}

// ---- Channels ----

// ListChannels returns the ordered chain, via the per-guild cache.
func (g *GuildService) ListChannels(ctx context.Context, userID domain.UserID, guildID domain.GuildID) ([]domain.Channel, error) {
	if _, err := g.perms.MemberOf(ctx, guildID, userID); err != nil {
		return nil, err
	}
	key := cache.KeyGuildChannels(guildID)
	var channels []domain.Channel
	if err := g.cache.Get(ctx, key, &channels); err == nil {
		return channels, nil
	}
	channels, err := g.store.Channels().ListOrdered(ctx, guildID)
	if err != nil {
		return nil, err
	}
	_ = g.cache.Set(ctx, key, channels, cache.TTLGuildLists)
	return channels, nil
}

func (g *GuildService) CreateChannel(ctx context.Context, userID domain.UserID, guildID domain.GuildID, name string, description *string) (*domain.Channel, error) {
	member, err := g.perms.MemberOf(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if err := g.perms.Require(ctx, member, domain.PermManageChannel); err != nil {
		return nil, err
	}
	if err := domain.ValidateChannelName(name); err != nil {
		return nil, err
	}
	ch := &domain.Channel{
		ID:          domain.NewID(),
		GuildID:     guildID,
		Name:        name,
		Description: description,
	}
	if err := g.store.Channels().Create(ctx, ch); err != nil {
		return nil, err
	}
	_ = g.cache.Delete(ctx, cache.KeyGuildChannels(guildID))
	g.audit(ctx, domain.AuditLog{
		GuildID:  guildID,
		ActionID: domain.AuditChannelCreate,
		ActorID:  member.ID,
		TargetID: &ch.ID,
		Message:  &ch.Name,
	})
	return ch, nil
}

func (g *GuildService) GetChannel(ctx context.Context, userID domain.UserID, channelID domain.ChannelID) (*domain.Channel, error) {
	ch, err := g.store.Channels().GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if _, err := g.perms.MemberOf(ctx, ch.GuildID, userID); err != nil {
		return nil, err
	}
	return ch, nil
}

// UpdateChannel renames, re-describes or re-orders a channel. An ordering
// move is expressed by isAbove: the channel that will sit directly beneath
// the target, nil for bottom of the chain.
func (g *GuildService) UpdateChannel(ctx context.Context, userID domain.UserID, channelID domain.ChannelID, name, description *string, isAbove *uuid.UUID, move bool) (*domain.Channel, error) {
	ch, err := g.store.Channels().GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	member, err := g.perms.MemberOf(ctx, ch.GuildID, userID)
	if err != nil {
		return nil, err
	}
	if err := g.perms.Require(ctx, member, domain.PermManageChannel); err != nil {
		return nil, err
	}
	oldName := ch.Name
	if name != nil {
		if err := domain.ValidateChannelName(*name); err != nil {
			return nil, err
		}
		ch.Name = *name
	}
	if description != nil {
		ch.Description = description
	}
	if name != nil || description != nil {
		if err := g.store.Channels().Update(ctx, ch); err != nil {
			return nil, err
		}
	}
	if move {
		if err := g.store.Channels().Move(ctx, ch.GuildID, channelID, isAbove); err != nil {
			return nil, err
		}
		ch, err = g.store.Channels().GetByID(ctx, channelID)
		if err != nil {
			return nil, err
		}
	}
	// The row just changed and is known-good: long write-side TTL.
	_ = g.cache.Set(ctx, cache.KeyChannel(channelID), ch, cache.TTLChannelWrite)
	_ = g.cache.Delete(ctx, cache.KeyGuildChannels(ch.GuildID))
	g.audit(ctx, domain.AuditLog{
		GuildID:     ch.GuildID,
		ActionID:    domain.AuditChannelModify,
		ActorID:     member.ID,
		TargetID:    &ch.ID,
		ChangedFrom: &oldName,
		ChangedTo:   &ch.Name,
	})
	return ch, nil
}

func (g *GuildService) DeleteChannel(ctx context.Context, userID domain.UserID, channelID domain.ChannelID) error {
	ch, err := g.store.Channels().GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	member, err := g.perms.MemberOf(ctx, ch.GuildID, userID)
	if err != nil {
		return err
	}
	if err := g.perms.Require(ctx, member, domain.PermDeleteChannel); err != nil {
		return err
	}
	if err := g.store.Channels().Delete(ctx, ch.GuildID, channelID); err != nil {
		return err
	}
	_ = g.cache.Delete(ctx, cache.KeyChannel(channelID), cache.KeyGuildChannels(ch.GuildID))
	g.audit(ctx, domain.AuditLog{
		GuildID:  ch.GuildID,
		ActionID: domain.AuditChannelDelete,
		ActorID:  member.ID,
		TargetID: &channelID,
		Message:  &ch.Name,
	})
	return nil
}

// ---- Roles ----

func (g *GuildService) ListRoles(ctx context.Context, userID domain.UserID, guildID domain.GuildID) ([]domain.Role, error) {
	if _, err := g.perms.MemberOf(ctx, guildID, userID); err != nil {
		return nil, err
	}
	key := cache.KeyGuildRoles(guildID)
	var roles []domain.Role
	if err := g.cache.Get(ctx, key, &roles); err == nil {
		return roles, nil
	}
	roles, err := g.store.Roles().ListOrdered(ctx, guildID)
	if err != nil {
		return nil, err
	}
	_ = g.cache.Set(ctx, key, roles, cache.TTLGuildLists)
	return roles, nil
}

func (g *GuildService) GetRole(ctx context.Context, userID domain.UserID, guildID domain.GuildID, roleID domain.RoleID) (*domain.Role, error) {
	if _, err := g.perms.MemberOf(ctx, guildID, userID); err != nil {
		return nil, err
	}
	var role domain.Role
	if err := g.cache.Get(ctx, cache.KeyRole(roleID), &role); err == nil && role.GuildID == guildID {
		return &role, nil
	}
	rp, err := g.store.Roles().GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if rp.GuildID != guildID {
		return nil, domain.ErrNotFound
	}
	_ = g.cache.Set(ctx, cache.KeyRole(roleID), rp, cache.TTLRole)
	return rp, nil
}

func (g *GuildService) CreateRole(ctx context.Context, userID domain.UserID, guildID domain.GuildID, name string, color int32, permissions domain.Permission) (*domain.Role, error) {
	member, err := g.perms.MemberOf(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if err := g.perms.Require(ctx, member, domain.PermManageRole); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 50 {
		return nil, fmt.Errorf("%w: invalid role name", domain.ErrBadRequest)
	}
	role := &domain.Role{
		ID:          domain.NewID(),
		GuildID:     guildID,
		Name:        name,
		Color:       color,
		Permissions: permissions,
	}
	if err := g.store.Roles().Create(ctx, role); err != nil {
		return nil, err
	}
	_ = g.cache.Delete(ctx, cache.KeyGuildRoles(guildID))
	g.audit(ctx, domain.AuditLog{
		GuildID:  guildID,
		ActionID: domain.AuditRoleCreate,
		ActorID:  member.ID,
		TargetID: &role.ID,
		Message:  &role.Name,
	})
	return role, nil
}

func (g *GuildService) UpdateRole(ctx context.Context, userID domain.UserID, guildID domain.GuildID, roleID domain.RoleID, name *string, color *int32, permissions *domain.Permission, isAbove *uuid.UUID, move bool) (*domain.Role, error) {
	member, err := g.perms.MemberOf(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if err := g.perms.Require(ctx, member, domain.PermManageRole); err != nil {
		return nil, err
	}
	role, err := g.store.Roles().GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role.GuildID != guildID {
		return nil, domain.ErrNotFound
	}
	oldName := role.Name
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" || len(trimmed) > 50 {
			return nil, fmt.Errorf("%w: invalid role name", domain.ErrBadRequest)
		}
		role.Name = trimmed
	}
	if color != nil {
		role.Color = *color
	}
	if permissions != nil {
		role.Permissions = *permissions
	}
	if name != nil || color != nil || permissions != nil {
		if err := g.store.Roles().Update(ctx, role); err != nil {
			return nil, err
		}
	}
	if move {
		if err := g.store.Roles().Move(ctx, guildID, roleID, isAbove); err != nil {
			return nil, err
		}
		role, err = g.store.Roles().GetByID(ctx, roleID)
		if err != nil {
			return nil, err
		}
	}
	_ = g.cache.Delete(ctx, cache.KeyRole(roleID), cache.KeyGuildRoles(guildID))
	g.audit(ctx, domain.AuditLog{
		GuildID:     guildID,
		ActionID:    domain.AuditRoleModify,
		ActorID:     member.ID,
		TargetID:    &role.ID,
		ChangedFrom: &oldName,
		ChangedTo:   &role.Name,
	})
	return role, nil
}

func (g *GuildService) DeleteRole(ctx context.Context, userID domain.UserID, guildID domain.GuildID, roleID domain.RoleID) error {
	member, err := g.perms.MemberOf(ctx, guildID, userID)
	if err != nil {
		return err
	}
	if err := g.perms.Require(ctx, member, domain.PermDeleteRole); err != nil {
		return err
	}
	role, err := g.store.Roles().GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.GuildID != guildID {
		return domain.ErrNotFound
	}
	if err := g.store.Roles().Delete(ctx, guildID, roleID); err != nil {
		return err
	}
	_ = g.cache.Delete(ctx, cache.KeyRole(roleID), cache.KeyGuildRoles(guildID))
	g.audit(ctx, domain.AuditLog{
		GuildID:  guildID,
		ActionID: domain.AuditRoleDelete,
		ActorID:  member.ID,
		TargetID: &roleID,
		Message:  &role.Name,
	})
	return nil
}

// ---- Channel permission overrides ----

func (g *GuildService) ListChannelPermissions(ctx context.Context, userID domain.UserID, channelID domain.ChannelID) ([]domain.ChannelPermission, error) {
	ch, err := g.store.Channels().GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	member, err := g.perms.MemberOf(ctx, ch.GuildID, userID)
	if err != nil {
		return nil, err
	}
	if err := g.perms.Require(ctx, member, domain.PermManageRole); err != nil {
		return nil, err
	}
	return g.store.Channels().ListPermissions(ctx, channelID)
}

// SetChannelPermission installs a per-channel override for a role. The role
// must belong to the channel's guild.
func (g *GuildService) SetChannelPermission(ctx context.Context, userID domain.UserID, channelID domain.ChannelID, roleID domain.RoleID, permissions domain.Permission) error {
	ch, err := g.store.Channels().GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	member, err := g.perms.MemberOf(ctx, ch.GuildID, userID)
	if err != nil {
		return err
	}
	if err := g.perms.Require(ctx, member, domain.PermManageRole); err != nil {
		return err
	}
	role, err := g.store.Roles().GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.GuildID != ch.GuildID {
		return domain.ErrNotFound
	}
	if err := g.store.Channels().UpsertPermission(ctx, &domain.ChannelPermission{
		ChannelID:   channelID,
		RoleID:      roleID,
		Permissions: permissions,
	}); err != nil {
		return err
	}
	g.audit(ctx, domain.AuditLog{
		GuildID:  ch.GuildID,
		ActionID: domain.AuditRoleModify,
		ActorID:  member.ID,
		TargetID: &roleID,
		Message:  &ch.Name,
	})
	return nil
}

func (g *GuildService) DeleteChannelPermission(ctx context.Context, userID domain.UserID, channelID domain.ChannelID, roleID domain.RoleID) error {
	ch, err := g.store.Channels().GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	member, err := g.perms.MemberOf(ctx, ch.GuildID, userID)
	if err != nil {
		return err
	}
	if err := g.perms.Require(ctx, member, domain.PermManageRole); err != nil {
		return err
	}
	return g.store.Channels().DeletePermission(ctx, channelID, roleID)
}

// ---- Invites ----

const inviteAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomInviteID() string {
	var b strings.Builder
	for i := 0; i < 8; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(inviteAlphabet))))
		if err != nil {
			panic(err)
		}
		b.WriteByte(inviteAlphabet[n.Int64()])
	}
	return b.String()
}

func (g *GuildService) CreateInvite(ctx context.Context, userID domain.UserID, guildID domain.GuildID, customID string) (*domain.Invite, error) {
	member, err := g.perms.MemberOf(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if err := g.perms.Require(ctx, member, domain.PermCreateInvite); err != nil {
		return nil, err
	}
	id := customID
	if id == "" {
		id = randomInviteID()
	} else if len(id) > 32 {
		return nil, fmt.Errorf("%w: invite id too long", domain.ErrBadRequest)
	}
	inv := &domain.Invite{
		ID:        id,
		GuildID:   guildID,
		CreatorID: member.ID,
		CreatedAt: g.now(),
	}
	if err := g.store.Invites().Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("%w: invite id taken", domain.ErrBadRequest)
	}
	g.audit(ctx, domain.AuditLog{
		GuildID:  guildID,
		ActionID: domain.AuditInviteCreate,
		ActorID:  member.ID,
		Message:  &inv.ID,
	})
	return inv, nil
}

func (g *GuildService) ListInvites(ctx context.Context, userID domain.UserID, guildID domain.GuildID) ([]domain.Invite, error) {
	member, err := g.perms.MemberOf(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if err := g.perms.Require(ctx, member, domain.PermManageInvite); err != nil {
		return nil, err
	}
	return g.store.Invites().ListByGuild(ctx, guildID)
}

func (g *GuildService) GetInvite(ctx context.Context, id string) (*domain.Invite, *domain.Guild, error) {
	inv, err := g.store.Invites().GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	guild, err := g.store.Guilds().GetByID(ctx, inv.GuildID)
	if err != nil {
		return nil, nil, err
	}
	guild.MemberCount, _ = g.store.Guilds().MemberCount(ctx, guild.ID)
	return inv, guild, nil
}

// JoinInvite turns an invite into membership. Joining a guild you are
// already in returns the existing member row; banned users are refused.
func (g *GuildService) JoinInvite(ctx context.Context, userID domain.UserID, inviteID string) (*domain.Member, error) {
	inv, err := g.store.Invites().GetByID(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if _, err := g.store.Bans().Get(ctx, inv.GuildID, userID); err == nil {
		return nil, fmt.Errorf("%w: banned from guild", domain.ErrForbidden)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing, err := g.store.Members().GetByGuildUser(ctx, inv.GuildID, userID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	member := &domain.Member{
		ID:      domain.NewID(),
		GuildID: inv.GuildID,
		UserID:  userID,
	}
	if err := g.store.Members().Create(ctx, member); err != nil {
		return nil, err
	}
	g.audit(ctx, domain.AuditLog{
		GuildID:  inv.GuildID,
		ActionID: domain.AuditMemberJoin,
		ActorID:  member.ID,
		TargetID: &member.UserID,
	})
	return member, nil
}
