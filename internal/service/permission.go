package service

import (
	"context"
	"errors"
	"fmt"

	"concord/internal/cache"
	"concord/internal/domain"
	"concord/internal/store"
)

// PermissionService folds a member's roles into a bitmask and gates every
// mutation and subscription on it.
type PermissionService struct {
	store *store.Store
	cache cache.Cache

	requireVerifiedEmail bool
}

func NewPermissionService(st *store.Store, c cache.Cache, requireVerifiedEmail bool) *PermissionService {
	return &PermissionService{store: st, cache: c, requireVerifiedEmail: requireVerifiedEmail}
}

// Gate is the global precondition in front of every permission check: an
// instance that requires verified email refuses unverified callers outright.
func (p *PermissionService) Gate(ctx context.Context, user *domain.User) error {
	if p.requireVerifiedEmail && !user.EmailVerified {
		return fmt.Errorf("%w: email not verified", domain.ErrForbidden)
	}
	return nil
}

// MemberOf is the single membership gate: no Member row, no access.
func (p *PermissionService) MemberOf(ctx context.Context, guildID domain.GuildID, userID domain.UserID) (*domain.Member, error) {
	member, err := p.store.Members().GetByGuildUser(ctx, guildID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: not a member", domain.ErrForbidden)
		}
		return nil, err
	}
	return member, nil
}

// memberRoles reads the member's role list through the 5-minute cache.
func (p *PermissionService) memberRoles(ctx context.Context, memberID domain.MemberID) ([]domain.Role, error) {
	key := cache.KeyMemberRoles(memberID)
	var roles []domain.Role
	if err := p.cache.Get(ctx, key, &roles); err == nil {
		return roles, nil
	}
	roles, err := p.store.Members().ListRoles(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, key, roles, cache.TTLMemberRoles); err != nil {
		return roles, nil // cache write failure never fails the check
	}
	return roles, nil
}

// Resolve computes the guild-level mask: owners get everything, everyone
// else ORs their roles.
func (p *PermissionService) Resolve(ctx context.Context, member *domain.Member) (domain.Permission, error) {
	if member.IsOwner {
		return domain.PermAll, nil
	}
	roles, err := p.memberRoles(ctx, member.ID)
	if err != nil {
		return 0, err
	}
	var mask domain.Permission
	for _, r := range roles {
		mask |= r.Permissions
	}
	return mask, nil
}

// ResolveChannel computes the mask for a channel-scoped operation. A
// ChannelPermission row for any of the member's roles replaces the guild
// mask outright; when several rows match, the role lowest in the guild's
// role chain wins.
func (p *PermissionService) ResolveChannel(ctx context.Context, member *domain.Member, channelID domain.ChannelID) (domain.Permission, error) {
	if member.IsOwner {
		return domain.PermAll, nil
	}
	roles, err := p.memberRoles(ctx, member.ID)
	if err != nil {
		return 0, err
	}
	overrides, err := p.store.Channels().ListPermissions(ctx, channelID)
	if err != nil {
		return 0, err
	}
	if len(overrides) > 0 {
		held := make(map[domain.RoleID]bool, len(roles))
		for _, r := range roles {
			held[r.ID] = true
		}
		byRole := make(map[domain.RoleID]domain.Permission, len(overrides))
		for _, o := range overrides {
			if held[o.RoleID] {
				byRole[o.RoleID] = o.Permissions
			}
		}
		if len(byRole) > 0 {
			ordered, err := p.store.Roles().ListOrdered(ctx, member.GuildID)
			if err != nil {
				return 0, err
			}
			for i := len(ordered) - 1; i >= 0; i-- {
				if mask, ok := byRole[ordered[i].ID]; ok {
					return mask, nil
				}
			}
		}
	}
	var mask domain.Permission
	for _, r := range roles {
		mask |= r.Permissions
	}
	return mask, nil
}

// Require denies with Forbidden unless the member's guild mask carries bit.
func (p *PermissionService) Require(ctx context.Context, member *domain.Member, bit domain.Permission) error {
	mask, err := p.Resolve(ctx, member)
	if err != nil {
		return err
	}
	if !mask.Has(bit) {
		return fmt.Errorf("%w: missing permission", domain.ErrForbidden)
	}
	return nil
}

// RequireChannel is Require with channel overrides applied.
func (p *PermissionService) RequireChannel(ctx context.Context, member *domain.Member, channelID domain.ChannelID, bit domain.Permission) error {
	mask, err := p.ResolveChannel(ctx, member, channelID)
	if err != nil {
		return err
	}
	if !mask.Has(bit) {
		return fmt.Errorf("%w: missing permission", domain.ErrForbidden)
	}
	return nil
}

// CheckChannelAccess resolves the channel's guild and verifies the user is
// a member holding SendMessage there. Used where only ids are at hand, like
// a gateway subscribe.
func (p *PermissionService) CheckChannelAccess(ctx context.Context, userID domain.UserID, channelID domain.ChannelID) error {
	ch, err := p.store.Channels().GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	member, err := p.MemberOf(ctx, ch.GuildID, userID)
	if err != nil {
		return err
	}
	return p.RequireChannel(ctx, member, channelID, domain.PermSendMessage)
}

// InvalidateMemberRoles drops the cached role fold after a role binding
// change.
func (p *PermissionService) InvalidateMemberRoles(ctx context.Context, memberID domain.MemberID) {
	_ = p.cache.Delete(ctx, cache.KeyMemberRoles(memberID))
}
