package service

import (
	"context"
	"fmt"

	"concord/internal/domain"
)

// ---- Members, bans, audit ----

func (g *GuildService) ListMembers(ctx context.Context, userID domain.UserID, guildID domain.GuildID) ([]domain.Member, error) {
	if _, err := g.perms.MemberOf(ctx, guildID, userID); err != nil {
		return nil, err
	}
	members, err := g.store.Members().ListByGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if user, uerr := g.store.Users().GetByID(ctx, members[i].UserID); uerr == nil {
			pub := user.Public()
			members[i].User = &pub
		}
	}
	return members, nil
}

func (g *GuildService) GetMember(ctx context.Context, userID domain.UserID, memberID domain.MemberID) (*domain.Member, error) {
	member, err := g.store.Members().GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if _, err := g.perms.MemberOf(ctx, member.GuildID, userID); err != nil {
		return nil, err
	}
	if user, uerr := g.store.Users().GetByID(ctx, member.UserID); uerr == nil {
		pub := user.Public()
		member.User = &pub
	}
	return member, nil
}

// Kick removes a member. Members may always remove themselves (leaving);
// removing anyone else needs KickMember, and owners cannot be removed.
func (g *GuildService) Kick(ctx context.Context, callerID domain.UserID, memberID domain.MemberID) error {
	target, err := g.store.Members().GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	caller, err := g.perms.MemberOf(ctx, target.GuildID, callerID)
	if err != nil {
		return err
	}
	leaving := target.UserID == callerID
	if !leaving {
		if err := g.perms.Require(ctx, caller, domain.PermKickMember); err != nil {
			return err
		}
	}
	if target.IsOwner {
		return fmt.Errorf("%w: cannot remove the owner", domain.ErrForbidden)
	}
	if err := g.store.Members().Delete(ctx, memberID); err != nil {
		return err
	}
	g.perms.InvalidateMemberRoles(ctx, memberID)
	action := domain.AuditMemberKick
	if leaving {
		action = domain.AuditMemberLeave
	}
	g.audit(ctx, domain.AuditLog{
		GuildID:  target.GuildID,
		ActionID: action,
		ActorID:  caller.ID,
		TargetID: &target.UserID,
	})
	return nil
}

// Ban records a GuildBan and removes the member row. Owners are unbannable.
func (g *GuildService) Ban(ctx context.Context, callerID domain.UserID, memberID domain.MemberID, reason *string) error {
	target, err := g.store.Members().GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	caller, err := g.perms.MemberOf(ctx, target.GuildID, callerID)
	if err != nil {
		return err
	}
	if err := g.perms.Require(ctx, caller, domain.PermBanMember); err != nil {
		return err
	}
	if target.IsOwner {
		return fmt.Errorf("%w: cannot ban the owner", domain.ErrForbidden)
	}
	ban := &domain.GuildBan{
		GuildID:  target.GuildID,
		UserID:   target.UserID,
		Reason:   reason,
		BannedAt: g.now(),
	}
	if err := g.store.Bans().Create(ctx, ban); err != nil {
		return err
	}
	if err := g.store.Members().Delete(ctx, memberID); err != nil {
		return err
	}
	g.perms.InvalidateMemberRoles(ctx, memberID)
	g.audit(ctx, domain.AuditLog{
		GuildID:  target.GuildID,
		ActionID: domain.AuditMemberBan,
		ActorID:  caller.ID,
		TargetID: &target.UserID,
		Message:  reason,
	})
	return nil
}

func (g *GuildService) Unban(ctx context.Context, callerID domain.UserID, guildID domain.GuildID, userID domain.UserID) error {
	caller, err := g.perms.MemberOf(ctx, guildID, callerID)
	if err != nil {
		return err
	}
	if err := g.perms.Require(ctx, caller, domain.PermBanMember); err != nil {
		return err
	}
	if _, err := g.store.Bans().Get(ctx, guildID, userID); err != nil {
		return err
	}
	return g.store.Bans().Delete(ctx, guildID, userID)
}

func (g *GuildService) ListBans(ctx context.Context, callerID domain.UserID, guildID domain.GuildID) ([]domain.GuildBan, error) {
	caller, err := g.perms.MemberOf(ctx, guildID, callerID)
	if err != nil {
		return nil, err
	}
	if err := g.perms.Require(ctx, caller, domain.PermBanMember); err != nil {
		return nil, err
	}
	return g.store.Bans().ListByGuild(ctx, guildID)
}

// AssignRole binds a role to a member. Idempotent.
func (g *GuildService) AssignRole(ctx context.Context, callerID domain.UserID, memberID domain.MemberID, roleID domain.RoleID) error {
	member, err := g.store.Members().GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	caller, err := g.perms.MemberOf(ctx, member.GuildID, callerID)
	if err != nil {
		return err
	}
	if err := g.perms.Require(ctx, caller, domain.PermManageMember); err != nil {
		return err
	}
	role, err := g.store.Roles().GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.GuildID != member.GuildID {
		return domain.ErrNotFound
	}
	if err := g.store.Members().AddRole(ctx, roleID, memberID); err != nil {
		return err
	}
	g.perms.InvalidateMemberRoles(ctx, memberID)
	g.audit(ctx, domain.AuditLog{
		GuildID:   member.GuildID,
		ActionID:  domain.AuditRoleModify,
		ActorID:   caller.ID,
		TargetID:  &member.UserID,
		ChangedTo: &role.Name,
	})
	return nil
}

func (g *GuildService) RemoveRole(ctx context.Context, callerID domain.UserID, memberID domain.MemberID, roleID domain.RoleID) error {
	member, err := g.store.Members().GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	caller, err := g.perms.MemberOf(ctx, member.GuildID, callerID)
	if err != nil {
		return err
	}
	if err := g.perms.Require(ctx, caller, domain.PermManageMember); err != nil {
		return err
	}
	if err := g.store.Members().RemoveRole(ctx, roleID, memberID); err != nil {
		return err
	}
	g.perms.InvalidateMemberRoles(ctx, memberID)
	return nil
}

func (g *GuildService) ListAudit(ctx context.Context, callerID domain.UserID, guildID domain.GuildID, amount, offset int) ([]domain.AuditLog, error) {
	caller, err := g.perms.MemberOf(ctx, guildID, callerID)
	if err != nil {
		return nil, err
	}
	if err := g.perms.Require(ctx, caller, domain.PermManageGuild); err != nil {
		return nil, err
	}
	return g.store.Audit().ListByGuild(ctx, guildID, amount, offset)
}
