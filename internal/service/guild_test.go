package service

import (
	"context"
	"errors"
	"testing"

	"concord/internal/domain"
	"concord/internal/store"
)

type guildFixture struct {
	svc   *GuildService
	perms *PermissionService
	st    *store.Store

	owner  *domain.User
	member *domain.User
	guild  *domain.Guild
}

func setupGuild(t *testing.T) *guildFixture {
	t.Helper()
	ctx := context.Background()
	st := testStore(t)
	c := newTestCache()
	perms := NewPermissionService(st, c, false)

	f := &guildFixture{
		svc:   NewGuildService(st, c, perms),
		perms: perms,
		st:    st,
		owner: seedUser(t, st, "owner"),
	}

	guild, err := f.svc.CreateGuild(ctx, f.owner.ID, "testers", nil)
	if err != nil {
		t.Fatalf("create guild: %v", err)
	}
	f.guild = guild

	f.member = seedUser(t, st, "plain")
	inv, err := f.svc.CreateInvite(ctx, f.owner.ID, guild.ID, "")
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	if _, err := f.svc.JoinInvite(ctx, f.member.ID, inv.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	return f
}

func TestCreateGuildSeedsOwner(t *testing.T) {
	f := setupGuild(t)
	ctx := context.Background()

	member, err := f.perms.MemberOf(ctx, f.guild.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("founder not a member: %v", err)
	}
	if !member.IsOwner {
		t.Fatalf("founder not the owner")
	}
	if err := f.perms.Require(ctx, member, domain.PermManageGuild); err != nil {
		t.Fatalf("owner lacks manage: %v", err)
	}

	if _, err := f.svc.CreateGuild(ctx, f.owner.ID, "   ", nil); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("blank name: got %v, want bad request", err)
	}
}

func TestGuildAccessRequiresMembership(t *testing.T) {
	f := setupGuild(t)
	ctx := context.Background()
	stranger := seedUser(t, f.st, "stranger")

	if _, err := f.svc.GetGuild(ctx, stranger.ID, f.guild.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("stranger get: got %v, want forbidden", err)
	}
	if _, err := f.svc.ListChannels(ctx, stranger.ID, f.guild.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("stranger channels: got %v, want forbidden", err)
	}
	if _, err := f.svc.GetGuild(ctx, f.member.ID, f.guild.ID); err != nil {
		t.Fatalf("member get: %v", err)
	}
}

func TestChannelLifecycle(t *testing.T) {
	f := setupGuild(t)
	ctx := context.Background()

	// A plain member holds no CreateChannel bit.
	if _, err := f.svc.CreateChannel(ctx, f.member.ID, f.guild.ID, "nope", nil); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("member create: got %v, want forbidden", err)
	}

	first, err := f.svc.CreateChannel(ctx, f.owner.ID, f.guild.ID, "general", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := f.svc.CreateChannel(ctx, f.owner.ID, f.guild.ID, "random", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "renamed"
	updated, err := f.svc.UpdateChannel(ctx, f.owner.ID, first.ID, &name, nil, nil, false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "renamed" {
		t.Fatalf("name = %q", updated.Name)
	}

	// Reorder: move the second channel above the first.
	if _, err := f.svc.UpdateChannel(ctx, f.owner.ID, second.ID, nil, nil, &first.ID, true); err != nil {
		t.Fatalf("move: %v", err)
	}
	chans, err := f.svc.ListChannels(ctx, f.member.ID, f.guild.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(chans) != 2 || chans[0].ID != second.ID {
		t.Fatalf("move not reflected in listing")
	}

	if err := f.svc.DeleteChannel(ctx, f.owner.ID, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	chans, err = f.svc.ListChannels(ctx, f.member.ID, f.guild.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(chans) != 1 {
		t.Fatalf("got %d channels after delete, want 1", len(chans))
	}
}

func TestRoleLifecycle(t *testing.T) {
	f := setupGuild(t)
	ctx := context.Background()

	role, err := f.svc.CreateRole(ctx, f.owner.ID, f.guild.ID, "mods", 0xff0000, domain.PermKickMember)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if _, err := f.svc.CreateRole(ctx, f.member.ID, f.guild.ID, "nope", 0, 0); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("member create role: got %v, want forbidden", err)
	}

	perms := domain.PermKickMember | domain.PermBanMember
	updated, err := f.svc.UpdateRole(ctx, f.owner.ID, f.guild.ID, role.ID, nil, nil, &perms, nil, false)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if updated.Permissions != perms {
		t.Fatalf("permissions = %b", updated.Permissions)
	}

	// Binding the role grants its bits after cache invalidation.
	target, err := f.perms.MemberOf(ctx, f.guild.ID, f.member.ID)
	if err != nil {
		t.Fatalf("member: %v", err)
	}
	if err := f.svc.AssignRole(ctx, f.owner.ID, target.ID, role.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := f.perms.Require(ctx, target, domain.PermBanMember); err != nil {
		t.Fatalf("bound role not granting: %v", err)
	}

	// Plain members cannot hand out roles.
	if err := f.svc.AssignRole(ctx, f.member.ID, target.ID, role.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("member assign: got %v, want forbidden", err)
	}

	if err := f.svc.RemoveRole(ctx, f.owner.ID, target.ID, role.ID); err != nil {
		t.Fatalf("remove role: %v", err)
	}
	if err := f.perms.Require(ctx, target, domain.PermBanMember); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("unbound role still granting: %v", err)
	}

	if err := f.svc.DeleteRole(ctx, f.owner.ID, f.guild.ID, role.ID); err != nil {
		t.Fatalf("delete role: %v", err)
	}
	roles, err := f.svc.ListRoles(ctx, f.owner.ID, f.guild.ID)
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != 0 {
		t.Fatalf("got %d roles after delete", len(roles))
	}
}

func TestRoleFromAnotherGuild(t *testing.T) {
	f := setupGuild(t)
	ctx := context.Background()

	other, err := f.svc.CreateGuild(ctx, f.owner.ID, "elsewhere", nil)
	if err != nil {
		t.Fatalf("create guild: %v", err)
	}
	foreign, err := f.svc.CreateRole(ctx, f.owner.ID, other.ID, "foreign", 0, 0)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	target, err := f.perms.MemberOf(ctx, f.guild.ID, f.member.ID)
	if err != nil {
		t.Fatalf("member: %v", err)
	}
	if err := f.svc.AssignRole(ctx, f.owner.ID, target.ID, foreign.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-guild assign: got %v, want not found", err)
	}
	if _, err := f.svc.GetRole(ctx, f.owner.ID, f.guild.ID, foreign.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-guild get: got %v, want not found", err)
	}
}

func TestInviteJoinAndBan(t *testing.T) {
	f := setupGuild(t)
	ctx := context.Background()

	inv, err := f.svc.CreateInvite(ctx, f.owner.ID, f.guild.ID, "welcome")
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	if inv.ID != "welcome" {
		t.Fatalf("custom id ignored: %q", inv.ID)
	}

	// Joining twice hands back the same member row.
	again, err := f.svc.JoinInvite(ctx, f.member.ID, inv.ID)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	existing, err := f.perms.MemberOf(ctx, f.guild.ID, f.member.ID)
	if err != nil {
		t.Fatalf("member: %v", err)
	}
	if again.ID != existing.ID {
		t.Fatalf("rejoin minted a new member row")
	}

	// Ban removes the member and blocks re-entry.
	reason := "spam"
	if err := f.svc.Ban(ctx, f.owner.ID, existing.ID, &reason); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if _, err := f.perms.MemberOf(ctx, f.guild.ID, f.member.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("banned user still a member")
	}
	if _, err := f.svc.JoinInvite(ctx, f.member.ID, inv.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("banned join: got %v, want forbidden", err)
	}

	bans, err := f.svc.ListBans(ctx, f.owner.ID, f.guild.ID)
	if err != nil {
		t.Fatalf("list bans: %v", err)
	}
	if len(bans) != 1 || bans[0].Reason == nil || *bans[0].Reason != "spam" {
		t.Fatalf("ban row wrong: %+v", bans)
	}

	// Unban reopens the door.
	if err := f.svc.Unban(ctx, f.owner.ID, f.guild.ID, f.member.ID); err != nil {
		t.Fatalf("unban: %v", err)
	}
	if _, err := f.svc.JoinInvite(ctx, f.member.ID, inv.ID); err != nil {
		t.Fatalf("rejoin after unban: %v", err)
	}
}

func TestKick(t *testing.T) {
	f := setupGuild(t)
	ctx := context.Background()

	target, err := f.perms.MemberOf(ctx, f.guild.ID, f.member.ID)
	if err != nil {
		t.Fatalf("member: %v", err)
	}
	ownerMember, err := f.perms.MemberOf(ctx, f.guild.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("owner member: %v", err)
	}

	// A plain member cannot kick others, and nobody removes the owner.
	if err := f.svc.Kick(ctx, f.member.ID, ownerMember.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("kick owner: got %v, want forbidden", err)
	}
	if err := f.svc.Kick(ctx, f.owner.ID, ownerMember.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("owner self-kick: got %v, want forbidden", err)
	}

	// Leaving is kicking yourself and needs no permission.
	if err := f.svc.Kick(ctx, f.member.ID, target.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, err := f.perms.MemberOf(ctx, f.guild.ID, f.member.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("member still present after leaving")
	}
}

func TestAuditTrail(t *testing.T) {
	f := setupGuild(t)
	ctx := context.Background()

	if _, err := f.svc.CreateChannel(ctx, f.owner.ID, f.guild.ID, "general", nil); err != nil {
		t.Fatalf("create channel: %v", err)
	}
	if _, err := f.svc.CreateRole(ctx, f.owner.ID, f.guild.ID, "mods", 0, 0); err != nil {
		t.Fatalf("create role: %v", err)
	}

	entries, err := f.svc.ListAudit(ctx, f.owner.ID, f.guild.ID, 50, 0)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	// Join from the fixture plus the two creations, newest first.
	if len(entries) < 3 {
		t.Fatalf("got %d audit entries, want at least 3", len(entries))
	}
	if entries[0].ActionID != domain.AuditRoleCreate {
		t.Fatalf("newest entry = %v, want role create", entries[0].ActionID)
	}

	// The audit log is gated on ManageGuild.
	if _, err := f.svc.ListAudit(ctx, f.member.ID, f.guild.ID, 50, 0); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("member audit read: got %v, want forbidden", err)
	}
}

func TestChannelPermissionOverrides(t *testing.T) {
	f := setupGuild(t)
	ctx := context.Background()

	ch, err := f.svc.CreateChannel(ctx, f.owner.ID, f.guild.ID, "quiet", nil)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}
	role, err := f.svc.CreateRole(ctx, f.owner.ID, f.guild.ID, "chatters", 0, domain.PermSendMessage)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	if err := f.svc.SetChannelPermission(ctx, f.owner.ID, ch.ID, role.ID, 0); err != nil {
		t.Fatalf("set override: %v", err)
	}
	overrides, err := f.svc.ListChannelPermissions(ctx, f.owner.ID, ch.ID)
	if err != nil {
		t.Fatalf("list overrides: %v", err)
	}
	if len(overrides) != 1 || overrides[0].RoleID != role.ID {
		t.Fatalf("override row wrong: %+v", overrides)
	}

	// Role and channel must belong to the same guild.
	other, err := f.svc.CreateGuild(ctx, f.owner.ID, "elsewhere", nil)
	if err != nil {
		t.Fatalf("create guild: %v", err)
	}
	foreign, err := f.svc.CreateRole(ctx, f.owner.ID, other.ID, "foreign", 0, 0)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if err := f.svc.SetChannelPermission(ctx, f.owner.ID, ch.ID, foreign.ID, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-guild override: got %v, want not found", err)
	}

	if err := f.svc.DeleteChannelPermission(ctx, f.owner.ID, ch.ID, role.ID); err != nil {
		t.Fatalf("delete override: %v", err)
	}
	overrides, err = f.svc.ListChannelPermissions(ctx, f.owner.ID, ch.ID)
	if err != nil {
		t.Fatalf("list overrides: %v", err)
	}
	if len(overrides) != 0 {
		t.Fatalf("override survived delete")
	}

	// Plain members see neither the list nor the knobs.
	if _, err := f.svc.ListChannelPermissions(ctx, f.member.ID, ch.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("member list overrides: got %v, want forbidden", err)
	}
}
