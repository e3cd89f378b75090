package service

import (
	"context"
	"errors"
	"testing"

	"concord/internal/domain"
	"concord/internal/store"
)

func seedMember(t *testing.T, st *store.Store, guildID domain.GuildID, owner bool) *domain.Member {
	t.Helper()
	member := &domain.Member{
		ID:      domain.NewID(),
		GuildID: guildID,
		UserID:  domain.NewID(),
		IsOwner: owner,
	}
	if err := st.Members().Create(context.Background(), member); err != nil {
		t.Fatalf("create member: %v", err)
	}
	return member
}

func seedRole(t *testing.T, st *store.Store, guildID domain.GuildID, name string, mask domain.Permission) *domain.Role {
	t.Helper()
	role := &domain.Role{ID: domain.NewID(), GuildID: guildID, Name: name, Permissions: mask}
	if err := st.Roles().Create(context.Background(), role); err != nil {
		t.Fatalf("create role: %v", err)
	}
	return role
}

func TestResolveOwner(t *testing.T) {
	st := testStore(t)
	perms := NewPermissionService(st, newTestCache(), false)
	guildID := domain.NewID()

	owner := seedMember(t, st, guildID, true)
	mask, err := perms.Resolve(context.Background(), owner)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if mask != domain.PermAll {
		t.Fatalf("owner mask = %b, want all bits", mask)
	}
}

func TestResolveFoldsRoles(t *testing.T) {
	st := testStore(t)
	perms := NewPermissionService(st, newTestCache(), false)
	guildID := domain.NewID()
	ctx := context.Background()

	member := seedMember(t, st, guildID, false)

	// No roles means no permissions at all.
	mask, err := perms.Resolve(ctx, member)
	if err != nil {
		t.Fatalf("resolve roleless: %v", err)
	}
	if mask != 0 {
		t.Fatalf("roleless mask = %b, want 0", mask)
	}
	if err := perms.Require(ctx, member, domain.PermSendMessage); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("require on roleless: got %v, want forbidden", err)
	}

	sender := seedRole(t, st, guildID, "sender", domain.PermSendMessage)
	inviter := seedRole(t, st, guildID, "inviter", domain.PermCreateInvite)
	for _, r := range []*domain.Role{sender, inviter} {
		if err := st.Members().AddRole(ctx, r.ID, member.ID); err != nil {
			t.Fatalf("bind role: %v", err)
		}
	}
	perms.InvalidateMemberRoles(ctx, member.ID)

	mask, err = perms.Resolve(ctx, member)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := domain.PermSendMessage | domain.PermCreateInvite
	if mask != want {
		t.Fatalf("mask = %b, want %b", mask, want)
	}
	if err := perms.Require(ctx, member, domain.PermManageGuild); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("unheld bit: got %v, want forbidden", err)
	}
}

func TestRoleCacheInvalidation(t *testing.T) {
	st := testStore(t)
	perms := NewPermissionService(st, newTestCache(), false)
	guildID := domain.NewID()
	ctx := context.Background()

	member := seedMember(t, st, guildID, false)
	role := seedRole(t, st, guildID, "mods", domain.PermKickMember)

	// Prime the cache with the empty role set.
	if _, err := perms.Resolve(ctx, member); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := st.Members().AddRole(ctx, role.ID, member.ID); err != nil {
		t.Fatalf("bind role: %v", err)
	}

	// Stale until invalidated.
	mask, err := perms.Resolve(ctx, member)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if mask != 0 {
		t.Fatalf("cache should still hold the old fold, got %b", mask)
	}

	perms.InvalidateMemberRoles(ctx, member.ID)
	mask, err = perms.Resolve(ctx, member)
	if err != nil {
		t.Fatalf("resolve after invalidation: %v", err)
	}
	if mask != domain.PermKickMember {
		t.Fatalf("mask = %b, want kick bit", mask)
	}
}

func TestChannelOverrideReplacesGuildMask(t *testing.T) {
	st := testStore(t)
	perms := NewPermissionService(st, newTestCache(), false)
	guildID := domain.NewID()
	ctx := context.Background()

	member := seedMember(t, st, guildID, false)
	role := seedRole(t, st, guildID, "chatters", domain.PermSendMessage|domain.PermCreateInvite)
	if err := st.Members().AddRole(ctx, role.ID, member.ID); err != nil {
		t.Fatalf("bind role: %v", err)
	}

	ch := domain.Channel{ID: domain.NewID(), GuildID: guildID, Name: "quiet"}
	if err := st.Channels().Create(ctx, &ch); err != nil {
		t.Fatalf("create channel: %v", err)
	}

	// Without an override the guild mask applies.
	if err := perms.RequireChannel(ctx, member, ch.ID, domain.PermSendMessage); err != nil {
		t.Fatalf("guild mask should apply: %v", err)
	}

	// An override replaces the guild mask outright, it does not merge.
	if err := st.Channels().UpsertPermission(ctx, &domain.ChannelPermission{
		ChannelID: ch.ID, RoleID: role.ID, Permissions: domain.PermCreateInvite,
	}); err != nil {
		t.Fatalf("upsert override: %v", err)
	}
	if err := perms.RequireChannel(ctx, member, ch.ID, domain.PermSendMessage); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("override should strip send: got %v", err)
	}
	if err := perms.RequireChannel(ctx, member, ch.ID, domain.PermCreateInvite); err != nil {
		t.Fatalf("override should still grant invite: %v", err)
	}

	// Owners bypass overrides entirely.
	owner := seedMember(t, st, guildID, true)
	if err := perms.RequireChannel(ctx, owner, ch.ID, domain.PermSendMessage); err != nil {
		t.Fatalf("owner bypass: %v", err)
	}
}

func TestChannelOverrideTieBreak(t *testing.T) {
	st := testStore(t)
	perms := NewPermissionService(st, newTestCache(), false)
	guildID := domain.NewID()
	ctx := context.Background()

	member := seedMember(t, st, guildID, false)
	upper := seedRole(t, st, guildID, "upper", 0)
	lower := seedRole(t, st, guildID, "lower", 0) // created later, so chained beneath upper
	for _, r := range []*domain.Role{upper, lower} {
		if err := st.Members().AddRole(ctx, r.ID, member.ID); err != nil {
			t.Fatalf("bind role: %v", err)
		}
	}

	ch := domain.Channel{ID: domain.NewID(), GuildID: guildID, Name: "general"}
	if err := st.Channels().Create(ctx, &ch); err != nil {
		t.Fatalf("create channel: %v", err)
	}
	if err := st.Channels().UpsertPermission(ctx, &domain.ChannelPermission{
		ChannelID: ch.ID, RoleID: upper.ID, Permissions: domain.PermSendMessage,
	}); err != nil {
		t.Fatalf("upsert upper: %v", err)
	}
	if err := st.Channels().UpsertPermission(ctx, &domain.ChannelPermission{
		ChannelID: ch.ID, RoleID: lower.ID, Permissions: 0,
	}); err != nil {
		t.Fatalf("upsert lower: %v", err)
	}

	// Both roles carry overrides; the one lowest in the chain wins.
	mask, err := perms.ResolveChannel(ctx, member, ch.ID)
	if err != nil {
		t.Fatalf("resolve channel: %v", err)
	}
	if mask != 0 {
		t.Fatalf("mask = %b, want the bottom role's empty mask", mask)
	}
}

func TestGateRequiresVerifiedEmail(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	open := NewPermissionService(st, newTestCache(), false)
	strict := NewPermissionService(st, newTestCache(), true)

	unverified := &domain.User{ID: domain.NewID()}
	verified := &domain.User{ID: domain.NewID(), EmailVerified: true}

	if err := open.Gate(ctx, unverified); err != nil {
		t.Fatalf("open instance should admit unverified: %v", err)
	}
	if err := strict.Gate(ctx, unverified); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("strict instance: got %v, want forbidden", err)
	}
	if err := strict.Gate(ctx, verified); err != nil {
		t.Fatalf("strict instance should admit verified: %v", err)
	}
}
