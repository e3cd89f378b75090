package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"concord/internal/domain"
)

func setupAuth(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(testStore(t), newTestCache(), true)
}

func TestRegisterAndLogin(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	user, pair, err := auth.Register(ctx, "Alice", "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("username not lowercased: %q", user.Username)
	}
	if len(pair.RefreshToken) != 64 || len(pair.AccessToken) != 32 {
		t.Fatalf("unexpected token lengths: refresh=%d access=%d", len(pair.RefreshToken), len(pair.AccessToken))
	}

	got, err := auth.VerifyAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if got != user.ID {
		t.Fatalf("verify resolved wrong user: %v", got)
	}

	if _, _, err := auth.Register(ctx, "alice", "other@example.com", testPassword); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("duplicate username: got %v, want bad request", err)
	}

	// Login by username and by email.
	if _, _, err := auth.Login(ctx, "ALICE", testPassword, ""); err != nil {
		t.Fatalf("login by username: %v", err)
	}
	if _, _, err := auth.Login(ctx, "alice@example.com", testPassword, "laptop"); err != nil {
		t.Fatalf("login by email: %v", err)
	}
	if _, _, err := auth.Login(ctx, "alice", "deadbeef"+testPassword[:88], ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("wrong password: got %v, want unauthorized", err)
	}
	if _, _, err := auth.Login(ctx, "nobody", testPassword, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("unknown user: got %v, want unauthorized", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	cases := []struct {
		name               string
		username, email, pw string
	}{
		{"short username", "ab", "a@b.com", testPassword},
		{"bad chars", "has space", "a@b.com", testPassword},
		{"bad email", "validname", "not-an-email", testPassword},
		{"pw not prehashed", "validname", "a@b.com", "hunter2"},
		{"pw uppercase hex", "validname", "a@b.com", "AB" + testPassword[2:]},
	}
	for _, tc := range cases {
		if _, _, err := auth.Register(ctx, tc.username, tc.email, tc.pw); !errors.Is(err, domain.ErrBadRequest) {
			t.Errorf("%s: got %v, want bad request", tc.name, err)
		}
	}
}

func TestRegistrationClosed(t *testing.T) {
	auth := NewAuthService(testStore(t), newTestCache(), false)
	if _, _, err := auth.Register(context.Background(), "alice", "a@b.com", testPassword); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("got %v, want forbidden", err)
	}
}

func TestAccessTokenExpiry(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	base := time.Now().UTC()
	auth.now = func() time.Time { return base }

	_, pair, err := auth.Register(ctx, "alice", "a@b.com", testPassword)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	auth.now = func() time.Time { return base.Add(59 * time.Minute) }
	if _, err := auth.VerifyAccess(ctx, pair.AccessToken); err != nil {
		t.Fatalf("token should still be live at 59m: %v", err)
	}

	auth.now = func() time.Time { return base.Add(61 * time.Minute) }
	if _, err := auth.VerifyAccess(ctx, pair.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("got %v, want unauthorized past the hour", err)
	}
}

func TestRefreshInvalidatesOldAccess(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	_, pair, err := auth.Register(ctx, "alice", "a@b.com", testPassword)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	next, err := auth.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.RefreshToken != pair.RefreshToken {
		t.Fatalf("young refresh token must not rotate")
	}
	if next.AccessToken == pair.AccessToken {
		t.Fatalf("refresh minted the same access token")
	}
	if _, err := auth.VerifyAccess(ctx, pair.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("old access token survived refresh: %v", err)
	}
	if _, err := auth.VerifyAccess(ctx, next.AccessToken); err != nil {
		t.Fatalf("new access token rejected: %v", err)
	}
}

func TestRefreshRotationWindow(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	base := time.Now().UTC()
	auth.now = func() time.Time { return base }

	_, pair, err := auth.Register(ctx, "alice", "a@b.com", testPassword)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Inside the 23-day window the token is reused as-is.
	auth.now = func() time.Time { return base.Add(22 * 24 * time.Hour) }
	next, err := auth.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh at 22d: %v", err)
	}
	if next.RefreshToken != pair.RefreshToken {
		t.Fatalf("rotated too early")
	}

	// Past 23 days it rotates; the old token dies with the rotation.
	auth.now = func() time.Time { return base.Add(24 * 24 * time.Hour) }
	rotated, err := auth.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh at 24d: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatalf("token should have rotated past 23d")
	}
	if _, err := auth.Refresh(ctx, pair.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("old token should be dead after rotation: %v", err)
	}
	if _, err := auth.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("rotated token rejected: %v", err)
	}
}

func TestRefreshAgeBoundaries(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	// Truncate so the stored epoch-second creation time matches the clock
	// exactly and the ages below land on the boundaries.
	base := time.Now().UTC().Truncate(time.Second)
	auth.now = func() time.Time { return base }

	_, alice, err := auth.Register(ctx, "alice", "a@b.com", testPassword)
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	_, bob, err := auth.Register(ctx, "bob", "b@b.com", testPassword)
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}

	// At exactly 23 days the token rotates.
	auth.now = func() time.Time { return base.Add(domain.RefreshRotateAfter) }
	rotated, err := auth.Refresh(ctx, alice.RefreshToken)
	if err != nil {
		t.Fatalf("refresh at 23d: %v", err)
	}
	if rotated.RefreshToken == alice.RefreshToken {
		t.Fatalf("token should rotate at exactly 23d")
	}

	// At exactly 30 days the token is dead.
	auth.now = func() time.Time { return base.Add(domain.RefreshTokenTTL) }
	if _, err := auth.Refresh(ctx, bob.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("refresh at 30d: got %v, want unauthorized", err)
	}
}

func TestRefreshExpiry(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	base := time.Now().UTC()
	auth.now = func() time.Time { return base }

	_, pair, err := auth.Register(ctx, "alice", "a@b.com", testPassword)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	auth.now = func() time.Time { return base.Add(31 * 24 * time.Hour) }
	if _, err := auth.Refresh(ctx, pair.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("got %v, want unauthorized past 30d", err)
	}
	// The expired row is deleted, not just rejected.
	if _, err := auth.Refresh(ctx, pair.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("second use: got %v, want unauthorized", err)
	}
}

func TestLogoutAndDevices(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	user, first, err := auth.Register(ctx, "alice", "a@b.com", testPassword)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_, second, err := auth.Login(ctx, "alice", testPassword, "phone")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	devices, err := auth.Devices(ctx, user.ID)
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}

	if err := auth.Logout(ctx, first.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	// Logout cascades to the access tokens under that refresh token.
	if _, err := auth.VerifyAccess(ctx, first.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("access token survived logout: %v", err)
	}
	if _, err := auth.VerifyAccess(ctx, second.AccessToken); err != nil {
		t.Fatalf("other device logged out too: %v", err)
	}

	// Revoke needs the password re-proved.
	if err := auth.Revoke(ctx, user.ID, "00"+testPassword[2:], "phone"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("revoke with wrong password: got %v, want unauthorized", err)
	}
	if err := auth.Revoke(ctx, user.ID, testPassword, "phone"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := auth.Refresh(ctx, second.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("revoked device still refreshes: %v", err)
	}
}
