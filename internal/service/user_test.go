package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"concord/internal/domain"
	"concord/internal/store"
)

type fakeCDN struct {
	uploads map[string][]byte
}

func (f *fakeCDN) Upload(ctx context.Context, path string, data []byte) (string, error) {
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[path] = data
	return "https://cdn.test/" + path, nil
}

func (f *fakeCDN) Delete(ctx context.Context, path string) error {
	delete(f.uploads, path)
	return nil
}

func seedUser(t *testing.T, st *store.Store, username string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	user := &domain.User{
		ID:           domain.NewID(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "irrelevant",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := st.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func setupUsers(t *testing.T) (*UserService, *store.Store, *fakeCDN) {
	t.Helper()
	st := testStore(t)
	cdn := &fakeCDN{}
	return NewUserService(st, newTestCache(), cdn), st, cdn
}

func TestUpdateProfile(t *testing.T) {
	users, st, _ := setupUsers(t)
	ctx := context.Background()
	u := seedUser(t, st, "alice")

	name := "Alice A."
	pronouns := "they/them"
	updated, err := users.UpdateProfile(ctx, u.ID, ProfileUpdate{DisplayName: &name, Pronouns: &pronouns}, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DisplayName == nil || *updated.DisplayName != name {
		t.Fatalf("display name not applied: %v", updated.DisplayName)
	}

	// Fields absent from the patch stay untouched.
	about := "hello"
	updated, err = users.UpdateProfile(ctx, u.ID, ProfileUpdate{About: &about}, nil)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if updated.DisplayName == nil || *updated.DisplayName != name {
		t.Fatalf("display name lost on partial patch")
	}
}

func TestAvatarSniffing(t *testing.T) {
	users, st, cdn := setupUsers(t)
	ctx := context.Background()
	u := seedUser(t, st, "alice")

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	updated, err := users.UpdateProfile(ctx, u.ID, ProfileUpdate{}, png)
	if err != nil {
		t.Fatalf("png upload: %v", err)
	}
	wantPath := "avatars/" + u.ID.String() + ".png"
	if updated.Avatar == nil || *updated.Avatar != "https://cdn.test/"+wantPath {
		t.Fatalf("avatar url = %v", updated.Avatar)
	}
	if _, ok := cdn.uploads[wantPath]; !ok {
		t.Fatalf("blob never reached the uploader")
	}

	jpeg := append([]byte{0xff, 0xd8, 0xff, 0xe0}, bytes.Repeat([]byte{0}, 64)...)
	if _, err := users.UpdateProfile(ctx, u.ID, ProfileUpdate{}, jpeg); err != nil {
		t.Fatalf("jpeg upload: %v", err)
	}

	// A GIF is rejected by magic even though it is an image.
	gif := append([]byte("GIF89a"), bytes.Repeat([]byte{0}, 64)...)
	if _, err := users.UpdateProfile(ctx, u.ID, ProfileUpdate{}, gif); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("gif: got %v, want bad request", err)
	}
	// Declared type is irrelevant, only content counts.
	fakePNG := append([]byte("not an image at all"), bytes.Repeat([]byte{'x'}, 64)...)
	if _, err := users.UpdateProfile(ctx, u.ID, ProfileUpdate{}, fakePNG); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("text blob: got %v, want bad request", err)
	}
}

func TestFriendRequestFlow(t *testing.T) {
	users, st, _ := setupUsers(t)
	ctx := context.Background()
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	if err := users.AddFriend(ctx, alice.ID, alice.ID.String()); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("self-friend: got %v, want bad request", err)
	}

	// First add records a pending request.
	if err := users.AddFriend(ctx, alice.ID, "bob"); err != nil {
		t.Fatalf("add friend: %v", err)
	}
	list, err := users.Friends(ctx, alice.ID)
	if err != nil {
		t.Fatalf("friends: %v", err)
	}
	if len(list.Friends) != 0 || len(list.Outgoing) != 1 || len(list.Incoming) != 0 {
		t.Fatalf("after request: friends=%d out=%d in=%d", len(list.Friends), len(list.Outgoing), len(list.Incoming))
	}
	bobList, err := users.Friends(ctx, bob.ID)
	if err != nil {
		t.Fatalf("friends: %v", err)
	}
	if len(bobList.Incoming) != 1 {
		t.Fatalf("bob should see one incoming request, got %d", len(bobList.Incoming))
	}

	// The reverse add promotes the pair and consumes the request.
	if err := users.AddFriend(ctx, bob.ID, alice.ID.String()); err != nil {
		t.Fatalf("accept: %v", err)
	}
	list, err = users.Friends(ctx, alice.ID)
	if err != nil {
		t.Fatalf("friends: %v", err)
	}
	if len(list.Friends) != 1 || len(list.Outgoing) != 0 || len(list.Incoming) != 0 {
		t.Fatalf("after accept: friends=%d out=%d in=%d", len(list.Friends), len(list.Outgoing), len(list.Incoming))
	}
	if list.Friends[0].Username != "bob" {
		t.Fatalf("friend resolved to %q", list.Friends[0].Username)
	}

	// The row is stored canonically regardless of who accepted.
	fr, err := st.Friends().GetFriend(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("get friend: %v", err)
	}
	lo, hi := domain.CanonicalPair(alice.ID, bob.ID)
	if fr.UserID1 != lo || fr.UserID2 != hi {
		t.Fatalf("pair not canonical: %v %v", fr.UserID1, fr.UserID2)
	}

	if err := users.AddFriend(ctx, alice.ID, "bob"); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("re-add: got %v, want bad request", err)
	} else if got := err.Error(); got != fmt.Sprintf("%v: Already friends", domain.ErrBadRequest) {
		t.Fatalf("re-add message = %q", got)
	}
}

func TestRemoveFriend(t *testing.T) {
	users, st, _ := setupUsers(t)
	ctx := context.Background()
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	// Removing with nothing between the two is an error.
	if err := users.RemoveFriend(ctx, alice.ID, bob.ID); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("remove nothing: got %v, want bad request", err)
	}

	// Removing a pending outgoing request cancels it.
	if err := users.AddFriend(ctx, alice.ID, "bob"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := users.RemoveFriend(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("cancel request: %v", err)
	}

	// The receiver can decline by removing too.
	if err := users.AddFriend(ctx, alice.ID, "bob"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := users.RemoveFriend(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}

	// Full cycle: befriend then unfriend.
	if err := users.AddFriend(ctx, alice.ID, "bob"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := users.AddFriend(ctx, bob.ID, "alice"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := users.RemoveFriend(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("unfriend: %v", err)
	}
	list, err := users.Friends(ctx, alice.ID)
	if err != nil {
		t.Fatalf("friends: %v", err)
	}
	if len(list.Friends) != 0 {
		t.Fatalf("friendship survived removal")
	}
}

func TestAddFriendUnknownTarget(t *testing.T) {
	users, st, _ := setupUsers(t)
	alice := seedUser(t, st, "alice")

	if err := users.AddFriend(context.Background(), alice.ID, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want not found", err)
	}
}
