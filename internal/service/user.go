package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"concord/internal/cache"
	"concord/internal/domain"
	"concord/internal/store"

	"github.com/google/uuid"
)

// AvatarUploader stores image blobs and hands back public URLs.
type AvatarUploader interface {
	Upload(ctx context.Context, path string, data []byte) (string, error)
	Delete(ctx context.Context, path string) error
}

// UserService covers the caller's own profile and the cross-guild social
// graph.
type UserService struct {
	store *store.Store
	cache cache.Cache
	cdn   AvatarUploader
	now   func() time.Time
}

func NewUserService(st *store.Store, c cache.Cache, cdn AvatarUploader) *UserService {
	return &UserService{
		store: st,
		cache: c,
		cdn:   cdn,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (u *UserService) Get(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return u.store.Users().GetByID(ctx, id)
}

type ProfileUpdate struct {
	DisplayName *string `json:"display_name"`
	Pronouns    *string `json:"pronouns"`
	About       *string `json:"about"`
}

// UpdateProfile patches the caller's profile. A non-nil avatar blob must be
// JPEG or PNG by magic, not by declared content type.
func (u *UserService) UpdateProfile(ctx context.Context, id domain.UserID, patch ProfileUpdate, avatar []byte) (*domain.User, error) {
	user, err := u.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.DisplayName != nil {
		user.DisplayName = patch.DisplayName
	}
	if patch.Pronouns != nil {
		user.Pronouns = patch.Pronouns
	}
	if patch.About != nil {
		user.About = patch.About
	}
	if avatar != nil {
		ext, err := sniffImage(avatar)
		if err != nil {
			return nil, err
		}
		url, err := u.cdn.Upload(ctx, "avatars/"+id.String()+ext, avatar)
		if err != nil {
			return nil, err
		}
		user.Avatar = &url
	}
	user.UpdatedAt = u.now()
	if err := u.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}
	// Replace rather than delete: the message pipeline reads this key hot.
	pub := user.Public()
	_ = u.cache.Set(ctx, cache.KeyUser(id), pub, cache.TTLUser)
	return user, nil
}

// sniffImage accepts only JPEG and PNG, judged by file magic.
func sniffImage(data []byte) (string, error) {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	default:
		return "", fmt.Errorf("%w: only jpeg and png images are accepted", domain.ErrBadRequest)
	}
}

func (u *UserService) Guilds(ctx context.Context, id domain.UserID) ([]domain.Guild, error) {
	return u.store.Members().ListGuildsByUser(ctx, id)
}

// ---- Friend graph ----

// FriendList is the caller's accepted friends plus pending requests in both
// directions.
type FriendList struct {
	Friends  []domain.User          `json:"friends"`
	Incoming []domain.FriendRequest `json:"incoming"`
	Outgoing []domain.FriendRequest `json:"outgoing"`
}

func (u *UserService) Friends(ctx context.Context, id domain.UserID) (*FriendList, error) {
	rows, err := u.store.Friends().ListFriends(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &FriendList{Friends: []domain.User{}, Incoming: []domain.FriendRequest{}, Outgoing: []domain.FriendRequest{}}
	for _, fr := range rows {
		other := fr.UserID1
		if other == id {
			other = fr.UserID2
		}
		if user, uerr := u.store.Users().GetByID(ctx, other); uerr == nil {
			out.Friends = append(out.Friends, user.Public())
		}
	}
	reqs, err := u.store.Friends().ListRequests(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, r := range reqs {
		if r.ReceiverID == id {
			out.Incoming = append(out.Incoming, r)
		} else {
			out.Outgoing = append(out.Outgoing, r)
		}
	}
	return out, nil
}

// AddFriend either records a request or, when the target already asked,
// promotes the pair to friendship. The Friend row is stored canonically
// with the byte-wise smaller uuid first.
func (u *UserService) AddFriend(ctx context.Context, callerID domain.UserID, target string) error {
	targetUser, err := u.resolveUser(ctx, target)
	if err != nil {
		return err
	}
	targetID := targetUser.ID
	if targetID == callerID {
		return fmt.Errorf("%w: cannot befriend yourself", domain.ErrBadRequest)
	}

	if _, err := u.store.Friends().GetFriend(ctx, callerID, targetID); err == nil {
		return fmt.Errorf("%w: Already friends", domain.ErrBadRequest)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	// A pending request from the target means both sides agree.
	if _, err := u.store.Friends().GetRequest(ctx, targetID, callerID); err == nil {
		lo, hi := domain.CanonicalPair(callerID, targetID)
		if err := u.store.Friends().CreateFriend(ctx, &domain.Friend{
			UserID1:    lo,
			UserID2:    hi,
			AcceptedAt: u.now(),
		}); err != nil {
			return err
		}
		return u.store.Friends().DeleteRequest(ctx, targetID, callerID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	return u.store.Friends().CreateRequest(ctx, &domain.FriendRequest{
		SenderID:    callerID,
		ReceiverID:  targetID,
		RequestedAt: u.now(),
	})
}

// RemoveFriend deletes the friendship, or a pending request in either
// direction when no friendship exists yet.
func (u *UserService) RemoveFriend(ctx context.Context, callerID, targetID domain.UserID) error {
	if _, err := u.store.Friends().GetFriend(ctx, callerID, targetID); err == nil {
		return u.store.Friends().DeleteFriend(ctx, callerID, targetID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if _, err := u.store.Friends().GetRequest(ctx, callerID, targetID); err == nil {
		return u.store.Friends().DeleteRequest(ctx, callerID, targetID)
	}
	if _, err := u.store.Friends().GetRequest(ctx, targetID, callerID); err == nil {
		return u.store.Friends().DeleteRequest(ctx, targetID, callerID)
	}
	return fmt.Errorf("%w: not friends", domain.ErrBadRequest)
}

// resolveUser accepts a uuid or a username.
func (u *UserService) resolveUser(ctx context.Context, identifier string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if id, err := uuid.Parse(identifier); err == nil {
		return u.store.Users().GetByID(ctx, id)
	}
	return u.store.Users().GetByUsername(ctx, strings.ToLower(identifier))
}
