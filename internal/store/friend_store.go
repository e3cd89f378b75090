package store

import (
	"context"

	"concord/internal/domain"

	"gorm.io/gorm"
)

type FriendStore struct{ db *gorm.DB }

func (s *Store) Friends() *FriendStore { return &FriendStore{db: s.DB} }

// CreateFriend expects a canonically ordered pair (see domain.CanonicalPair).
func (f *FriendStore) CreateFriend(ctx context.Context, fr *domain.Friend) error {
	return f.db.WithContext(ctx).Create(fr).Error
}

func (f *FriendStore) GetFriend(ctx context.Context, a, b domain.UserID) (*domain.Friend, error) {
	lo, hi := domain.CanonicalPair(a, b)
	var fr domain.Friend
	if err := f.db.WithContext(ctx).
		First(&fr, "user_id1 = ? AND user_id2 = ?", lo, hi).Error; err != nil {
		return nil, notFound(err)
	}
	return &fr, nil
}

func (f *FriendStore) DeleteFriend(ctx context.Context, a, b domain.UserID) error {
	lo, hi := domain.CanonicalPair(a, b)
	return f.db.WithContext(ctx).
		Delete(&domain.Friend{}, "user_id1 = ? AND user_id2 = ?", lo, hi).Error
}

func (f *FriendStore) ListFriends(ctx context.Context, userID domain.UserID) ([]domain.Friend, error) {
	var frs []domain.Friend
	if err := f.db.WithContext(ctx).
		Find(&frs, "user_id1 = ? OR user_id2 = ?", userID, userID).Error; err != nil {
		return nil, err
	}
	return frs, nil
}

func (f *FriendStore) CreateRequest(ctx context.Context, req *domain.FriendRequest) error {
	return f.db.WithContext(ctx).
		Where(domain.FriendRequest{SenderID: req.SenderID, ReceiverID: req.ReceiverID}).
		FirstOrCreate(req).Error
}

func (f *FriendStore) GetRequest(ctx context.Context, sender, receiver domain.UserID) (*domain.FriendRequest, error) {
	var req domain.FriendRequest
	if err := f.db.WithContext(ctx).
		First(&req, "sender_id = ? AND receiver_id = ?", sender, receiver).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (f *FriendStore) DeleteRequest(ctx context.Context, sender, receiver domain.UserID) error {
	return f.db.WithContext(ctx).
		Delete(&domain.FriendRequest{}, "sender_id = ? AND receiver_id = ?", sender, receiver).Error
}

func (f *FriendStore) ListRequests(ctx context.Context, userID domain.UserID) ([]domain.FriendRequest, error) {
	var reqs []domain.FriendRequest
	if err := f.db.WithContext(ctx).
		Find(&reqs, "sender_id = ? OR receiver_id = ?", userID, userID).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}
