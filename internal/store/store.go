package store

import (
	"context"
	"errors"

	"concord/internal/domain"

	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.DB.WithContext(ctx).AutoMigrate(
		&domain.User{},
		&domain.RefreshToken{},
		&domain.AccessToken{},
		&domain.Guild{},
		&domain.Member{},
		&domain.Role{},
		&domain.RoleMember{},
		&domain.Channel{},
		&domain.ChannelPermission{},
		&domain.Message{},
		&domain.Invite{},
		&domain.GuildBan{},
		&domain.AuditLog{},
		&domain.Friend{},
		&domain.FriendRequest{},
	)
}

// notFound maps gorm's record-not-found onto the domain sentinel so callers
// never see a gorm error type.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
