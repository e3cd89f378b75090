package store

import (
	"context"

	"concord/internal/domain"

	"gorm.io/gorm"
)

type InviteStore struct{ db *gorm.DB }

func (s *Store) Invites() *InviteStore { return &InviteStore{db: s.DB} }

func (i *InviteStore) Create(ctx context.Context, inv *domain.Invite) error {
	return i.db.WithContext(ctx).Create(inv).Error
}

func (i *InviteStore) GetByID(ctx context.Context, id string) (*domain.Invite, error) {
	var inv domain.Invite
	if err := i.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

func (i *InviteStore) ListByGuild(ctx context.Context, guildID domain.GuildID) ([]domain.Invite, error) {
	var invs []domain.Invite
	if err := i.db.WithContext(ctx).Find(&invs, "guild_id = ?", guildID).Error; err != nil {
		return nil, err
	}
	return invs, nil
}

func (i *InviteStore) Delete(ctx context.Context, id string) error {
	return i.db.WithContext(ctx).Delete(&domain.Invite{}, "id = ?", id).Error
}
