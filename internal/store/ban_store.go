package store

import (
	"context"

	"concord/internal/domain"

	"gorm.io/gorm"
)

type BanStore struct{ db *gorm.DB }

func (s *Store) Bans() *BanStore { return &BanStore{db: s.DB} }

func (b *BanStore) Create(ctx context.Context, ban *domain.GuildBan) error {
	return b.db.WithContext(ctx).Create(ban).Error
}

func (b *BanStore) Get(ctx context.Context, guildID domain.GuildID, userID domain.UserID) (*domain.GuildBan, error) {
	var ban domain.GuildBan
	if err := b.db.WithContext(ctx).
		First(&ban, "guild_id = ? AND user_id = ?", guildID, userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &ban, nil
}

func (b *BanStore) ListByGuild(ctx context.Context, guildID domain.GuildID) ([]domain.GuildBan, error) {
	var bans []domain.GuildBan
	if err := b.db.WithContext(ctx).Find(&bans, "guild_id = ?", guildID).Error; err != nil {
		return nil, err
	}
	return bans, nil
}

func (b *BanStore) Delete(ctx context.Context, guildID domain.GuildID, userID domain.UserID) error {
	return b.db.WithContext(ctx).
		Delete(&domain.GuildBan{}, "guild_id = ? AND user_id = ?", guildID, userID).Error
}
