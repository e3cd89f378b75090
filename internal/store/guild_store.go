package store

import (
	"context"

	"concord/internal/domain"

	"gorm.io/gorm"
)

type GuildStore struct{ db *gorm.DB }

func (s *Store) Guilds() *GuildStore { return &GuildStore{db: s.DB} }

func (g *GuildStore) Create(ctx context.Context, guild *domain.Guild) error {
	return g.db.WithContext(ctx).Create(guild).Error
}

func (g *GuildStore) GetByID(ctx context.Context, id domain.GuildID) (*domain.Guild, error) {
	var guild domain.Guild
	if err := g.db.WithContext(ctx).First(&guild, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &guild, nil
}

func (g *GuildStore) Update(ctx context.Context, guild *domain.Guild) error {
	return g.db.WithContext(ctx).Save(guild).Error
}

func (g *GuildStore) Delete(ctx context.Context, id domain.GuildID) error {
	return g.db.WithContext(ctx).Delete(&domain.Guild{}, "id = ?", id).Error
}

func (g *GuildStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := g.db.WithContext(ctx).Model(&domain.Guild{}).Count(&n).Error
	return n, err
}

func (g *GuildStore) MemberCount(ctx context.Context, id domain.GuildID) (int64, error) {
	var n int64
	err := g.db.WithContext(ctx).Model(&domain.Member{}).
		Where("guild_id = ?", id).Count(&n).Error
	return n, err
}
