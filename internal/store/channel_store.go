package store

import (
	"context"

	"concord/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChannelStore struct{ db *gorm.DB }

func (s *Store) Channels() *ChannelStore { return &ChannelStore{db: s.DB} }

// Create appends the channel to the bottom of its guild's chain.
func (c *ChannelStore) Create(ctx context.Context, ch *domain.Channel) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ch.IsAbove = nil
		if err := tx.Create(ch).Error; err != nil {
			return err
		}
		return chainLink(tx, &domain.Channel{}, ch.GuildID, ch.ID)
	})
}

func (c *ChannelStore) GetByID(ctx context.Context, id domain.ChannelID) (*domain.Channel, error) {
	var ch domain.Channel
	if err := c.db.WithContext(ctx).First(&ch, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &ch, nil
}

// ListOrdered returns the guild's channels top to bottom.
func (c *ChannelStore) ListOrdered(ctx context.Context, guildID domain.GuildID) ([]domain.Channel, error) {
	var channels []domain.Channel
	if err := c.db.WithContext(ctx).Find(&channels, "guild_id = ?", guildID).Error; err != nil {
		return nil, err
	}
	return orderChain(channels,
		func(ch domain.Channel) uuid.UUID { return ch.ID },
		func(ch domain.Channel) *uuid.UUID { return ch.IsAbove })
}

func (c *ChannelStore) Update(ctx context.Context, ch *domain.Channel) error {
	return c.db.WithContext(ctx).Save(ch).Error
}

// Move re-anchors the channel so newBelow sits directly beneath it; nil
// sends it to the bottom. All pointer writes share one transaction.
func (c *ChannelStore) Move(ctx context.Context, guildID domain.GuildID, target domain.ChannelID, newBelow *uuid.UUID) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return chainMove(tx, &domain.Channel{}, guildID, target, newBelow)
	})
}

func (c *ChannelStore) Delete(ctx context.Context, guildID domain.GuildID, id domain.ChannelID) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := chainRemove(tx, &domain.Channel{}, guildID, id); err != nil {
			return err
		}
		if err := tx.Delete(&domain.ChannelPermission{}, "channel_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.Message{}, "channel_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Channel{}, "id = ?", id).Error
	})
}

func (c *ChannelStore) ListPermissions(ctx context.Context, channelID domain.ChannelID) ([]domain.ChannelPermission, error) {
	var perms []domain.ChannelPermission
	if err := c.db.WithContext(ctx).Find(&perms, "channel_id = ?", channelID).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (c *ChannelStore) UpsertPermission(ctx context.Context, p *domain.ChannelPermission) error {
	return c.db.WithContext(ctx).Save(p).Error
}

func (c *ChannelStore) DeletePermission(ctx context.Context, channelID domain.ChannelID, roleID domain.RoleID) error {
	return c.db.WithContext(ctx).
		Delete(&domain.ChannelPermission{}, "channel_id = ? AND role_id = ?", channelID, roleID).Error
}
