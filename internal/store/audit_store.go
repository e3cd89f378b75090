package store

import (
	"context"

	"concord/internal/domain"

	"gorm.io/gorm"
)

type AuditStore struct{ db *gorm.DB }

func (s *Store) Audit() *AuditStore { return &AuditStore{db: s.DB} }

// Create is the only write; audit entries are append-only.
func (a *AuditStore) Create(ctx context.Context, entry *domain.AuditLog) error {
	return a.db.WithContext(ctx).Create(entry).Error
}

func (a *AuditStore) ListByGuild(ctx context.Context, guildID domain.GuildID, amount, offset int) ([]domain.AuditLog, error) {
	if amount <= 0 || amount > MaxHistoryPage {
		amount = MaxHistoryPage
	}
	var entries []domain.AuditLog
	if err := a.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("id desc").
		Limit(amount).
		Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
