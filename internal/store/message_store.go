package store

import (
	"context"

	"concord/internal/domain"

	"gorm.io/gorm"
)

// MaxHistoryPage caps one history read.
const MaxHistoryPage = 100

type MessageStore struct{ db *gorm.DB }

func (s *Store) Messages() *MessageStore { return &MessageStore{db: s.DB} }

func (m *MessageStore) Create(ctx context.Context, msg *domain.Message) error {
	return m.db.WithContext(ctx).Create(msg).Error
}

func (m *MessageStore) GetByID(ctx context.Context, id domain.MessageID) (*domain.Message, error) {
	var msg domain.Message
	if err := m.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &msg, nil
}

func (m *MessageStore) UpdateText(ctx context.Context, id domain.MessageID, text string) error {
	return m.db.WithContext(ctx).Model(&domain.Message{}).
		Where("id = ?", id).
		Update("text", text).Error
}

func (m *MessageStore) Delete(ctx context.Context, id domain.MessageID) error {
	return m.db.WithContext(ctx).Delete(&domain.Message{}, "id = ?", id).Error
}

// History pages newest-first. Message ids are time-ordered, so descending id
// is descending creation time without touching a timestamp column.
func (m *MessageStore) History(ctx context.Context, channelID domain.ChannelID, amount, offset int) ([]domain.Message, error) {
	if amount <= 0 || amount > MaxHistoryPage {
		amount = MaxHistoryPage
	}
	if offset < 0 {
		offset = 0
	}
	var msgs []domain.Message
	if err := m.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("id desc").
		Limit(amount).
		Offset(offset).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (m *MessageStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := m.db.WithContext(ctx).Model(&domain.Message{}).Count(&n).Error
	return n, err
}
