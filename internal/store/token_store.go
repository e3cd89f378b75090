package store

import (
	"context"

	"concord/internal/domain"

	"gorm.io/gorm"
)

type TokenStore struct{ db *gorm.DB }

func (s *Store) Tokens() *TokenStore { return &TokenStore{db: s.DB} }

func (t *TokenStore) CreateRefresh(ctx context.Context, rt *domain.RefreshToken) error {
	return t.db.WithContext(ctx).Create(rt).Error
}

func (t *TokenStore) GetRefresh(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var rt domain.RefreshToken
	if err := t.db.WithContext(ctx).First(&rt, "token = ?", token).Error; err != nil {
		return nil, notFound(err)
	}
	return &rt, nil
}

// DeleteRefresh removes one refresh token and every access token minted
// under it.
func (t *TokenStore) DeleteRefresh(ctx context.Context, token string) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.AccessToken{}, "refresh_token = ?", token).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.RefreshToken{}, "token = ?", token).Error
	})
}

func (t *TokenStore) DeleteRefreshByDevice(ctx context.Context, userID domain.UserID, device string) error {
	var tokens []domain.RefreshToken
	if err := t.db.WithContext(ctx).
		Find(&tokens, "user_id = ? AND device_name = ?", userID, device).Error; err != nil {
		return err
	}
	for _, rt := range tokens {
		if err := t.DeleteRefresh(ctx, rt.Token); err != nil {
			return err
		}
	}
	return nil
}

func (t *TokenStore) ListRefreshByUser(ctx context.Context, userID domain.UserID) ([]domain.RefreshToken, error) {
	var tokens []domain.RefreshToken
	if err := t.db.WithContext(ctx).
		Order("created_at desc").
		Find(&tokens, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// RotateRefresh transfers the row to a fresh token string, keeping the
// device binding but restarting the 30-day clock.
func (t *TokenStore) RotateRefresh(ctx context.Context, old *domain.RefreshToken, fresh *domain.RefreshToken) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(fresh).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.RefreshToken{}, "token = ?", old.Token).Error
	})
}

func (t *TokenStore) CreateAccess(ctx context.Context, at *domain.AccessToken) error {
	return t.db.WithContext(ctx).Create(at).Error
}

func (t *TokenStore) GetAccess(ctx context.Context, token string) (*domain.AccessToken, error) {
	var at domain.AccessToken
	if err := t.db.WithContext(ctx).First(&at, "token = ?", token).Error; err != nil {
		return nil, notFound(err)
	}
	return &at, nil
}

func (t *TokenStore) DeleteAccessByRefresh(ctx context.Context, refresh string) error {
	return t.db.WithContext(ctx).Delete(&domain.AccessToken{}, "refresh_token = ?", refresh).Error
}
