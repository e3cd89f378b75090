package store

import (
	"context"

	"concord/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoleStore struct{ db *gorm.DB }

func (s *Store) Roles() *RoleStore { return &RoleStore{db: s.DB} }

func (r *RoleStore) Create(ctx context.Context, role *domain.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role.IsAbove = nil
		if err := tx.Create(role).Error; err != nil {
			return err
		}
		return chainLink(tx, &domain.Role{}, role.GuildID, role.ID)
	})
}

func (r *RoleStore) GetByID(ctx context.Context, id domain.RoleID) (*domain.Role, error) {
	var role domain.Role
	if err := r.db.WithContext(ctx).First(&role, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

func (r *RoleStore) ListOrdered(ctx context.Context, guildID domain.GuildID) ([]domain.Role, error) {
	var roles []domain.Role
	if err := r.db.WithContext(ctx).Find(&roles, "guild_id = ?", guildID).Error; err != nil {
		return nil, err
	}
	return orderChain(roles,
		func(role domain.Role) uuid.UUID { return role.ID },
		func(role domain.Role) *uuid.UUID { return role.IsAbove })
}

func (r *RoleStore) Update(ctx context.Context, role *domain.Role) error {
	return r.db.WithContext(ctx).Save(role).Error
}

func (r *RoleStore) Move(ctx context.Context, guildID domain.GuildID, target domain.RoleID, newBelow *uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return chainMove(tx, &domain.Role{}, guildID, target, newBelow)
	})
}

func (r *RoleStore) Delete(ctx context.Context, guildID domain.GuildID, id domain.RoleID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := chainRemove(tx, &domain.Role{}, guildID, id); err != nil {
			return err
		}
		if err := tx.Delete(&domain.RoleMember{}, "role_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.ChannelPermission{}, "role_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Role{}, "id = ?", id).Error
	})
}
