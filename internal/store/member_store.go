package store

import (
	"context"

	"concord/internal/domain"

	"gorm.io/gorm"
)

type MemberStore struct{ db *gorm.DB }

func (s *Store) Members() *MemberStore { return &MemberStore{db: s.DB} }

func (m *MemberStore) Create(ctx context.Context, member *domain.Member) error {
	return m.db.WithContext(ctx).Create(member).Error
}

func (m *MemberStore) GetByID(ctx context.Context, id domain.MemberID) (*domain.Member, error) {
	var member domain.Member
	if err := m.db.WithContext(ctx).First(&member, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &member, nil
}

// GetByGuildUser is the single membership gate: a Member row exists iff the
// user is in the guild.
func (m *MemberStore) GetByGuildUser(ctx context.Context, guildID domain.GuildID, userID domain.UserID) (*domain.Member, error) {
	var member domain.Member
	if err := m.db.WithContext(ctx).
		First(&member, "guild_id = ? AND user_id = ?", guildID, userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &member, nil
}

func (m *MemberStore) ListByGuild(ctx context.Context, guildID domain.GuildID) ([]domain.Member, error) {
	var members []domain.Member
	if err := m.db.WithContext(ctx).
		Order("id asc").
		Find(&members, "guild_id = ?", guildID).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (m *MemberStore) ListGuildsByUser(ctx context.Context, userID domain.UserID) ([]domain.Guild, error) {
	var guilds []domain.Guild
	err := m.db.WithContext(ctx).
		Joins("JOIN members ON members.guild_id = guilds.id").
		Where("members.user_id = ?", userID).
		Order("guilds.id asc").
		Find(&guilds).Error
	if err != nil {
		return nil, err
	}
	return guilds, nil
}

func (m *MemberStore) Update(ctx context.Context, member *domain.Member) error {
	return m.db.WithContext(ctx).Save(member).Error
}

func (m *MemberStore) Delete(ctx context.Context, id domain.MemberID) error {
	return m.db.WithContext(ctx).Delete(&domain.Member{}, "id = ?", id).Error
}

func (m *MemberStore) ListRoles(ctx context.Context, memberID domain.MemberID) ([]domain.Role, error) {
	var roles []domain.Role
	err := m.db.WithContext(ctx).
		Joins("JOIN role_members ON role_members.role_id = roles.id").
		Where("role_members.member_id = ?", memberID).
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (m *MemberStore) AddRole(ctx context.Context, roleID domain.RoleID, memberID domain.MemberID) error {
	return m.db.WithContext(ctx).
		Where(domain.RoleMember{RoleID: roleID, MemberID: memberID}).
		FirstOrCreate(&domain.RoleMember{RoleID: roleID, MemberID: memberID}).Error
}

func (m *MemberStore) RemoveRole(ctx context.Context, roleID domain.RoleID, memberID domain.MemberID) error {
	return m.db.WithContext(ctx).
		Delete(&domain.RoleMember{}, "role_id = ? AND member_id = ?", roleID, memberID).Error
}
