package domain

import "time"

type User struct {
	ID            UserID     `gorm:"type:uuid;primaryKey" json:"uuid"`
	Username      string     `gorm:"uniqueIndex:ux_users_username;size:32;not null" json:"username"`
	DisplayName   *string    `gorm:"size:64" json:"display_name,omitempty"`
	PasswordHash  string     `gorm:"type:text;not null" json:"-"`
	Email         string     `gorm:"uniqueIndex:ux_users_email;not null" json:"email,omitempty"`
	EmailVerified bool       `gorm:"not null;default:false" json:"email_verified"`
	Avatar        *string    `gorm:"type:text" json:"avatar,omitempty"`
	Pronouns      *string    `gorm:"size:32" json:"pronouns,omitempty"`
	About         *string    `gorm:"type:text" json:"about,omitempty"`
	IsDeleted     bool       `gorm:"not null;default:false" json:"-"`
	DeletedAt     *time.Time `json:"-"`
	CreatedAt     time.Time  `gorm:"not null" json:"-"`
	UpdatedAt     time.Time  `gorm:"not null" json:"-"`
}

func (User) TableName() string { return "users" }

// Public strips the fields other users are never shown.
func (u User) Public() User {
	u.Email = ""
	u.EmailVerified = false
	return u
}
