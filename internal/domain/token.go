package domain

import "time"

// Token lifetimes. Access tokens die after an hour; refresh tokens live 30
// days and are rotated once they pass the 23-day rolling window.
const (
	AccessTokenTTL     = time.Hour
	RefreshTokenTTL    = 30 * 24 * time.Hour
	RefreshRotateAfter = 23 * 24 * time.Hour
)

// RefreshToken is an opaque 64-hex credential bound to one device.
type RefreshToken struct {
	Token      string `gorm:"primaryKey;size:64" json:"-"`
	UserID     UserID `gorm:"type:uuid;index;not null" json:"-"`
	CreatedAt  int64  `gorm:"not null" json:"created_at"`
	DeviceName string `gorm:"size:64;not null" json:"device_name"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

func (t RefreshToken) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(t.CreatedAt, 0))
}

// AccessToken is an opaque 32-hex credential minted under a refresh token.
// Rows exist only while their parent refresh token does.
type AccessToken struct {
	Token        string `gorm:"primaryKey;size:32"`
	RefreshToken string `gorm:"size:64;index;not null"`
	UserID       UserID `gorm:"type:uuid;index;not null"`
	CreatedAt    int64  `gorm:"not null"`
}

func (AccessToken) TableName() string { return "access_tokens" }

func (t AccessToken) Expired(now time.Time) bool {
	return now.Sub(time.Unix(t.CreatedAt, 0)) > AccessTokenTTL
}
