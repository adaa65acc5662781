package models

import (
	"time"
)

type MessagingPermission string

const (
	PermissionOpen        MessagingPermission = "open"
	PermissionFriendsOnly MessagingPermission = "friends-only"
	PermissionNobody      MessagingPermission = "nobody"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Nickname  string `gorm:"size:60;uniqueIndex" json:"nickname"`
	Password  string `gorm:"size:255" json:"-"`
	AvatarURL string `gorm:"size:512" json:"avatar_url"`
	Role      Role   `gorm:"size:20;default:user" json:"role"`

	// Приватность личных сообщений: open | friends-only | nobody
	MessagingPermission MessagingPermission `gorm:"size:20;default:open" json:"messaging_permission"`

	LastSeenAt         time.Time `json:"last_seen_at"`
	OnlineVisibleUntil time.Time `json:"online_visible_until"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

type UserTokens struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64  `gorm:"index:user_token_idx,unique" json:"user_id"`
	Token  string `gorm:"size:255;index:user_token_idx,unique" json:"token"`
}

func (UserTokens) TableName() string {
	return "user_tokens"
}

// MessagingExemption - административный список исключений из permission gate
type MessagingExemption struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"uniqueIndex" json:"user_id"`
	Reason    string    `gorm:"size:255" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (MessagingExemption) TableName() string {
	return "messaging_exemptions"
}
