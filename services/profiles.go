package services

import (
	"context"
	"errors"
	"time"

	"messenger/db"
	"messenger/errs"
	"messenger/models"

	"gorm.io/gorm"
)

const OnlineVisibleWindow = 5 * time.Minute

// Profile - публичная карточка пользователя для списка диалогов
type Profile struct {
	ID                 int64     `json:"id"`
	Nickname           string    `json:"nickname"`
	AvatarURL          string    `json:"avatar_url"`
	LastSeenAt         time.Time `json:"last_seen_at"`
	OnlineVisibleUntil time.Time `json:"online_visible_until"`
}

type ProfileService struct{}

func NewProfileService() *ProfileService {
	return &ProfileService{}
}

// GetProfile возвращает карточку пользователя
func (ps *ProfileService) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("user not found")
		}
		return nil, err
	}
	return &Profile{
		ID:                 user.ID,
		Nickname:           user.Nickname,
		AvatarURL:          user.AvatarURL,
		LastSeenAt:         user.LastSeenAt,
		OnlineVisibleUntil: user.OnlineVisibleUntil,
	}, nil
}

// TouchPresence обновляет отметки присутствия пользователя
func (ps *ProfileService) TouchPresence(ctx context.Context, userID int64) error {
	now := time.Now()
	return db.GetWriteDB(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_seen_at":         now,
			"online_visible_until": now.Add(OnlineVisibleWindow),
		}).Error
}
