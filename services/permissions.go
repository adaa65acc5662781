package services

import (
	"context"
	"errors"

	"messenger/db"
	"messenger/errs"
	"messenger/models"

	"gorm.io/gorm"
)

// PermissionService - гейт первого контакта. Проверяется только когда
// строки диалога еще нет: установленный контакт задним числом не блокируется.
// При любой неопределенности гейт закрывается (fail closed).
type PermissionService struct {
	friends *FriendService
}

func NewPermissionService(friends *FriendService) *PermissionService {
	return &PermissionService{friends: friends}
}

// GetMessagingPermission возвращает настройку приватности пользователя
func (ps *PermissionService) GetMessagingPermission(ctx context.Context, userID int64) (models.MessagingPermission, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errs.NotFound("user not found")
		}
		return "", err
	}
	if user.MessagingPermission == "" {
		return models.PermissionOpen, nil
	}
	return user.MessagingPermission, nil
}

// IsExempt проверяет административный список исключений
func (ps *PermissionService) IsExempt(ctx context.Context, userID int64) (bool, error) {
	var exemption models.MessagingExemption
	err := db.GetReadOnlyDB(ctx).Where("user_id = ?", userID).First(&exemption).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CheckFirstContact решает, может ли sender начать новый диалог с target.
// Порядок: исключения и повышенные роли обходят настройку приватности,
// затем open | friends-only | nobody. Отказ - errs.PermissionDenied.
func (ps *PermissionService) CheckFirstContact(ctx context.Context, senderID, targetID int64) error {
	var sender models.User
	if err := db.GetReadOnlyDB(ctx).First(&sender, senderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("user not found")
		}
		return err
	}
	if sender.Role == models.RoleAdmin || sender.Role == models.RoleModerator {
		return nil
	}

	exempt, err := ps.IsExempt(ctx, senderID)
	if err != nil {
		return err
	}
	if exempt {
		return nil
	}

	permission, err := ps.GetMessagingPermission(ctx, targetID)
	if err != nil {
		return err
	}

	switch permission {
	case models.PermissionOpen:
		return nil
	case models.PermissionFriendsOnly:
		isFriend, err := ps.friends.IsFriend(ctx, senderID, targetID)
		if err != nil {
			return err
		}
		if !isFriend {
			return errs.PermissionDenied("user accepts messages from friends only")
		}
		return nil
	case models.PermissionNobody:
		return errs.PermissionDenied("user does not accept new messages")
	default:
		return errs.PermissionDenied("unknown messaging permission")
	}
}
