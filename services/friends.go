package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"messenger/db"
	"messenger/models"

	"gorm.io/gorm"
)

type FriendService struct{}

func NewFriendService() *FriendService {
	return &FriendService{}
}

// AddFriend добавляет запрос на дружбу
func (fs *FriendService) AddFriend(ctx context.Context, userID, friendID int64) error {
	if userID == friendID {
		return fmt.Errorf("cannot add yourself as friend")
	}

	// Проверяем, что пользователи существуют
	var userCount int64
	err := db.GetReadOnlyDB(ctx).Model(&models.User{}).Where("id IN (?)", []int64{userID, friendID}).Count(&userCount).Error
	if err != nil {
		return fmt.Errorf("error checking users: %w", err)
	}
	if userCount != 2 {
		return fmt.Errorf("one or both users do not exist")
	}

	// Проверяем, что дружба не существует
	var existingFriend models.Friend
	err = db.GetReadOnlyDB(ctx).Where(
		"((user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?))",
		userID, friendID, friendID, userID,
	).First(&existingFriend).Error

	if err == nil {
		if existingFriend.Status == "approved" {
			return fmt.Errorf("friendship already exists")
		}
		return fmt.Errorf("friend request already pending")
	}

	friendship := &models.Friend{
		UserID:    userID,
		FriendID:  friendID,
		Status:    "pending",
		CreatedAt: time.Now(),
	}
	if err := db.GetWriteDB(ctx).Create(friendship).Error; err != nil {
		return fmt.Errorf("failed to create friend request: %w", err)
	}
	return nil
}

// ApproveFriend подтверждает дружбу
func (fs *FriendService) ApproveFriend(ctx context.Context, userID, requesterID int64) error {
	var friendship models.Friend
	err := db.GetWriteDB(ctx).Where(
		"user_id = ? AND friend_id = ? AND status = ?",
		requesterID, userID, "pending",
	).First(&friendship).Error
	if err != nil {
		return fmt.Errorf("friend request not found")
	}

	friendship.Status = "approved"
	friendship.ApprovedAt = time.Now()
	if err := db.GetWriteDB(ctx).Save(&friendship).Error; err != nil {
		return fmt.Errorf("failed to approve friendship: %w", err)
	}
	return nil
}

// DeleteFriend удаляет дружбу
func (fs *FriendService) DeleteFriend(ctx context.Context, userID, friendID int64) error {
	err := db.GetWriteDB(ctx).Where(
		"((user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?))",
		userID, friendID, friendID, userID,
	).Delete(&models.Friend{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	return nil
}

// IsFriend проверяет подтвержденную дружбу между пользователями
func (fs *FriendService) IsFriend(ctx context.Context, userA, userB int64) (bool, error) {
	var friendship models.Friend
	err := db.GetReadOnlyDB(ctx).Where(
		"((user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)) AND status = ?",
		userA, userB, userB, userA, "approved",
	).First(&friendship).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
