package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"messenger/db"
	"messenger/errs"
	"messenger/models"

	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

type AuthService struct{}

func NewAuthService() *AuthService {
	return &AuthService{}
}

// HashPassword хеширует пароль argon2id, формат "salt$hash" в hex
func HashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

// VerifyPassword проверяет пароль против сохраненного хеша
func VerifyPassword(password, stored string) bool {
	parts := strings.SplitN(stored, "$", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(hash) == parts[1]
}

// Register создает пользователя с хешированным паролем
func (as *AuthService) Register(ctx context.Context, nickname, password string) (*models.User, error) {
	if len(nickname) < 3 {
		return nil, errs.InvalidArg("nickname must be at least 3 characters")
	}
	if len(password) < 6 {
		return nil, errs.InvalidArg("password must be at least 6 characters")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, errs.Internal("failed to hash password")
	}

	user := &models.User{
		Nickname:            nickname,
		Password:            hash,
		Role:                models.RoleUser,
		MessagingPermission: models.PermissionOpen,
	}
	if err := db.GetWriteDB(ctx).Create(user).Error; err != nil {
		return nil, errs.Wrap(errs.CodeConflict, "nickname is already taken", err)
	}
	return user, nil
}

// Login проверяет пароль и выдает bearer-токен
func (as *AuthService) Login(ctx context.Context, nickname, password string) (string, *models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).Where("nickname = ?", nickname).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errs.PermissionDenied("invalid credentials")
		}
		return "", nil, err
	}
	if !VerifyPassword(password, user.Password) {
		return "", nil, errs.PermissionDenied("invalid credentials")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, errs.Internal("failed to generate token")
	}
	token := hex.EncodeToString(raw)

	record := &models.UserTokens{UserID: user.ID, Token: token}
	if err := db.GetWriteDB(ctx).Create(record).Error; err != nil {
		return "", nil, fmt.Errorf("failed to save token: %w", err)
	}
	return token, &user, nil
}

// Logout отзывает токен
func (as *AuthService) Logout(ctx context.Context, token string) error {
	return db.GetWriteDB(ctx).Where("token = ?", token).Delete(&models.UserTokens{}).Error
}

// UserByToken резолвит bearer-токен в идентификатор пользователя
func (as *AuthService) UserByToken(ctx context.Context, token string) (int64, error) {
	var record models.UserTokens
	err := db.GetReadOnlyDB(ctx).Where("token = ?", token).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errs.PermissionDenied("invalid token")
		}
		return 0, err
	}
	return record.UserID, nil
}
