package handlers

import (
	"net/http"

	"messenger/errs"
	"messenger/services"

	"github.com/gin-gonic/gin"
)

// Сервисы уровня процесса. Init вызывается один раз при старте сервера
// (и из тестов с локальным фидом вместо redis).
var (
	AuthSvc          *services.AuthService
	ConversationsSvc *services.ConversationService
	MessagesSvc      *services.MessageService
	PermissionsSvc   *services.PermissionService
	FriendsSvc       *services.FriendService
	ProfilesSvc      *services.ProfileService
	GifsSvc          *services.GifCatalogService
	ShortcodesSvc    *services.ShortcodeService
	StorageSvc       services.ObjectStorage
	Feed             services.ChangeFeed
)

func Init(feed services.ChangeFeed, storage services.ObjectStorage) {
	AuthSvc = services.NewAuthService()
	ConversationsSvc = services.NewConversationService()
	FriendsSvc = services.NewFriendService()
	PermissionsSvc = services.NewPermissionService(FriendsSvc)
	ProfilesSvc = services.NewProfileService()
	GifsSvc = services.NewGifCatalogService()
	ShortcodesSvc = services.NewShortcodeService(GifsSvc)
	StorageSvc = storage
	Feed = feed
	MessagesSvc = services.NewMessageService(ConversationsSvc, feed)
}

func currentUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID.(int64), true
}

// respondError мапит код прикладной ошибки на HTTP-статус
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errs.Code(err) {
	case errs.CodePermissionDenied:
		status = http.StatusForbidden
	case errs.CodeNotFound:
		status = http.StatusNotFound
	case errs.CodeConflict:
		status = http.StatusConflict
	case errs.CodeInvalidArgument, errs.CodeUploadFailed:
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": string(errs.Code(err))})
}
