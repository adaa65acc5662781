package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// UserGet возвращает публичный профиль пользователя
func UserGet(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	profile, err := ProfilesSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// PresencePing продлевает окно онлайн-статуса текущего пользователя
func PresencePing(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := ProfilesSvc.TouchPresence(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Presence updated"})
}
