package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type FriendRequest struct {
	FriendID int64 `json:"friend_id" binding:"required"`
}

func AddFriend(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req FriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := FriendsSvc.AddFriend(c.Request.Context(), userID, req.FriendID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Friend request sent"})
}

func ApproveFriend(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req FriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := FriendsSvc.ApproveFriend(c.Request.Context(), userID, req.FriendID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Friend request approved"})
}

func DeleteFriend(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req FriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := FriendsSvc.DeleteFriend(c.Request.Context(), userID, req.FriendID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Friend deleted"})
}
