package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"messenger/models"
	"messenger/services"

	"github.com/gin-gonic/gin"
)

type SendMessageRequest struct {
	Text      string `json:"text"`
	ImageURL  string `json:"image_url"`
	VideoURL  string `json:"video_url"`
	ReplyToID *int64 `json:"reply_to_id"`
}

// SendMessageHandler - отправка сообщения пользователю. Медиа загружается
// заранее через /media/upload, сюда приходит готовый URL.
func SendMessageHandler(c *gin.Context) {
	fromUserID, ok := currentUserID(c)
	if !ok {
		return
	}
	toUserID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()

	// гейт разрешений только для первого контакта
	exists, err := ConversationsSvc.Exists(ctx, fromUserID, toUserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !exists {
		if err := PermissionsSvc.CheckFirstContact(ctx, fromUserID, toUserID); err != nil {
			respondError(c, err)
			return
		}
	}

	conv, err := ConversationsSvc.GetOrCreate(ctx, fromUserID, toUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	payload := services.AppendPayload{ReplyToID: req.ReplyToID}
	text := req.Text

	switch {
	case req.ImageURL != "":
		payload.Attachment = services.Attachment{Kind: services.AttachmentImage, URL: req.ImageURL}
	case req.VideoURL != "":
		payload.Attachment = services.Attachment{Kind: services.AttachmentVideo, URL: req.VideoURL}
	default:
		if text != "" {
			resolution, rerr := ShortcodesSvc.Resolve(ctx, text, fromUserID)
			if rerr != nil {
				log.Printf("Shortcode resolution failed, sending as plain text: %v", rerr)
			} else if resolution != nil {
				payload.Attachment = services.Attachment{Kind: services.AttachmentGif, GifID: resolution.Gif.ID}
				text = resolution.RemainingText
			}
		}
	}
	if text != "" {
		payload.Content = &text
	}

	msg, err := MessagesSvc.Append(ctx, conv, fromUserID, payload)
	if err != nil {
		respondError(c, err)
		return
	}

	dispatchNotification(ctx, conv, fromUserID, msg, text)

	c.JSON(http.StatusOK, gin.H{"message": "Message sent", "message_id": msg.ID, "conversation_id": conv.ID})
}

func dispatchNotification(ctx context.Context, conv *models.Conversation, senderID int64, msg *models.Message, text string) {
	otherID := conv.OtherParticipant(senderID)
	if services.GlobalWSConnManager.IsViewActive(otherID, conv.ID) {
		return
	}
	err := services.PublishNotification(ctx, services.MessageNotification{
		UserID:         otherID,
		ConversationID: conv.ID,
		SenderID:       senderID,
		Summary:        services.NotificationSummary(text),
		CreatedAt:      msg.CreatedAt,
	})
	if err != nil {
		log.Printf("Failed to dispatch notification for message %d: %v", msg.ID, err)
	}
}

// ListDialogHandler - история диалога в проекции текущего пользователя
func ListDialogHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	otherUserID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}

	ctx := c.Request.Context()
	exists, err := ConversationsSvc.Exists(ctx, userID, otherUserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !exists {
		c.JSON(http.StatusOK, gin.H{"messages": []services.DisplayMessage{}})
		return
	}
	conv, err := ConversationsSvc.GetOrCreate(ctx, userID, otherUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	raw, err := MessagesSvc.ListRaw(ctx, conv.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conv.ID,
		"messages":        services.Project(raw, userID),
	})
}

// MarkReadHandler пакетно помечает диалог прочитанным
func MarkReadHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation id"})
		return
	}

	ctx := c.Request.Context()
	conv, err := ConversationsSvc.GetByID(ctx, conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !conv.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	affected, err := MessagesSvc.MarkRead(ctx, conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked_read": affected})
}

type EditMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// EditMessageHandler правит текст собственного сообщения
func EditMessageHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return
	}
	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	msg, err := MessagesSvc.Edit(c.Request.Context(), messageID, userID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message edited", "message_id": msg.ID})
}

type DeleteMessageRequest struct {
	ForEveryone bool `json:"for_everyone"`
}

// DeleteMessageHandler - удаление для себя или для всех
func DeleteMessageHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return
	}
	var req DeleteMessageRequest
	_ = c.ShouldBindJSON(&req)

	ctx := c.Request.Context()
	if req.ForEveryone {
		err = MessagesSvc.SoftDeleteForEveryone(ctx, messageID, userID)
	} else {
		err = MessagesSvc.SoftDeleteForMe(ctx, messageID, userID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message deleted"})
}
