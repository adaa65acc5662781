package services

import (
	"context"
	"errors"
	"log"
	"time"

	"messenger/db"
	"messenger/errs"
	"messenger/models"

	"gorm.io/gorm"
)

// MessageService - append-only лог сообщений с правкой на месте и двумя
// независимыми семантиками удаления (глобальный tombstone и скрытие
// для одной стороны). Каждая мутация публикуется в change feed.
type MessageService struct {
	conversations *ConversationService
	feed          ChangeFeed
}

func NewMessageService(conversations *ConversationService, feed ChangeFeed) *MessageService {
	return &MessageService{conversations: conversations, feed: feed}
}

// AppendPayload - содержимое нового сообщения: необязательный текст,
// не более одного медиа-вложения, необязательный ответ
type AppendPayload struct {
	Content    *string
	Attachment Attachment
	ReplyToID  *int64
}

// Append добавляет сообщение в диалог. created_at проставляется на сервере,
// что дает тотальный порядок (created_at, id) для пагинации и мерджа событий.
func (ms *MessageService) Append(ctx context.Context, conv *models.Conversation, senderID int64, payload AppendPayload) (*models.Message, error) {
	start := time.Now()

	msg, err := ms.append(ctx, conv, senderID, payload)
	RecordOperation("append", start, err)
	if err != nil {
		RecordOperationError("append", string(errs.Code(err)))
		return nil, err
	}
	return msg, nil
}

func (ms *MessageService) append(ctx context.Context, conv *models.Conversation, senderID int64, payload AppendPayload) (*models.Message, error) {
	if !conv.HasParticipant(senderID) {
		return nil, errs.PermissionDenied("sender is not a participant of this conversation")
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        payload.Content,
		ReplyToID:      payload.ReplyToID,
		CreatedAt:      time.Now(),
	}
	if payload.Content != nil && *payload.Content == "" {
		msg.Content = nil
	}

	switch payload.Attachment.Kind {
	case AttachmentImage:
		url := payload.Attachment.URL
		msg.ImageURL = &url
	case AttachmentVideo:
		url := payload.Attachment.URL
		msg.VideoURL = &url
	case AttachmentGif:
		gifID := payload.Attachment.GifID
		msg.GifID = &gifID
	}

	if !msg.HasPayload() {
		return nil, errs.InvalidArg("message must carry text or a media attachment")
	}

	if payload.ReplyToID != nil {
		var target models.Message
		err := db.GetReadOnlyDB(ctx).First(&target, *payload.ReplyToID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errs.NotFound("reply target not found")
			}
			return nil, err
		}
		if target.ConversationID != conv.ID {
			return nil, errs.InvalidArg("reply target belongs to another conversation")
		}
	}

	if err := db.GetWriteDB(ctx).Create(msg).Error; err != nil {
		return nil, errs.StoreWriteFailed("append", err)
	}

	if err := ms.conversations.Touch(ctx, conv.ID); err != nil {
		log.Printf("Failed to touch conversation %d: %v", conv.ID, err)
	}

	ms.publish(ctx, ChangeInsert, msg)
	return msg, nil
}

// Edit меняет текст сообщения. Разрешено только отправителю; медиа-поля
// после отправки неизменяемы.
func (ms *MessageService) Edit(ctx context.Context, messageID, actorID int64, newText string) (*models.Message, error) {
	start := time.Now()

	msg, err := ms.edit(ctx, messageID, actorID, newText)
	RecordOperation("edit", start, err)
	if err != nil {
		RecordOperationError("edit", string(errs.Code(err)))
		return nil, err
	}
	return msg, nil
}

func (ms *MessageService) edit(ctx context.Context, messageID, actorID int64, newText string) (*models.Message, error) {
	msg, err := ms.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actorID {
		return nil, errs.PermissionDenied("only the sender can edit a message")
	}
	if msg.IsDeleted {
		return nil, errs.Conflict("cannot edit a deleted message")
	}
	if newText == "" && msg.ImageURL == nil && msg.VideoURL == nil && msg.GifID == nil {
		return nil, errs.InvalidArg("edit would leave the message empty")
	}

	now := time.Now()
	updates := map[string]interface{}{
		"content":   newText,
		"edited_at": now,
	}
	if err := db.GetWriteDB(ctx).Model(msg).Updates(updates).Error; err != nil {
		return nil, errs.StoreWriteFailed("edit", err)
	}
	msg.Content = &newText
	msg.EditedAt = &now

	ms.publish(ctx, ChangeUpdate, msg)
	return msg, nil
}

// SoftDeleteForMe скрывает сообщение только для стороны, которую занимает
// действующий пользователь. Идемпотентно.
func (ms *MessageService) SoftDeleteForMe(ctx context.Context, messageID, actorID int64) error {
	start := time.Now()

	err := ms.softDeleteForMe(ctx, messageID, actorID)
	RecordOperation("delete_for_me", start, err)
	if err != nil {
		RecordOperationError("delete_for_me", string(errs.Code(err)))
	}
	return err
}

func (ms *MessageService) softDeleteForMe(ctx context.Context, messageID, actorID int64) error {
	msg, err := ms.Get(ctx, messageID)
	if err != nil {
		return err
	}
	conv, err := ms.conversations.GetByID(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(actorID) {
		return errs.PermissionDenied("not a participant of this conversation")
	}

	column := "deleted_for_receiver"
	if msg.SenderID == actorID {
		column = "deleted_for_sender"
	}
	if err := db.GetWriteDB(ctx).Model(msg).Update(column, true).Error; err != nil {
		return errs.StoreWriteFailed("delete_for_me", err)
	}
	if msg.SenderID == actorID {
		msg.DeletedForSender = true
	} else {
		msg.DeletedForReceiver = true
	}

	ms.publish(ctx, ChangeUpdate, msg)
	return nil
}

// SoftDeleteForEveryone ставит глобальный tombstone: контент и медиа гаснут
// для обоих, строка остается ради целостности ответов
func (ms *MessageService) SoftDeleteForEveryone(ctx context.Context, messageID, actorID int64) error {
	start := time.Now()

	err := ms.softDeleteForEveryone(ctx, messageID, actorID)
	RecordOperation("delete_for_everyone", start, err)
	if err != nil {
		RecordOperationError("delete_for_everyone", string(errs.Code(err)))
	}
	return err
}

func (ms *MessageService) softDeleteForEveryone(ctx context.Context, messageID, actorID int64) error {
	msg, err := ms.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != actorID {
		return errs.PermissionDenied("only the sender can delete for everyone")
	}

	if err := db.GetWriteDB(ctx).Model(msg).Update("is_deleted", true).Error; err != nil {
		return errs.StoreWriteFailed("delete_for_everyone", err)
	}
	msg.IsDeleted = true

	ms.publish(ctx, ChangeUpdate, msg)
	return nil
}

// HardDelete физически удаляет строку (административный путь).
// Открытые окна получают delete-событие и убирают сообщение безусловно.
func (ms *MessageService) HardDelete(ctx context.Context, messageID int64) error {
	msg, err := ms.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if err := db.GetWriteDB(ctx).Delete(&models.Message{}, messageID).Error; err != nil {
		return errs.StoreWriteFailed("hard_delete", err)
	}

	ms.publishDelete(ctx, msg.ConversationID, messageID)
	return nil
}

// MarkRead пакетно помечает прочитанными все чужие сообщения диалога
func (ms *MessageService) MarkRead(ctx context.Context, conversationID, readerID int64) (int64, error) {
	result := db.GetWriteDB(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id != ? AND is_read = ?", conversationID, readerID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, errs.StoreWriteFailed("mark_read", result.Error)
	}
	return result.RowsAffected, nil
}

// ListRaw возвращает сырые строки диалога в стабильном тотальном порядке
// (created_at ASC, id ASC); фильтрация видимости - дело проектора
func (ms *MessageService) ListRaw(ctx context.Context, conversationID int64) ([]models.Message, error) {
	var messages []models.Message
	err := db.GetReadOnlyDB(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// Get возвращает сообщение по идентификатору
func (ms *MessageService) Get(ctx context.Context, messageID int64) (*models.Message, error) {
	var msg models.Message
	err := db.GetReadOnlyDB(ctx).First(&msg, messageID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("message not found")
		}
		return nil, err
	}
	return &msg, nil
}

func (ms *MessageService) publish(ctx context.Context, kind ChangeKind, msg *models.Message) {
	if ms.feed == nil {
		return
	}
	err := ms.feed.Publish(ctx, ChangeEvent{
		Kind:           kind,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Message:        msg,
	})
	if err != nil {
		log.Printf("Failed to publish %s event for message %d: %v", kind, msg.ID, err)
	}
}

func (ms *MessageService) publishDelete(ctx context.Context, conversationID, messageID int64) {
	if ms.feed == nil {
		return
	}
	err := ms.feed.Publish(ctx, ChangeEvent{
		Kind:           ChangeDelete,
		ConversationID: conversationID,
		MessageID:      messageID,
	})
	if err != nil {
		log.Printf("Failed to publish delete event for message %d: %v", messageID, err)
	}
}
