package services

import (
	"time"

	"messenger/models"
)

type AttachmentKind string

const (
	AttachmentNone  AttachmentKind = "none"
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
	AttachmentGif   AttachmentKind = "gif"
)

// Attachment - sum-тип вложения: не более одного медиа на сообщение.
// Текст может сопровождать любое вложение.
type Attachment struct {
	Kind  AttachmentKind `json:"kind"`
	URL   string         `json:"url,omitempty"`
	GifID int64          `json:"gif_id,omitempty"`
}

// MessageAttachment извлекает вложение из плоской строки БД
func MessageAttachment(m *models.Message) Attachment {
	switch {
	case m.ImageURL != nil:
		return Attachment{Kind: AttachmentImage, URL: *m.ImageURL}
	case m.VideoURL != nil:
		return Attachment{Kind: AttachmentVideo, URL: *m.VideoURL}
	case m.GifID != nil:
		return Attachment{Kind: AttachmentGif, GifID: *m.GifID}
	default:
		return Attachment{Kind: AttachmentNone}
	}
}

// DisplayMessage - то, что конкретный зритель имеет право видеть
type DisplayMessage struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       int64      `json:"sender_id"`
	Content        string     `json:"content"`
	Attachment     Attachment `json:"attachment"`
	ReplyToID      *int64     `json:"reply_to_id,omitempty"`
	Deleted        bool       `json:"deleted"`
	Edited         bool       `json:"edited"`
	IsRead         bool       `json:"is_read"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ProjectMessage возвращает проекцию одного сообщения для зрителя.
// nil означает, что сообщение скрыто от этой стороны целиком.
// Детерминированная чистая функция, вся логика видимости живет здесь:
//   - скрытие "для меня" убирает сообщение только у той стороны, что скрыла;
//   - глобальный tombstone виден обоим как заглушка без контента и медиа,
//     но остается валидной целью для ответов.
func ProjectMessage(m *models.Message, viewerID int64) *DisplayMessage {
	if viewerID == m.SenderID && m.DeletedForSender {
		return nil
	}
	if viewerID != m.SenderID && m.DeletedForReceiver {
		return nil
	}

	dm := &DisplayMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReplyToID:      m.ReplyToID,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}

	if m.IsDeleted {
		dm.Deleted = true
		dm.Attachment = Attachment{Kind: AttachmentNone}
		return dm
	}

	if m.Content != nil {
		dm.Content = *m.Content
	}
	dm.Attachment = MessageAttachment(m)
	dm.Edited = m.EditedAt != nil
	return dm
}

// Project фильтрует сырые строки лога для зрителя, сохраняя порядок входа
func Project(raw []models.Message, viewerID int64) []DisplayMessage {
	result := make([]DisplayMessage, 0, len(raw))
	for i := range raw {
		if dm := ProjectMessage(&raw[i], viewerID); dm != nil {
			result = append(result, *dm)
		}
	}
	return result
}
