package models

import (
	"time"
)

// Message представляет сообщение в диалоге между пользователями.
// Текст и не более одного медиа-вложения могут сосуществовать.
// Три независимых способа исчезнуть:
//   - IsDeleted: глобальный tombstone, оба участника видят заглушку;
//   - DeletedForSender / DeletedForReceiver: скрытие только для одной стороны;
//   - физическое удаление строки (административный путь).
type Message struct {
	ID             int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID int64   `gorm:"index:messages_conv_created_idx" json:"conversation_id"`
	SenderID       int64   `gorm:"index" json:"sender_id"`
	Content        *string `gorm:"type:text" json:"content"`
	ImageURL       *string `gorm:"size:512" json:"image_url"`
	VideoURL       *string `gorm:"size:512" json:"video_url"`
	GifID          *int64  `json:"gif_id"`

	// Ответ на сообщение из того же диалога
	ReplyToID *int64 `json:"reply_to_id"`

	IsRead             bool       `gorm:"default:false" json:"is_read"`
	IsDeleted          bool       `gorm:"default:false" json:"is_deleted"`
	DeletedForSender   bool       `gorm:"default:false" json:"deleted_for_sender"`
	DeletedForReceiver bool       `gorm:"default:false" json:"deleted_for_receiver"`
	EditedAt           *time.Time `json:"edited_at"`
	CreatedAt          time.Time  `gorm:"index:messages_conv_created_idx" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// HasPayload проверяет инвариант: если сообщение не tombstone,
// хотя бы одно из полей content/image/video/gif должно быть заполнено
func (m *Message) HasPayload() bool {
	return (m.Content != nil && *m.Content != "") ||
		m.ImageURL != nil || m.VideoURL != nil || m.GifID != nil
}
