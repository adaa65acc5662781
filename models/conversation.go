package models

import "time"

// Conversation - единственный диалог для неупорядоченной пары пользователей.
// Пара канонизируется при создании: UserLoID < UserHiID, поэтому (a,b) и (b,a)
// никогда не дают двух строк. Уникальный индекс conversations_pair_idx
// разрешает гонку одновременного первого контакта.
type Conversation struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserLoID  int64     `gorm:"index:conversations_pair_idx,unique" json:"user_lo_id"`
	UserHiID  int64     `gorm:"index:conversations_pair_idx,unique" json:"user_hi_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Participants возвращает пару участников в каноническом порядке
func (c *Conversation) Participants() (int64, int64) {
	return c.UserLoID, c.UserHiID
}

// HasParticipant проверяет, что пользователь состоит в диалоге
func (c *Conversation) HasParticipant(userID int64) bool {
	return c.UserLoID == userID || c.UserHiID == userID
}

// OtherParticipant возвращает собеседника для данного участника
func (c *Conversation) OtherParticipant(userID int64) int64 {
	if c.UserLoID == userID {
		return c.UserHiID
	}
	return c.UserLoID
}

// ConversationVisibility - видимость диалога для одного участника.
// Строка создается только при скрытии; отсутствие строки означает "виден".
// Флаг не влияет на второго участника и не сбрасывается новыми сообщениями,
// снять его можно только явным restore.
type ConversationVisibility struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID int64     `gorm:"index:conversation_visibility_idx,unique" json:"conversation_id"`
	UserID         int64     `gorm:"index:conversation_visibility_idx,unique" json:"user_id"`
	IsDeleted      bool      `gorm:"default:false" json:"is_deleted"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (ConversationVisibility) TableName() string {
	return "conversation_visibilities"
}
