package services

import (
	"context"
	"errors"
	"time"

	"messenger/db"
	"messenger/errs"
	"messenger/models"

	"gorm.io/gorm"
)

// ConversationService - справочник диалогов: единственная строка на
// неупорядоченную пару участников плюс per-участник видимость
type ConversationService struct{}

func NewConversationService() *ConversationService {
	return &ConversationService{}
}

// ConversationPreview - элемент списка диалогов пользователя
type ConversationPreview struct {
	ID          int64     `json:"id"`
	OtherUserID int64     `json:"other_user_id"`
	Nickname    string    `json:"nickname"`
	AvatarURL   string    `json:"avatar_url"`
	Online      bool      `json:"online"`
	UnreadCount int64     `json:"unread_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// canonicalPair сортирует пару, чтобы (a,b) и (b,a) давали один ключ
func canonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// GetOrCreate возвращает диалог пары, создавая его при первом обращении.
// Видимость при поиске не учитывается: повторная отправка переиспользует
// скрытую строку. Гонка одновременного первого контакта разрешается
// уникальным индексом и одним прозрачным повтором поиска.
func (cs *ConversationService) GetOrCreate(ctx context.Context, userA, userB int64) (*models.Conversation, error) {
	if userA == userB {
		return nil, errs.InvalidArg("cannot start a conversation with yourself")
	}
	lo, hi := canonicalPair(userA, userB)

	conv, err := cs.lookup(ctx, lo, hi)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return conv, nil
	}

	conv = &models.Conversation{UserLoID: lo, UserHiID: hi}
	if err := db.GetWriteDB(ctx).Create(conv).Error; err != nil {
		// конфликт по уникальному индексу: пару уже создала встречная сторона
		retry, lookupErr := cs.lookup(ctx, lo, hi)
		if lookupErr == nil && retry != nil {
			return retry, nil
		}
		return nil, errs.Wrap(errs.CodeConflict, "conversation creation race", err)
	}
	return conv, nil
}

func (cs *ConversationService) lookup(ctx context.Context, lo, hi int64) (*models.Conversation, error) {
	var conv models.Conversation
	err := db.GetReadOnlyDB(ctx).
		Where("user_lo_id = ? AND user_hi_id = ?", lo, hi).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// GetByID возвращает диалог по идентификатору
func (cs *ConversationService) GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error) {
	var conv models.Conversation
	err := db.GetReadOnlyDB(ctx).First(&conv, conversationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("conversation not found")
		}
		return nil, err
	}
	return &conv, nil
}

// Exists проверяет наличие диалога пары без его создания
func (cs *ConversationService) Exists(ctx context.Context, userA, userB int64) (bool, error) {
	lo, hi := canonicalPair(userA, userB)
	conv, err := cs.lookup(ctx, lo, hi)
	if err != nil {
		return false, err
	}
	return conv != nil, nil
}

// Hide скрывает диалог из списка одного участника; второй ничего не замечает
func (cs *ConversationService) Hide(ctx context.Context, conversationID, userID int64) error {
	conv, err := cs.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return errs.PermissionDenied("not a participant of this conversation")
	}

	var vis models.ConversationVisibility
	err = db.GetWriteDB(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&vis).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		vis = models.ConversationVisibility{
			ConversationID: conversationID,
			UserID:         userID,
			IsDeleted:      true,
		}
		return db.GetWriteDB(ctx).Create(&vis).Error
	}
	if err != nil {
		return err
	}
	return db.GetWriteDB(ctx).Model(&vis).Update("is_deleted", true).Error
}

// Restore возвращает скрытый диалог в список. Новые входящие сообщения
// флаг не сбрасывают, restore - единственный путь обратно.
func (cs *ConversationService) Restore(ctx context.Context, conversationID, userID int64) error {
	conv, err := cs.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return errs.PermissionDenied("not a participant of this conversation")
	}
	return db.GetWriteDB(ctx).Model(&models.ConversationVisibility{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("is_deleted", false).Error
}

// IsHidden сообщает, скрыт ли диалог для пользователя
func (cs *ConversationService) IsHidden(ctx context.Context, conversationID, userID int64) (bool, error) {
	var vis models.ConversationVisibility
	err := db.GetReadOnlyDB(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&vis).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return vis.IsDeleted, nil
}

// Touch поднимает диалог в списках после нового сообщения
func (cs *ConversationService) Touch(ctx context.Context, conversationID int64) error {
	return db.GetWriteDB(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", time.Now()).Error
}

// List возвращает видимые диалоги пользователя со сведениями о собеседнике
// и количеством непрочитанных. Скрытые строки отфильтровываются.
func (cs *ConversationService) List(ctx context.Context, userID int64) ([]ConversationPreview, error) {
	var convs []models.Conversation
	err := db.GetReadOnlyDB(ctx).
		Where("user_lo_id = ? OR user_hi_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}

	previews := make([]ConversationPreview, 0, len(convs))
	now := time.Now()
	for i := range convs {
		conv := &convs[i]

		hidden, err := cs.IsHidden(ctx, conv.ID, userID)
		if err != nil {
			return nil, err
		}
		if hidden {
			continue
		}

		otherID := conv.OtherParticipant(userID)
		var other models.User
		if err := db.GetReadOnlyDB(ctx).First(&other, otherID).Error; err != nil {
			return nil, err
		}

		var unread int64
		err = db.GetReadOnlyDB(ctx).Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id != ? AND is_read = ? AND is_deleted = ? AND deleted_for_receiver = ?",
				conv.ID, userID, false, false, false).
			Count(&unread).Error
		if err != nil {
			return nil, err
		}

		previews = append(previews, ConversationPreview{
			ID:          conv.ID,
			OtherUserID: otherID,
			Nickname:    other.Nickname,
			AvatarURL:   other.AvatarURL,
			Online:      other.OnlineVisibleUntil.After(now),
			UnreadCount: unread,
			UpdatedAt:   conv.UpdatedAt,
		})
	}
	return previews, nil
}
