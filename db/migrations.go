package db

import (
	"fmt"

	"gorm.io/gorm"
)

// CreateMessagingPermissionEnum создает тип ENUM messaging_permission, если он не существует
func CreateMessagingPermissionEnum(orm *gorm.DB) error {
	createEnumSQL := `
	DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'messaging_permission') THEN
			CREATE TYPE messaging_permission AS ENUM ('open', 'friends-only', 'nobody');
		END IF;
	END
	$$;
	`
	if err := orm.Exec(createEnumSQL).Error; err != nil {
		return fmt.Errorf("failed to create enum messaging_permission: %w", err)
	}
	return nil
}

// CreateDialogIndexes создает индексы для горячих запросов диалогов
func CreateDialogIndexes(orm *gorm.DB) error {
	// индекс для непрочитанных сообщений получателя
	createIndexSQL := `
		CREATE INDEX IF NOT EXISTS idx_messages_conv_unread
		ON messages (conversation_id, is_read) WHERE is_read = false;
	`
	if err := orm.Exec(createIndexSQL).Error; err != nil {
		return fmt.Errorf("failed to create unread index: %w", err)
	}
	return nil
}
