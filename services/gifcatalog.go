package services

import (
	"context"
	"errors"
	"log"

	"messenger/db"
	"messenger/errs"
	"messenger/models"

	"gorm.io/gorm"
)

// GifCatalogService - каталог гифок, доступных по шорткоду
type GifCatalogService struct{}

func NewGifCatalogService() *GifCatalogService {
	return &GifCatalogService{}
}

// FindByShortcode ищет запись каталога по шорткоду
func (gs *GifCatalogService) FindByShortcode(ctx context.Context, code string) (*models.GifEntry, error) {
	var entry models.GifEntry
	err := db.GetReadOnlyDB(ctx).Where("shortcode = ?", code).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("gif shortcode not found")
		}
		return nil, err
	}
	return &entry, nil
}

// RecordUsage инкрементирует счетчик использования гифки.
// Fire-and-forget: уходит в фоновую очередь, при недоступном Redis
// выполняется синхронно; ошибка никогда не блокирует отправку.
func (gs *GifCatalogService) RecordUsage(ctx context.Context, gifID, userID int64) {
	if QueueServiceInstance != nil && RedisClient != nil {
		err := QueueServiceInstance.Enqueue(ctx, BackgroundTask{
			Action: TaskGifUsage,
			GifID:  gifID,
			UserID: userID,
		})
		if err == nil {
			return
		}
		log.Printf("Failed to enqueue gif usage task: %v", err)
	}

	err := db.GetWriteDB(ctx).Model(&models.GifEntry{}).
		Where("id = ?", gifID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
	if err != nil {
		log.Printf("Failed to record gif usage for %d: %v", gifID, err)
	}
}
