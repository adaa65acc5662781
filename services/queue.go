package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"messenger/db"
	"messenger/models"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const (
	BACKGROUND_TASK_QUEUE = "messenger_task_queue"
	QUEUE_WORKER_COUNT    = 5

	TaskGifUsage     = "gif_usage"
	TaskOrphanUpload = "orphan_upload"
)

// BackgroundTask представляет отложенную задачу: инкремент счетчика
// использования гифки или запись об осиротевшей загрузке
type BackgroundTask struct {
	Action string `json:"action"`
	GifID  int64  `json:"gif_id,omitempty"`
	UserID int64  `json:"user_id,omitempty"`
	URL    string `json:"url,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type QueueService struct{}

func NewQueueService() *QueueService {
	return &QueueService{}
}

// StartWorkers запускает воркеры для обработки очереди
func (qs *QueueService) StartWorkers(ctx context.Context) {
	for i := 0; i < QUEUE_WORKER_COUNT; i++ {
		go qs.worker(ctx, i)
	}
}

// worker обрабатывает задачи из очереди
func (qs *QueueService) worker(ctx context.Context, workerID int) {
	log.Printf("Messenger task worker %d started", workerID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Messenger task worker %d stopping", workerID)
			return
		default:
			// Получаем задачу из очереди (блокирующий вызов с таймаутом)
			result, err := RedisClient.BLPop(ctx, 5*time.Second, BACKGROUND_TASK_QUEUE).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				log.Printf("Worker %d error getting task: %v", workerID, err)
				time.Sleep(time.Second)
				continue
			}

			if len(result) < 2 {
				continue
			}

			var task BackgroundTask
			if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
				log.Printf("Worker %d error unmarshaling task: %v", workerID, err)
				continue
			}

			qs.processTask(ctx, &task, workerID)
		}
	}
}

func (qs *QueueService) processTask(ctx context.Context, task *BackgroundTask, workerID int) {
	switch task.Action {
	case TaskGifUsage:
		err := db.GetWriteDB(ctx).Model(&models.GifEntry{}).
			Where("id = ?", task.GifID).
			UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
		if err != nil {
			log.Printf("Worker %d failed to bump gif usage for %d: %v", workerID, task.GifID, err)
		}
	case TaskOrphanUpload:
		// осиротевшие загрузки не чистятся автоматически, только фиксируются
		log.Printf("Orphaned upload recorded: url=%s reason=%s", task.URL, task.Reason)
	default:
		log.Printf("Worker %d unknown action: %s", workerID, task.Action)
	}
}

// Enqueue добавляет задачу в очередь; ошибка не фатальна для вызывающего
func (qs *QueueService) Enqueue(ctx context.Context, task BackgroundTask) error {
	if RedisClient == nil {
		return fmt.Errorf("redis not available")
	}

	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := RedisClient.RPush(ctx, BACKGROUND_TASK_QUEUE, taskData).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// QueueServiceInstance глобальный экземпляр сервиса очередей
var QueueServiceInstance *QueueService

// InitQueueService инициализирует сервис очередей
func InitQueueService() {
	QueueServiceInstance = NewQueueService()
}
