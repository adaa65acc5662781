package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"messenger/errs"
	"messenger/models"

	"github.com/go-redis/redis/v8"
)

type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// ChangeEvent - событие изменения лога сообщений одного диалога.
// Доставка at-least-once и без гарантий порядка относительно снапшота,
// поэтому получатель обязан мерджить по id и пересортировывать.
type ChangeEvent struct {
	Kind           ChangeKind      `json:"kind"`
	ConversationID int64           `json:"conversation_id"`
	MessageID      int64           `json:"message_id"`
	Message        *models.Message `json:"message,omitempty"` // nil для delete
}

// Subscription - подписка одного открытого окна диалога
type Subscription interface {
	Events() <-chan ChangeEvent
	Err() <-chan error
	Close()
}

// ChangeFeed - pub/sub канал изменений, ключ - conversation_id
type ChangeFeed interface {
	Publish(ctx context.Context, event ChangeEvent) error
	Subscribe(ctx context.Context, conversationID int64) (Subscription, error)
}

func conversationChannel(conversationID int64) string {
	return fmt.Sprintf("conversation:%d:changes", conversationID)
}

// RedisChangeFeed транслирует события через Redis pub/sub
type RedisChangeFeed struct {
	client *redis.Client
}

func NewRedisChangeFeed(client *redis.Client) *RedisChangeFeed {
	return &RedisChangeFeed{client: client}
}

func (f *RedisChangeFeed) Publish(ctx context.Context, event ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	return f.client.Publish(ctx, conversationChannel(event.ConversationID), data).Err()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan ChangeEvent
	errCh  chan error
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) Events() <-chan ChangeEvent { return s.events }
func (s *redisSubscription) Err() <-chan error          { return s.errCh }

func (s *redisSubscription) Close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.pubsub.Close()
	})
}

func (f *RedisChangeFeed) Subscribe(ctx context.Context, conversationID int64) (Subscription, error) {
	pubsub := f.client.Subscribe(ctx, conversationChannel(conversationID))
	// дожидаемся подтверждения подписки, иначе можно потерять первые события
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errs.SubscriptionLost(err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan ChangeEvent, 64),
		errCh:  make(chan error, 1),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.events)
		ch := pubsub.Channel()
		for msg := range ch {
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Failed to unmarshal change event: %v", err)
				continue
			}
			// получатель с полным буфером мог уже уйти: Close снимает блокировку
			select {
			case sub.events <- event:
			case <-sub.done:
				return
			}
		}
		// канал закрывается при обрыве соединения или Close
		sub.errCh <- errs.SubscriptionLost(fmt.Errorf("pubsub channel closed"))
	}()

	return sub, nil
}

// LocalChangeFeed - внутрипроцессная реализация для тестов и single-node запуска
type LocalChangeFeed struct {
	mu   sync.RWMutex
	subs map[int64][]*localSubscription
}

func NewLocalChangeFeed() *LocalChangeFeed {
	return &LocalChangeFeed{subs: make(map[int64][]*localSubscription)}
}

type localSubscription struct {
	feed           *LocalChangeFeed
	conversationID int64
	events         chan ChangeEvent
	errCh          chan error
	once           sync.Once
}

func (s *localSubscription) Events() <-chan ChangeEvent { return s.events }
func (s *localSubscription) Err() <-chan error          { return s.errCh }

func (s *localSubscription) Close() {
	s.once.Do(func() {
		s.feed.remove(s)
		close(s.events)
	})
}

func (f *LocalChangeFeed) Subscribe(_ context.Context, conversationID int64) (Subscription, error) {
	sub := &localSubscription{
		feed:           f,
		conversationID: conversationID,
		events:         make(chan ChangeEvent, 64),
		errCh:          make(chan error, 1),
	}
	f.mu.Lock()
	f.subs[conversationID] = append(f.subs[conversationID], sub)
	f.mu.Unlock()
	return sub, nil
}

func (f *LocalChangeFeed) Publish(_ context.Context, event ChangeEvent) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sub := range f.subs[event.ConversationID] {
		select {
		case sub.events <- event:
		default:
			// переполненный подписчик считается потерянным
			select {
			case sub.errCh <- errs.SubscriptionLost(fmt.Errorf("subscriber buffer overflow")):
			default:
			}
		}
	}
	return nil
}

func (f *LocalChangeFeed) remove(sub *localSubscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := f.subs[sub.conversationID]
	for i, s := range subs {
		if s == sub {
			f.subs[sub.conversationID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(f.subs[sub.conversationID]) == 0 {
		delete(f.subs, sub.conversationID)
	}
}
