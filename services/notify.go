package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"blog/logger"
	"blog/models"

	"go.uber.org/zap"
)

const notifyTimeout = 10 * time.Second

// FeedEvent - новый пост автора, адресованный одному подписчику (UserID)
type FeedEvent struct {
	UserID    int64     `json:"user_id"`
	PostID    int64     `json:"post_id"`
	AuthorID  int64     `json:"author_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// PushMessage - сообщение клиенту WebSocket
func (e FeedEvent) PushMessage() ([]byte, error) {
	return json.Marshal(struct {
		Event string `json:"event"`
		FeedEvent
	}{
		Event:     "feed_posted",
		FeedEvent: e,
	})
}

// Publisher доставляет событие получателю
type Publisher interface {
	Publish(ctx context.Context, event FeedEvent) error
}

// FallbackPublisher пробует primary, при ошибке отправляет через fallback
type FallbackPublisher struct {
	Primary  Publisher
	Fallback Publisher
}

func (f FallbackPublisher) Publish(ctx context.Context, event FeedEvent) error {
	err := f.Primary.Publish(ctx, event)
	if err == nil {
		return nil
	}
	logger.L.Debug("Primary publisher failed, using fallback", zap.Int64("user_id", event.UserID), zap.Error(err))
	return f.Fallback.Publish(ctx, event)
}

// FollowerSource отдает id подписчиков автора
type FollowerSource interface {
	FollowerIDs(ctx context.Context, authorID int64) ([]int64, error)
}

// FeedNotifier - пул воркеров, рассылающих подписчикам события о новых постах.
// Запрос на создание поста не ждет рассылки.
type FeedNotifier struct {
	followers FollowerSource
	publisher Publisher
	workers   int
	tasks     chan models.Post

	wg      sync.WaitGroup
	mu      sync.RWMutex
	started bool
	closed  bool
}

func NewFeedNotifier(followers FollowerSource, publisher Publisher, workers, buffer int) *FeedNotifier {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &FeedNotifier{
		followers: followers,
		publisher: publisher,
		workers:   workers,
		tasks:     make(chan models.Post, buffer),
	}
}

// Start запускает воркеры
func (n *FeedNotifier) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started || n.closed {
		return
	}
	n.started = true
	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go n.worker(i)
	}
}

func (n *FeedNotifier) worker(workerID int) {
	defer n.wg.Done()
	logger.L.Debug("Feed notify worker started", zap.Int("worker", workerID))
	for post := range n.tasks {
		n.process(post, workerID)
	}
	logger.L.Debug("Feed notify worker stopped", zap.Int("worker", workerID))
}

func (n *FeedNotifier) process(post models.Post, workerID int) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	ids, err := n.followers.FollowerIDs(ctx, post.AuthorID)
	if err != nil {
		logger.L.Error("Failed to load followers", zap.Int64("author_id", post.AuthorID), zap.Error(err))
		return
	}
	author := ""
	if post.Author != nil {
		author = post.Author.Username
	}
	for _, id := range ids {
		err := n.publisher.Publish(ctx, FeedEvent{
			UserID:    id,
			PostID:    post.ID,
			AuthorID:  post.AuthorID,
			Author:    author,
			Text:      post.Text,
			CreatedAt: post.CreatedAt,
		})
		if err != nil {
			logger.L.Warn("Failed to publish feed event",
				zap.Int("worker", workerID),
				zap.Int64("user_id", id),
				zap.Int64("post_id", post.ID),
				zap.Error(err))
		}
	}
}

// Enqueue ставит пост в очередь рассылки. Не блокирует: при полной очереди событие теряется.
func (n *FeedNotifier) Enqueue(post models.Post) bool {
	if n == nil {
		return false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return false
	}
	select {
	case n.tasks <- post:
		return true
	default:
		logger.L.Warn("Feed notify queue is full, dropping event", zap.Int64("post_id", post.ID))
		return false
	}
}

// Close перестает принимать задачи и дожидается обработки уже поставленных
func (n *FeedNotifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.tasks)
	n.mu.Unlock()
	n.wg.Wait()
}
