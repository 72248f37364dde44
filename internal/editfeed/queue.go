package editfeed

import (
	"context"
	"sync"
)

// Queue копит правки из ленты до следующего такта основного цикла.
// Правки, пришедшие между обновлениями мира, не теряются.
type Queue struct {
	mu    sync.Mutex
	edits []Edit
	sub   Subscription
}

// NewQueue подписывает очередь на ленту
func NewQueue(ctx context.Context, feed Feed) (*Queue, error) {
	q := &Queue{}
	sub, err := feed.Subscribe(ctx, func(_ context.Context, e Edit) {
		q.mu.Lock()
		q.edits = append(q.edits, e)
		q.mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	q.sub = sub
	return q, nil
}

// Drain забирает все накопленные правки в порядке поступления
func (q *Queue) Drain() []Edit {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.edits
	q.edits = nil
	return out
}

// Len возвращает число ожидающих правок
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.edits)
}

// Close отписывает очередь от ленты
func (q *Queue) Close() {
	q.sub.Unsubscribe()
}
