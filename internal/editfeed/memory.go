package editfeed

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrFeedClosed возвращается при публикации в закрытую ленту
var ErrFeedClosed = errors.New("лента правок закрыта")

// MemoryFeed - in-process лента правок с буфером.
// Правки доставляются подписчикам последовательно в порядке публикации.
type MemoryFeed struct {
	subsMu      sync.RWMutex
	subscribers map[int]subscriber
	nextID      int

	closeMu sync.RWMutex
	closed  bool
	buffer  chan Edit
	done    chan struct{}

	statsMu sync.Mutex
	stats   Stats
}

type subscriber struct {
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewMemoryFeed создаёт ленту с указанным буфером и запускает рассылку
func NewMemoryFeed(capacity int) *MemoryFeed {
	if capacity < 1 {
		capacity = 1
	}
	mf := &MemoryFeed{
		subscribers: make(map[int]subscriber),
		buffer:      make(chan Edit, capacity),
		done:        make(chan struct{}),
	}
	go mf.dispatchLoop()
	return mf
}

// Publish ставит правку в буфер. Правки не отбрасываются: при заполненном
// буфере вызов ждёт места или отмены контекста.
func (mf *MemoryFeed) Publish(ctx context.Context, e Edit) error {
	mf.closeMu.RLock()
	defer mf.closeMu.RUnlock()
	if mf.closed {
		return ErrFeedClosed
	}

	select {
	case mf.buffer <- e:
		mf.statsMu.Lock()
		mf.stats.Published++
		mf.statsMu.Unlock()
		return nil
	case <-ctx.Done():
		mf.statsMu.Lock()
		mf.stats.Dropped++
		mf.statsMu.Unlock()
		return ctx.Err()
	}
}

func (mf *MemoryFeed) Subscribe(ctx context.Context, h Handler) (Subscription, error) {
	mf.subsMu.Lock()
	id := mf.nextID
	mf.nextID++
	cctx, cancel := context.WithCancel(ctx)
	mf.subscribers[id] = subscriber{handler: h, ctx: cctx, cancel: cancel}
	mf.subsMu.Unlock()

	return &memSub{feed: mf, id: id}, nil
}

func (mf *MemoryFeed) Metrics() Stats {
	mf.statsMu.Lock()
	defer mf.statsMu.Unlock()
	s := mf.stats
	s.InFlight = len(mf.buffer)
	return s
}

// Close останавливает приём правок и дожидается доставки буфера
func (mf *MemoryFeed) Close() error {
	mf.closeMu.Lock()
	if mf.closed {
		mf.closeMu.Unlock()
		return nil
	}
	mf.closed = true
	close(mf.buffer)
	mf.closeMu.Unlock()

	<-mf.done
	return nil
}

// dispatchLoop рассылает правки подписчикам.
func (mf *MemoryFeed) dispatchLoop() {
	defer close(mf.done)

	for e := range mf.buffer {
		mf.subsMu.RLock()
		ids := make([]int, 0, len(mf.subscribers))
		for id := range mf.subscribers {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		subs := make([]subscriber, 0, len(ids))
		for _, id := range ids {
			subs = append(subs, mf.subscribers[id])
		}
		mf.subsMu.RUnlock()

		for _, s := range subs {
			if s.ctx.Err() != nil {
				continue
			}
			s.handler(s.ctx, e)
			mf.statsMu.Lock()
			mf.stats.Consumed++
			mf.statsMu.Unlock()
		}
	}
}

type memSub struct {
	feed *MemoryFeed
	id   int
}

func (s *memSub) Unsubscribe() {
	s.feed.subsMu.Lock()
	if sub, ok := s.feed.subscribers[s.id]; ok {
		sub.cancel()
		delete(s.feed.subscribers, s.id)
	}
	s.feed.subsMu.Unlock()
}
