package editfeed

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

// Edit - намерение изменить один блок мира, пришедшее извне основного цикла
type Edit struct {
	ID     string        `json:"id"`
	Pos    vec.Vec3      `json:"pos"`
	Block  block.BlockID `json:"block"`
	Source string        `json:"source"`
	Time   time.Time     `json:"time"`
}

// NewEdit создаёт правку с новым ID и текущим временем
func NewEdit(pos vec.Vec3, id block.BlockID, source string) Edit {
	return Edit{
		ID:     uuid.NewString(),
		Pos:    pos,
		Block:  id,
		Source: source,
		Time:   time.Now().UTC(),
	}
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет правки. Правки одного источника приходят в порядке публикации.
type Handler func(ctx context.Context, e Edit)

// Stats агрегированные метрики ленты.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// Feed - лента правок между внешними источниками и основным циклом мира
type Feed interface {
	Publish(ctx context.Context, e Edit) error
	Subscribe(ctx context.Context, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}
