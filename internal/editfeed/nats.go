package editfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	nats "github.com/nats-io/nats.go"

	"github.com/annel0/voxelworld/internal/logging"
)

// DefaultSubject - subject NATS для правок мира
const DefaultSubject = "world.edits"

// NATSFeed реализует Feed поверх core NATS, полезная нагрузка - JSON.
type NATSFeed struct {
	nc        *nats.Conn
	subject   string
	published uint64
	consumed  uint64
	dropped   uint64
}

// NewNATSFeed подключается к NATS.
// url: nats://127.0.0.1:4222, subject: "world.edits".
func NewNATSFeed(url, subject string) (*NATSFeed, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	nc, err := nats.Connect(url, nats.Name("voxeld-editfeed"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	logging.GetEditFeedLogger().Info("📡 NATS подключён: %s, subject=%s", url, subject)
	return &NATSFeed{nc: nc, subject: subject}, nil
}

// Publish сериализует правку в JSON и публикует в subject ленты.
func (nf *NATSFeed) Publish(ctx context.Context, e Edit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := nf.nc.Publish(nf.subject, data); err != nil {
		if err == nats.ErrConnectionClosed {
			return ErrFeedClosed
		}
		return err
	}
	atomic.AddUint64(&nf.published, 1)
	return nil
}

// Subscribe подписывается на subject и вызывает handler из горутины NATS.
// Сообщения одной подписки доставляются последовательно.
func (nf *NATSFeed) Subscribe(ctx context.Context, h Handler) (Subscription, error) {
	logger := logging.GetEditFeedLogger()

	natSub, err := nf.nc.Subscribe(nf.subject, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		var e Edit
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			atomic.AddUint64(&nf.dropped, 1)
			logging.LogPayloadError(logger, "nats:"+msg.Subject, err, msg.Data)
			return
		}
		h(ctx, e)
		atomic.AddUint64(&nf.consumed, 1)
	})
	if err != nil {
		return nil, err
	}
	if err := nf.nc.Flush(); err != nil {
		_ = natSub.Unsubscribe()
		return nil, err
	}

	return &natsSub{natSub}, nil
}

// natsSub обёртка вокруг *nats.Subscription чтобы удовлетворить наш интерфейс.
type natsSub struct {
	s *nats.Subscription
}

func (n *natsSub) Unsubscribe() {
	_ = n.s.Unsubscribe()
}

// Metrics возвращает текущие метрики.
func (nf *NATSFeed) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&nf.published),
		Consumed:  atomic.LoadUint64(&nf.consumed),
		Dropped:   atomic.LoadUint64(&nf.dropped),
		InFlight:  0, // очередью управляет NATS
	}
}

// Close дожидается доставки и закрывает соединение
func (nf *NATSFeed) Close() error {
	if nf.nc.IsClosed() {
		return nil
	}
	return nf.nc.Drain()
}
