package editfeed

import (
	"context"

	"github.com/annel0/voxelworld/internal/logging"
)

// StartLoggingListener подписывается на все правки и пишет их в лог.
// Функция неблокирующая.
func StartLoggingListener(feed Feed) (Subscription, error) {
	logger := logging.GetEditFeedLogger()
	sub, err := feed.Subscribe(context.Background(), func(ctx context.Context, e Edit) {
		logger.Debug("[EditFeed] %s %v -> %s src=%s", e.ID, e.Pos, e.Block, e.Source)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("🪵 LoggingListener: подписка на ленту правок активирована")
	return sub, nil
}
