package daily

import (
	"context"
	"time"

	"go.uber.org/zap"

	"root/internal/queue"
)

// ConsumeTriggers runs the guarded batch for every daily_batch message on q until ctx
// ends. Other message types are ignored.
func ConsumeTriggers(ctx context.Context, q queue.Queue, batch *GuardedBatch, loc *time.Location, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	msgs, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range msgs {
		if msg.Type != queue.TypeDailyBatch {
			logger.Debug("ignoring message", zap.String("type", msg.Type))
			continue
		}
		day, err := queue.ParseDailyBatch(msg, loc)
		if err != nil {
			logger.Warn("bad daily batch trigger", zap.Error(err))
			continue
		}
		batch.Run(ctx, day)
	}
	return ctx.Err()
}
