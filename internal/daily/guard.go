package daily

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"root/internal/model"
	"root/internal/store"
)

// Guard makes sure a day's batch runs once across replicas and manual triggers.
type Guard interface {
	// Claim returns true when the caller owns the day and should run it.
	Claim(ctx context.Context, day time.Time) (bool, error)
	// Release gives the day back so a later attempt may run it.
	Release(ctx context.Context, day time.Time) error
}

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewMemoryGuard creates an empty guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{claimed: make(map[string]struct{})}
}

func (g *MemoryGuard) Claim(_ context.Context, day time.Time) (bool, error) {
	key := day.Format(model.DateLayout)
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.claimed[key]; ok {
		return false, nil
	}
	g.claimed[key] = struct{}{}
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, day time.Time) error {
	g.mu.Lock()
	delete(g.claimed, day.Format(model.DateLayout))
	g.mu.Unlock()
	return nil
}

// RedisGuard claims days with SET NX so only one replica runs each. When Redis cannot
// be reached it degrades to an in-process guard.
type RedisGuard struct {
	client   *redis.Client
	ttl      time.Duration
	fallback *MemoryGuard
	logger   *zap.Logger
}

// NewRedisGuard creates a guard whose claims expire after 48 hours.
func NewRedisGuard(client *redis.Client, logger *zap.Logger) *RedisGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisGuard{client: client, ttl: 48 * time.Hour, fallback: NewMemoryGuard(), logger: logger}
}

func guardKey(day time.Time) string {
	return store.Key("daily", day.Format(model.DateLayout))
}

func (g *RedisGuard) Claim(ctx context.Context, day time.Time) (bool, error) {
	ok, err := g.client.SetNX(ctx, guardKey(day), time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		g.logger.Warn("redis guard unavailable, using in-process guard", zap.Error(err))
		return g.fallback.Claim(ctx, day)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, day time.Time) error {
	_ = g.fallback.Release(ctx, day)
	return g.client.Del(ctx, guardKey(day)).Err()
}

// GuardedBatch runs a Batch only for days it can claim.
type GuardedBatch struct {
	batch  *Batch
	guard  Guard
	logger *zap.Logger
}

// NewGuardedBatch wraps batch with guard.
func NewGuardedBatch(batch *Batch, guard Guard, logger *zap.Logger) *GuardedBatch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardedBatch{batch: batch, guard: guard, logger: logger}
}

// Run executes the full batch for day when it can claim the day. A day that was
// already claimed only gets the insert step, which fills rows a partial run left
// behind without crediting the monthly counter twice. The returned bool reports
// whether the full batch ran. The claim is released when the member fetch aborted
// the batch so a retry can run in full.
func (g *GuardedBatch) Run(ctx context.Context, day time.Time) (Report, bool) {
	date := day.Format(model.DateLayout)
	ok, err := g.guard.Claim(ctx, day)
	if err != nil {
		g.logger.Error("daily guard claim failed", zap.String("date", date), zap.Error(err))
		return Report{Day: day, Err: err}, false
	}
	if !ok {
		g.logger.Info("daily batch already claimed, filling missing rows only", zap.String("date", date))
		return g.batch.Materialize(ctx, day), false
	}

	rep := g.batch.Run(ctx, day)
	switch {
	case rep.Aborted():
		if err := g.guard.Release(context.WithoutCancel(ctx), day); err != nil {
			g.logger.Warn("daily guard release failed", zap.String("date", date), zap.Error(err))
		}
	case rep.Partial():
		g.logger.Warn("daily batch left members without a row; rerun runDailyTask for this date",
			zap.String("date", date), zap.Int("insert_failures", rep.InsertFailures))
	}
	return rep, true
}

// RunDay satisfies Job.
func (g *GuardedBatch) RunDay(ctx context.Context, day time.Time) {
	g.Run(ctx, day)
}
