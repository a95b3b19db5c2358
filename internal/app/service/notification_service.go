package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/peakay-kush/PK-Automations-sub001/internal/common"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/model"
)

// StatusNotification is the job pushed onto the notification queue.
type StatusNotification struct {
	OrderID   string            `json:"orderId"`
	Reference string            `json:"reference"`
	Status    model.OrderStatus `json:"status"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	ChangedBy string            `json:"changedBy"`
	ChangedAt time.Time         `json:"changedAt"`
}

type Notifier interface {
	NotifyStatusChange(ctx context.Context, n StatusNotification) error
}

// RedisNotifier LPushes jobs for the notification worker, which BRPops them.
type RedisNotifier struct {
	rdb   *redis.Client
	queue string
}

func NewRedisNotifier(rdb *redis.Client, queue string) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, queue: queue}
}

func (n *RedisNotifier) NotifyStatusChange(ctx context.Context, job StatusNotification) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return common.Errorf("failed to marshal status notification: %w", err)
	}
	if err := n.rdb.LPush(ctx, n.queue, payload).Err(); err != nil {
		return common.Errorf("failed to push status notification to Redis queue: %w", err)
	}
	return nil
}

// LogNotifier is used when Redis is not configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyStatusChange(_ context.Context, job StatusNotification) error {
	n.log.Debug("status notification skipped, no queue configured",
		zap.String("order_id", job.OrderID),
		zap.String("status", string(job.Status)),
	)
	return nil
}
