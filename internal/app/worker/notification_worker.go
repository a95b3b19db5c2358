package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/peakay-kush/PK-Automations-sub001/internal/app/service"
	"github.com/peakay-kush/PK-Automations-sub001/internal/platform/mail"
	"github.com/peakay-kush/PK-Automations-sub001/internal/platform/metrics"
)

const (
	popTimeout  = 5 * time.Second
	maxAttempts = 5
)

// Compare-and-delete so a worker never releases a lock it no longer owns.
var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

type Options struct {
	QueueName  string
	LockPrefix string
	LockTTL    time.Duration
	AdminEmail string
}

// queuedJob wraps the payload with its retry count and per-recipient progress,
// so a retry only resends the mail that failed.
type queuedJob struct {
	service.StatusNotification
	Attempts     int  `json:"attempts,omitempty"`
	CustomerSent bool `json:"customerSent,omitempty"`
}

// NotificationWorker drains the status notification queue and mails the
// customer and the shop admin. One lock per order keeps two workers from
// mailing the same order concurrently.
type NotificationWorker struct {
	rdb    *redis.Client
	mailer mail.Mailer
	opts   Options
	log    *zap.Logger
}

func NewNotificationWorker(rdb *redis.Client, mailer mail.Mailer, opts Options, log *zap.Logger) *NotificationWorker {
	if opts.LockTTL <= 0 {
		opts.LockTTL = time.Minute
	}
	return &NotificationWorker{rdb: rdb, mailer: mailer, opts: opts, log: log}
}

func (w *NotificationWorker) Start(ctx context.Context) {
	w.log.Info("notification worker started", zap.String("queue", w.opts.QueueName))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("notification worker stopping")
			return
		default:
		}
		if err := w.processOnce(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Error("failed to pop notification job", zap.String("queue", w.opts.QueueName), zap.Error(err))
			sleep(ctx, 5*time.Second)
		}
	}
}

// processOnce blocks for one job. An empty queue is not an error.
func (w *NotificationWorker) processOnce(ctx context.Context) error {
	res, err := w.rdb.BRPop(ctx, popTimeout, w.opts.QueueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	// res is [queueName, value]
	if len(res) < 2 || res[1] == "" {
		w.log.Warn("BRPop returned an empty job")
		return nil
	}

	var job queuedJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil || job.OrderID == "" {
		metrics.Notification("dropped")
		w.log.Error("dropping malformed notification job", zap.String("payload", res[1]), zap.Error(err))
		return nil
	}
	w.processWithLock(ctx, job)
	return nil
}

func (w *NotificationWorker) processWithLock(ctx context.Context, job queuedJob) {
	lockKey := w.opts.LockPrefix + job.OrderID
	lockValue := uuid.NewString()

	ok, err := w.rdb.SetNX(ctx, lockKey, lockValue, w.opts.LockTTL).Result()
	if err != nil {
		w.log.Error("failed to attempt notification lock", zap.String("order_id", job.OrderID), zap.Error(err))
		w.requeue(ctx, job)
		return
	}
	if !ok {
		w.log.Info("order notification lock busy, re-queueing", zap.String("order_id", job.OrderID))
		w.requeue(ctx, job)
		return
	}

	defer func() {
		deleted, err := releaseLockScript.Run(ctx, w.rdb, []string{lockKey}, lockValue).Int64()
		if err != nil {
			w.log.Error("failed to release notification lock", zap.String("key", lockKey), zap.Error(err))
		} else if deleted == 0 {
			w.log.Warn("notification lock expired before release", zap.String("key", lockKey))
		}
	}()

	if err := w.deliver(ctx, &job); err != nil {
		w.log.Error("status notification failed", zap.String("order_id", job.OrderID), zap.Error(err))
		w.requeue(ctx, job)
		return
	}
	metrics.Notification("sent")
}

func (w *NotificationWorker) deliver(ctx context.Context, job *queuedJob) error {
	n := job.StatusNotification
	ref := n.Reference
	if ref == "" {
		ref = n.OrderID
	}
	if n.Email != "" && !job.CustomerSent {
		subject := fmt.Sprintf("Your order %s is now %s", ref, n.Status)
		body := fmt.Sprintf("Hello %s,\n\nThe status of your order %s changed to %q on %s.\n\nThank you for shopping with PK Automations.\n",
			greetingName(n.Name), ref, n.Status, n.ChangedAt.Format(time.RFC1123))
		if err := w.mailer.Send(ctx, n.Email, subject, body); err != nil {
			return fmt.Errorf("customer mail: %w", err)
		}
		job.CustomerSent = true
	}
	if w.opts.AdminEmail != "" {
		subject := fmt.Sprintf("Order %s set to %s", ref, n.Status)
		body := fmt.Sprintf("Order %s (%s) was set to %q by %s at %s.\n",
			ref, n.OrderID, n.Status, n.ChangedBy, n.ChangedAt.Format(time.RFC3339))
		if err := w.mailer.Send(ctx, w.opts.AdminEmail, subject, body); err != nil {
			return fmt.Errorf("admin mail: %w", err)
		}
	}
	return nil
}

func (w *NotificationWorker) requeue(ctx context.Context, job queuedJob) {
	job.Attempts++
	if job.Attempts >= maxAttempts {
		metrics.Notification("dropped")
		w.log.Error("giving up on notification job", zap.String("order_id", job.OrderID), zap.Int("attempts", job.Attempts))
		return
	}
	payload, err := json.Marshal(job)
	if err != nil {
		w.log.Error("failed to marshal job for re-queue", zap.String("order_id", job.OrderID), zap.Error(err))
		return
	}
	// LPush puts it behind the jobs already waiting; BRPop takes from the right.
	if err := w.rdb.LPush(ctx, w.opts.QueueName, payload).Err(); err != nil {
		w.log.Error("failed to re-queue notification job", zap.String("order_id", job.OrderID), zap.Error(err))
		return
	}
	metrics.Notification("requeued")
}

func greetingName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
