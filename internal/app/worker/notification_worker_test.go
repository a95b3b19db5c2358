package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/peakay-kush/PK-Automations-sub001/internal/app/service"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/model"
)

type sentMail struct {
	to, subject string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
	// failFor rejects mail to these recipients only.
	failFor map[string]bool
}

func (m *fakeMailer) Send(_ context.Context, to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.failFor[to] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return nil
}

const testQueue = "test_notifications"

func setup(t *testing.T, mailer *fakeMailer) (*NotificationWorker, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	w := NewNotificationWorker(rdb, mailer, Options{
		QueueName:  testQueue,
		LockPrefix: "lock:",
		LockTTL:    time.Minute,
		AdminEmail: "ops@example.com",
	}, zap.NewNop())
	return w, mr, rdb
}

func enqueue(t *testing.T, rdb *redis.Client, n service.StatusNotification) {
	t.Helper()
	if err := service.NewRedisNotifier(rdb, testQueue).NotifyStatusChange(context.Background(), n); err != nil {
		t.Fatalf("NotifyStatusChange() error = %v", err)
	}
}

func TestProcessOnce_SendsCustomerAndAdminMail(t *testing.T) {
	mailer := &fakeMailer{}
	w, mr, rdb := setup(t, mailer)
	enqueue(t, rdb, service.StatusNotification{
		OrderID: "o-1", Reference: "PK-1", Status: model.OrderDispatched,
		Email: "buyer@example.com", ChangedBy: "admin@example.com", ChangedAt: time.Now(),
	})

	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce() error = %v", err)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("sent %d mails, want 2: %+v", len(mailer.sent), mailer.sent)
	}
	if mailer.sent[0].to != "buyer@example.com" || mailer.sent[1].to != "ops@example.com" {
		t.Errorf("recipients = %+v", mailer.sent)
	}
	if mr.Exists("lock:o-1") {
		t.Error("order lock not released")
	}
}

func TestProcessOnce_NoCustomerEmail(t *testing.T) {
	mailer := &fakeMailer{}
	w, _, rdb := setup(t, mailer)
	enqueue(t, rdb, service.StatusNotification{OrderID: "o-2", Status: model.OrderConfirmed})

	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce() error = %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "ops@example.com" {
		t.Errorf("sent = %+v, want only the admin mail", mailer.sent)
	}
}

func TestProcessOnce_LockedOrderIsRequeued(t *testing.T) {
	mailer := &fakeMailer{}
	w, mr, rdb := setup(t, mailer)
	if err := mr.Set("lock:o-3", "someone-else"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	enqueue(t, rdb, service.StatusNotification{OrderID: "o-3", Status: model.OrderCompleted, Email: "x@example.com"})

	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce() error = %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("mail sent while lock held: %+v", mailer.sent)
	}
	items, err := mr.List(testQueue)
	if err != nil || len(items) != 1 {
		t.Fatalf("queue = %v, %v; want one re-queued job", items, err)
	}
	var job queuedJob
	if err := json.Unmarshal([]byte(items[0]), &job); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if job.Attempts != 1 || job.OrderID != "o-3" {
		t.Errorf("re-queued job = %+v", job)
	}
	if got, _ := mr.Get("lock:o-3"); got != "someone-else" {
		t.Errorf("foreign lock was touched: %q", got)
	}
}

func TestProcessOnce_GivesUpAfterMaxAttempts(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down")}
	w, mr, rdb := setup(t, mailer)
	enqueue(t, rdb, service.StatusNotification{OrderID: "o-4", Status: model.OrderFailed, Email: "x@example.com"})

	for i := 0; i < maxAttempts; i++ {
		if err := w.processOnce(context.Background()); err != nil {
			t.Fatalf("processOnce() #%d error = %v", i+1, err)
		}
	}
	if mr.Exists(testQueue) {
		items, _ := mr.List(testQueue)
		t.Errorf("queue still holds %v after %d attempts", items, maxAttempts)
	}
}

func TestProcessOnce_DropsMalformedJob(t *testing.T) {
	mailer := &fakeMailer{}
	w, mr, _ := setup(t, mailer)
	if _, err := mr.Lpush(testQueue, "{not json"); err != nil {
		t.Fatalf("Lpush() error = %v", err)
	}
	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce() error = %v", err)
	}
	if mr.Exists(testQueue) || len(mailer.sent) != 0 {
		t.Error("malformed job should be dropped without mail")
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	mailer := &fakeMailer{}
	w, _, _ := setup(t, mailer)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func (m *fakeMailer) sentTo(addr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.to == addr {
			n++
		}
	}
	return n
}

func TestProcessOnce_AdminFailureDoesNotRepeatCustomerMail(t *testing.T) {
	mailer := &fakeMailer{failFor: map[string]bool{"ops@example.com": true}}
	w, mr, rdb := setup(t, mailer)
	enqueue(t, rdb, service.StatusNotification{
		OrderID: "o-5", Reference: "PK-5", Status: model.OrderDispatched, Email: "buyer@example.com",
	})

	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce() error = %v", err)
	}
	items, err := mr.List(testQueue)
	if err != nil || len(items) != 1 {
		t.Fatalf("queue = %v, %v; want the job re-queued", items, err)
	}
	var job queuedJob
	if err := json.Unmarshal([]byte(items[0]), &job); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !job.CustomerSent || job.Attempts != 1 {
		t.Errorf("re-queued job = %+v, want customerSent and one attempt", job)
	}

	for i := 1; i < maxAttempts; i++ {
		if err := w.processOnce(context.Background()); err != nil {
			t.Fatalf("processOnce() #%d error = %v", i+1, err)
		}
	}
	if got := mailer.sentTo("buyer@example.com"); got != 1 {
		t.Errorf("customer received %d mails for one status change, want 1", got)
	}
	if mr.Exists(testQueue) {
		t.Error("job should be dropped after the attempt cap")
	}
}

func TestProcessOnce_RetryDeliversAdminMailOnce(t *testing.T) {
	mailer := &fakeMailer{failFor: map[string]bool{"ops@example.com": true}}
	w, _, rdb := setup(t, mailer)
	enqueue(t, rdb, service.StatusNotification{OrderID: "o-6", Status: model.OrderCompleted, Email: "buyer@example.com"})

	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce() error = %v", err)
	}
	mailer.mu.Lock()
	mailer.failFor = nil
	mailer.mu.Unlock()
	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce() retry error = %v", err)
	}

	if c, a := mailer.sentTo("buyer@example.com"), mailer.sentTo("ops@example.com"); c != 1 || a != 1 {
		t.Errorf("customer mails = %d, admin mails = %d; want 1 each", c, a)
	}
}
