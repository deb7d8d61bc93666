package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/nishant-jng/shopify-backend-sub000/internal/mailer"
)

func TestDispatcher_DeliversAndDrains(t *testing.T) {
	rec := &mailer.Recorder{Fail: map[string]error{"bad@x.test": errors.New("bounced")}}
	d := NewDispatcher(rec, 2, 8, zaptest.NewLogger(t))

	ok := d.Submit(EmailJob{
		Event:   "PO_UPLOAD",
		Subject: "New PO",
		Recipients: []Recipient{
			{Email: "a@x.test"},
			{Email: "b@x.test"},
			{Email: "bad@x.test"},
			{UserID: "no-email"},
		},
	})
	if !ok {
		t.Fatal("Submit rejected job")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := len(rec.Sent()); got != 2 {
		t.Errorf("sent = %d, want 2", got)
	}
	if d.Submit(EmailJob{}) {
		t.Error("Submit after Close should be rejected")
	}
	// closing twice is harmless
	if err := d.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

type blockingSender struct {
	release chan struct{}
	once    sync.Once
	started chan struct{}
}

func (b *blockingSender) Send(ctx context.Context, _ mailer.Message) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return nil
}

func TestDispatcher_SubmitNeverBlocks(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{}), started: make(chan struct{})}
	d := NewDispatcher(sender, 1, 1, zaptest.NewLogger(t))
	job := EmailJob{Recipients: []Recipient{{Email: "a@x.test"}}}

	if !d.Submit(job) {
		t.Fatal("first Submit rejected")
	}
	<-sender.started // worker is busy with the first job

	if !d.Submit(job) {
		t.Fatal("second Submit should fill the queue")
	}
	done := make(chan bool)
	go func() { done <- d.Submit(job) }()
	select {
	case accepted := <-done:
		if accepted {
			t.Error("third Submit should be dropped while the queue is full")
		}
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}

	close(sender.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
