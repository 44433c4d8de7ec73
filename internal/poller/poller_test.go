package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SN7k/Flexova/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu     sync.Mutex
	queue  []kafka.Message
	errs   []error
	closed bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

type fakeCarts struct {
	mu      sync.Mutex
	cleared []string
	err     error
}

func (c *fakeCarts) ClearCart(_ context.Context, userID string) (*domain.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.cleared = append(c.cleared, userID)
	return domain.NewCart(userID), nil
}

func (c *fakeCarts) users() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.cleared...)
}

func msg(value string) kafka.Message {
	return kafka.Message{Topic: DefaultTopic, Value: []byte(value)}
}

func runUntil(t *testing.T, p *Poller, done func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(finished)
	}()

	require.Eventually(t, done, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestPoller_ClearsCartOnCheckout(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		msg(`{"user_id":"user-1"}`),
		msg(`{"user_id":"user-2","order_id":"o-9"}`),
	}}
	carts := &fakeCarts{}
	p := NewPoller(carts, reader, nil)

	runUntil(t, p, func() bool { return len(carts.users()) == 2 })
	assert.Equal(t, []string{"user-1", "user-2"}, carts.users())
}

func TestPoller_SkipsBadMessages(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	reader := &fakeReader{queue: []kafka.Message{
		msg(`not json`),
		msg(`{"order_id":"o-1"}`),
		msg(`{"user_id":"user-3"}`),
	}}
	carts := &fakeCarts{}
	p := NewPoller(carts, reader, zap.New(core))

	runUntil(t, p, func() bool { return len(carts.users()) == 1 })
	assert.Equal(t, []string{"user-3"}, carts.users())
	assert.Equal(t, 1, logs.FilterMessage("error parsing message").Len())
	assert.Equal(t, 1, logs.FilterMessage("missing or invalid user_id").Len())
}

func TestPoller_ReadErrorIsRetried(t *testing.T) {
	reader := &fakeReader{
		errs:  []error{errors.New("broker unavailable")},
		queue: []kafka.Message{msg(`{"user_id":"user-4"}`)},
	}
	carts := &fakeCarts{}
	p := NewPoller(carts, reader, nil)
	p.retryDelay = time.Millisecond

	runUntil(t, p, func() bool { return len(carts.users()) == 1 })
}

func TestPoller_ClearFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	reader := &fakeReader{queue: []kafka.Message{msg(`{"user_id":"user-5"}`)}}
	carts := &fakeCarts{err: errors.New("mongo down")}
	p := NewPoller(carts, reader, zap.New(core))

	runUntil(t, p, func() bool { return logs.FilterMessage("failed to clear cart").Len() == 1 })
}

func TestPoller_Close(t *testing.T) {
	reader := &fakeReader{}
	NewPoller(&fakeCarts{}, reader, nil).Close()
	assert.True(t, reader.closed)
}
