package poller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/SN7k/Flexova/internal/domain"
	"github.com/SN7k/Flexova/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	DefaultTopic   = "checkout-outbox"
	DefaultGroupID = "cart-service-consumer"
)

// MessageReader is the part of *kafka.Reader the poller uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type CartClearer interface {
	ClearCart(ctx context.Context, userID string) (*domain.Cart, error)
}

type checkoutEvent struct {
	UserID string `json:"user_id"`
}

// Poller empties a user's cart once their checkout completes.
type Poller struct {
	carts  CartClearer
	reader MessageReader
	log    *zap.Logger
	// pause after a failed read so a broken broker does not spin the loop
	retryDelay time.Duration
}

func NewKafkaReader(topic, groupID string, brokers ...string) *kafka.Reader {
	if topic == "" {
		topic = DefaultTopic
	}
	if groupID == "" {
		groupID = DefaultGroupID
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewPoller(carts CartClearer, reader MessageReader, log *zap.Logger) *Poller {
	return &Poller{
		carts:      carts,
		reader:     reader,
		log:        logger.OrNop(log),
		retryDelay: time.Second,
	}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.handleNext(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error("error closing reader", zap.Error(err))
	}
}

func (p *Poller) handleNext(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.log.Error("error reading message", zap.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(p.retryDelay):
		}
		return
	}

	log := p.log.With(
		zap.String("topic", m.Topic),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
	)

	var event checkoutEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		log.Warn("error parsing message", zap.Error(err))
		return
	}
	if event.UserID == "" {
		log.Warn("missing or invalid user_id")
		return
	}

	if _, err := p.carts.ClearCart(ctx, event.UserID); err != nil && !errors.Is(err, domain.ErrCartNotFound) {
		log.Error("failed to clear cart", zap.String("user_id", event.UserID), zap.Error(err))
		return
	}
	log.Info("cart cleared after checkout", zap.String("user_id", event.UserID))
}
