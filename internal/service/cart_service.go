package service

import (
	"context"
	"errors"
	"time"

	"github.com/SN7k/Flexova/internal/cache"
	"github.com/SN7k/Flexova/internal/domain"
	"github.com/SN7k/Flexova/internal/metrics"
	"github.com/SN7k/Flexova/internal/repository"
	"github.com/SN7k/Flexova/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultSaveAttempts = 3

// ProductLookup resolves the product a cart line is added for.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type AddItemInput struct {
	ProductID string
	Quantity  int
	Size      string
	Color     string
}

type Option func(*CartService)

func WithLogger(l *zap.Logger) Option {
	return func(s *CartService) { s.log = logger.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CartService) { s.metrics = m }
}

// WithSaveAttempts bounds the read-mutate-save retries on version conflicts.
func WithSaveAttempts(n int) Option {
	return func(s *CartService) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func WithPricingPolicy(p domain.PricingPolicy) Option {
	return func(s *CartService) { s.pricing = p }
}

// CartService is the authoritative cart. Every operation re-reads the cart
// from the repository; nothing is shared in memory between requests.
type CartService struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	products ProductLookup
	sfg      singleflight.Group // Prevents cache stampede

	log      *zap.Logger
	metrics  *metrics.Metrics
	attempts int
	pricing  domain.PricingPolicy
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, products ProductLookup, opts ...Option) *CartService {
	s := &CartService{
		repo:     repo,
		cache:    cache,
		products: products,
		log:      zap.NewNop(),
		attempts: defaultSaveAttempts,
		pricing:  domain.DefaultPricingPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCart returns the owner's cart, creating and persisting an empty one on
// first access.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	log := logger.FromContext(ctx, s.log)

	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			s.metrics.CacheLookup(true)
			return cart, nil
		}
		s.metrics.CacheLookup(false)
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn("cache get failed", zap.String("user_id", userID), zap.Error(err))
		}

		cart, err = s.findOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		go func(c *domain.Cart) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := s.cache.Set(ctx, userID, c)
			switch {
			case errors.Is(err, cache.ErrStale):
				log.Debug("cache fill skipped, cart changed since read",
					zap.String("user_id", userID), zap.Int64("version", c.Version))
			case err != nil:
				log.Warn("cache set failed", zap.String("user_id", userID), zap.Error(err))
			}
		}(cart.Clone())

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart).Clone(), nil
}

func (s *CartService) findOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.FindCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrCartNotFound) {
		return nil, err
	}

	cart = domain.NewCart(userID)
	err = s.repo.SaveCart(ctx, cart)
	if errors.Is(err, domain.ErrVersionConflict) {
		// created concurrently by another request
		return s.repo.FindCart(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AddToCart validates the product and merges it into the owner's cart.
func (s *CartService) AddToCart(ctx context.Context, userID string, in AddItemInput) (*domain.Cart, error) {
	if in.Quantity < 1 {
		s.metrics.Mutation("add", metrics.OutcomeRejected)
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.products.GetProduct(ctx, in.ProductID)
	if err != nil {
		s.record("add", err)
		return nil, err
	}
	snap := product.Snapshot()

	return s.mutate(ctx, "add", userID, func(c *domain.Cart) error {
		return c.AddLine(snap, in.Quantity, in.Size, in.Color)
	})
}

func (s *CartService) UpdateItem(ctx context.Context, userID, lineID string, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, "update", userID, func(c *domain.Cart) error {
		if quantity < 1 {
			return domain.ErrInvalidQuantity
		}
		key, err := c.LineByID(lineID)
		if err != nil {
			return err
		}
		return c.UpdateLineQuantity(key, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID, lineID string) (*domain.Cart, error) {
	return s.mutate(ctx, "remove", userID, func(c *domain.Cart) error {
		key, err := c.LineByID(lineID)
		if err != nil {
			return err
		}
		return c.RemoveLine(key)
	})
}

// ClearCart empties the cart. The document is kept.
func (s *CartService) ClearCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.mutate(ctx, "clear", userID, func(c *domain.Cart) error {
		c.Clear()
		return nil
	})
}

// Summary prices the owner's cart for checkout.
func (s *CartService) Summary(ctx context.Context, userID string) (*domain.Cart, domain.Summary, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, domain.Summary{}, err
	}
	return cart, cart.Summary(s.pricing), nil
}

// mutate runs read, fn, save. A save rejected for a stale version is retried
// from a fresh read until the attempt budget is spent.
func (s *CartService) mutate(ctx context.Context, op, userID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	log := logger.FromContext(ctx, s.log).With(zap.String("op", op), zap.String("user_id", userID))

	for attempt := 1; ; attempt++ {
		cart, err := s.repo.FindCart(ctx, userID)
		if errors.Is(err, domain.ErrCartNotFound) {
			cart, err = domain.NewCart(userID), nil
		}
		if err != nil {
			log.Error("repo find cart failed", zap.Error(err))
			s.record(op, err)
			return nil, err
		}

		if err := fn(cart); err != nil {
			s.record(op, err)
			return nil, err
		}

		err = s.repo.SaveCart(ctx, cart)
		if errors.Is(err, domain.ErrVersionConflict) {
			s.metrics.Conflict()
			if attempt < s.attempts {
				log.Debug("version conflict, retrying", zap.Int("attempt", attempt))
				continue
			}
		}
		if err != nil {
			log.Error("repo save cart failed", zap.Int("attempt", attempt), zap.Error(err))
			s.record(op, err)
			return nil, err
		}

		s.invalidateCache(userID, cart.Version)
		s.metrics.Mutation(op, metrics.OutcomeOK)
		return cart, nil
	}
}

func (s *CartService) record(op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidQuantity):
		s.metrics.Mutation(op, metrics.OutcomeRejected)
	default:
		s.metrics.Mutation(op, metrics.OutcomeError)
	}
}

// invalidateCache drops the cached entry and records the saved version, so a
// concurrent GetCart that read the previous version cannot refill it.
func (s *CartService) invalidateCache(userID string, version int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, userID, version); err != nil {
		s.log.Warn("cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}
