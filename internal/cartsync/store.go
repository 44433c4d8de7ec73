// Package cartsync keeps the client copy of the cart and replicates its
// mutations to the server cart.
//
// Every mutation is applied to the in-memory cart first, written through to
// local storage, and then, when a session is attached, issued to the
// server. The client copy is never rolled back on server failure. The
// server cart wins only during Reconcile.
package cartsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SN7k/Flexova/internal/domain"
	"github.com/SN7k/Flexova/pkg/logger"
	"go.uber.org/zap"
)

// LocalCache is the persistent client-side copy of the cart. The merge
// marker records a reconcile that was cut off after pushing part of the
// client cart.
type LocalCache interface {
	Load(ctx context.Context) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	LoadMergePending(ctx context.Context) (bool, error)
	SaveMergePending(ctx context.Context, pending bool) error
}

// Remote is the authoritative server cart of the signed-in user.
type Remote interface {
	GetCart(ctx context.Context) (*domain.Cart, error)
	AddItem(ctx context.Context, productID string, quantity int, size, color string) (*domain.Cart, error)
	UpdateItem(ctx context.Context, lineID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, lineID string) (*domain.Cart, error)
	ClearCart(ctx context.Context) (*domain.Cart, error)
}

// SyncError reports a server call that failed after the client cart was
// already updated. It matches domain.ErrSyncFailure and the cause.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: %s: %v", domain.ErrSyncFailure, e.Op, e.Err)
}

func (e *SyncError) Unwrap() []error {
	return []error{domain.ErrSyncFailure, e.Err}
}

type Store struct {
	mu       sync.Mutex // guards cart, local, degraded, remote, merge
	cart     *domain.Cart
	local    LocalCache
	degraded bool
	remote   Remote
	merge    bool // next Reconcile merges instead of letting the server win

	// remoteMu serializes server calls. It is always taken after mu.
	remoteMu sync.Mutex
	server   *domain.Cart // last server cart observed, nil when unknown

	log *zap.Logger
}

// Open loads the client cart from local. A missing or unreadable entry
// yields an empty cart. The server is not consulted.
func Open(ctx context.Context, local LocalCache, log *zap.Logger) *Store {
	s := &Store{
		local: local,
		log:   logger.OrNop(log),
	}

	if local == nil {
		s.degraded = true
		s.cart = domain.NewCart("")
		return s
	}

	cart, err := local.Load(ctx)
	switch {
	case err == nil:
		s.cart = cart
	case errors.Is(err, domain.ErrNotFound):
		s.cart = domain.NewCart("")
	default:
		s.log.Warn("unreadable local cart, starting empty", zap.Error(err))
		s.cart = domain.NewCart("")
	}

	if s.merge, err = local.LoadMergePending(ctx); err != nil {
		s.log.Warn("unreadable merge marker", zap.Error(err))
	}
	return s
}

// Attach enables replication to remote for the current session.
func (s *Store) Attach(remote Remote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteMu.Lock()
	defer s.remoteMu.Unlock()

	s.remote = remote
	s.server = nil
}

// Detach stops replication. The client cart is kept.
func (s *Store) Detach() {
	s.Attach(nil)
}

func (s *Store) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote != nil
}

// Degraded reports whether local storage failed and the cart lives in
// memory only.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Snapshot returns a copy of the client cart.
func (s *Store) Snapshot() *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

func (s *Store) AddLine(ctx context.Context, snap domain.ProductSnapshot, quantity int, size, color string) (*domain.Cart, error) {
	return s.apply(ctx, "add",
		func(c *domain.Cart) error {
			return c.AddLine(snap, quantity, size, color)
		},
		func(ctx context.Context, r Remote) (*domain.Cart, error) {
			return r.AddItem(ctx, snap.ProductID, quantity, size, color)
		},
	)
}

func (s *Store) UpdateLineQuantity(ctx context.Context, key domain.LineKey, quantity int) (*domain.Cart, error) {
	return s.apply(ctx, "update",
		func(c *domain.Cart) error {
			return c.UpdateLineQuantity(key, quantity)
		},
		func(ctx context.Context, r Remote) (*domain.Cart, error) {
			return s.pushQuantity(ctx, r, key, quantity)
		},
	)
}

// AdjustLineQuantity steps the line quantity by delta. A result below 1
// removes the line.
func (s *Store) AdjustLineQuantity(ctx context.Context, key domain.LineKey, delta int) (*domain.Cart, error) {
	var quantity int
	return s.apply(ctx, "adjust",
		func(c *domain.Cart) error {
			if err := c.AdjustLineQuantity(key, delta); err != nil {
				return err
			}
			if i, ok := domain.ResolveLine(c.Lines, key); ok {
				quantity = c.Lines[i].Quantity
			}
			return nil
		},
		func(ctx context.Context, r Remote) (*domain.Cart, error) {
			if quantity == 0 {
				return s.pushRemove(ctx, r, key)
			}
			return s.pushQuantity(ctx, r, key, quantity)
		},
	)
}

func (s *Store) RemoveLine(ctx context.Context, key domain.LineKey) (*domain.Cart, error) {
	return s.apply(ctx, "remove",
		func(c *domain.Cart) error {
			return c.RemoveLine(key)
		},
		func(ctx context.Context, r Remote) (*domain.Cart, error) {
			return s.pushRemove(ctx, r, key)
		},
	)
}

func (s *Store) Clear(ctx context.Context) (*domain.Cart, error) {
	return s.apply(ctx, "clear",
		func(c *domain.Cart) error {
			c.Clear()
			return nil
		},
		func(ctx context.Context, r Remote) (*domain.Cart, error) {
			return r.ClearCart(ctx)
		},
	)
}

// Reconcile aligns the client cart with the server after sign-in. A server
// cart with lines replaces the client cart. Otherwise the client lines are
// pushed and the resulting server cart is adopted. Mutations wait until it
// returns. Without an attached session it is a no-op.
//
// A push cut off by a server failure leaves part of the client cart on the
// server. The store then remembers to merge: the next Reconcile pushes the
// client lines the server still lacks before adopting it, even though the
// server cart is no longer empty.
func (s *Store) Reconcile(ctx context.Context) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remote == nil {
		return s.cart.Clone(), nil
	}
	s.remoteMu.Lock()
	defer s.remoteMu.Unlock()

	server, err := s.remote.GetCart(ctx)
	if err != nil {
		s.server = nil
		return s.cart.Clone(), s.syncFailed("reconcile", err)
	}

	if len(server.Lines) == 0 || s.merge {
		server, err = s.pushMissing(ctx, server)
		if err != nil {
			s.server = nil
			s.setMerge(ctx, true)
			return s.cart.Clone(), s.syncFailed("reconcile", err)
		}
	}

	s.server = server
	s.cart = server.Clone()
	s.persist(ctx)
	s.setMerge(ctx, false)

	s.log.Info("cart reconciled",
		zap.Int("lines", len(s.cart.Lines)),
		zap.Int64("total", int64(s.cart.Total)),
	)
	return s.cart.Clone(), nil
}

// pushMissing adds every client line the server cart does not have. A line
// whose product the server no longer knows is dropped and the push goes on.
// Caller holds mu and remoteMu.
func (s *Store) pushMissing(ctx context.Context, server *domain.Cart) (*domain.Cart, error) {
	for _, l := range s.cart.Lines {
		if _, ok := domain.ResolveLine(server.Lines, l.Key()); ok {
			continue
		}

		next, err := s.remote.AddItem(ctx, l.ProductID, l.Quantity, l.Size, l.Color)
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("dropping cart line, product unavailable",
				zap.String("product_id", l.ProductID),
				zap.String("size", l.Size),
				zap.String("color", l.Color),
				zap.Error(err),
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		server = next
	}
	return server, nil
}

// setMerge records whether the next Reconcile must merge. Caller holds mu.
func (s *Store) setMerge(ctx context.Context, pending bool) {
	if s.merge == pending {
		return
	}
	s.merge = pending
	if s.degraded {
		return
	}
	if err := s.local.SaveMergePending(ctx, pending); err != nil {
		s.log.Warn("failed to store merge marker", zap.Bool("pending", pending), zap.Error(err))
	}
}

// apply runs mutate on the client cart, writes it through and, when
// attached, runs push against the server in mutation order.
func (s *Store) apply(
	ctx context.Context,
	op string,
	mutate func(*domain.Cart) error,
	push func(context.Context, Remote) (*domain.Cart, error),
) (*domain.Cart, error) {
	s.mu.Lock()
	if err := mutate(s.cart); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.persist(ctx)
	snap := s.cart.Clone()

	remote := s.remote
	if remote == nil {
		s.mu.Unlock()
		return snap, nil
	}

	// Take the remote lock before releasing mu so server calls keep the
	// order of local mutations.
	s.remoteMu.Lock()
	s.mu.Unlock()
	defer s.remoteMu.Unlock()

	server, err := push(ctx, remote)
	if err != nil {
		s.server = nil
		return snap, s.syncFailed(op, err)
	}
	s.server = server
	return snap, nil
}

func (s *Store) syncFailed(op string, err error) error {
	s.log.Warn("cart sync failed, keeping local state", zap.String("op", op), zap.Error(err))
	return &SyncError{Op: op, Err: err}
}

// persist writes the client cart to local storage. The first failure
// switches the store to memory-only. Caller holds mu.
func (s *Store) persist(ctx context.Context) {
	if s.degraded {
		return
	}
	if err := s.local.Save(ctx, s.cart); err != nil {
		s.degraded = true
		s.log.Warn("local cart storage disabled for this session",
			zap.Error(fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)),
		)
	}
}

// pushQuantity sets the server line to quantity. A line the server does not
// know is added instead. Caller holds remoteMu.
func (s *Store) pushQuantity(ctx context.Context, r Remote, key domain.LineKey, quantity int) (*domain.Cart, error) {
	lineID, err := s.serverLineID(ctx, r, key)
	if errors.Is(err, domain.ErrLineNotFound) {
		return r.AddItem(ctx, key.ProductID, quantity, key.Size, key.Color)
	}
	if err != nil {
		return nil, err
	}
	return r.UpdateItem(ctx, lineID, quantity)
}

// pushRemove deletes the server line. A line the server does not know is
// already gone. Caller holds remoteMu.
func (s *Store) pushRemove(ctx context.Context, r Remote, key domain.LineKey) (*domain.Cart, error) {
	lineID, err := s.serverLineID(ctx, r, key)
	if errors.Is(err, domain.ErrLineNotFound) {
		return s.server, nil
	}
	if err != nil {
		return nil, err
	}
	return r.RemoveItem(ctx, lineID)
}

// serverLineID maps a line identity to the server line id, fetching the
// server cart when the last observed one does not have it. Caller holds
// remoteMu.
func (s *Store) serverLineID(ctx context.Context, r Remote, key domain.LineKey) (string, error) {
	if id, ok := lineID(s.server, key); ok {
		return id, nil
	}

	server, err := r.GetCart(ctx)
	if err != nil {
		return "", err
	}
	s.server = server

	if id, ok := lineID(server, key); ok {
		return id, nil
	}
	return "", domain.ErrLineNotFound
}

func lineID(c *domain.Cart, key domain.LineKey) (string, bool) {
	if c == nil {
		return "", false
	}
	i, ok := domain.ResolveLine(c.Lines, key)
	if !ok {
		return "", false
	}
	return c.Lines[i].ID, true
}
