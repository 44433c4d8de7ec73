package cartsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SN7k/Flexova/internal/domain"
)

type fakeLocal struct {
	mu      sync.Mutex
	cart    *domain.Cart
	loadErr error
	saveErr error
	saves   int
	merge   bool
}

func (f *fakeLocal) Load(context.Context) (*domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.cart == nil {
		return nil, domain.ErrCartNotFound
	}
	return f.cart.Clone(), nil
}

func (f *fakeLocal) Save(_ context.Context, c *domain.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.cart = c.Clone()
	return nil
}

func (f *fakeLocal) LoadMergePending(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.merge, f.loadErr
}

func (f *fakeLocal) SaveMergePending(_ context.Context, pending bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.merge = pending
	return nil
}

func (f *fakeLocal) mergePending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.merge
}

func (f *fakeLocal) stored() *domain.Cart {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cart == nil {
		return nil
	}
	return f.cart.Clone()
}

// fakeRemote behaves like the server cart. Line ids are assigned by the
// server and never match client ids.
type fakeRemote struct {
	mu    sync.Mutex
	cart  *domain.Cart
	err   error
	calls []string
	delay time.Duration

	addErr map[string]error // per product id, consulted by AddItem

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

var errServerDown = errors.New("server down")

func newFakeRemote() *fakeRemote {
	return &fakeRemote{cart: newServerCart()}
}

func newServerCart() *domain.Cart {
	c := domain.NewCart("user-1")
	c.ID = "server-cart"
	return c
}

func (f *fakeRemote) enter(call string) func() {
	n := f.inFlight.Add(1)
	for {
		max := f.maxInFlight.Load()
		if n <= max || f.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	return func() {
		f.mu.Unlock()
		f.inFlight.Add(-1)
	}
}

func (f *fakeRemote) GetCart(context.Context) (*domain.Cart, error) {
	defer f.enter("get")()
	if f.err != nil {
		return nil, f.err
	}
	return f.cart.Clone(), nil
}

func (f *fakeRemote) AddItem(_ context.Context, productID string, quantity int, size, color string) (*domain.Cart, error) {
	defer f.enter("add")()
	if f.err != nil {
		return nil, f.err
	}
	if err := f.addErr[productID]; err != nil {
		return nil, err
	}
	snap := domain.ProductSnapshot{ProductID: productID, Name: "server " + productID, UnitPrice: 1000}
	if err := f.cart.AddLine(snap, quantity, size, color); err != nil {
		return nil, err
	}
	return f.cart.Clone(), nil
}

func (f *fakeRemote) UpdateItem(_ context.Context, lineID string, quantity int) (*domain.Cart, error) {
	defer f.enter("update:" + lineID)()
	if f.err != nil {
		return nil, f.err
	}
	key, err := f.cart.LineByID(lineID)
	if err != nil {
		return nil, err
	}
	if err := f.cart.UpdateLineQuantity(key, quantity); err != nil {
		return nil, err
	}
	return f.cart.Clone(), nil
}

func (f *fakeRemote) RemoveItem(_ context.Context, lineID string) (*domain.Cart, error) {
	defer f.enter("remove:" + lineID)()
	if f.err != nil {
		return nil, f.err
	}
	key, err := f.cart.LineByID(lineID)
	if err != nil {
		return nil, err
	}
	if err := f.cart.RemoveLine(key); err != nil {
		return nil, err
	}
	return f.cart.Clone(), nil
}

func (f *fakeRemote) ClearCart(context.Context) (*domain.Cart, error) {
	defer f.enter("clear")()
	if f.err != nil {
		return nil, f.err
	}
	f.cart.Clear()
	return f.cart.Clone(), nil
}

func (f *fakeRemote) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeRemote) failAdd(productID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr == nil {
		f.addErr = map[string]error{}
	}
	if err == nil {
		delete(f.addErr, productID)
		return
	}
	f.addErr[productID] = err
}

func (f *fakeRemote) snapshot() (*domain.Cart, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cart.Clone(), append([]string(nil), f.calls...)
}
