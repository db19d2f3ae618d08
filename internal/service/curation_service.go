package service

import (
	"context"
	"errors"
	"time"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/cart"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/handoff"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/repository"
)

var (
	ErrEmptyCuration = errors.New("please add some items to your meal first")
)

// CurationService keeps each tab's working cart and checkout snapshot in
// handoff storage
type CurationService struct {
	store handoff.Store
	menu  repository.MenuRepository
	ttl   time.Duration
}

// NewCurationService creates a new curation service
func NewCurationService(store handoff.Store, menu repository.MenuRepository, ttl time.Duration) *CurationService {
	return &CurationService{
		store: store,
		menu:  menu,
		ttl:   ttl,
	}
}

// Cart returns the tab's working cart for a caterer, empty if none is stored
func (s *CurationService) Cart(ctx context.Context, tab, catererID string) (*cart.Cart, error) {
	var snap cart.Snapshot
	err := handoff.GetJSON(ctx, s.store, handoff.CurationKey(tab, catererID), &snap)
	if errors.Is(err, handoff.ErrNotFound) {
		return cart.New(catererID), nil
	}
	if err != nil {
		return nil, err
	}
	snap.Caterer.ID = catererID
	return cart.Restore(snap), nil
}

// AddItem adds one of a menu item to the working cart
func (s *CurationService) AddItem(ctx context.Context, tab, catererID, itemID string) (*cart.Cart, *models.MenuItem, error) {
	item, err := s.menu.GetByID(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}

	c, err := s.Cart(ctx, tab, catererID)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Add(*item); err != nil {
		return nil, nil, err
	}
	if err := s.saveCart(ctx, tab, c); err != nil {
		return nil, nil, err
	}
	return c, item, nil
}

// SetQuantity changes a line of the working cart; zero or less removes it
func (s *CurationService) SetQuantity(ctx context.Context, tab, catererID, itemID string, qty int) (*cart.Cart, error) {
	c, err := s.Cart(ctx, tab, catererID)
	if err != nil {
		return nil, err
	}
	if err := c.SetQuantity(itemID, qty); err != nil {
		return nil, err
	}
	return c, s.saveCart(ctx, tab, c)
}

// RemoveItem drops a line from the working cart
func (s *CurationService) RemoveItem(ctx context.Context, tab, catererID, itemID string) (*cart.Cart, error) {
	c, err := s.Cart(ctx, tab, catererID)
	if err != nil {
		return nil, err
	}
	if !c.Remove(itemID) {
		return nil, cart.ErrItemNotInCart
	}
	return c, s.saveCart(ctx, tab, c)
}

// ProceedToCheckout hands the working cart to checkout
func (s *CurationService) ProceedToCheckout(ctx context.Context, tab string, caterer models.CatererProfile) (*cart.Snapshot, error) {
	c, err := s.Cart(ctx, tab, caterer.ID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCuration
	}

	snap := c.Snapshot(cart.Caterer{Name: caterer.Name, Location: caterer.Location})
	if err := handoff.PutJSON(ctx, s.store, handoff.CheckoutKey(tab), snap, s.ttl); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Checkout returns the tab's checkout snapshot priced from the current
// menu. Items the caterer has since removed are dropped. A missing or
// empty snapshot is rejected with cart.ErrNoSnapshot or cart.ErrEmptySnapshot.
func (s *CurationService) Checkout(ctx context.Context, tab string) (*cart.Snapshot, error) {
	stored, err := s.load(ctx, tab)
	if err != nil {
		return nil, err
	}

	snap, changed, err := s.reprice(ctx, *stored)
	if err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if changed {
		if err := handoff.PutJSON(ctx, s.store, handoff.CheckoutKey(tab), snap, s.ttl); err != nil {
			return nil, err
		}
	}
	return &snap, nil
}

// PendingCheckout returns the checkout snapshot exactly as it was last
// shown to the customer, without consulting the menu
func (s *CurationService) PendingCheckout(ctx context.Context, tab string) (*cart.Snapshot, error) {
	snap, err := s.load(ctx, tab)
	if err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *CurationService) load(ctx context.Context, tab string) (*cart.Snapshot, error) {
	var snap cart.Snapshot
	err := handoff.GetJSON(ctx, s.store, handoff.CheckoutKey(tab), &snap)
	if errors.Is(err, handoff.ErrNotFound) {
		return nil, cart.ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// reprice rebuilds a snapshot from the menu as it is now and reports
// whether any line differs from what the customer last saw
func (s *CurationService) reprice(ctx context.Context, stored cart.Snapshot) (cart.Snapshot, bool, error) {
	c := cart.New(stored.Caterer.ID)
	changed := false
	for _, line := range stored.Lines {
		item, err := s.menu.GetByID(ctx, line.Item.ID)
		if errors.Is(err, repository.ErrMenuItemNotFound) {
			changed = true
			continue
		}
		if err != nil {
			return cart.Snapshot{}, false, err
		}
		if item.Price != line.Item.Price || item.Name != line.Item.Name {
			changed = true
		}
		if c.Add(*item) != nil || c.SetQuantity(item.ID, line.Quantity) != nil {
			changed = true
			c.Remove(item.ID)
		}
	}
	return c.Snapshot(stored.Caterer), changed, nil
}

// UpdateCheckout changes a line of the checkout snapshot. emptied reports
// that the last line went away, in which case the snapshot is discarded.
func (s *CurationService) UpdateCheckout(ctx context.Context, tab, itemID string, qty int) (snap *cart.Snapshot, emptied bool, err error) {
	current, err := s.Checkout(ctx, tab)
	if err != nil {
		return nil, false, err
	}

	c := cart.Restore(*current)
	if err := c.SetQuantity(itemID, qty); err != nil {
		return nil, false, err
	}
	if c.IsEmpty() {
		return nil, true, s.ClearCheckout(ctx, tab)
	}

	next := c.Snapshot(current.Caterer)
	if err := handoff.PutJSON(ctx, s.store, handoff.CheckoutKey(tab), next, s.ttl); err != nil {
		return nil, false, err
	}
	return &next, false, nil
}

// ClearCheckout discards the checkout snapshot and the working cart it came from
func (s *CurationService) ClearCheckout(ctx context.Context, tab string) error {
	var snap cart.Snapshot
	if err := handoff.GetJSON(ctx, s.store, handoff.CheckoutKey(tab), &snap); err == nil {
		if err := s.store.Delete(ctx, handoff.CurationKey(tab, snap.Caterer.ID)); err != nil {
			return err
		}
	}
	return s.store.Delete(ctx, handoff.CheckoutKey(tab))
}

func (s *CurationService) saveCart(ctx context.Context, tab string, c *cart.Cart) error {
	return handoff.PutJSON(ctx, s.store, handoff.CurationKey(tab, c.CatererID()), c.Snapshot(cart.Caterer{}), s.ttl)
}
