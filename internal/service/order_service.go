package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/cart"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/repository"
)

var (
	ErrInvalidMenuItem   = errors.New("menu item is no longer available")
	ErrInvalidQuantity   = fmt.Errorf("quantity must be between 1 and %d", cart.MaxQuantity)
	ErrPriceChanged      = errors.New("prices have changed since checkout")
	ErrEmptyOrder        = errors.New("order must contain at least one item")
	ErrMissingAddress    = errors.New("please enter a delivery address")
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("order cannot move to that status")
)

const recentOrdersLimit = 5

// OrderService handles order business logic
type OrderService struct {
	orders repository.OrderRepository
	menu   repository.MenuRepository
	now    func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(orders repository.OrderRepository, menu repository.MenuRepository) *OrderService {
	return &OrderService{
		orders: orders,
		menu:   menu,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// DashboardStats summarises a caterer's orders
type DashboardStats struct {
	TotalOrders  int            `json:"total_orders"`
	PendingCount int            `json:"pending_count"`
	Revenue      models.Money   `json:"revenue_cents"`
	RecentOrders []models.Order `json:"recent_orders"`
}

// PlaceOrder turns a checkout snapshot into a pending order. Items are
// re-read from the menu; a line whose price no longer matches it fails
// with ErrPriceChanged.
func (s *OrderService) PlaceOrder(ctx context.Context, customerID string, snap *cart.Snapshot, address string) (*models.Order, error) {
	if err := snap.Validate(); err != nil {
		return nil, ErrEmptyOrder
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrMissingAddress
	}

	// Validate items and fetch menu entries (deduplicated)
	c := cart.New(snap.Caterer.ID)
	for _, line := range snap.Lines {
		if line.Quantity <= 0 || line.Quantity > cart.MaxQuantity {
			return nil, ErrInvalidQuantity
		}

		item, err := s.menu.GetByID(ctx, line.Item.ID)
		if err != nil {
			if errors.Is(err, repository.ErrMenuItemNotFound) {
				return nil, ErrInvalidMenuItem
			}
			return nil, err
		}
		if item.Price != line.Item.Price {
			return nil, ErrPriceChanged
		}
		existing := quantityOf(c, item.ID)
		if err := c.Add(*item); err != nil {
			if errors.Is(err, cart.ErrQuantityTooLarge) {
				return nil, ErrInvalidQuantity
			}
			return nil, ErrInvalidMenuItem
		}
		if err := c.SetQuantity(item.ID, existing+line.Quantity); err != nil {
			if errors.Is(err, cart.ErrQuantityTooLarge) {
				return nil, ErrInvalidQuantity
			}
			return nil, err
		}
	}

	orderID := generateOrderID()
	now := s.now()

	lines := c.Lines()
	items := make([]models.OrderItem, len(lines))
	for i, l := range lines {
		items[i] = models.OrderItem{
			ID:           uuid.NewString(),
			OrderID:      orderID,
			MenuItemID:   l.Item.ID,
			Name:         l.Item.Name,
			Quantity:     l.Quantity,
			PricePerItem: l.Item.Price,
		}
	}

	order := &models.Order{
		ID:              orderID,
		CustomerID:      customerID,
		CatererID:       c.CatererID(),
		TotalAmount:     c.Total(),
		Status:          models.OrderPending,
		DeliveryAddress: address,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Create(ctx, *order); err != nil {
		return nil, err
	}
	return order, nil
}

func quantityOf(c *cart.Cart, itemID string) int {
	for _, l := range c.Lines() {
		if l.Item.ID == itemID {
			return l.Quantity
		}
	}
	return 0
}

// History returns a customer's orders, newest first
func (s *OrderService) History(ctx context.Context, customerID string) ([]models.Order, error) {
	return s.orders.ListByCustomer(ctx, customerID)
}

// CatererOrders returns a caterer's orders, optionally filtered by status.
// An empty filter or "all" returns every order.
func (s *OrderService) CatererOrders(ctx context.Context, catererID, status string) ([]models.Order, error) {
	orders, err := s.orders.ListByCaterer(ctx, catererID)
	if err != nil {
		return nil, err
	}
	if status == "" || status == "all" {
		return orders, nil
	}

	want := models.OrderStatus(status)
	if !want.Valid() {
		return nil, ErrInvalidStatus
	}
	filtered := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == want {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

// UpdateStatus moves one of the caterer's orders to next
func (s *OrderService) UpdateStatus(ctx context.Context, catererID, orderID string, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CatererID != catererID {
		return nil, repository.ErrOrderNotFound
	}
	if !order.Status.CanTransition(next) {
		return nil, ErrInvalidTransition
	}
	return s.transition(ctx, order, next)
}

// Cancel lets a customer withdraw one of their own orders while it is pending
func (s *OrderService) Cancel(ctx context.Context, customerID, orderID string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, repository.ErrOrderNotFound
	}
	if order.Status != models.OrderPending {
		return nil, ErrInvalidTransition
	}
	return s.transition(ctx, order, models.OrderCancelled)
}

// transition applies next only if the order still has the status it was
// checked against; a concurrent change turns into ErrInvalidTransition
func (s *OrderService) transition(ctx context.Context, order *models.Order, next models.OrderStatus) (*models.Order, error) {
	updated, err := s.orders.UpdateStatusIf(ctx, order.ID, order.Status, next, s.now())
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil, ErrInvalidTransition
	}
	return updated, err
}

// Dashboard computes the caterer's order summary. Revenue counts every
// order that was not cancelled.
func (s *OrderService) Dashboard(ctx context.Context, catererID string) (*DashboardStats, error) {
	orders, err := s.orders.ListByCaterer(ctx, catererID)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{TotalOrders: len(orders), RecentOrders: []models.Order{}}
	for _, o := range orders {
		if o.Status == models.OrderPending {
			stats.PendingCount++
		}
		if o.Status != models.OrderCancelled {
			stats.Revenue += o.TotalAmount
		}
	}
	if len(orders) > recentOrdersLimit {
		orders = orders[:recentOrdersLimit]
	}
	stats.RecentOrders = append(stats.RecentOrders, orders...)
	return stats, nil
}

// generateOrderID generates a unique order ID using UUID
func generateOrderID() string {
	return uuid.New().String()
}
