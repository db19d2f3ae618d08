package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]models.Order, error)
	ListByCaterer(ctx context.Context, catererID string) ([]models.Order, error)
	UpdateStatusIf(ctx context.Context, id string, expected, next models.OrderStatus, at time.Time) (*models.Order, error)
}

// InMemoryOrderRepository implements OrderRepository with in-memory storage
type InMemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]models.Order
}

// NewInMemoryOrderRepository creates a new in-memory order repository with seed data
func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	now := time.Now().UTC()
	dayAgo := now.Add(-24 * time.Hour)

	seed := []models.Order{
		{
			ID: "o1", CustomerID: "cust123", CatererID: "c1", Status: models.OrderConfirmed,
			TotalAmount: models.Dollars(49.00), DeliveryAddress: "123 Main St, Boston, MA",
			Items: []models.OrderItem{
				{ID: "o1-1", OrderID: "o1", MenuItemID: "m1", Name: "Continental Breakfast", Quantity: 2, PricePerItem: models.Dollars(18.50)},
				{ID: "o1-2", OrderID: "o1", MenuItemID: "m3", Name: "Caesar Salad", Quantity: 1, PricePerItem: models.Dollars(12.00)},
			},
			CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "o2", CustomerID: "cust123", CatererID: "c2", Status: models.OrderCompleted,
			TotalAmount: models.Dollars(22.00), DeliveryAddress: "123 Main St, Boston, MA",
			Items: []models.OrderItem{
				{ID: "o2-1", OrderID: "o2", MenuItemID: "m7", Name: "Grilled Vegetable Platter", Quantity: 1, PricePerItem: models.Dollars(22.00)},
			},
			CreatedAt: dayAgo, UpdatedAt: dayAgo,
		},
		{
			ID: "o3", CustomerID: "cust1", CatererID: "c1", Status: models.OrderPending,
			TotalAmount: models.Dollars(145.75), DeliveryAddress: "123 Main St, Boston, MA",
			CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "o4", CustomerID: "cust2", CatererID: "c1", Status: models.OrderConfirmed,
			TotalAmount: models.Dollars(89.50), DeliveryAddress: "456 Park Ave, Boston, MA",
			CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "o5", CustomerID: "cust3", CatererID: "c1", Status: models.OrderCompleted,
			TotalAmount: models.Dollars(216.25), DeliveryAddress: "789 Oak St, Boston, MA",
			CreatedAt: dayAgo, UpdatedAt: dayAgo,
		},
	}

	orders := make(map[string]models.Order, len(seed))
	for _, o := range seed {
		orders[o.ID] = o
	}

	return &InMemoryOrderRepository{
		orders: orders,
	}
}

// Create stores a new order
func (r *InMemoryOrderRepository) Create(ctx context.Context, order models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[order.ID] = cloneOrder(order)
	return nil
}

// GetByID returns an order by its ID
func (r *InMemoryOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}
	order = cloneOrder(order)
	return &order, nil
}

// ListByCustomer returns a customer's orders, newest first
func (r *InMemoryOrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	return r.list(func(o models.Order) bool { return o.CustomerID == customerID }), nil
}

// ListByCaterer returns the orders placed with a caterer, newest first
func (r *InMemoryOrderRepository) ListByCaterer(ctx context.Context, catererID string) ([]models.Order, error) {
	return r.list(func(o models.Order) bool { return o.CatererID == catererID }), nil
}

// UpdateStatusIf moves an order from expected to next and returns the
// updated order. It fails with ErrStatusConflict, leaving the order
// untouched, when the stored status is no longer expected.
func (r *InMemoryOrderRepository) UpdateStatusIf(ctx context.Context, id string, expected, next models.OrderStatus, at time.Time) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}
	if order.Status != expected {
		return nil, ErrStatusConflict
	}
	order.Status = next
	order.UpdatedAt = at
	r.orders[id] = order

	order = cloneOrder(order)
	return &order, nil
}

func (r *InMemoryOrderRepository) list(keep func(models.Order) bool) []models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]models.Order, 0)
	for _, o := range r.orders {
		if keep(o) {
			orders = append(orders, cloneOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}

func cloneOrder(o models.Order) models.Order {
	if o.Items != nil {
		items := make([]models.OrderItem, len(o.Items))
		copy(items, o.Items)
		o.Items = items
	}
	return o
}
