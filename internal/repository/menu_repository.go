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
	ErrMenuItemNotFound = errors.New("menu item not found")
)

// MenuRepository defines the interface for menu item data access
type MenuRepository interface {
	ListByCaterer(ctx context.Context, catererID string) ([]models.MenuItem, error)
	GetByID(ctx context.Context, id string) (*models.MenuItem, error)
	Save(ctx context.Context, item models.MenuItem) error
	Delete(ctx context.Context, id string) error
}

// InMemoryMenuRepository implements MenuRepository with in-memory storage
type InMemoryMenuRepository struct {
	mu    sync.RWMutex
	items map[string]models.MenuItem
}

// NewInMemoryMenuRepository creates a new in-memory menu repository with seed data
func NewInMemoryMenuRepository() *InMemoryMenuRepository {
	now := time.Now().UTC()
	seed := []models.MenuItem{
		{ID: "m1", CatererID: "c1", Name: "Continental Breakfast", Description: "Assortment of pastries, fresh fruit, and coffee", Price: models.Dollars(18.50), MealType: models.MealBreakfast},
		{ID: "m2", CatererID: "c1", Name: "Eggs Benedict", Description: "Poached eggs with hollandaise sauce on English muffins", Price: models.Dollars(15.00), MealType: models.MealBreakfast},
		{ID: "m3", CatererID: "c1", Name: "Caesar Salad", Description: "Fresh romaine lettuce with classic Caesar dressing", Price: models.Dollars(12.00), MealType: models.MealLunch},
		{ID: "m4", CatererID: "c1", Name: "Grilled Chicken Sandwich", Description: "Grilled chicken with avocado, bacon, and aioli", Price: models.Dollars(14.50), MealType: models.MealLunch},
		{ID: "m5", CatererID: "c1", Name: "Beef Tenderloin", Description: "Grass-fed beef with red wine sauce", Price: models.Dollars(38.00), MealType: models.MealDinner},
		{ID: "m6", CatererID: "c1", Name: "Grilled Salmon", Description: "Fresh salmon with lemon butter sauce", Price: models.Dollars(32.00), MealType: models.MealDinner},
		{ID: "m7", CatererID: "c2", Name: "Grilled Vegetable Platter", Description: "Seasonal vegetables, grilled to perfection", Price: models.Dollars(22.00), MealType: models.MealDinner},
	}

	items := make(map[string]models.MenuItem, len(seed))
	for i, item := range seed {
		// keep seed order stable when sorting by creation time
		item.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		item.UpdatedAt = item.CreatedAt
		items[item.ID] = item
	}

	return &InMemoryMenuRepository{
		items: items,
	}
}

// ListByCaterer returns a caterer's items in creation order
func (r *InMemoryMenuRepository) ListByCaterer(ctx context.Context, catererID string) ([]models.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]models.MenuItem, 0)
	for _, item := range r.items {
		if item.CatererID == catererID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

// GetByID returns a menu item by its ID
func (r *InMemoryMenuRepository) GetByID(ctx context.Context, id string) (*models.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[id]
	if !exists {
		return nil, ErrMenuItemNotFound
	}
	return &item, nil
}

// Save inserts or replaces a menu item
func (r *InMemoryMenuRepository) Save(ctx context.Context, item models.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ID] = item
	return nil
}

// Delete removes a menu item
func (r *InMemoryMenuRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[id]; !exists {
		return ErrMenuItemNotFound
	}
	delete(r.items, id)
	return nil
}
