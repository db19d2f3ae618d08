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
	ErrCatererNotFound = errors.New("caterer not found")
)

// CatererRepository defines the interface for caterer profile data access
type CatererRepository interface {
	GetAll(ctx context.Context) ([]models.CatererProfile, error)
	GetByID(ctx context.Context, id string) (*models.CatererProfile, error)
	GetByUserID(ctx context.Context, userID string) (*models.CatererProfile, error)
	Save(ctx context.Context, profile models.CatererProfile) error
}

// InMemoryCatererRepository implements CatererRepository with in-memory storage
type InMemoryCatererRepository struct {
	mu       sync.RWMutex
	caterers map[string]models.CatererProfile
}

// NewInMemoryCatererRepository creates a new in-memory caterer repository with seed data
func NewInMemoryCatererRepository() *InMemoryCatererRepository {
	now := time.Now().UTC()
	price := func(v float64) *models.Money {
		m := models.Dollars(v)
		return &m
	}

	caterers := map[string]models.CatererProfile{
		"c1": {
			ID: "c1", UserID: "u1", Name: "Gourmet Delights", Location: "Downtown Boston",
			Description: "Specializing in gourmet catering for all occasions",
			AvgPrice:    price(35.50), IsComplete: true,
			ImageURL:  "https://images.unsplash.com/photo-1555244162-803834f70033",
			CreatedAt: now, UpdatedAt: now,
		},
		"c2": {
			ID: "c2", UserID: "u2", Name: "Healthy Harvest", Location: "Cambridge",
			Description: "Fresh, healthy meals made with locally-sourced ingredients",
			AvgPrice:    price(28.75), IsComplete: true,
			ImageURL:  "https://images.unsplash.com/photo-1547592180-85f173990554",
			CreatedAt: now, UpdatedAt: now,
		},
		"c3": {
			ID: "c3", UserID: "u3", Name: "Spice Route", Location: "Somerville",
			Description: "Authentic global cuisine with bold flavors",
			AvgPrice:    price(32.00), IsComplete: true,
			CreatedAt: now, UpdatedAt: now,
		},
	}

	return &InMemoryCatererRepository{
		caterers: caterers,
	}
}

// GetAll returns all caterers ordered by name
func (r *InMemoryCatererRepository) GetAll(ctx context.Context) ([]models.CatererProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caterers := make([]models.CatererProfile, 0, len(r.caterers))
	for _, c := range r.caterers {
		caterers = append(caterers, c)
	}
	sort.Slice(caterers, func(i, j int) bool { return caterers[i].Name < caterers[j].Name })
	return caterers, nil
}

// GetByID returns a caterer by its ID
func (r *InMemoryCatererRepository) GetByID(ctx context.Context, id string) (*models.CatererProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.caterers[id]
	if !exists {
		return nil, ErrCatererNotFound
	}
	return &c, nil
}

// GetByUserID returns the profile owned by a caterer account
func (r *InMemoryCatererRepository) GetByUserID(ctx context.Context, userID string) (*models.CatererProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.caterers {
		if c.UserID == userID {
			return &c, nil
		}
	}
	return nil, ErrCatererNotFound
}

// Save inserts or replaces a profile
func (r *InMemoryCatererRepository) Save(ctx context.Context, profile models.CatererProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.caterers[profile.ID] = profile
	return nil
}
