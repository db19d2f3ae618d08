package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/repository"
)

// CatererService handles caterer directory and profile logic
type CatererService struct {
	caterers repository.CatererRepository
	menu     repository.MenuRepository
	now      func() time.Time
}

// NewCatererService creates a new caterer service
func NewCatererService(caterers repository.CatererRepository, menu repository.MenuRepository) *CatererService {
	return &CatererService{
		caterers: caterers,
		menu:     menu,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// MenuSection is the items of one meal type
type MenuSection struct {
	MealType models.MealType   `json:"meal_type"`
	Items    []models.MenuItem `json:"items"`
}

// ListCaterers returns complete caterer profiles matching query.
// Matching is case-insensitive over name, location and description; an
// empty query matches everything.
func (s *CatererService) ListCaterers(ctx context.Context, query string) ([]models.CatererProfile, error) {
	all, err := s.caterers.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]models.CatererProfile, 0, len(all))
	for _, c := range all {
		if !c.IsComplete {
			continue
		}
		if query == "" || matches(c, query) {
			out = append(out, c)
		}
	}
	return out, nil
}

func matches(c models.CatererProfile, query string) bool {
	for _, field := range []string{c.Name, c.Location, c.Description} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// GetCaterer returns a profile that customers may browse
func (s *CatererService) GetCaterer(ctx context.Context, id string) (*models.CatererProfile, error) {
	c, err := s.caterers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsComplete {
		return nil, repository.ErrCatererNotFound
	}
	return c, nil
}

// Menu returns a caterer's items grouped by meal type in display order
func (s *CatererService) Menu(ctx context.Context, catererID string) ([]MenuSection, error) {
	items, err := s.menu.ListByCaterer(ctx, catererID)
	if err != nil {
		return nil, err
	}
	return GroupByMealType(items), nil
}

// GroupByMealType splits items into one section per meal type. Every meal
// type gets a section, possibly empty.
func GroupByMealType(items []models.MenuItem) []MenuSection {
	sections := make([]MenuSection, len(models.MealTypes))
	for i, mt := range models.MealTypes {
		sections[i] = MenuSection{MealType: mt, Items: []models.MenuItem{}}
		for _, item := range items {
			if item.MealType == mt {
				sections[i].Items = append(sections[i].Items, item)
			}
		}
	}
	return sections
}

// ProfileForUser returns the profile owned by a caterer account, creating
// an empty incomplete one on first access
func (s *CatererService) ProfileForUser(ctx context.Context, userID string) (*models.CatererProfile, error) {
	p, err := s.caterers.GetByUserID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrCatererNotFound) {
		return nil, err
	}

	now := s.now()
	profile := models.CatererProfile{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.caterers.Save(ctx, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SaveProfile applies an update and recomputes the derived fields
func (s *CatererService) SaveProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.CatererProfile, error) {
	profile, err := s.ProfileForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.Name = strings.TrimSpace(update.Name)
	profile.Location = strings.TrimSpace(update.Location)
	profile.Description = strings.TrimSpace(update.Description)
	profile.ImageURL = strings.TrimSpace(update.ImageURL)
	profile.IsComplete = profile.Name != "" && profile.Location != "" && profile.Description != ""

	return s.refresh(ctx, profile)
}

// refreshAvgPrice recomputes the average menu price after a menu change
func (s *CatererService) refreshAvgPrice(ctx context.Context, catererID string) error {
	profile, err := s.caterers.GetByID(ctx, catererID)
	if err != nil {
		return err
	}
	_, err = s.refresh(ctx, profile)
	return err
}

func (s *CatererService) refresh(ctx context.Context, profile *models.CatererProfile) (*models.CatererProfile, error) {
	items, err := s.menu.ListByCaterer(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	profile.AvgPrice = averagePrice(items)
	profile.UpdatedAt = s.now()

	if err := s.caterers.Save(ctx, *profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// averagePrice is the mean item price rounded to the cent, nil without items
func averagePrice(items []models.MenuItem) *models.Money {
	if len(items) == 0 {
		return nil
	}
	var sum models.Money
	for _, item := range items {
		sum += item.Price
	}
	n := models.Money(len(items))
	avg := (sum + n/2) / n
	return &avg
}
