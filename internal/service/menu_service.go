package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/repository"
)

var (
	ErrMissingName     = errors.New("name is required")
	ErrInvalidPrice    = errors.New("please enter a valid price")
	ErrInvalidMealType = errors.New("meal type must be breakfast, lunch or dinner")
)

// MenuService handles a caterer's own menu
type MenuService struct {
	caterers *CatererService
	menu     repository.MenuRepository
}

// NewMenuService creates a new menu service
func NewMenuService(caterers *CatererService, menu repository.MenuRepository) *MenuService {
	return &MenuService{
		caterers: caterers,
		menu:     menu,
	}
}

// Items returns the caterer account's menu grouped by meal type
func (s *MenuService) Items(ctx context.Context, userID string) ([]MenuSection, error) {
	profile, err := s.caterers.ProfileForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.caterers.Menu(ctx, profile.ID)
}

// AddItem validates input and adds it to the caterer account's menu
func (s *MenuService) AddItem(ctx context.Context, userID string, input models.MenuItemInput) (*models.MenuItem, error) {
	input, err := validateMenuItem(input)
	if err != nil {
		return nil, err
	}

	profile, err := s.caterers.ProfileForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.caterers.now()
	item := models.MenuItem{
		ID:          uuid.NewString(),
		CatererID:   profile.ID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		MealType:    input.MealType,
		ImageURL:    input.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.menu.Save(ctx, item); err != nil {
		return nil, err
	}
	if err := s.caterers.refreshAvgPrice(ctx, profile.ID); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem replaces the editable fields of one of the account's items
func (s *MenuService) UpdateItem(ctx context.Context, userID, itemID string, input models.MenuItemInput) (*models.MenuItem, error) {
	input, err := validateMenuItem(input)
	if err != nil {
		return nil, err
	}

	item, err := s.owned(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	item.Name = input.Name
	item.Description = input.Description
	item.Price = input.Price
	item.MealType = input.MealType
	item.ImageURL = input.ImageURL
	item.UpdatedAt = s.caterers.now()

	if err := s.menu.Save(ctx, *item); err != nil {
		return nil, err
	}
	if err := s.caterers.refreshAvgPrice(ctx, item.CatererID); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes one of the account's items
func (s *MenuService) DeleteItem(ctx context.Context, userID, itemID string) error {
	item, err := s.owned(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if err := s.menu.Delete(ctx, item.ID); err != nil {
		return err
	}
	return s.caterers.refreshAvgPrice(ctx, item.CatererID)
}

// owned loads an item and checks it belongs to the account. Items of other
// caterers are reported as missing.
func (s *MenuService) owned(ctx context.Context, userID, itemID string) (*models.MenuItem, error) {
	profile, err := s.caterers.ProfileForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, err := s.menu.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.CatererID != profile.ID {
		return nil, repository.ErrMenuItemNotFound
	}
	return item, nil
}

func validateMenuItem(input models.MenuItemInput) (models.MenuItemInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.ImageURL = strings.TrimSpace(input.ImageURL)

	if input.Name == "" {
		return input, ErrMissingName
	}
	if input.Price <= 0 || input.Price > models.MaxPrice {
		return input, ErrInvalidPrice
	}
	if !input.MealType.Valid() {
		return input, ErrInvalidMealType
	}
	return input, nil
}
