package models

import "time"

// MealType groups menu items on the caterer page
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

// MealTypes lists meal types in display order
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner}

// Valid reports whether t is a known meal type
func (t MealType) Valid() bool {
	switch t {
	case MealBreakfast, MealLunch, MealDinner:
		return true
	}
	return false
}

// MenuItem is a dish offered by a caterer
type MenuItem struct {
	ID          string    `json:"id"`
	CatererID   string    `json:"caterer_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       Money     `json:"price_cents"`
	MealType    MealType  `json:"meal_type"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MenuItemInput is the caterer-supplied part of a menu item
type MenuItemInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       Money    `json:"price_cents"`
	MealType    MealType `json:"meal_type"`
	ImageURL    string   `json:"image_url"`
}
