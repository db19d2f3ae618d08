// Package cart holds a customer's curated selection from one caterer's
// menu and the snapshot handed to checkout.
package cart

import (
	"errors"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
)

// MaxQuantity is the largest quantity a single line may hold
const MaxQuantity = 999

var (
	ErrForeignItem      = errors.New("item belongs to a different caterer")
	ErrItemNotInCart    = errors.New("item is not in the cart")
	ErrQuantityTooLarge = errors.New("quantity is too large")
	ErrNoSnapshot       = errors.New("no items selected for checkout")
	ErrEmptySnapshot    = errors.New("checkout snapshot has no items")
)

// Line is one menu item with its quantity, between 1 and MaxQuantity.
type Line struct {
	Item     models.MenuItem `json:"item"`
	Quantity int             `json:"quantity"`
	Subtotal models.Money    `json:"subtotal_cents"`
}

// Cart is an ordered set of lines scoped to one caterer. It is not safe
// for concurrent use; each page owns its cart.
type Cart struct {
	catererID string
	lines     []Line
}

// New returns an empty cart for a caterer
func New(catererID string) *Cart {
	return &Cart{catererID: catererID}
}

// CatererID returns the caterer the cart is scoped to
func (c *Cart) CatererID() string {
	return c.catererID
}

// Add puts one more of item in the cart
func (c *Cart) Add(item models.MenuItem) error {
	if item.CatererID != c.catererID {
		return ErrForeignItem
	}
	if i := c.index(item.ID); i >= 0 {
		if c.lines[i].Quantity >= MaxQuantity {
			return ErrQuantityTooLarge
		}
		c.lines[i].Quantity++
		return nil
	}
	c.lines = append(c.lines, Line{Item: item, Quantity: 1})
	return nil
}

// SetQuantity changes a line's quantity. A quantity of zero or less
// removes the line; above MaxQuantity the cart is left unchanged.
func (c *Cart) SetQuantity(itemID string, qty int) error {
	i := c.index(itemID)
	if i < 0 {
		return ErrItemNotInCart
	}
	if qty > MaxQuantity {
		return ErrQuantityTooLarge
	}
	if qty <= 0 {
		c.removeAt(i)
		return nil
	}
	c.lines[i].Quantity = qty
	return nil
}

// Remove deletes a line and reports whether it was present
func (c *Cart) Remove(itemID string) bool {
	i := c.index(itemID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

// Lines returns a copy of the lines in insertion order with subtotals filled in
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	for i, l := range c.lines {
		l.Subtotal = l.Item.Price.Times(l.Quantity)
		out[i] = l
	}
	return out
}

// Total is the sum of all line subtotals
func (c *Cart) Total() models.Money {
	var total models.Money
	for _, l := range c.lines {
		total += l.Item.Price.Times(l.Quantity)
	}
	return total
}

// Len returns the number of lines
func (c *Cart) Len() int {
	return len(c.lines)
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) index(itemID string) int {
	for i, l := range c.lines {
		if l.Item.ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}
