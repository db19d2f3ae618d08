package cart

import "github.com/Lixing-Zhang/kart-challenge/catering/internal/models"

// Caterer identifies the caterer a snapshot was taken from
type Caterer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Snapshot is the serialisable form of a cart handed from the caterer page
// to checkout
type Snapshot struct {
	Caterer Caterer      `json:"caterer"`
	Lines   []Line       `json:"lines"`
	Total   models.Money `json:"total_cents"`
}

// Snapshot captures the cart together with its caterer
func (c *Cart) Snapshot(caterer Caterer) Snapshot {
	caterer.ID = c.catererID
	return Snapshot{
		Caterer: caterer,
		Lines:   c.Lines(),
		Total:   c.Total(),
	}
}

// Validate rejects a missing or empty snapshot
func (s *Snapshot) Validate() error {
	if s == nil {
		return ErrNoSnapshot
	}
	if len(s.Lines) == 0 {
		return ErrEmptySnapshot
	}
	return nil
}

// Restore rebuilds a cart from a snapshot. Lines with a quantity outside
// 1..MaxQuantity, a negative price or from another caterer are dropped.
func Restore(s Snapshot) *Cart {
	c := New(s.Caterer.ID)
	for _, l := range s.Lines {
		if l.Quantity <= 0 || l.Quantity > MaxQuantity || l.Item.Price < 0 || l.Item.CatererID != c.catererID || c.index(l.Item.ID) >= 0 {
			continue
		}
		c.lines = append(c.lines, Line{Item: l.Item, Quantity: l.Quantity})
	}
	return c
}
