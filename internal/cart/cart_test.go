package cart

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
)

func item(id string, price float64) models.MenuItem {
	return models.MenuItem{ID: id, CatererID: "c1", Name: id, Price: models.Dollars(price)}
}

func TestCart_SaladAndSteakTotal(t *testing.T) {
	c := New("c1")
	salad := item("salad", 12.00)
	steak := item("steak", 38.00)

	if err := c.Add(salad); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := c.Add(steak); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := c.SetQuantity("steak", 2); err != nil {
		t.Fatalf("SetQuantity() error = %v", err)
	}

	if got := c.Total().String(); got != "$88.00" {
		t.Errorf("Total() = %s, want $88.00", got)
	}
}

func TestCart_AddTwiceIncrements(t *testing.T) {
	c := New("c1")
	salad := item("salad", 12.00)

	c.Add(salad)
	c.Add(salad)

	lines := c.Lines()
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	if lines[0].Quantity != 2 {
		t.Errorf("quantity = %d, want 2", lines[0].Quantity)
	}
	if lines[0].Subtotal != models.Dollars(24) {
		t.Errorf("subtotal = %s, want $24.00", lines[0].Subtotal)
	}
}

func TestCart_QuantityUpdates(t *testing.T) {
	tests := []struct {
		name      string
		qty       int
		wantLines int
		wantTotal models.Money
	}{
		{name: "increase", qty: 3, wantLines: 1, wantTotal: models.Dollars(55.50)},
		{name: "zero removes", qty: 0, wantLines: 0, wantTotal: 0},
		{name: "negative removes", qty: -2, wantLines: 0, wantTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("c1")
			c.Add(item("breakfast", 18.50))

			if err := c.SetQuantity("breakfast", tt.qty); err != nil {
				t.Fatalf("SetQuantity() error = %v", err)
			}
			if c.Len() != tt.wantLines {
				t.Errorf("lines = %d, want %d", c.Len(), tt.wantLines)
			}
			if c.Total() != tt.wantTotal {
				t.Errorf("Total() = %s, want %s", c.Total(), tt.wantTotal)
			}
		})
	}
}

func TestCart_Errors(t *testing.T) {
	c := New("c1")

	foreign := item("x", 5)
	foreign.CatererID = "c2"
	if err := c.Add(foreign); !errors.Is(err, ErrForeignItem) {
		t.Errorf("Add(foreign) error = %v, want ErrForeignItem", err)
	}
	if err := c.SetQuantity("missing", 1); !errors.Is(err, ErrItemNotInCart) {
		t.Errorf("SetQuantity(missing) error = %v, want ErrItemNotInCart", err)
	}
	if c.Remove("missing") {
		t.Error("Remove(missing) = true")
	}
}

func TestCart_QuantityLimit(t *testing.T) {
	steak := item("steak", 38)

	tests := []struct {
		name    string
		qty     int
		wantErr error
		wantQty int
	}{
		{name: "at the limit", qty: MaxQuantity, wantQty: MaxQuantity},
		{name: "one over", qty: MaxQuantity + 1, wantErr: ErrQuantityTooLarge, wantQty: 1},
		{name: "would overflow the total", qty: 1 << 62, wantErr: ErrQuantityTooLarge, wantQty: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("c1")
			c.Add(steak)
			if err := c.SetQuantity("steak", tt.qty); !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetQuantity(%d) error = %v, want %v", tt.qty, err, tt.wantErr)
			}
			if got := c.Lines()[0].Quantity; got != tt.wantQty {
				t.Errorf("quantity = %d, want %d", got, tt.wantQty)
			}
			if c.Total() < 0 || c.Total() != steak.Price.Times(tt.wantQty) {
				t.Errorf("total = %s, want %s", c.Total(), steak.Price.Times(tt.wantQty))
			}
		})
	}

	c := New("c1")
	c.Add(steak)
	c.SetQuantity("steak", MaxQuantity)
	if err := c.Add(steak); !errors.Is(err, ErrQuantityTooLarge) {
		t.Errorf("Add() past the limit error = %v, want ErrQuantityTooLarge", err)
	}
	if c.Lines()[0].Quantity != MaxQuantity {
		t.Errorf("quantity after rejected Add = %d", c.Lines()[0].Quantity)
	}
}

func TestCart_LinesKeepInsertionOrder(t *testing.T) {
	c := New("c1")
	for _, id := range []string{"a", "b", "c"} {
		c.Add(item(id, 1))
	}
	c.Remove("b")
	c.Add(item("b", 1))

	want := []string{"a", "c", "b"}
	for i, l := range c.Lines() {
		if l.Item.ID != want[i] {
			t.Errorf("line %d = %s, want %s", i, l.Item.ID, want[i])
		}
	}
}

// Random add/remove/update sequences never leave a non-positive quantity
// and the total always equals the sum of line subtotals.
func TestCart_RandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	menu := []models.MenuItem{
		item("m1", 18.50), item("m2", 15.00), item("m3", 12.00),
		item("m4", 14.50), item("m5", 38.00), item("m6", 32.00),
		item("m7", 0.10), item("m8", 0.20),
	}

	for run := 0; run < 200; run++ {
		c := New("c1")
		for step := 0; step < 50; step++ {
			it := menu[rng.Intn(len(menu))]
			switch rng.Intn(3) {
			case 0:
				c.Add(it)
			case 1:
				c.Remove(it.ID)
			case 2:
				c.SetQuantity(it.ID, rng.Intn(7)-2)
			}

			var sum models.Money
			for _, l := range c.Lines() {
				if l.Quantity <= 0 {
					t.Fatalf("run %d step %d: line %s has quantity %d", run, step, l.Item.ID, l.Quantity)
				}
				sum += l.Subtotal
			}
			if sum != c.Total() {
				t.Fatalf("run %d step %d: total %s != sum of subtotals %s", run, step, c.Total(), sum)
			}
		}
	}
}

func TestSnapshot(t *testing.T) {
	var missing *Snapshot
	if err := missing.Validate(); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("nil snapshot error = %v, want ErrNoSnapshot", err)
	}

	c := New("c1")
	empty := c.Snapshot(Caterer{Name: "Gourmet Delights"})
	if err := empty.Validate(); !errors.Is(err, ErrEmptySnapshot) {
		t.Errorf("empty snapshot error = %v, want ErrEmptySnapshot", err)
	}

	c.Add(item("salad", 12))
	c.Add(item("steak", 38))
	c.Add(item("steak", 38))
	snap := c.Snapshot(Caterer{Name: "Gourmet Delights"})
	if err := snap.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if snap.Caterer.ID != "c1" || snap.Total != models.Dollars(88) {
		t.Errorf("snapshot = %+v", snap)
	}

	restored := Restore(snap)
	if restored.Total() != c.Total() || restored.Len() != 2 {
		t.Errorf("restored total = %s, lines = %d", restored.Total(), restored.Len())
	}

	snap.Lines = append(snap.Lines,
		Line{Item: item("zero", 3), Quantity: 0},
		Line{Item: item("huge", 3), Quantity: MaxQuantity + 1},
	)
	if Restore(snap).Len() != 2 {
		t.Error("restore kept a line with a quantity out of range")
	}
}
