package models

import (
	"fmt"
	"math"
)

// Money is an amount in cents. Prices and totals are kept in integer cents
// so a total always equals the sum of its displayed line subtotals.
type Money int64

// MaxPrice is the highest price a menu item may carry
const MaxPrice = Money(1_000_000)

// Dollars converts a decimal dollar amount to Money, rounding to the nearest cent
func Dollars(amount float64) Money {
	return Money(math.Round(amount * 100))
}

// Times returns m multiplied by a quantity
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// Float returns the amount in dollars
func (m Money) Float() float64 {
	return float64(m) / 100
}

// String formats the amount for display, e.g. $88.00
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%02d", sign, v/100, v%100)
}
