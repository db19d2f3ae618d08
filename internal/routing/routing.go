// Package routing decides which route table serves a request. There is one
// table per authorisation outcome and the choice is made fresh on every
// request from the resolved session state.
package routing

import (
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/session"
)

// TableID names a route table
type TableID int

const (
	TableAnonymous TableID = iota
	TableCustomer
	TableCaterer
)

func (t TableID) String() string {
	switch t {
	case TableCustomer:
		return "customer"
	case TableCaterer:
		return "caterer"
	default:
		return "anonymous"
	}
}

// Route paths. Patterns use chi syntax.
const (
	PathLanding  = "/"
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathLogout   = "/auth/logout"
	PathRefresh  = "/auth/refresh"
	PathDialog   = "/auth/dialog"
	PathEvents   = "/auth/events"

	PathCustomerHome  = "/customer/home"
	PathCatererDetail = "/customer/caterer/{catererID}"
	PathCheckout      = "/customer/checkout"
	PathOrderHistory  = "/customer/order-history"

	PathDashboard     = "/caterer/dashboard"
	PathProfile       = "/caterer/profile"
	PathCatererOrders = "/caterer/orders"
)

var sharedPaths = []string{
	PathLanding, PathLogin, PathRegister, PathLogout, PathRefresh, PathDialog, PathEvents,
}

var tablePaths = map[TableID][]string{
	TableAnonymous: nil,
	TableCustomer:  {PathCustomerHome, PathCatererDetail, PathCheckout, PathOrderHistory},
	TableCaterer:   {PathDashboard, PathProfile, PathCatererOrders},
}

// Select picks the route table for a session state. Anything short of an
// authenticated session gets the anonymous table; an authenticated session
// without a known role gets the fallback role's table.
func Select(s session.State) TableID {
	if !s.IsAuthenticated() {
		return TableAnonymous
	}
	if s.Role == models.RoleCaterer {
		return TableCaterer
	}
	return TableCustomer
}

// Paths lists the top-level page paths reachable from a table, shared
// routes first. The catch-all is implied.
func Paths(id TableID) []string {
	out := make([]string, 0, len(sharedPaths)+len(tablePaths[id]))
	out = append(out, sharedPaths...)
	return append(out, tablePaths[id]...)
}
