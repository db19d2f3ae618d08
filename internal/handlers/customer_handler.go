package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/cart"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/metrics"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/repository"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/routing"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/service"
)

const (
	viewCustomerHome  = "customer_home"
	viewCatererDetail = "caterer_detail"
	viewCheckout      = "checkout"
	viewOrderHistory  = "order_history"
)

// CustomerHandler serves the customer pages: caterer directory, caterer
// detail with the curation cart, checkout and order history
type CustomerHandler struct {
	caterers *service.CatererService
	curation *service.CurationService
	orders   *service.OrderService
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(caterers *service.CatererService, curation *service.CurationService, orders *service.OrderService, m *metrics.Metrics, log *slog.Logger) *CustomerHandler {
	return &CustomerHandler{
		caterers: caterers,
		curation: curation,
		orders:   orders,
		metrics:  m,
		log:      log,
	}
}

// cartView is the wire form of a working cart
type cartView struct {
	Lines []cart.Line  `json:"lines"`
	Total models.Money `json:"total_cents"`
}

func newCartView(c *cart.Cart) cartView {
	return cartView{Lines: c.Lines(), Total: c.Total()}
}

// Home handles GET /customer/home?q=
func (h *CustomerHandler) Home(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	caterers, err := h.caterers.ListCaterers(r.Context(), query)
	if err != nil {
		h.log.Error("failed to list caterers", "error", err)
		WriteError(w, http.StatusInternalServerError, viewCustomerHome, "Internal server error", h.log)
		return
	}

	WriteView(w, http.StatusOK, Envelope{View: viewCustomerHome, Data: map[string]any{
		"query":    query,
		"caterers": caterers,
	}}, h.log)
}

// CatererDetail handles GET /customer/caterer/{catererID}
func (h *CustomerHandler) CatererDetail(w http.ResponseWriter, r *http.Request) {
	h.renderDetail(w, r, http.StatusOK, nil)
}

// AddToCartRequest is the body of POST /customer/caterer/{catererID}/cart
type AddToCartRequest struct {
	ItemID string `json:"item_id"`
}

// QuantityRequest sets the quantity of a cart or checkout line
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

// AddToCart handles POST /customer/caterer/{catererID}/cart
func (h *CustomerHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := decodeJSON(r, &req); err != nil || req.ItemID == "" {
		WriteError(w, http.StatusBadRequest, viewCatererDetail, "Invalid request body", h.log)
		return
	}
	tab, ok := h.tab(w, r, viewCatererDetail)
	if !ok {
		return
	}

	catererID := chi.URLParam(r, "catererID")
	_, item, err := h.curation.AddItem(r.Context(), tab, catererID, req.ItemID)
	if err != nil {
		h.cartError(w, err)
		return
	}
	h.renderDetail(w, r, http.StatusOK, success(fmt.Sprintf("%s added to your curated meal!", item.Name)))
}

// SetCartQuantity handles PUT /customer/caterer/{catererID}/cart/{itemID}
func (h *CustomerHandler) SetCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req QuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, viewCatererDetail, "Invalid request body", h.log)
		return
	}
	tab, ok := h.tab(w, r, viewCatererDetail)
	if !ok {
		return
	}

	_, err := h.curation.SetQuantity(r.Context(), tab, chi.URLParam(r, "catererID"), chi.URLParam(r, "itemID"), req.Quantity)
	if err != nil {
		h.cartError(w, err)
		return
	}
	h.renderDetail(w, r, http.StatusOK, nil)
}

// RemoveFromCart handles DELETE /customer/caterer/{catererID}/cart/{itemID}
func (h *CustomerHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r, viewCatererDetail)
	if !ok {
		return
	}

	_, err := h.curation.RemoveItem(r.Context(), tab, chi.URLParam(r, "catererID"), chi.URLParam(r, "itemID"))
	if err != nil {
		h.cartError(w, err)
		return
	}
	h.renderDetail(w, r, http.StatusOK, nil)
}

// ProceedToCheckout handles POST /customer/caterer/{catererID}/checkout
func (h *CustomerHandler) ProceedToCheckout(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r, viewCatererDetail)
	if !ok {
		return
	}

	caterer, err := h.caterers.GetCaterer(r.Context(), chi.URLParam(r, "catererID"))
	if err != nil {
		h.cartError(w, err)
		return
	}

	if _, err := h.curation.ProceedToCheckout(r.Context(), tab, *caterer); err != nil {
		if errors.Is(err, service.ErrEmptyCuration) {
			h.renderDetail(w, r, http.StatusBadRequest, failed("Please add some items to your meal first"))
			return
		}
		h.cartError(w, err)
		return
	}
	Redirect(w, routing.PathCheckout, nil, h.log)
}

// Checkout handles GET /customer/checkout
func (h *CustomerHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r, viewCheckout)
	if !ok {
		return
	}

	snap, err := h.curation.Checkout(r.Context(), tab)
	if err != nil {
		h.checkoutError(w, err)
		return
	}
	WriteView(w, http.StatusOK, Envelope{View: viewCheckout, Data: snap}, h.log)
}

// SetCheckoutQuantity handles PUT /customer/checkout/items/{itemID}
func (h *CustomerHandler) SetCheckoutQuantity(w http.ResponseWriter, r *http.Request) {
	var req QuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, viewCheckout, "Invalid request body", h.log)
		return
	}
	h.updateCheckout(w, r, req.Quantity)
}

// RemoveFromCheckout handles DELETE /customer/checkout/items/{itemID}
func (h *CustomerHandler) RemoveFromCheckout(w http.ResponseWriter, r *http.Request) {
	h.updateCheckout(w, r, 0)
}

func (h *CustomerHandler) updateCheckout(w http.ResponseWriter, r *http.Request, qty int) {
	tab, ok := h.tab(w, r, viewCheckout)
	if !ok {
		return
	}

	snap, emptied, err := h.curation.UpdateCheckout(r.Context(), tab, chi.URLParam(r, "itemID"), qty)
	if err != nil {
		h.checkoutError(w, err)
		return
	}
	if emptied {
		Redirect(w, routing.PathCustomerHome, info("All items removed from your meal"), h.log)
		return
	}
	WriteView(w, http.StatusOK, Envelope{View: viewCheckout, Data: snap}, h.log)
}

// PlaceOrderRequest is the body of POST /customer/checkout
type PlaceOrderRequest struct {
	DeliveryAddress string `json:"delivery_address"`
}

// PlaceOrder handles POST /customer/checkout
func (h *CustomerHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, viewCheckout, "Invalid request body", h.log)
		return
	}
	tab, ok := h.tab(w, r, viewCheckout)
	if !ok {
		return
	}

	snap, err := h.curation.PendingCheckout(r.Context(), tab)
	if err != nil {
		h.checkoutError(w, err)
		return
	}

	customer := stateOf(r)
	order, err := h.orders.PlaceOrder(r.Context(), customer.UserID, snap, req.DeliveryAddress)
	if err != nil {
		h.log.Warn("failed to place order", "user_id", customer.UserID, "error", err)

		switch {
		case errors.Is(err, service.ErrMissingAddress):
			WriteView(w, http.StatusBadRequest, Envelope{View: viewCheckout, Data: snap, Notice: failed("Please enter a delivery address")}, h.log)
		case errors.Is(err, service.ErrPriceChanged):
			if fresh, ferr := h.curation.Checkout(r.Context(), tab); ferr == nil {
				snap = fresh
			}
			WriteView(w, http.StatusConflict, Envelope{View: viewCheckout, Data: snap, Notice: info("Prices have changed. Please review your order.")}, h.log)
		case errors.Is(err, service.ErrInvalidMenuItem), errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrEmptyOrder):
			WriteView(w, http.StatusBadRequest, Envelope{View: viewCheckout, Data: snap, Notice: failed(capitalize(err.Error()))}, h.log)
		default:
			WriteView(w, http.StatusInternalServerError, Envelope{View: viewCheckout, Data: snap, Notice: failed("Failed to place order. Please try again.")}, h.log)
		}
		return
	}

	if err := h.curation.ClearCheckout(r.Context(), tab); err != nil {
		h.log.Warn("failed to clear checkout", "tab", tab, "error", err)
	}
	h.metrics.OrderPlaced()
	h.log.Info("order placed", "order_id", order.ID, "user_id", customer.UserID, "items_count", len(order.Items))

	Redirect(w, routing.PathOrderHistory, success("Order placed successfully!"), h.log)
}

// OrderHistory handles GET /customer/order-history
func (h *CustomerHandler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	h.renderHistory(w, r, http.StatusOK, nil)
}

// CancelOrder handles POST /customer/order-history/{orderID}/cancel
func (h *CustomerHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Cancel(r.Context(), stateOf(r).UserID, chi.URLParam(r, "orderID"))
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, viewOrderHistory, "Order not found", h.log)
		return
	case errors.Is(err, service.ErrInvalidTransition):
		h.renderHistory(w, r, http.StatusConflict, failed("Only pending orders can be cancelled"))
		return
	case err != nil:
		h.log.Error("failed to cancel order", "error", err)
		WriteError(w, http.StatusInternalServerError, viewOrderHistory, "Internal server error", h.log)
		return
	}
	h.renderHistory(w, r, http.StatusOK, success(fmt.Sprintf("Order %s has been %s", order.ID, order.Status)))
}

func (h *CustomerHandler) renderHistory(w http.ResponseWriter, r *http.Request, status int, notice *Notice) {
	orders, err := h.orders.History(r.Context(), stateOf(r).UserID)
	if err != nil {
		h.log.Error("failed to load order history", "error", err)
		WriteError(w, http.StatusInternalServerError, viewOrderHistory, "Internal server error", h.log)
		return
	}
	WriteView(w, status, Envelope{View: viewOrderHistory, Data: map[string]any{"orders": orders}, Notice: notice}, h.log)
}

// renderDetail writes the caterer page: profile, menu by meal type and the
// tab's working cart
func (h *CustomerHandler) renderDetail(w http.ResponseWriter, r *http.Request, status int, notice *Notice) {
	ctx := r.Context()
	catererID := chi.URLParam(r, "catererID")

	caterer, err := h.caterers.GetCaterer(ctx, catererID)
	if errors.Is(err, repository.ErrCatererNotFound) {
		WriteError(w, http.StatusNotFound, viewCatererDetail, "Caterer not found", h.log)
		return
	}
	if err != nil {
		h.log.Error("failed to load caterer", "caterer_id", catererID, "error", err)
		WriteError(w, http.StatusInternalServerError, viewCatererDetail, "Internal server error", h.log)
		return
	}

	menu, err := h.caterers.Menu(ctx, catererID)
	if err != nil {
		h.log.Error("failed to load menu", "caterer_id", catererID, "error", err)
		WriteError(w, http.StatusInternalServerError, viewCatererDetail, "Internal server error", h.log)
		return
	}

	c := cart.New(catererID)
	if tab := tabOrEmpty(r); tab != "" {
		if c, err = h.curation.Cart(ctx, tab, catererID); err != nil {
			h.log.Error("failed to load cart", "tab", tab, "error", err)
			WriteError(w, http.StatusInternalServerError, viewCatererDetail, "Internal server error", h.log)
			return
		}
	}

	WriteView(w, status, Envelope{View: viewCatererDetail, Notice: notice, Data: map[string]any{
		"caterer": caterer,
		"menu":    menu,
		"cart":    newCartView(c),
	}}, h.log)
}

func (h *CustomerHandler) tab(w http.ResponseWriter, r *http.Request, view string) (string, bool) {
	tab, err := tabOf(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, view, "Missing X-Tab-ID header", h.log)
		return "", false
	}
	return tab, true
}

func tabOrEmpty(r *http.Request) string {
	tab, _ := tabOf(r)
	return tab
}

var quantityLimitMessage = fmt.Sprintf("You can order at most %d of an item", cart.MaxQuantity)

func (h *CustomerHandler) cartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrCatererNotFound):
		WriteError(w, http.StatusNotFound, viewCatererDetail, "Caterer not found", h.log)
	case errors.Is(err, repository.ErrMenuItemNotFound), errors.Is(err, cart.ErrItemNotInCart):
		WriteError(w, http.StatusNotFound, viewCatererDetail, "Menu item not found", h.log)
	case errors.Is(err, cart.ErrForeignItem):
		WriteError(w, http.StatusBadRequest, viewCatererDetail, "That item is on another caterer's menu", h.log)
	case errors.Is(err, cart.ErrQuantityTooLarge):
		WriteError(w, http.StatusBadRequest, viewCatererDetail, quantityLimitMessage, h.log)
	default:
		h.log.Error("cart operation failed", "error", err)
		WriteError(w, http.StatusInternalServerError, viewCatererDetail, "Internal server error", h.log)
	}
}

func (h *CustomerHandler) checkoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrNoSnapshot), errors.Is(err, cart.ErrEmptySnapshot):
		Redirect(w, routing.PathCustomerHome, failed("No items selected for checkout"), h.log)
	case errors.Is(err, cart.ErrItemNotInCart):
		WriteError(w, http.StatusNotFound, viewCheckout, "Item is not in your order", h.log)
	case errors.Is(err, cart.ErrQuantityTooLarge):
		WriteError(w, http.StatusBadRequest, viewCheckout, quantityLimitMessage, h.log)
	default:
		h.log.Error("checkout operation failed", "error", err)
		WriteError(w, http.StatusInternalServerError, viewCheckout, "Internal server error", h.log)
	}
}
