package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/repository"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/service"
)

const (
	viewDashboard     = "caterer_dashboard"
	viewProfile       = "caterer_profile"
	viewCatererOrders = "caterer_orders"
)

// CatererHandler serves the caterer pages: dashboard, profile with menu
// management and incoming orders
type CatererHandler struct {
	caterers *service.CatererService
	menus    *service.MenuService
	orders   *service.OrderService
	log      *slog.Logger
}

// NewCatererHandler creates a new caterer handler
func NewCatererHandler(caterers *service.CatererService, menus *service.MenuService, orders *service.OrderService, log *slog.Logger) *CatererHandler {
	return &CatererHandler{
		caterers: caterers,
		menus:    menus,
		orders:   orders,
		log:      log,
	}
}

// Dashboard handles GET /caterer/dashboard
func (h *CatererHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r, viewDashboard)
	if !ok {
		return
	}

	stats, err := h.orders.Dashboard(r.Context(), profile.ID)
	if err != nil {
		h.log.Error("failed to compute dashboard", "caterer_id", profile.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, viewDashboard, "Internal server error", h.log)
		return
	}

	env := Envelope{View: viewDashboard, Data: map[string]any{
		"profile": profile,
		"stats":   stats,
	}}
	if !profile.IsComplete {
		env.Notice = info("Please complete your profile to accept orders")
	}
	WriteView(w, http.StatusOK, env, h.log)
}

// Profile handles GET /caterer/profile
func (h *CatererHandler) Profile(w http.ResponseWriter, r *http.Request) {
	h.renderProfile(w, r, http.StatusOK, nil)
}

// SaveProfile handles PUT /caterer/profile
func (h *CatererHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var update models.ProfileUpdate
	if err := decodeJSON(r, &update); err != nil {
		WriteError(w, http.StatusBadRequest, viewProfile, "Invalid request body", h.log)
		return
	}

	if _, err := h.caterers.SaveProfile(r.Context(), stateOf(r).UserID, update); err != nil {
		h.log.Error("failed to save profile", "user_id", stateOf(r).UserID, "error", err)
		WriteError(w, http.StatusInternalServerError, viewProfile, "Failed to save profile. Please try again.", h.log)
		return
	}
	h.renderProfile(w, r, http.StatusOK, success("Profile saved successfully!"))
}

// AddMenuItem handles POST /caterer/profile/menu
func (h *CatererHandler) AddMenuItem(w http.ResponseWriter, r *http.Request) {
	var input models.MenuItemInput
	if err := decodeJSON(r, &input); err != nil {
		WriteError(w, http.StatusBadRequest, viewProfile, "Invalid request body", h.log)
		return
	}

	if _, err := h.menus.AddItem(r.Context(), stateOf(r).UserID, input); err != nil {
		h.menuError(w, err, "Failed to add menu item. Please try again.")
		return
	}
	h.renderProfile(w, r, http.StatusCreated, success("Menu item added successfully!"))
}

// UpdateMenuItem handles PUT /caterer/profile/menu/{itemID}
func (h *CatererHandler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	var input models.MenuItemInput
	if err := decodeJSON(r, &input); err != nil {
		WriteError(w, http.StatusBadRequest, viewProfile, "Invalid request body", h.log)
		return
	}

	if _, err := h.menus.UpdateItem(r.Context(), stateOf(r).UserID, chi.URLParam(r, "itemID"), input); err != nil {
		h.menuError(w, err, "Failed to update menu item. Please try again.")
		return
	}
	h.renderProfile(w, r, http.StatusOK, success("Menu item updated successfully!"))
}

// DeleteMenuItem handles DELETE /caterer/profile/menu/{itemID}
func (h *CatererHandler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.menus.DeleteItem(r.Context(), stateOf(r).UserID, chi.URLParam(r, "itemID")); err != nil {
		h.menuError(w, err, "Failed to delete menu item. Please try again.")
		return
	}
	h.renderProfile(w, r, http.StatusOK, success("Menu item deleted successfully!"))
}

// Orders handles GET /caterer/orders?status=
func (h *CatererHandler) Orders(w http.ResponseWriter, r *http.Request) {
	h.renderOrders(w, r, http.StatusOK, nil)
}

// UpdateStatusRequest is the body of POST /caterer/orders/{orderID}/status
type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// UpdateOrderStatus handles POST /caterer/orders/{orderID}/status
func (h *CatererHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, viewCatererOrders, "Invalid request body", h.log)
		return
	}

	profile, ok := h.profile(w, r, viewCatererOrders)
	if !ok {
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), profile.ID, chi.URLParam(r, "orderID"), req.Status)
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, viewCatererOrders, "Order not found", h.log)
		return
	case errors.Is(err, service.ErrInvalidStatus), errors.Is(err, service.ErrInvalidTransition):
		h.renderOrders(w, r, http.StatusConflict, failed(err.Error()))
		return
	case err != nil:
		h.log.Error("failed to update order status", "error", err)
		WriteError(w, http.StatusInternalServerError, viewCatererOrders, "Internal server error", h.log)
		return
	}

	h.log.Info("order status updated", "order_id", order.ID, "status", order.Status)
	h.renderOrders(w, r, http.StatusOK, success(fmt.Sprintf("Order %s has been %s", order.ID, order.Status)))
}

func (h *CatererHandler) renderOrders(w http.ResponseWriter, r *http.Request, status int, notice *Notice) {
	profile, ok := h.profile(w, r, viewCatererOrders)
	if !ok {
		return
	}

	filter := r.URL.Query().Get("status")
	orders, err := h.orders.CatererOrders(r.Context(), profile.ID, filter)
	if errors.Is(err, service.ErrInvalidStatus) {
		WriteError(w, http.StatusBadRequest, viewCatererOrders, "Unknown order status", h.log)
		return
	}
	if err != nil {
		h.log.Error("failed to list caterer orders", "caterer_id", profile.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, viewCatererOrders, "Internal server error", h.log)
		return
	}

	if filter == "" {
		filter = "all"
	}
	WriteView(w, status, Envelope{View: viewCatererOrders, Notice: notice, Data: map[string]any{
		"status": filter,
		"orders": orders,
	}}, h.log)
}

func (h *CatererHandler) renderProfile(w http.ResponseWriter, r *http.Request, status int, notice *Notice) {
	profile, ok := h.profile(w, r, viewProfile)
	if !ok {
		return
	}

	menu, err := h.caterers.Menu(r.Context(), profile.ID)
	if err != nil {
		h.log.Error("failed to load menu", "caterer_id", profile.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, viewProfile, "Internal server error", h.log)
		return
	}

	WriteView(w, status, Envelope{View: viewProfile, Notice: notice, Data: map[string]any{
		"profile": profile,
		"menu":    menu,
	}}, h.log)
}

// profile loads the signed-in caterer's profile, creating it on first visit
func (h *CatererHandler) profile(w http.ResponseWriter, r *http.Request, view string) (*models.CatererProfile, bool) {
	profile, err := h.caterers.ProfileForUser(r.Context(), stateOf(r).UserID)
	if err != nil {
		h.log.Error("failed to load caterer profile", "user_id", stateOf(r).UserID, "error", err)
		WriteError(w, http.StatusInternalServerError, view, "Internal server error", h.log)
		return nil, false
	}
	return profile, true
}

func (h *CatererHandler) menuError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrMissingName), errors.Is(err, service.ErrInvalidPrice), errors.Is(err, service.ErrInvalidMealType):
		WriteError(w, http.StatusBadRequest, viewProfile, capitalize(err.Error()), h.log)
	case errors.Is(err, repository.ErrMenuItemNotFound):
		WriteError(w, http.StatusNotFound, viewProfile, "Menu item not found", h.log)
	default:
		h.log.Error("menu operation failed", "error", err)
		WriteError(w, http.StatusInternalServerError, viewProfile, fallback, h.log)
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
