package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/globalbooks/fulfillment-system/orders-service/application"
	"github.com/globalbooks/fulfillment-system/orders-service/domain"
	"github.com/globalbooks/fulfillment-system/shared/auth"
	"github.com/go-chi/chi/v5"
)

// OrderHandlers contains order HTTP handlers
type OrderHandlers struct {
	createOrder       *application.CreateOrder
	getOrder          *application.GetOrder
	listOrders        *application.ListOrders
	updateOrderStatus *application.UpdateOrderStatus
	deleteOrder       *application.DeleteOrder
}

// NewOrderHandlers creates new order handlers
func NewOrderHandlers(
	createOrder *application.CreateOrder,
	getOrder *application.GetOrder,
	listOrders *application.ListOrders,
	updateOrderStatus *application.UpdateOrderStatus,
	deleteOrder *application.DeleteOrder,
) *OrderHandlers {
	return &OrderHandlers{
		createOrder:       createOrder,
		getOrder:          getOrder,
		listOrders:        listOrders,
		updateOrderStatus: updateOrderStatus,
		deleteOrder:       deleteOrder,
	}
}

// CreateOrder handles order creation requests
func (h *OrderHandlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd application.CreateOrderCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// The authenticated principal owns the order regardless of what
	// the body claims.
	if customerID := auth.CustomerID(r.Context()); customerID != "" {
		cmd.CustomerID = customerID
	}

	response, err := h.createOrder.Execute(r.Context(), &cmd)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// GetOrder handles order retrieval requests
func (h *OrderHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		http.Error(w, "Order ID is required", http.StatusBadRequest)
		return
	}

	query := &application.GetOrderQuery{
		OrderID: orderID,
	}

	response, err := h.getOrder.Execute(r.Context(), query)
	if err != nil {
		writeOrderError(w, err)
		return
	}

	if auth.RoleFrom(r.Context()) != auth.RoleAdmin {
		if customerID := auth.CustomerID(r.Context()); customerID != "" && customerID != response.CustomerID {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ListOrders returns the orders belonging to the authenticated customer
func (h *OrderHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	customerID := auth.CustomerID(r.Context())
	if customerID == "" {
		customerID = r.URL.Query().Get("customerId")
	}
	if customerID == "" {
		http.Error(w, "Customer ID is required", http.StatusBadRequest)
		return
	}

	response, err := h.listOrders.Execute(r.Context(), customerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// UpdateOrderStatus handles administrative status overrides
func (h *OrderHandlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		http.Error(w, "Order ID is required", http.StatusBadRequest)
		return
	}

	var cmd application.UpdateOrderStatusCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.OrderID = orderID

	response, err := h.updateOrderStatus.Execute(r.Context(), &cmd)
	if err != nil {
		writeOrderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// DeleteOrder handles order deletion requests
func (h *OrderHandlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		http.Error(w, "Order ID is required", http.StatusBadRequest)
		return
	}

	if err := h.deleteOrder.Execute(r.Context(), &application.DeleteOrderCommand{OrderID: orderID}); err != nil {
		writeOrderError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeOrderError(w http.ResponseWriter, err error) {
	var transitionErr *domain.InvalidTransitionError
	switch {
	case errors.Is(err, application.ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, application.ErrOrderNotDeletable):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &transitionErr):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RegisterRoutes registers order routes
func (h *OrderHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}/status", h.UpdateOrderStatus)
		r.Delete("/{id}", h.DeleteOrder)
	})
}
