package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/globalbooks/fulfillment-system/payments-service/application"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/go-chi/chi/v5"
)

// PaymentHandlers contains payment HTTP handlers
type PaymentHandlers struct {
	processPaymentRequest *application.ProcessPaymentRequest
	getPayment            *application.GetPayment
	getPaymentByOrder     *application.GetPaymentByOrder
	listPayments          *application.ListPayments
	refundPayment         *application.RefundPayment
	cancelPayment         *application.CancelPayment
	retryPayment          *application.RetryPayment
}

// NewPaymentHandlers creates new payment handlers
func NewPaymentHandlers(
	processPaymentRequest *application.ProcessPaymentRequest,
	getPayment *application.GetPayment,
	getPaymentByOrder *application.GetPaymentByOrder,
	listPayments *application.ListPayments,
	refundPayment *application.RefundPayment,
	cancelPayment *application.CancelPayment,
	retryPayment *application.RetryPayment,
) *PaymentHandlers {
	return &PaymentHandlers{
		processPaymentRequest: processPaymentRequest,
		getPayment:            getPayment,
		getPaymentByOrder:     getPaymentByOrder,
		listPayments:          listPayments,
		refundPayment:         refundPayment,
		cancelPayment:         cancelPayment,
		retryPayment:          retryPayment,
	}
}

// ProcessPayment handles direct settlement requests
func (h *PaymentHandlers) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var cmd application.ProcessPaymentRequestCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.processPaymentRequest.Execute(r.Context(), &cmd)
	if err != nil {
		writePaymentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// GetPayment handles payment retrieval requests
func (h *PaymentHandlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "id")
	if paymentID == "" {
		http.Error(w, "Payment ID is required", http.StatusBadRequest)
		return
	}

	response, err := h.getPayment.Execute(r.Context(), &application.GetPaymentQuery{PaymentID: paymentID})
	if err != nil {
		writePaymentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetPaymentByOrder returns the payment attached to an order
func (h *PaymentHandlers) GetPaymentByOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		http.Error(w, "Order ID is required", http.StatusBadRequest)
		return
	}

	response, err := h.getPaymentByOrder.Execute(r.Context(), orderID)
	if err != nil {
		writePaymentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ListPayments returns the payments of a customer
func (h *PaymentHandlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customerId")
	if customerID == "" {
		http.Error(w, "Customer ID is required", http.StatusBadRequest)
		return
	}

	response, err := h.listPayments.Execute(r.Context(), customerID)
	if err != nil {
		writePaymentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RefundPayment handles refund requests
func (h *PaymentHandlers) RefundPayment(w http.ResponseWriter, r *http.Request) {
	cmd := application.RefundPaymentCommand{PaymentID: chi.URLParam(r, "id")}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&cmd)
		cmd.PaymentID = chi.URLParam(r, "id")
	}

	response, err := h.refundPayment.Execute(r.Context(), &cmd)
	if err != nil {
		writePaymentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// CancelPayment handles cancellation requests
func (h *PaymentHandlers) CancelPayment(w http.ResponseWriter, r *http.Request) {
	response, err := h.cancelPayment.Execute(r.Context(),
		&application.CancelPaymentCommand{PaymentID: chi.URLParam(r, "id")})
	if err != nil {
		writePaymentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RetryPayment handles retry requests for failed payments
func (h *PaymentHandlers) RetryPayment(w http.ResponseWriter, r *http.Request) {
	response, err := h.retryPayment.Execute(r.Context(),
		&application.RetryPaymentCommand{PaymentID: chi.URLParam(r, "id")})
	if err != nil {
		writePaymentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func writePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrPaymentNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case faults.IsConflict(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case faults.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RegisterRoutes registers payment routes
func (h *PaymentHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.ProcessPayment)
		r.Get("/", h.ListPayments)
		r.Get("/{id}", h.GetPayment)
		r.Get("/order/{orderId}", h.GetPaymentByOrder)
		r.Post("/{id}/refund", h.RefundPayment)
		r.Post("/{id}/cancel", h.CancelPayment)
		r.Post("/{id}/retry", h.RetryPayment)
	})
}
