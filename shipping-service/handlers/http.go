package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shipping-service/application"
	"github.com/go-chi/chi/v5"
)

// ShipmentHandlers contains shipment HTTP handlers
type ShipmentHandlers struct {
	createShipment       *application.CreateShipment
	getShipment          *application.GetShipment
	trackShipment        *application.TrackShipment
	listShipments        *application.ListShipments
	updateShipmentStatus *application.UpdateShipmentStatus
	cancelShipment       *application.CancelShipment
}

// NewShipmentHandlers creates new shipment handlers
func NewShipmentHandlers(
	createShipment *application.CreateShipment,
	getShipment *application.GetShipment,
	trackShipment *application.TrackShipment,
	listShipments *application.ListShipments,
	updateShipmentStatus *application.UpdateShipmentStatus,
	cancelShipment *application.CancelShipment,
) *ShipmentHandlers {
	return &ShipmentHandlers{
		createShipment:       createShipment,
		getShipment:          getShipment,
		trackShipment:        trackShipment,
		listShipments:        listShipments,
		updateShipmentStatus: updateShipmentStatus,
		cancelShipment:       cancelShipment,
	}
}

// CreateShipment handles shipment creation requests
func (h *ShipmentHandlers) CreateShipment(w http.ResponseWriter, r *http.Request) {
	var cmd application.CreateShipmentCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.createShipment.Execute(r.Context(), &cmd)
	if err != nil {
		writeShipmentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// GetShipment handles shipment retrieval requests
func (h *ShipmentHandlers) GetShipment(w http.ResponseWriter, r *http.Request) {
	shipmentID := chi.URLParam(r, "id")
	if shipmentID == "" {
		http.Error(w, "Shipment ID is required", http.StatusBadRequest)
		return
	}

	response, err := h.getShipment.Execute(r.Context(), shipmentID)
	if err != nil {
		writeShipmentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// TrackShipment resolves a shipment by tracking number
func (h *ShipmentHandlers) TrackShipment(w http.ResponseWriter, r *http.Request) {
	response, err := h.trackShipment.ByTrackingNumber(r.Context(), chi.URLParam(r, "trackingNumber"))
	if err != nil {
		writeShipmentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetShipmentByOrder resolves the shipment attached to an order
func (h *ShipmentHandlers) GetShipmentByOrder(w http.ResponseWriter, r *http.Request) {
	response, err := h.trackShipment.ByOrderID(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeShipmentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ListShipments returns the shipments of a customer
func (h *ShipmentHandlers) ListShipments(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customerId")
	if customerID == "" {
		http.Error(w, "Customer ID is required", http.StatusBadRequest)
		return
	}

	response, err := h.listShipments.Execute(r.Context(), customerID)
	if err != nil {
		writeShipmentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// UpdateShipmentStatus advances a shipment stage
func (h *ShipmentHandlers) UpdateShipmentStatus(w http.ResponseWriter, r *http.Request) {
	var cmd application.UpdateShipmentStatusCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.ShipmentID = chi.URLParam(r, "id")

	response, err := h.updateShipmentStatus.Execute(r.Context(), &cmd)
	if err != nil {
		writeShipmentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// CancelShipment withdraws a shipment before pickup
func (h *ShipmentHandlers) CancelShipment(w http.ResponseWriter, r *http.Request) {
	response, err := h.cancelShipment.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeShipmentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func writeShipmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrShipmentNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case faults.IsConflict(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case faults.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RegisterRoutes registers shipment routes
func (h *ShipmentHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/shipments", func(r chi.Router) {
		r.Post("/", h.CreateShipment)
		r.Get("/", h.ListShipments)
		r.Get("/{id}", h.GetShipment)
		r.Get("/track/{trackingNumber}", h.TrackShipment)
		r.Get("/order/{orderId}", h.GetShipmentByOrder)
		r.Put("/{id}/status", h.UpdateShipmentStatus)
		r.Post("/{id}/cancel", h.CancelShipment)
	})
}
