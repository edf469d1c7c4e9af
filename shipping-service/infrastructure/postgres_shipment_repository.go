package infrastructure

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/globalbooks/fulfillment-system/shipping-service/domain"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PostgresShipmentRepository implements ShipmentRepository using PostgreSQL
type PostgresShipmentRepository struct {
	db *sqlx.DB
}

// NewPostgresShipmentRepository creates a new PostgresShipmentRepository
func NewPostgresShipmentRepository(db *sqlx.DB) *PostgresShipmentRepository {
	return &PostgresShipmentRepository{db: db}
}

// postgresShipment represents a shipment in the database
type postgresShipment struct {
	ID                string     `db:"id"`
	OrderID           string     `db:"order_id"`
	CustomerID        string     `db:"customer_id"`
	TrackingNumber    string     `db:"tracking_number"`
	Status            string     `db:"status"`
	Carrier           string     `db:"carrier"`
	Method            string     `db:"method"`
	Weight            string     `db:"weight"`
	ShippingCost      string     `db:"shipping_cost"`
	Currency          string     `db:"currency"`
	EstimatedDelivery time.Time  `db:"estimated_delivery"`
	ShippedAt         *time.Time `db:"shipped_at"`
	ActualDelivery    *time.Time `db:"actual_delivery"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
	Version           int        `db:"version"`
}

const shipmentColumns = `id, order_id, customer_id, tracking_number, status, carrier,
	   method, weight, shipping_cost, currency, estimated_delivery,
	   shipped_at, actual_delivery, created_at, updated_at, version`

// Save saves a shipment to the database
func (r *PostgresShipmentRepository) Save(ctx context.Context, shipment *domain.Shipment) error {
	// Creation never bumps the version, so version 1 means a fresh row.
	if shipment.Version.Value == 1 {
		return r.insertShipment(ctx, shipment)
	}
	return r.updateShipment(ctx, shipment)
}

// insertShipment inserts a new shipment
func (r *PostgresShipmentRepository) insertShipment(ctx context.Context, shipment *domain.Shipment) error {
	query := `
		INSERT INTO shipments (
			id, order_id, customer_id, tracking_number, status, carrier,
			method, weight, shipping_cost, currency, estimated_delivery,
			shipped_at, actual_delivery, created_at, updated_at, version
		) VALUES (
			:id, :order_id, :customer_id, :tracking_number, :status, :carrier,
			:method, :weight, :shipping_cost, :currency, :estimated_delivery,
			:shipped_at, :actual_delivery, :created_at, :updated_at, :version
		)`

	if _, err := r.db.NamedExecContext(ctx, query, r.toPostgres(shipment)); err != nil {
		return errors.Wrap(err, "failed to insert shipment")
	}

	return nil
}

// updateShipment updates an existing shipment with optimistic locking
func (r *PostgresShipmentRepository) updateShipment(ctx context.Context, shipment *domain.Shipment) error {
	query := `
		UPDATE shipments
		SET status = :status, shipped_at = :shipped_at,
			actual_delivery = :actual_delivery, updated_at = :updated_at,
			version = :version
		WHERE id = :id AND version = :old_version`

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":              shipment.ID.String(),
		"status":          string(shipment.Status),
		"shipped_at":      shipment.ShippedAt,
		"actual_delivery": shipment.ActualDelivery,
		"updated_at":      shipment.Timestamps.UpdatedAt,
		"version":         shipment.Version.Value,
		"old_version":     shipment.Version.Value - 1,
	})
	if err != nil {
		return errors.Wrap(err, "failed to update shipment")
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return errors.Errorf("shipment %s modified concurrently", shipment.ID.String())
	}

	return nil
}

// FindByID finds a shipment by ID
func (r *PostgresShipmentRepository) FindByID(ctx context.Context, id models.ID) (*domain.Shipment, error) {
	return r.findOne(ctx, "id = $1", id.String())
}

// FindByOrderID finds the shipment for an order
func (r *PostgresShipmentRepository) FindByOrderID(ctx context.Context, orderID models.ID) (*domain.Shipment, error) {
	return r.findOne(ctx, "order_id = $1", orderID.String())
}

// FindByTrackingNumber finds a shipment by its tracking number
func (r *PostgresShipmentRepository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Shipment, error) {
	return r.findOne(ctx, "tracking_number = $1", trackingNumber)
}

func (r *PostgresShipmentRepository) findOne(ctx context.Context, where string, arg interface{}) (*domain.Shipment, error) {
	query := "SELECT " + shipmentColumns + " FROM shipments WHERE " + where

	var pgShipment postgresShipment
	err := r.db.GetContext(ctx, &pgShipment, query, arg)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Shipment not found
		}
		return nil, errors.Wrap(err, "failed to find shipment")
	}

	return r.toDomain(&pgShipment)
}

// FindByCustomerID finds shipments by customer ID
func (r *PostgresShipmentRepository) FindByCustomerID(ctx context.Context, customerID models.ID) ([]*domain.Shipment, error) {
	query := "SELECT " + shipmentColumns + ` FROM shipments
		WHERE customer_id = $1
		ORDER BY created_at DESC`

	var pgShipments []postgresShipment
	err := r.db.SelectContext(ctx, &pgShipments, query, customerID.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to find shipments by customer ID")
	}

	shipments := make([]*domain.Shipment, len(pgShipments))
	for i, pgShipment := range pgShipments {
		shipment, err := r.toDomain(&pgShipment)
		if err != nil {
			return nil, err
		}
		shipments[i] = shipment
	}

	return shipments, nil
}

// toPostgres converts a domain shipment to the postgres model
func (r *PostgresShipmentRepository) toPostgres(shipment *domain.Shipment) *postgresShipment {
	return &postgresShipment{
		ID:                shipment.ID.String(),
		OrderID:           shipment.OrderID.String(),
		CustomerID:        shipment.CustomerID.String(),
		TrackingNumber:    shipment.TrackingNumber,
		Status:            string(shipment.Status),
		Carrier:           shipment.Carrier,
		Method:            string(shipment.Method),
		Weight:            shipment.Weight.String(),
		ShippingCost:      shipment.ShippingCost.Amount.String(),
		Currency:          shipment.ShippingCost.Currency,
		EstimatedDelivery: shipment.EstimatedDelivery,
		ShippedAt:         shipment.ShippedAt,
		ActualDelivery:    shipment.ActualDelivery,
		CreatedAt:         shipment.Timestamps.CreatedAt,
		UpdatedAt:         shipment.Timestamps.UpdatedAt,
		Version:           shipment.Version.Value,
	}
}

// toDomain converts a postgres model to a domain shipment
func (r *PostgresShipmentRepository) toDomain(pgShipment *postgresShipment) (*domain.Shipment, error) {
	weight, err := decimal.NewFromString(strings.TrimSpace(pgShipment.Weight))
	if err != nil {
		return nil, errors.Wrap(err, "invalid shipment weight")
	}

	cost, err := decimal.NewFromString(strings.TrimSpace(pgShipment.ShippingCost))
	if err != nil {
		return nil, errors.Wrap(err, "invalid shipping cost")
	}

	return &domain.Shipment{
		ID:                models.ID(pgShipment.ID),
		OrderID:           models.ID(pgShipment.OrderID),
		CustomerID:        models.ID(pgShipment.CustomerID),
		TrackingNumber:    pgShipment.TrackingNumber,
		Status:            domain.ShipmentStatus(pgShipment.Status),
		Carrier:           pgShipment.Carrier,
		Method:            domain.ShippingMethod(pgShipment.Method),
		Weight:            weight,
		ShippingCost:      models.NewMoney(cost, pgShipment.Currency),
		EstimatedDelivery: pgShipment.EstimatedDelivery,
		ShippedAt:         pgShipment.ShippedAt,
		ActualDelivery:    pgShipment.ActualDelivery,
		Timestamps: models.Timestamps{
			CreatedAt: pgShipment.CreatedAt,
			UpdatedAt: pgShipment.UpdatedAt,
		},
		Version: models.Version{Value: pgShipment.Version},
	}, nil
}
