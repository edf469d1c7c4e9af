package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/globalbooks/fulfillment-system/orders-service/domain"
	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *sqlx.DB
}

// NewPostgresOrderRepository creates a new PostgresOrderRepository
func NewPostgresOrderRepository(db *sqlx.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// postgresOrder represents an order in the database
type postgresOrder struct {
	ID              string          `db:"id"`
	CustomerID      string          `db:"customer_id"`
	Items           json.RawMessage `db:"items"`
	TotalAmount     string          `db:"total_amount"`
	Currency        string          `db:"currency"`
	Status          string          `db:"status"`
	ShippingAddress json.RawMessage `db:"shipping_address"`
	PaymentMethod   string          `db:"payment_method"`
	PaymentID       string          `db:"payment_id"`
	TransactionID   string          `db:"transaction_id"`
	FailureReason   string          `db:"failure_reason"`
	ShipmentID      string          `db:"shipment_id"`
	TrackingNumber  string          `db:"tracking_number"`
	Carrier         string          `db:"carrier"`
	DeliveredAt     *time.Time      `db:"delivered_at"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
	Version         int             `db:"version"`
}

// postgresOrderItem is the persisted shape of one line item
type postgresOrderItem struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	Currency    string `json:"currency"`
}

// postgresAddress is the persisted shape of the shipping destination
type postgresAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
	Email   string `json:"email"`
}

// Save saves an order to the database
func (r *PostgresOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	// A creation event means a fresh row; anything else is a state
	// change on an existing one.
	for _, event := range order.Events() {
		if event.EventType == events.OrderCreatedEvent {
			return r.insertOrder(ctx, order)
		}
	}
	return r.updateOrder(ctx, order)
}

// insertOrder inserts a new order
func (r *PostgresOrderRepository) insertOrder(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			id, customer_id, items, total_amount, currency, status,
			shipping_address, payment_method, payment_id, transaction_id,
			failure_reason, shipment_id, tracking_number, carrier,
			delivered_at, created_at, updated_at, version
		) VALUES (
			:id, :customer_id, :items, :total_amount, :currency, :status,
			:shipping_address, :payment_method, :payment_id, :transaction_id,
			:failure_reason, :shipment_id, :tracking_number, :carrier,
			:delivered_at, :created_at, :updated_at, :version
		)`

	pgOrder, err := r.toPostgres(order)
	if err != nil {
		return err
	}

	if _, err := r.db.NamedExecContext(ctx, query, pgOrder); err != nil {
		return errors.Wrap(err, "failed to insert order")
	}

	return nil
}

// updateOrder updates an existing order with optimistic locking
func (r *PostgresOrderRepository) updateOrder(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = :status, payment_id = :payment_id,
			transaction_id = :transaction_id, failure_reason = :failure_reason,
			shipment_id = :shipment_id, tracking_number = :tracking_number,
			carrier = :carrier, delivered_at = :delivered_at,
			updated_at = :updated_at, version = :version
		WHERE id = :id AND version = :old_version`

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":              order.ID.String(),
		"status":          string(order.Status),
		"payment_id":      order.PaymentID,
		"transaction_id":  order.TransactionID,
		"failure_reason":  order.FailureReason,
		"shipment_id":     order.ShipmentID,
		"tracking_number": order.TrackingNumber,
		"carrier":         order.Carrier,
		"delivered_at":    order.DeliveredAt,
		"updated_at":      order.Timestamps.UpdatedAt,
		"version":         order.Version.Value,
		"old_version":     order.Version.Value - 1,
	})
	if err != nil {
		return errors.Wrap(err, "failed to update order")
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return errors.Errorf("order %s modified concurrently", order.ID.String())
	}

	return nil
}

// FindByID finds an order by ID
func (r *PostgresOrderRepository) FindByID(ctx context.Context, id models.ID) (*domain.Order, error) {
	query := `
		SELECT id, customer_id, items, total_amount, currency, status,
			   shipping_address, payment_method, payment_id, transaction_id,
			   failure_reason, shipment_id, tracking_number, carrier,
			   delivered_at, created_at, updated_at, version
		FROM orders
		WHERE id = $1`

	var pgOrder postgresOrder
	err := r.db.GetContext(ctx, &pgOrder, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Order not found
		}
		return nil, errors.Wrap(err, "failed to find order")
	}

	return r.toDomain(&pgOrder)
}

// FindByCustomerID finds orders by customer ID
func (r *PostgresOrderRepository) FindByCustomerID(ctx context.Context, customerID models.ID) ([]*domain.Order, error) {
	query := `
		SELECT id, customer_id, items, total_amount, currency, status,
			   shipping_address, payment_method, payment_id, transaction_id,
			   failure_reason, shipment_id, tracking_number, carrier,
			   delivered_at, created_at, updated_at, version
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC`

	var pgOrders []postgresOrder
	err := r.db.SelectContext(ctx, &pgOrders, query, customerID.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to find orders by customer ID")
	}

	orders := make([]*domain.Order, len(pgOrders))
	for i, pgOrder := range pgOrders {
		order, err := r.toDomain(&pgOrder)
		if err != nil {
			return nil, err
		}
		orders[i] = order
	}

	return orders, nil
}

// Delete removes an order row
func (r *PostgresOrderRepository) Delete(ctx context.Context, id models.ID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id.String())
	if err != nil {
		return errors.Wrap(err, "failed to delete order")
	}
	return nil
}

// toPostgres converts a domain order to the postgres model
func (r *PostgresOrderRepository) toPostgres(order *domain.Order) (*postgresOrder, error) {
	pgItems := make([]postgresOrderItem, len(order.Items))
	for i, item := range order.Items {
		pgItems[i] = postgresOrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Amount.String(),
			Currency:    item.UnitPrice.Currency,
		}
	}
	itemsJSON, err := json.Marshal(pgItems)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal order items")
	}

	addressJSON, err := json.Marshal(postgresAddress{
		Street:  order.ShippingAddress.Street,
		City:    order.ShippingAddress.City,
		State:   order.ShippingAddress.State,
		ZipCode: order.ShippingAddress.ZipCode,
		Country: order.ShippingAddress.Country,
		Email:   order.ShippingAddress.Email,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal shipping address")
	}

	return &postgresOrder{
		ID:              order.ID.String(),
		CustomerID:      order.CustomerID.String(),
		Items:           itemsJSON,
		TotalAmount:     order.TotalAmount.Amount.String(),
		Currency:        order.TotalAmount.Currency,
		Status:          string(order.Status),
		ShippingAddress: addressJSON,
		PaymentMethod:   order.PaymentMethod,
		PaymentID:       order.PaymentID,
		TransactionID:   order.TransactionID,
		FailureReason:   order.FailureReason,
		ShipmentID:      order.ShipmentID,
		TrackingNumber:  order.TrackingNumber,
		Carrier:         order.Carrier,
		DeliveredAt:     order.DeliveredAt,
		CreatedAt:       order.Timestamps.CreatedAt,
		UpdatedAt:       order.Timestamps.UpdatedAt,
		Version:         order.Version.Value,
	}, nil
}

// toDomain converts a postgres model to a domain order
func (r *PostgresOrderRepository) toDomain(pgOrder *postgresOrder) (*domain.Order, error) {
	id, err := models.NewID(pgOrder.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	customerID, err := models.NewID(pgOrder.CustomerID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid customer ID")
	}

	var pgItems []postgresOrderItem
	if err := json.Unmarshal(pgOrder.Items, &pgItems); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal order items")
	}

	items := make([]domain.OrderItem, len(pgItems))
	for i, pgItem := range pgItems {
		price, err := decimal.NewFromString(pgItem.UnitPrice)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid unit price for item %s", pgItem.ProductID)
		}
		items[i] = domain.OrderItem{
			ProductID:   pgItem.ProductID,
			ProductName: pgItem.ProductName,
			Quantity:    pgItem.Quantity,
			UnitPrice:   models.NewMoney(price, pgItem.Currency),
		}
	}

	var pgAddress postgresAddress
	if err := json.Unmarshal(pgOrder.ShippingAddress, &pgAddress); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal shipping address")
	}

	total, err := decimal.NewFromString(pgOrder.TotalAmount)
	if err != nil {
		return nil, errors.Wrap(err, "invalid total amount")
	}

	order := &domain.Order{
		ID:          id,
		CustomerID:  customerID,
		Items:       items,
		TotalAmount: models.NewMoney(total, pgOrder.Currency),
		Status:      domain.OrderStatus(pgOrder.Status),
		ShippingAddress: domain.Address{
			Street:  pgAddress.Street,
			City:    pgAddress.City,
			State:   pgAddress.State,
			ZipCode: pgAddress.ZipCode,
			Country: pgAddress.Country,
			Email:   pgAddress.Email,
		},
		PaymentMethod:  pgOrder.PaymentMethod,
		PaymentID:      pgOrder.PaymentID,
		TransactionID:  pgOrder.TransactionID,
		FailureReason:  pgOrder.FailureReason,
		ShipmentID:     pgOrder.ShipmentID,
		TrackingNumber: pgOrder.TrackingNumber,
		Carrier:        pgOrder.Carrier,
		DeliveredAt:    pgOrder.DeliveredAt,
		Timestamps: models.Timestamps{
			CreatedAt: pgOrder.CreatedAt,
			UpdatedAt: pgOrder.UpdatedAt,
		},
		Version: models.Version{Value: pgOrder.Version},
	}

	return order, nil
}
