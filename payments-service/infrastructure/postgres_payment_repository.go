package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/globalbooks/fulfillment-system/payments-service/domain"
	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PostgresPaymentRepository implements PaymentRepository using PostgreSQL
type PostgresPaymentRepository struct {
	db *sqlx.DB
}

// NewPostgresPaymentRepository creates a new PostgresPaymentRepository
func NewPostgresPaymentRepository(db *sqlx.DB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

// postgresPayment represents a payment in the database
type postgresPayment struct {
	ID            string     `db:"id"`
	OrderID       string     `db:"order_id"`
	CustomerID    string     `db:"customer_id"`
	Amount        string     `db:"amount"`
	Currency      string     `db:"currency"`
	PaymentMethod string     `db:"payment_method"`
	Status        string     `db:"status"`
	TransactionID string     `db:"transaction_id"`
	FailureReason string     `db:"failure_reason"`
	ProcessedAt   *time.Time `db:"processed_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	Version       int        `db:"version"`
}

// Save saves a payment to the database
func (r *PostgresPaymentRepository) Save(ctx context.Context, payment *domain.Payment) error {
	for _, event := range payment.Events() {
		if event.EventType == events.PaymentInitiatedEvent {
			return r.insertPayment(ctx, payment)
		}
	}
	return r.updatePayment(ctx, payment)
}

// insertPayment inserts a new payment
func (r *PostgresPaymentRepository) insertPayment(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, order_id, customer_id, amount, currency, payment_method,
			status, transaction_id, failure_reason, processed_at,
			created_at, updated_at, version
		) VALUES (
			:id, :order_id, :customer_id, :amount, :currency, :payment_method,
			:status, :transaction_id, :failure_reason, :processed_at,
			:created_at, :updated_at, :version
		)`

	if _, err := r.db.NamedExecContext(ctx, query, r.toPostgres(payment)); err != nil {
		return errors.Wrap(err, "failed to insert payment")
	}

	return nil
}

// updatePayment updates an existing payment with optimistic locking
func (r *PostgresPaymentRepository) updatePayment(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = :status, transaction_id = :transaction_id,
			failure_reason = :failure_reason, processed_at = :processed_at,
			updated_at = :updated_at, version = :version
		WHERE id = :id AND version = :old_version`

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":             payment.ID.String(),
		"status":         string(payment.Status),
		"transaction_id": payment.TransactionID,
		"failure_reason": payment.FailureReason,
		"processed_at":   payment.ProcessedAt,
		"updated_at":     payment.Timestamps.UpdatedAt,
		"version":        payment.Version.Value,
		"old_version":    payment.Version.Value - 1,
	})
	if err != nil {
		return errors.Wrap(err, "failed to update payment")
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return errors.Errorf("payment %s modified concurrently", payment.ID.String())
	}

	return nil
}

// FindByID finds a payment by ID
func (r *PostgresPaymentRepository) FindByID(ctx context.Context, id models.ID) (*domain.Payment, error) {
	query := `
		SELECT id, order_id, customer_id, amount, currency, payment_method,
			   status, transaction_id, failure_reason, processed_at,
			   created_at, updated_at, version
		FROM payments
		WHERE id = $1`

	var pgPayment postgresPayment
	err := r.db.GetContext(ctx, &pgPayment, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Payment not found
		}
		return nil, errors.Wrap(err, "failed to find payment")
	}

	return r.toDomain(&pgPayment)
}

// FindByOrderID finds the active payment for an order. Cancelled
// records do not count against the one-payment-per-order rule.
func (r *PostgresPaymentRepository) FindByOrderID(ctx context.Context, orderID models.ID) (*domain.Payment, error) {
	query := `
		SELECT id, order_id, customer_id, amount, currency, payment_method,
			   status, transaction_id, failure_reason, processed_at,
			   created_at, updated_at, version
		FROM payments
		WHERE order_id = $1 AND status != 'CANCELLED'
		ORDER BY created_at DESC
		LIMIT 1`

	var pgPayment postgresPayment
	err := r.db.GetContext(ctx, &pgPayment, query, orderID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find payment by order ID")
	}

	return r.toDomain(&pgPayment)
}

// FindByCustomerID finds payments by customer ID
func (r *PostgresPaymentRepository) FindByCustomerID(ctx context.Context, customerID models.ID) ([]*domain.Payment, error) {
	query := `
		SELECT id, order_id, customer_id, amount, currency, payment_method,
			   status, transaction_id, failure_reason, processed_at,
			   created_at, updated_at, version
		FROM payments
		WHERE customer_id = $1
		ORDER BY created_at DESC`

	var pgPayments []postgresPayment
	err := r.db.SelectContext(ctx, &pgPayments, query, customerID.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payments by customer ID")
	}

	payments := make([]*domain.Payment, len(pgPayments))
	for i, pgPayment := range pgPayments {
		payment, err := r.toDomain(&pgPayment)
		if err != nil {
			return nil, err
		}
		payments[i] = payment
	}

	return payments, nil
}

// toPostgres converts a domain payment to the postgres model
func (r *PostgresPaymentRepository) toPostgres(payment *domain.Payment) *postgresPayment {
	return &postgresPayment{
		ID:            payment.ID.String(),
		OrderID:       payment.OrderID.String(),
		CustomerID:    payment.CustomerID.String(),
		Amount:        payment.Amount.Amount.String(),
		Currency:      payment.Amount.Currency,
		PaymentMethod: payment.PaymentMethod,
		Status:        string(payment.Status),
		TransactionID: payment.TransactionID,
		FailureReason: payment.FailureReason,
		ProcessedAt:   payment.ProcessedAt,
		CreatedAt:     payment.Timestamps.CreatedAt,
		UpdatedAt:     payment.Timestamps.UpdatedAt,
		Version:       payment.Version.Value,
	}
}

// toDomain converts a postgres model to a domain payment
func (r *PostgresPaymentRepository) toDomain(pgPayment *postgresPayment) (*domain.Payment, error) {
	amount, err := decimal.NewFromString(pgPayment.Amount)
	if err != nil {
		return nil, errors.Wrap(err, "invalid payment amount")
	}

	return &domain.Payment{
		ID:            models.ID(pgPayment.ID),
		OrderID:       models.ID(pgPayment.OrderID),
		CustomerID:    models.ID(pgPayment.CustomerID),
		Amount:        models.NewMoney(amount, pgPayment.Currency),
		PaymentMethod: pgPayment.PaymentMethod,
		Status:        domain.PaymentStatus(pgPayment.Status),
		TransactionID: pgPayment.TransactionID,
		FailureReason: pgPayment.FailureReason,
		ProcessedAt:   pgPayment.ProcessedAt,
		Timestamps: models.Timestamps{
			CreatedAt: pgPayment.CreatedAt,
			UpdatedAt: pgPayment.UpdatedAt,
		},
		Version: models.Version{Value: pgPayment.Version},
	}, nil
}
