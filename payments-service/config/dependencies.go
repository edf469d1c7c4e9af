package config

import (
	"context"
	"fmt"

	"github.com/globalbooks/fulfillment-system/payments-service/application"
	"github.com/globalbooks/fulfillment-system/payments-service/handlers"
	"github.com/globalbooks/fulfillment-system/payments-service/infrastructure"
	sharedinfra "github.com/globalbooks/fulfillment-system/shared/infrastructure"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Dependencies struct {
	Logger *logging.Logger

	// Database
	DB *sqlx.DB

	// Repositories
	PaymentRepository *infrastructure.PostgresPaymentRepository

	// Gateway
	PaymentGateway *infrastructure.SimulatedGateway

	// Use Cases
	ProcessPaymentRequest *application.ProcessPaymentRequest
	GetPayment            *application.GetPayment
	GetPaymentByOrder     *application.GetPaymentByOrder
	ListPayments          *application.ListPayments
	RefundPayment         *application.RefundPayment
	CancelPayment         *application.CancelPayment
	RetryPayment          *application.RetryPayment

	// HTTP Handlers
	PaymentHandlers *handlers.PaymentHandlers

	// Event Handlers
	PaymentEventHandlers *handlers.PaymentEventHandlers

	// Infrastructure
	AMQPClient               *sharedinfra.AMQPClient
	EventPublisher           *sharedinfra.AMQPEventPublisher
	PaymentRequestSubscriber *sharedinfra.AMQPEventSubscriber
}

func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	deps := &Dependencies{}
	deps.Logger = logging.NewLogger(config.ServiceName)

	// Initialize database
	db, err := sqlx.Connect("postgres", config.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	deps.DB = db

	// Initialize broker connectivity, topology declared on connect
	client, err := sharedinfra.ConnectAMQP(ctx, config.AMQP.URL, deps.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	deps.AMQPClient = client
	deps.EventPublisher = sharedinfra.NewAMQPEventPublisher(client)

	// Initialize repositories and gateway
	deps.PaymentRepository = infrastructure.NewPostgresPaymentRepository(db)
	deps.PaymentGateway = infrastructure.NewSimulatedGatewayWithRate(config.Gateway.ApprovalRate)

	// Initialize use cases
	deps.ProcessPaymentRequest = application.NewProcessPaymentRequest(
		deps.PaymentRepository, deps.PaymentGateway, deps.EventPublisher, deps.Logger)
	deps.GetPayment = application.NewGetPayment(deps.PaymentRepository)
	deps.GetPaymentByOrder = application.NewGetPaymentByOrder(deps.PaymentRepository)
	deps.ListPayments = application.NewListPayments(deps.PaymentRepository)
	deps.RefundPayment = application.NewRefundPayment(deps.PaymentRepository, deps.EventPublisher, deps.Logger)
	deps.CancelPayment = application.NewCancelPayment(deps.PaymentRepository, deps.EventPublisher, deps.Logger)
	deps.RetryPayment = application.NewRetryPayment(
		deps.PaymentRepository, deps.EventPublisher, deps.ProcessPaymentRequest, deps.Logger)

	// Initialize handlers
	deps.PaymentHandlers = handlers.NewPaymentHandlers(
		deps.ProcessPaymentRequest,
		deps.GetPayment,
		deps.GetPaymentByOrder,
		deps.ListPayments,
		deps.RefundPayment,
		deps.CancelPayment,
		deps.RetryPayment,
	)
	deps.PaymentEventHandlers = handlers.NewPaymentEventHandlers(deps.ProcessPaymentRequest, deps.Logger)

	// Initialize subscribers
	deps.PaymentRequestSubscriber = sharedinfra.NewAMQPEventSubscriber(
		client, sharedinfra.PaymentRequestQueue, deps.PaymentEventHandlers, deps.Logger,
		sharedinfra.WithWorkers(config.AMQP.Workers),
		sharedinfra.WithPrefetch(config.AMQP.Prefetch),
	)

	return deps, nil
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.AMQPClient != nil {
		d.AMQPClient.Close()
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
