package config

import (
	"context"
	"fmt"

	"github.com/globalbooks/fulfillment-system/orders-service/application"
	"github.com/globalbooks/fulfillment-system/orders-service/handlers"
	"github.com/globalbooks/fulfillment-system/orders-service/infrastructure"
	"github.com/globalbooks/fulfillment-system/shared/auth"
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
	OrderRepository *infrastructure.PostgresOrderRepository
	PriceResolver   *infrastructure.PostgresPriceResolver
	DeadLetterStore *sharedinfra.PostgresDeadLetterStore

	// Use Cases
	CreateOrder            *application.CreateOrder
	GetOrder               *application.GetOrder
	ListOrders             *application.ListOrders
	UpdateOrderStatus      *application.UpdateOrderStatus
	DeleteOrder            *application.DeleteOrder
	ProcessPaymentResponse *application.ProcessPaymentResponse
	ProcessShippingStatus  *application.ProcessShippingStatus

	// HTTP Handlers
	OrderHandlers      *handlers.OrderHandlers
	DeadLetterHandlers *handlers.DeadLetterHandlers

	// Event Handlers
	OrderEventHandlers *handlers.OrderEventHandlers

	// Auth
	Authenticator *auth.StaticAuthenticator

	// Infrastructure
	AMQPClient                *sharedinfra.AMQPClient
	EventPublisher            *sharedinfra.AMQPEventPublisher
	PaymentResponseSubscriber *sharedinfra.AMQPEventSubscriber
	ShippingStatusSubscriber  *sharedinfra.AMQPEventSubscriber
	DeadLetterConsumer        *sharedinfra.DeadLetterConsumer
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

	// Initialize repositories
	deps.OrderRepository = infrastructure.NewPostgresOrderRepository(db)
	deps.PriceResolver = infrastructure.NewPostgresPriceResolver(db)
	deps.DeadLetterStore = sharedinfra.NewPostgresDeadLetterStore(db)

	// Initialize use cases
	deps.CreateOrder = application.NewCreateOrder(deps.OrderRepository, deps.PriceResolver, deps.EventPublisher, deps.Logger)
	deps.GetOrder = application.NewGetOrder(deps.OrderRepository)
	deps.ListOrders = application.NewListOrders(deps.OrderRepository)
	deps.UpdateOrderStatus = application.NewUpdateOrderStatus(deps.OrderRepository, deps.EventPublisher, deps.Logger)
	deps.DeleteOrder = application.NewDeleteOrder(deps.OrderRepository, deps.Logger)
	deps.ProcessPaymentResponse = application.NewProcessPaymentResponse(deps.OrderRepository, deps.EventPublisher, deps.Logger)
	deps.ProcessShippingStatus = application.NewProcessShippingStatus(deps.OrderRepository, deps.EventPublisher, deps.Logger)

	// Initialize handlers
	deps.OrderHandlers = handlers.NewOrderHandlers(
		deps.CreateOrder,
		deps.GetOrder,
		deps.ListOrders,
		deps.UpdateOrderStatus,
		deps.DeleteOrder,
	)
	deps.DeadLetterHandlers = handlers.NewDeadLetterHandlers(deps.DeadLetterStore)
	deps.OrderEventHandlers = handlers.NewOrderEventHandlers(
		deps.ProcessPaymentResponse,
		deps.ProcessShippingStatus,
		deps.Logger,
	)

	deps.Authenticator = auth.NewStaticAuthenticator(buildCredentials(config.Auth))

	// Initialize subscribers
	deps.PaymentResponseSubscriber = sharedinfra.NewAMQPEventSubscriber(
		client, sharedinfra.PaymentResponseQueue, deps.OrderEventHandlers, deps.Logger,
		sharedinfra.WithWorkers(config.AMQP.Workers),
		sharedinfra.WithPrefetch(config.AMQP.Prefetch),
	)
	deps.ShippingStatusSubscriber = sharedinfra.NewAMQPEventSubscriber(
		client, sharedinfra.ShippingStatusQueue, deps.OrderEventHandlers, deps.Logger,
		sharedinfra.WithWorkers(config.AMQP.Workers),
		sharedinfra.WithPrefetch(config.AMQP.Prefetch),
	)
	deps.DeadLetterConsumer = sharedinfra.NewDeadLetterConsumer(client, deps.DeadLetterStore, deps.Logger)

	return deps, nil
}

func buildCredentials(credentials []Credential) map[string]auth.Credential {
	out := make(map[string]auth.Credential, len(credentials))
	for _, c := range credentials {
		role := auth.RoleCustomer
		if c.Role == string(auth.RoleAdmin) {
			role = auth.RoleAdmin
		}
		out[c.ID] = auth.Credential{Secret: c.Secret, Role: role}
	}
	return out
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
