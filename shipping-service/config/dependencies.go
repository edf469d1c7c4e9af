package config

import (
	"context"
	"fmt"

	sharedinfra "github.com/globalbooks/fulfillment-system/shared/infrastructure"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shipping-service/application"
	"github.com/globalbooks/fulfillment-system/shipping-service/handlers"
	"github.com/globalbooks/fulfillment-system/shipping-service/infrastructure"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Dependencies struct {
	Logger *logging.Logger

	// Database
	DB *sqlx.DB

	// Repositories
	ShipmentRepository *infrastructure.PostgresShipmentRepository

	// Use Cases
	CreateShipment       *application.CreateShipment
	ProcessPaymentStatus *application.ProcessPaymentStatus
	UpdateShipmentStatus *application.UpdateShipmentStatus
	CancelShipment       *application.CancelShipment
	GetShipment          *application.GetShipment
	TrackShipment        *application.TrackShipment
	ListShipments        *application.ListShipments

	// HTTP Handlers
	ShipmentHandlers *handlers.ShipmentHandlers

	// Event Handlers
	ShipmentEventHandlers *handlers.ShipmentEventHandlers

	// Infrastructure
	AMQPClient              *sharedinfra.AMQPClient
	EventPublisher          *sharedinfra.AMQPEventPublisher
	PaymentStatusSubscriber *sharedinfra.AMQPEventSubscriber
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
	deps.ShipmentRepository = infrastructure.NewPostgresShipmentRepository(db)

	// Initialize use cases
	deps.CreateShipment = application.NewCreateShipment(
		deps.ShipmentRepository, deps.EventPublisher, deps.Logger)
	deps.ProcessPaymentStatus = application.NewProcessPaymentStatus(deps.CreateShipment, deps.Logger)
	deps.UpdateShipmentStatus = application.NewUpdateShipmentStatus(
		deps.ShipmentRepository, deps.EventPublisher, deps.Logger)
	deps.CancelShipment = application.NewCancelShipment(deps.UpdateShipmentStatus)
	deps.GetShipment = application.NewGetShipment(deps.ShipmentRepository)
	deps.TrackShipment = application.NewTrackShipment(deps.ShipmentRepository)
	deps.ListShipments = application.NewListShipments(deps.ShipmentRepository)

	// Initialize handlers
	deps.ShipmentHandlers = handlers.NewShipmentHandlers(
		deps.CreateShipment,
		deps.GetShipment,
		deps.TrackShipment,
		deps.ListShipments,
		deps.UpdateShipmentStatus,
		deps.CancelShipment,
	)
	deps.ShipmentEventHandlers = handlers.NewShipmentEventHandlers(deps.ProcessPaymentStatus, deps.Logger)

	// Initialize subscribers
	deps.PaymentStatusSubscriber = sharedinfra.NewAMQPEventSubscriber(
		client, sharedinfra.PaymentStatusQueue, deps.ShipmentEventHandlers, deps.Logger,
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
