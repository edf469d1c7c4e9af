package application

import (
	"context"
	"time"

	"github.com/globalbooks/fulfillment-system/orders-service/domain"
	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/pkg/errors"
)

// CreateOrderItem is one requested line item. Prices come from the price
// resolver, never from the client.
type CreateOrderItem struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// CreateOrderAddress is the shipping destination for the order.
type CreateOrderAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
	Email   string `json:"email"`
}

// CreateOrderPaymentDetails carries instrument details forwarded to the
// payment request. Stored nowhere on the orders side.
type CreateOrderPaymentDetails struct {
	CardNumber     string `json:"cardNumber"`
	CardHolderName string `json:"cardHolderName"`
	ExpiryMonth    string `json:"expiryMonth"`
	ExpiryYear     string `json:"expiryYear"`
	CVV            string `json:"cvv"`
}

// CreateOrderCommand represents the command to create an order
type CreateOrderCommand struct {
	CustomerID      string                    `json:"customerId"`
	Items           []CreateOrderItem         `json:"items"`
	ShippingAddress CreateOrderAddress        `json:"shippingAddress"`
	PaymentMethod   string                    `json:"paymentMethod"`
	PaymentDetails  CreateOrderPaymentDetails `json:"paymentDetails"`
}

// CreateOrderResponse represents the response after creating an order
type CreateOrderResponse struct {
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	TotalAmount string `json:"totalAmount"`
}

// CreateOrder use case. Persists the order in PENDING, emits the payment
// request, then advances to PAYMENT_PENDING. The request is only emitted
// after the order row is durably stored.
type CreateOrder struct {
	orderRepository domain.OrderRepository
	priceResolver   domain.PriceResolver
	eventPublisher  events.Publisher
	logger          *logging.Logger
}

// NewCreateOrder creates a new CreateOrder use case
func NewCreateOrder(
	orderRepository domain.OrderRepository,
	priceResolver domain.PriceResolver,
	eventPublisher events.Publisher,
	logger *logging.Logger,
) *CreateOrder {
	return &CreateOrder{
		orderRepository: orderRepository,
		priceResolver:   priceResolver,
		eventPublisher:  eventPublisher,
		logger:          logger,
	}
}

// Execute executes the create order use case
func (uc *CreateOrder) Execute(ctx context.Context, cmd *CreateOrderCommand) (*CreateOrderResponse, error) {
	if err := uc.validateCommand(cmd); err != nil {
		return nil, errors.Wrap(err, "invalid command")
	}

	customerID, err := models.NewID(cmd.CustomerID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid customer ID")
	}

	items := make([]domain.OrderItem, len(cmd.Items))
	for i, item := range cmd.Items {
		price, err := uc.priceResolver.UnitPrice(ctx, item.ProductID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve price for %s", item.ProductID)
		}

		items[i] = domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   price,
		}
	}

	address := domain.Address{
		Street:  cmd.ShippingAddress.Street,
		City:    cmd.ShippingAddress.City,
		State:   cmd.ShippingAddress.State,
		ZipCode: cmd.ShippingAddress.ZipCode,
		Country: cmd.ShippingAddress.Country,
		Email:   cmd.ShippingAddress.Email,
	}

	order, err := domain.CreateOrder(customerID, items, address, cmd.PaymentMethod)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create order")
	}

	ctx = logging.WithCorrelationID(ctx, order.ID.String())

	if err := uc.orderRepository.Save(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to save order")
	}

	if err := uc.eventPublisher.Publish(ctx, order.Events()...); err != nil {
		return nil, errors.Wrap(err, "failed to publish order created event")
	}
	order.ClearEvents()

	uc.logger.Info(ctx, "order_created", "order persisted in PENDING",
		map[string]any{"total": order.TotalAmount.String()})

	paymentRequest := events.NewEvent(order.ID, events.PaymentRequestEvent, events.PaymentRequestMessage{
		OrderID:       order.ID.String(),
		CustomerID:    order.CustomerID.String(),
		Amount:        order.TotalAmount.Amount,
		Currency:      order.TotalAmount.Currency,
		PaymentMethod: order.PaymentMethod,
		PaymentDetails: events.PaymentDetailsMessage{
			CardNumber:     cmd.PaymentDetails.CardNumber,
			CardHolderName: cmd.PaymentDetails.CardHolderName,
			ExpiryMonth:    cmd.PaymentDetails.ExpiryMonth,
			ExpiryYear:     cmd.PaymentDetails.ExpiryYear,
			CVV:            cmd.PaymentDetails.CVV,
			Email:          cmd.ShippingAddress.Email,
		},
		Timestamp: time.Now(),
	}).WithCorrelationID(order.ID)

	if err := uc.eventPublisher.Publish(ctx, paymentRequest); err != nil {
		return nil, errors.Wrap(err, "failed to publish payment request")
	}

	if err := order.TransitionTo(domain.OrderStatusPaymentPending); err != nil {
		return nil, errors.Wrap(err, "failed to advance to payment pending")
	}

	if err := uc.orderRepository.Save(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to save order status")
	}

	if err := uc.eventPublisher.Publish(ctx, order.Events()...); err != nil {
		return nil, errors.Wrap(err, "failed to publish order status event")
	}
	order.ClearEvents()

	return &CreateOrderResponse{
		OrderID:     order.ID.String(),
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount.String(),
	}, nil
}

func (uc *CreateOrder) validateCommand(cmd *CreateOrderCommand) error {
	if cmd.CustomerID == "" {
		return errors.New("customer ID is required")
	}

	if len(cmd.Items) == 0 {
		return errors.New("at least one item is required")
	}

	for _, item := range cmd.Items {
		if item.ProductID == "" {
			return errors.New("item product ID is required")
		}
		if item.Quantity <= 0 {
			return errors.New("item quantity must be positive")
		}
	}

	if cmd.PaymentMethod == "" {
		return errors.New("payment method is required")
	}

	return nil
}
