package application

import (
	"context"
	"time"

	"github.com/globalbooks/fulfillment-system/orders-service/domain"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// GetOrderQuery represents the query to get an order
type GetOrderQuery struct {
	OrderID string
}

// OrderItemView is one line item in an order response.
type OrderItemView struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderView is the read model returned by the HTTP surface.
type OrderView struct {
	OrderID        string          `json:"orderId"`
	CustomerID     string          `json:"customerId"`
	Status         string          `json:"status"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Currency       string          `json:"currency"`
	Items          []OrderItemView `json:"items"`
	PaymentID      string          `json:"paymentId,omitempty"`
	TransactionID  string          `json:"transactionId,omitempty"`
	FailureReason  string          `json:"failureReason,omitempty"`
	ShipmentID     string          `json:"shipmentId,omitempty"`
	TrackingNumber string          `json:"trackingNumber,omitempty"`
	Carrier        string          `json:"carrier,omitempty"`
	DeliveredAt    *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// GetOrder use case
type GetOrder struct {
	orderRepository domain.OrderRepository
}

// NewGetOrder creates a new GetOrder use case
func NewGetOrder(orderRepository domain.OrderRepository) *GetOrder {
	return &GetOrder{orderRepository: orderRepository}
}

// Execute executes the get order query
func (uc *GetOrder) Execute(ctx context.Context, query *GetOrderQuery) (*OrderView, error) {
	orderID, err := models.NewID(query.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	order, err := uc.orderRepository.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	return toOrderView(order), nil
}

// ListOrders use case returns one customer's orders.
type ListOrders struct {
	orderRepository domain.OrderRepository
}

// NewListOrders creates a new ListOrders use case
func NewListOrders(orderRepository domain.OrderRepository) *ListOrders {
	return &ListOrders{orderRepository: orderRepository}
}

// Execute executes the list orders query
func (uc *ListOrders) Execute(ctx context.Context, customerID string) ([]*OrderView, error) {
	id, err := models.NewID(customerID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid customer ID")
	}

	orders, err := uc.orderRepository.FindByCustomerID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}

	views := make([]*OrderView, len(orders))
	for i, order := range orders {
		views[i] = toOrderView(order)
	}

	return views, nil
}

func toOrderView(order *domain.Order) *OrderView {
	items := make([]OrderItemView, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemView{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Amount,
			Subtotal:    item.Subtotal().Amount,
		}
	}

	return &OrderView{
		OrderID:        order.ID.String(),
		CustomerID:     order.CustomerID.String(),
		Status:         string(order.Status),
		TotalAmount:    order.TotalAmount.Amount,
		Currency:       order.TotalAmount.Currency,
		Items:          items,
		PaymentID:      order.PaymentID,
		TransactionID:  order.TransactionID,
		FailureReason:  order.FailureReason,
		ShipmentID:     order.ShipmentID,
		TrackingNumber: order.TrackingNumber,
		Carrier:        order.Carrier,
		DeliveredAt:    order.DeliveredAt,
		CreatedAt:      order.Timestamps.CreatedAt,
		UpdatedAt:      order.Timestamps.UpdatedAt,
	}
}
