package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wire contracts exchanged between the fulfillment services. Field names
// are camelCase on the wire and must not change between releases.

// OrderItemMessage is a line item inside an order event.
type OrderItemMessage struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// OrderEventMessage is published on order.created and order.status.
type OrderEventMessage struct {
	EventID     string             `json:"eventId"`
	EventType   string             `json:"eventType"`
	OrderID     string             `json:"orderId"`
	CustomerID  string             `json:"customerId"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	Currency    string             `json:"currency"`
	Status      string             `json:"status"`
	Items       []OrderItemMessage `json:"items,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// PaymentDetailsMessage carries the instrument details for a payment request.
// Card fields are only set for card payment methods.
type PaymentDetailsMessage struct {
	CardNumber     string `json:"cardNumber,omitempty"`
	CardHolderName string `json:"cardHolderName,omitempty"`
	ExpiryMonth    string `json:"expiryMonth,omitempty"`
	ExpiryYear     string `json:"expiryYear,omitempty"`
	CVV            string `json:"cvv,omitempty"`
	Email          string `json:"email,omitempty"`
}

// PaymentRequestMessage is published by Orders on payment.request.
type PaymentRequestMessage struct {
	OrderID        string                `json:"orderId"`
	CustomerID     string                `json:"customerId"`
	Amount         decimal.Decimal       `json:"amount"`
	Currency       string                `json:"currency"`
	PaymentMethod  string                `json:"paymentMethod"`
	PaymentDetails PaymentDetailsMessage `json:"paymentDetails"`
	Timestamp      time.Time             `json:"timestamp"`
}

// PaymentResponseMessage is published by Payments on payment.response,
// exactly once per processed request, success or failure.
type PaymentResponseMessage struct {
	PaymentID     string          `json:"paymentId"`
	OrderID       string          `json:"orderId"`
	CustomerID    string          `json:"customerId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transactionId,omitempty"`
	Message       string          `json:"message,omitempty"`
	ProcessedAt   time.Time       `json:"processedAt"`
}

// PaymentStatusMessage is broadcast on payment.status.<status>.
type PaymentStatusMessage struct {
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	PaymentID  string          `json:"paymentId"`
	OrderID    string          `json:"orderId"`
	CustomerID string          `json:"customerId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
	Message    string          `json:"message,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// ShippingStatusMessage is broadcast on shipping.status.<status>.
type ShippingStatusMessage struct {
	ShipmentID        string    `json:"shipmentId"`
	OrderID           string    `json:"orderId"`
	CustomerID        string    `json:"customerId"`
	Status            string    `json:"status"`
	TrackingNumber    string    `json:"trackingNumber,omitempty"`
	Carrier           string    `json:"carrier,omitempty"`
	EstimatedDelivery time.Time `json:"estimatedDelivery,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Event type discriminators carried inside message bodies.
const (
	EventTypeOrderCreated     = "ORDER_CREATED"
	EventTypeOrderStatus      = "ORDER_STATUS_CHANGED"
	EventTypePaymentInitiated = "PAYMENT_INITIATED"
	EventTypePaymentCompleted = "PAYMENT_COMPLETED"
	EventTypePaymentFailed    = "PAYMENT_FAILED"
	EventTypePaymentCancelled = "PAYMENT_CANCELLED"
	EventTypePaymentRefunded  = "PAYMENT_REFUNDED"
)
