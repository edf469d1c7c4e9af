package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShipment(t *testing.T) *Shipment {
	t.Helper()
	shipment, err := CreateShipment("ORD-TEST0001", "CUST-001",
		MethodStandard, decimal.RequireFromString("1.0"))
	require.NoError(t, err)
	shipment.ClearEvents()
	return shipment
}

func TestCreateShipment(t *testing.T) {
	before := time.Now()
	shipment, err := CreateShipment("ORD-TEST0001", "CUST-001",
		MethodStandard, decimal.RequireFromString("3.0"))
	require.NoError(t, err)

	assert.Equal(t, ShipmentStatusReadyToShip, shipment.Status)
	assert.Equal(t, DefaultCarrier, shipment.Carrier)
	assert.Equal(t, "14.00 USD", shipment.ShippingCost.String(),
		"STANDARD base 8.00 plus 3.0 weight at 2.00 per unit")

	estimated := shipment.EstimatedDelivery.Sub(before)
	assert.InDelta(t, (5 * 24 * time.Hour).Hours(), estimated.Hours(), 1)

	require.Len(t, shipment.Events(), 1)
	evt := shipment.Events()[0]
	assert.Equal(t, "shipping.status.ready_to_ship", evt.Topic.String())

	var msg events.ShippingStatusMessage
	require.NoError(t, evt.UnmarshalPayload(&msg))
	assert.Equal(t, "READY_TO_SHIP", msg.Status)
	assert.Equal(t, shipment.TrackingNumber, msg.TrackingNumber)
}

func TestCreateShipment_Validation(t *testing.T) {
	weight := decimal.RequireFromString("1.0")

	_, err := CreateShipment("", "CUST-001", MethodStandard, weight)
	assert.Error(t, err)

	_, err = CreateShipment("ORD-TEST0001", "", MethodStandard, weight)
	assert.Error(t, err)

	_, err = CreateShipment("ORD-TEST0001", "CUST-001", "DRONE", weight)
	assert.Error(t, err)

	_, err = CreateShipment("ORD-TEST0001", "CUST-001", MethodStandard, decimal.Zero)
	assert.Error(t, err)
}

func TestGenerateTrackingNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^GB\d{14}\d{4}$`)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		number := GenerateTrackingNumber()
		assert.Regexp(t, pattern, number)
		assert.False(t, seen[number], "tracking number %s issued twice", number)
		seen[number] = true
	}
}

func TestCost(t *testing.T) {
	tests := []struct {
		method ShippingMethod
		weight string
		want   string
	}{
		{MethodSameDay, "1.0", "27"},
		{MethodOvernight, "1.0", "22"},
		{MethodTwoDay, "1.0", "17"},
		{MethodExpress, "1.0", "14"},
		{MethodStandard, "3.0", "14"},
		{MethodEconomy, "0.5", "6"},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			got := Cost(tt.method, decimal.RequireFromString(tt.weight))
			assert.Equal(t, tt.want, got.Amount.String())
			assert.Equal(t, CostCurrency, got.Currency)
		})
	}
}

func TestEstimatedDelivery(t *testing.T) {
	from := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		method ShippingMethod
		want   time.Time
	}{
		{MethodSameDay, from.Add(8 * time.Hour)},
		{MethodOvernight, from.AddDate(0, 0, 1)},
		{MethodTwoDay, from.AddDate(0, 0, 2)},
		{MethodExpress, from.AddDate(0, 0, 3)},
		{MethodStandard, from.AddDate(0, 0, 5)},
		{MethodEconomy, from.AddDate(0, 0, 7)},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			assert.Equal(t, tt.want, EstimatedDelivery(tt.method, from))
		})
	}
}

func TestShipment_UpdateStatus(t *testing.T) {
	shipment := newTestShipment(t)

	for _, next := range []ShipmentStatus{
		ShipmentStatusPickedUp,
		ShipmentStatusInTransit,
		ShipmentStatusOutForDelivery,
		ShipmentStatusDelivered,
	} {
		require.NoError(t, shipment.UpdateStatus(next))
	}

	assert.Equal(t, ShipmentStatusDelivered, shipment.Status)
	require.NotNil(t, shipment.ShippedAt)
	require.NotNil(t, shipment.ActualDelivery)
	assert.Len(t, shipment.Events(), 4, "every stage broadcasts")

	topics := make([]string, len(shipment.Events()))
	for i, evt := range shipment.Events() {
		topics[i] = evt.Topic.String()
	}
	assert.Equal(t, []string{
		"shipping.status.picked_up",
		"shipping.status.in_transit",
		"shipping.status.out_for_delivery",
		"shipping.status.delivered",
	}, topics)
}

func TestShipment_UpdateStatus_Idempotent(t *testing.T) {
	shipment := newTestShipment(t)

	version := shipment.Version.Value
	require.NoError(t, shipment.UpdateStatus(ShipmentStatusReadyToShip))
	assert.Empty(t, shipment.Events())
	assert.Equal(t, version, shipment.Version.Value)
}

func TestShipment_UpdateStatus_Unknown(t *testing.T) {
	shipment := newTestShipment(t)
	assert.Error(t, shipment.UpdateStatus("TELEPORTED"))
}

func TestShipment_Cancel(t *testing.T) {
	t.Run("before pickup", func(t *testing.T) {
		shipment := newTestShipment(t)
		require.NoError(t, shipment.Cancel())
		assert.Equal(t, ShipmentStatusCancelled, shipment.Status)
	})

	t.Run("after pickup refused", func(t *testing.T) {
		shipment := newTestShipment(t)
		require.NoError(t, shipment.UpdateStatus(ShipmentStatusPickedUp))
		assert.Error(t, shipment.Cancel())
		assert.Equal(t, ShipmentStatusPickedUp, shipment.Status)
	})
}
