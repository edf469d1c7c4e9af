package infrastructure

import (
	"context"
	"math/rand"
	"time"

	"github.com/globalbooks/fulfillment-system/payments-service/domain"
)

const (
	defaultApprovalRate = 0.9
	maxGatewayLatency   = 500 * time.Millisecond
)

var declineMessages = []string{
	"insufficient funds",
	"card declined by issuer",
	"card expired",
	"suspected fraud, transaction blocked",
}

// SimulatedGateway stands in for a real settlement provider. It approves
// a configurable fraction of charges after a short random delay. Safe
// for concurrent use; consumer workers share one instance.
type SimulatedGateway struct {
	approvalRate float64
}

// NewSimulatedGateway creates a gateway with the default approval rate
func NewSimulatedGateway() *SimulatedGateway {
	return NewSimulatedGatewayWithRate(defaultApprovalRate)
}

// NewSimulatedGatewayWithRate creates a gateway approving the given
// fraction of charges, 0 through 1
func NewSimulatedGatewayWithRate(approvalRate float64) *SimulatedGateway {
	return &SimulatedGateway{approvalRate: approvalRate}
}

// Charge simulates a settlement attempt
func (g *SimulatedGateway) Charge(ctx context.Context, payment *domain.Payment) (*domain.GatewayResult, error) {
	latency := time.Duration(rand.Int63n(int64(maxGatewayLatency)))
	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() >= g.approvalRate {
		return &domain.GatewayResult{
			Approved: false,
			Message:  declineMessages[rand.Intn(len(declineMessages))],
		}, nil
	}

	return &domain.GatewayResult{
		Approved:      true,
		TransactionID: domain.GenerateTransactionID(),
		Message:       "approved",
	}, nil
}
