package bank

import (
	"context"
	"fmt"
	"time"

	"parking-ticket-system/models"
	"parking-ticket-system/utils"
)

type Config struct {
	Provider Provider
	Delay    time.Duration
	Breaker  utils.BreakerSettings
}

// NewGateway builds the configured gateway behind a circuit breaker.
func NewGateway(cfg Config, opts ...SimulatedOption) (*Guarded, error) {
	switch cfg.Provider {
	case ProviderSimulated, "":
		gw := NewSimulated(cfg.Delay, opts...)
		return NewGuarded(gw, utils.NewCircuitBreaker(string(ProviderSimulated), cfg.Breaker)), nil

	default:
		return nil, fmt.Errorf("unsupported payment provider: %s", cfg.Provider)
	}
}

// Guarded sends captures through a circuit breaker. While the breaker is
// open captures fail fast without reaching the gateway.
type Guarded struct {
	gateway Gateway
	breaker *utils.CircuitBreaker
}

func NewGuarded(gateway Gateway, breaker *utils.CircuitBreaker) *Guarded {
	return &Guarded{gateway: gateway, breaker: breaker}
}

func (g *Guarded) Provider() Provider {
	return g.gateway.Provider()
}

func (g *Guarded) Capture(ctx context.Context, req *CaptureRequest) (*models.Receipt, error) {
	var receipt *models.Receipt
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		r, err := g.gateway.Capture(ctx, req)
		receipt = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (g *Guarded) BreakerState() utils.State {
	return g.breaker.State()
}
