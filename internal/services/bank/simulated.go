package bank

import (
	"context"
	"fmt"
	"time"

	"parking-ticket-system/models"
	"parking-ticket-system/utils"
)

// Simulated captures every payment after a fixed delay. A fault hook lets
// the surrounding process make a capture fail.
type Simulated struct {
	delay time.Duration
	fault func(req *CaptureRequest) error
	now   func() time.Time
}

type SimulatedOption func(*Simulated)

// WithFault makes Capture return the hook's error, when non-nil, after the delay.
func WithFault(fault func(req *CaptureRequest) error) SimulatedOption {
	return func(s *Simulated) {
		s.fault = fault
	}
}

func WithClock(now func() time.Time) SimulatedOption {
	return func(s *Simulated) {
		s.now = now
	}
}

func NewSimulated(delay time.Duration, opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		delay: delay,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulated) Provider() Provider {
	return ProviderSimulated
}

func (s *Simulated) Capture(ctx context.Context, req *CaptureRequest) (*models.Receipt, error) {
	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("capture interrupted: %w", ctx.Err())
	case <-timer.C:
	}

	if s.fault != nil {
		if err := s.fault(req); err != nil {
			return nil, err
		}
	}

	code, err := utils.GenerateCode(6)
	if err != nil {
		return nil, fmt.Errorf("generate transaction id: %w", err)
	}

	return &models.Receipt{
		TransactionID: "SIM-" + code,
		Amount:        req.Amount,
		CapturedAt:    s.now(),
	}, nil
}
