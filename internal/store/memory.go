package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"parking-ticket-system/internal/status"
	"parking-ticket-system/models"
	"parking-ticket-system/utils"
)

// MemoryStore keeps tickets in process memory. It backs the "memory" store
// backend and the service tests.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]*models.Ticket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[string]*models.Ticket)}
}

func (s *MemoryStore) Insert(_ context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := cloneTicket(ticket)
	if t.ID == "" {
		id, err := utils.GenerateID(15)
		if err != nil {
			return nil, &status.StoreError{Op: "insert", Err: err}
		}
		t.ID = id
	}
	if _, exists := s.tickets[t.ID]; exists {
		return nil, &status.StoreError{Op: "insert", Err: fmt.Errorf("duplicate ticket id %s", t.ID)}
	}

	s.tickets[t.ID] = t
	return cloneTicket(t), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrTicketNotFound, id)
	}
	return cloneTicket(t), nil
}

func (s *MemoryStore) UpdatePayment(_ context.Context, id string, expected models.PaymentStatus, patch PaymentPatch) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrTicketNotFound, id)
	}
	if t.PaymentStatus != expected {
		return nil, &status.InvalidStateError{TicketID: id, Current: t.PaymentStatus}
	}

	s.tickets[id] = applyPatch(t, patch)
	return cloneTicket(s.tickets[id]), nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Ticket{}
	for _, t := range s.tickets {
		if q.Matches(t) {
			out = append(out, *cloneTicket(t))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})
	return out, nil
}
