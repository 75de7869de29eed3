package storage

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/eugenenazirov/carrier-rates/internal/quoting"
)

var (
	// ErrInvalidCarrier indicates the carrier violates validation rules.
	ErrInvalidCarrier = errors.New("carrier needs a non-empty name and a positive price per parcel")
	// ErrCarrierNotFound is returned when a delete targets an unknown carrier.
	ErrCarrierNotFound = errors.New("carrier not found")
)

// Storage provides access to the configured carriers. Carriers are unique by
// lowercased name, and ListCarriers preserves insertion order: equally priced
// quotes tie-break on it, so the stores must not perturb it.
type Storage interface {
	ListCarriers(ctx context.Context) ([]quoting.Carrier, error)
	UpsertCarrier(ctx context.Context, carrier quoting.Carrier) error
	DeleteCarrier(ctx context.Context, name string) error
}

// carrierCode derives the case-insensitive identity of a carrier, which
// doubles as the service code on quotes.
func carrierCode(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validateCarrier(carrier quoting.Carrier) error {
	if strings.TrimSpace(carrier.Name) == "" || carrier.PricePerParcel <= 0 {
		return ErrInvalidCarrier
	}
	return nil
}

// MemoryStorage keeps carriers in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu       sync.RWMutex
	carriers []quoting.Carrier
	index    map[string]int
}

// NewMemoryStorage initialises an empty in-memory carrier store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{index: make(map[string]int)}
}

// ListCarriers returns a defensive copy of the carriers in insertion order.
func (s *MemoryStorage) ListCarriers(_ context.Context) ([]quoting.Carrier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]quoting.Carrier, len(s.carriers))
	copy(out, s.carriers)
	return out, nil
}

// UpsertCarrier validates and stores the carrier. Updating an existing
// carrier keeps its list position.
func (s *MemoryStorage) UpsertCarrier(_ context.Context, carrier quoting.Carrier) error {
	if err := validateCarrier(carrier); err != nil {
		return err
	}
	code := carrierCode(carrier.Name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if pos, ok := s.index[code]; ok {
		s.carriers[pos] = carrier
		return nil
	}
	s.index[code] = len(s.carriers)
	s.carriers = append(s.carriers, carrier)
	return nil
}

// DeleteCarrier removes the carrier matched case-insensitively by name.
func (s *MemoryStorage) DeleteCarrier(_ context.Context, name string) error {
	code := carrierCode(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[code]
	if !ok {
		return ErrCarrierNotFound
	}
	s.carriers = append(s.carriers[:pos:pos], s.carriers[pos+1:]...)
	delete(s.index, code)
	for c, i := range s.index {
		if i > pos {
			s.index[c] = i - 1
		}
	}
	return nil
}
