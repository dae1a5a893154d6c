package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linemk/plugmarket-bot/internal/domain/models"
)

// MemoryStorage хранит заказы в памяти процесса.
// Наружу всегда отдаются копии, чтобы вызывающий не мог изменить заказ в обход SaveOrder.
type MemoryStorage struct {
	mu       sync.RWMutex
	live     map[string]*models.Order
	archived map[string]*models.Order
}

var _ OrderStorage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		live:     make(map[string]*models.Order),
		archived: make(map[string]*models.Order),
	}
}

func (s *MemoryStorage) SaveOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.archived[order.ID]; ok {
		return ErrOrderNotFound
	}
	s.live[order.ID] = order.Clone()
	return nil
}

func (s *MemoryStorage) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.live[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order.Clone(), nil
}

func (s *MemoryStorage) ArchiveOrder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.live[id]
	if !ok {
		return ErrOrderNotFound
	}
	delete(s.live, id)
	s.archived[id] = order
	return nil
}

func (s *MemoryStorage) GetArchivedOrder(ctx context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.archived[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order.Clone(), nil
}

func (s *MemoryStorage) GetActiveOrder(ctx context.Context, buyerID int64, product string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.Order
	for _, order := range s.live {
		if order.BuyerID != buyerID || order.Product != product {
			continue
		}
		if found == nil || order.CreatedAt.After(found.CreatedAt) {
			found = order
		}
	}
	if found == nil {
		return nil, ErrOrderNotFound
	}
	return found.Clone(), nil
}

func (s *MemoryStorage) ListBuyerOrders(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var orders []*models.Order
	for _, order := range s.live {
		if order.BuyerID == buyerID {
			orders = append(orders, order.Clone())
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return orders, nil
}

func (s *MemoryStorage) ListOrders(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var orders []*models.Order
	for _, set := range []map[string]*models.Order{s.live, s.archived} {
		for _, order := range set {
			at := order.CreatedAt
			if order.CompletedAt != nil {
				at = *order.CompletedAt
			}
			if !at.Before(from) && at.Before(to) {
				orders = append(orders, order.Clone())
			}
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}
