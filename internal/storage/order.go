package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/linemk/plugmarket-bot/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами.
// После ArchiveOrder заказ больше не виден через GetOrder и не может быть перезаписан.
type OrderStorage interface {
	// SaveOrder создаёт заказ или обновляет живой (не архивный) заказ.
	SaveOrder(ctx context.Context, order *models.Order) error
	// GetOrder возвращает живой заказ; архивный или неизвестный - ErrOrderNotFound.
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	// ArchiveOrder переносит заказ в архив.
	ArchiveOrder(ctx context.Context, id string) error
	// GetArchivedOrder ищет заказ только в архиве.
	GetArchivedOrder(ctx context.Context, id string) (*models.Order, error)
	// GetActiveOrder последний живой заказ покупателя по продуктовой линейке.
	GetActiveOrder(ctx context.Context, buyerID int64, product string) (*models.Order, error)
	// ListBuyerOrders живые заказы покупателя по всем линейкам, недавно изменённые первыми.
	ListBuyerOrders(ctx context.Context, buyerID int64) ([]*models.Order, error)
	// ListOrders все заказы (включая архив), у которых completed_at, а если его нет - created_at, попадает в [from, to).
	ListOrders(ctx context.Context, from, to time.Time) ([]*models.Order, error)
}

// orderRepository - реализация OrderStorage поверх PostgreSQL.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = `id, buyer_id, buyer_name, product, selection, quote, payment_method, proof_ref, delivery, status, created_at, updated_at, completed_at`

// SaveOrder вставляет заказ или обновляет изменяемые поля живого заказа.
func (r *orderRepository) SaveOrder(ctx context.Context, order *models.Order) error {
	selection, err := json.Marshal(order.Selection)
	if err != nil {
		return fmt.Errorf("failed to encode selection: %w", err)
	}
	quote, err := json.Marshal(order.Quote)
	if err != nil {
		return fmt.Errorf("failed to encode quote: %w", err)
	}
	delivery, err := json.Marshal(order.Delivery)
	if err != nil {
		return fmt.Errorf("failed to encode delivery: %w", err)
	}

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          ON CONFLICT (id) DO UPDATE SET
	              selection = EXCLUDED.selection,
	              quote = EXCLUDED.quote,
	              payment_method = EXCLUDED.payment_method,
	              proof_ref = EXCLUDED.proof_ref,
	              delivery = EXCLUDED.delivery,
	              status = EXCLUDED.status,
	              updated_at = EXCLUDED.updated_at,
	              completed_at = EXCLUDED.completed_at
	          WHERE orders.archived_at IS NULL`
	res, err := r.db.ExecContext(ctx, query,
		order.ID, order.BuyerID, order.BuyerName, order.Product,
		selection, quote, string(order.PaymentMethod), order.ProofRef, delivery,
		string(order.Status), order.CreatedAt, order.UpdatedAt, nullTime(order.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	// конфликт с архивной строкой
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// GetOrder возвращает заказ, если он ещё не в архиве.
func (r *orderRepository) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE id = $1 AND archived_at IS NULL"
	return scanOrder(r.db.QueryRowContext(ctx, query, id))
}

// ArchiveOrder помечает заказ архивным.
func (r *orderRepository) ArchiveOrder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE orders SET archived_at = NOW() WHERE id = $1 AND archived_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("failed to archive order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// GetArchivedOrder возвращает заказ из архива.
func (r *orderRepository) GetArchivedOrder(ctx context.Context, id string) (*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE id = $1 AND archived_at IS NOT NULL"
	return scanOrder(r.db.QueryRowContext(ctx, query, id))
}

// GetActiveOrder возвращает самый свежий живой заказ покупателя по линейке.
func (r *orderRepository) GetActiveOrder(ctx context.Context, buyerID int64, product string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE buyer_id = $1 AND product = $2 AND archived_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`
	return scanOrder(r.db.QueryRowContext(ctx, query, buyerID, product))
}

// ListBuyerOrders выбирает живые заказы покупателя.
func (r *orderRepository) ListBuyerOrders(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE buyer_id = $1 AND archived_at IS NULL
		ORDER BY updated_at DESC, created_at DESC`
	return r.queryOrders(ctx, query, buyerID)
}

// ListOrders выбирает заказы за период для отчёта.
func (r *orderRepository) ListOrders(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE COALESCE(completed_at, created_at) >= $1 AND COALESCE(completed_at, created_at) < $2
		ORDER BY created_at`
	return r.queryOrders(ctx, query, from, to)
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order                      models.Order
		selection, quote, delivery []byte
		paymentMethod, status      string
		completedAt                sql.NullTime
	)
	err := row.Scan(
		&order.ID, &order.BuyerID, &order.BuyerName, &order.Product,
		&selection, &quote, &paymentMethod, &order.ProofRef, &delivery,
		&status, &order.CreatedAt, &order.UpdatedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(selection, &order.Selection); err != nil {
		return nil, fmt.Errorf("failed to decode selection: %w", err)
	}
	if err := json.Unmarshal(quote, &order.Quote); err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}
	if len(delivery) > 0 {
		if err := json.Unmarshal(delivery, &order.Delivery); err != nil {
			return nil, fmt.Errorf("failed to decode delivery: %w", err)
		}
	}
	order.PaymentMethod = models.PaymentMethod(paymentMethod)
	order.Status = models.Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		order.CompletedAt = &t
	}
	return &order, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
