package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"duemate/internal/domain"
)

// PaymentRepository define la persistencia de pagos. Toda consulta se limita al dueño.
type PaymentRepository interface {
	Create(ctx context.Context, payment domain.Payment) error
	GetByID(ctx context.Context, userID, id string) (domain.Payment, error)
	List(ctx context.Context, filter domain.PaymentFilter) (domain.PaymentPage, error)
	UpdateStatus(ctx context.Context, userID, id, status string) error
	Delete(ctx context.Context, userID, id string) error
	ListDue(ctx context.Context, before time.Time) ([]domain.DuePayment, error)
}

type PgPaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPgPaymentRepository(pool *pgxpool.Pool) *PgPaymentRepository {
	return &PgPaymentRepository{pool: pool}
}

// columnas permitidas para ORDER BY.
var paymentSortColumns = map[string]string{
	"deadline":     "deadline",
	"amount":       "amount",
	"payment_name": "payment_name",
	"status":       "status",
	"category":     "category",
}

const paymentColumns = `id, user_id, payment_name, COALESCE(description, ''), amount, category, deadline, status, created_at`

func (r *PgPaymentRepository) Create(ctx context.Context, p domain.Payment) error {
	const query = `
		INSERT INTO payments (id, user_id, payment_name, description, amount, category, deadline, status, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.Name,
		p.Description,
		p.Amount,
		p.Category,
		p.Deadline,
		p.Status,
		p.CreatedAt,
	)
	return err
}

func (r *PgPaymentRepository) GetByID(ctx context.Context, userID, id string) (domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND user_id = $2`
	return scanPayment(r.pool.QueryRow(ctx, query, id, userID))
}

func (r *PgPaymentRepository) List(ctx context.Context, f domain.PaymentFilter) (domain.PaymentPage, error) {
	where := []string{"user_id = $1"}
	args := []any{f.UserID}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, likePattern(f.Search))
		where = append(where, fmt.Sprintf(`(payment_name ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`, len(args), len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE `+cond, args...).Scan(&total); err != nil {
		return domain.PaymentPage{}, fmt.Errorf("count payments: %w", err)
	}

	column, ok := paymentSortColumns[f.SortBy]
	if !ok {
		column = "deadline"
	}
	order := "ASC"
	if f.SortOrder == "desc" {
		order = "DESC"
	}
	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE %s ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d`,
		paymentColumns, cond, column, order, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return domain.PaymentPage{}, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Payment, 0, f.PerPage)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return domain.PaymentPage{}, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return domain.PaymentPage{}, err
	}

	return domain.PaymentPage{Items: items, TotalCount: total, Page: f.Page, PerPage: f.PerPage}, nil
}

func (r *PgPaymentRepository) UpdateStatus(ctx context.Context, userID, id, status string) error {
	const query = `UPDATE payments SET status = $3 WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, userID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgPaymentRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM payments WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgPaymentRepository) ListDue(ctx context.Context, before time.Time) ([]domain.DuePayment, error) {
	const query = `
		SELECT p.id, p.user_id, p.payment_name, COALESCE(p.description, ''), p.amount, p.category,
		       p.deadline, p.status, p.created_at, COALESCE(u.email, ''), COALESCE(u.phone_number, '')
		FROM payments p
		JOIN users u ON u.id = p.user_id
		WHERE p.deadline <= $1 AND p.status IN ('pending', 'overdue')
		ORDER BY p.deadline ASC
	`
	rows, err := r.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("list due payments: %w", err)
	}
	defer rows.Close()

	var out []domain.DuePayment
	for rows.Next() {
		var d domain.DuePayment
		if err := rows.Scan(
			&d.ID,
			&d.UserID,
			&d.Name,
			&d.Description,
			&d.Amount,
			&d.Category,
			&d.Deadline,
			&d.Status,
			&d.CreatedAt,
			&d.OwnerEmail,
			&d.OwnerPhone,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern busca s como subcadena literal; sus comodines no cuentan.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Description,
		&p.Amount,
		&p.Category,
		&p.Deadline,
		&p.Status,
		&p.CreatedAt,
	)
	return p, err
}
