package domain

import "time"

const (
	PaymentCategoryBills        = "bills"
	PaymentCategorySubscription = "subscription"
	PaymentCategoryLoan         = "loan"
	PaymentCategoryTax          = "tax"
	PaymentCategoryOther        = "other"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusOverdue   = "overdue"
	PaymentStatusCancelled = "cancelled"
)

// Payment es un recordatorio de pago que pertenece al usuario que lo creó.
type Payment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"payment_name"`
	Description string    `json:"description,omitempty"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Deadline    time.Time `json:"deadline"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsOverdue indica si la fecha límite ya pasó (comparando por día).
func (p Payment) IsOverdue(now time.Time) bool {
	y1, m1, d1 := now.UTC().Date()
	y2, m2, d2 := p.Deadline.UTC().Date()
	today := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	due := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return today.After(due)
}

// PaymentFilter describe el listado paginado de pagos de un usuario.
type PaymentFilter struct {
	UserID    string
	Status    string
	Category  string
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

// PaymentPage es una página de resultados junto con el total.
type PaymentPage struct {
	Items      []Payment
	TotalCount int
	Page       int
	PerPage    int
}

func (p PaymentPage) TotalPages() int {
	if p.PerPage <= 0 || p.TotalCount == 0 {
		return 0
	}
	return (p.TotalCount + p.PerPage - 1) / p.PerPage
}

func (p PaymentPage) HasNext() bool {
	return p.Page < p.TotalPages()
}

func (p PaymentPage) HasPrev() bool {
	return p.Page > 1
}

// DuePayment es un pago próximo a vencer junto con los datos de contacto del dueño.
type DuePayment struct {
	Payment
	OwnerEmail string
	OwnerPhone string
}
