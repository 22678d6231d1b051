package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"duemate/internal/clock"
	"duemate/internal/domain"
	"duemate/internal/repository"
)

var (
	ErrInvalidPayment  = errors.New("invalid payment")
	ErrPaymentNotFound = errors.New("payment not found")
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

type CreatePaymentInput struct {
	UserID      string    `validate:"required"`
	Name        string    `validate:"min=2,max=50"`
	Description string    `validate:"omitempty,min=1,max=300"`
	Amount      float64   `validate:"gt=0,lte=10000000"`
	Category    string    `validate:"oneof=bills subscription loan tax other"`
	Deadline    time.Time `validate:"required"`
	Status      string    `validate:"oneof=pending paid overdue cancelled"`
}

type listPaymentsQuery struct {
	Status    string `validate:"omitempty,oneof=pending paid overdue cancelled"`
	Category  string `validate:"omitempty,oneof=bills subscription loan tax other"`
	Search    string `validate:"max=100"`
	SortBy    string `validate:"oneof=deadline amount payment_name status category"`
	SortOrder string `validate:"oneof=asc desc"`
}

// StatusChange describe el resultado de un cambio de estado.
type StatusChange struct {
	Payment        domain.Payment
	PreviousStatus string
	Changed        bool
}

type PaymentService struct {
	logger   *zap.Logger
	payments repository.PaymentRepository
	validate *validator.Validate
	clock    clock.Clocker
}

func NewPaymentService(logger *zap.Logger, payments repository.PaymentRepository, v *validator.Validate) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if v == nil {
		v = validator.New()
	}
	return &PaymentService{
		logger:   logger,
		payments: payments,
		validate: v,
		clock:    clock.New(),
	}
}

func (s *PaymentService) WithClock(c clock.Clocker) *PaymentService {
	if c != nil {
		s.clock = c
	}
	return s
}

func (s *PaymentService) Create(ctx context.Context, in CreatePaymentInput) (domain.Payment, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if in.Category == "" {
		in.Category = domain.PaymentCategoryOther
	}
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	if in.Status == "" {
		in.Status = domain.PaymentStatusPending
	}
	if err := s.validate.Struct(in); err != nil {
		return domain.Payment{}, fmt.Errorf("%w: %s", ErrInvalidPayment, describeValidation(err))
	}

	p := domain.Payment{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Name:        in.Name,
		Description: in.Description,
		Amount:      in.Amount,
		Category:    in.Category,
		Deadline:    in.Deadline.UTC(),
		Status:      in.Status,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.payments.Create(ctx, p); err != nil {
		s.logger.Error("create payment failed", zap.String("user_id", in.UserID), zap.Error(err))
		return domain.Payment{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return p, nil
}

// List normaliza paginación y orden antes de consultar. per_page se recorta a 100.
func (s *PaymentService) List(ctx context.Context, f domain.PaymentFilter) (domain.PaymentPage, error) {
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	f.Search = strings.TrimSpace(f.Search)
	f.SortBy = strings.TrimSpace(f.SortBy)
	if f.SortBy == "" {
		f.SortBy = "deadline"
	}
	f.SortOrder = strings.ToLower(strings.TrimSpace(f.SortOrder))
	if f.SortOrder == "" {
		f.SortOrder = "asc"
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = defaultPerPage
	}
	if f.PerPage > maxPerPage {
		f.PerPage = maxPerPage
	}

	q := listPaymentsQuery{
		Status:    f.Status,
		Category:  f.Category,
		Search:    f.Search,
		SortBy:    f.SortBy,
		SortOrder: f.SortOrder,
	}
	if err := s.validate.Struct(q); err != nil {
		return domain.PaymentPage{}, fmt.Errorf("%w: %s", ErrInvalidPayment, describeValidation(err))
	}

	page, err := s.payments.List(ctx, f)
	if err != nil {
		return domain.PaymentPage{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return page, nil
}

func (s *PaymentService) UpdateStatus(ctx context.Context, userID, id, status string) (StatusChange, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if err := s.validate.Var(status, "required,oneof=pending paid overdue cancelled"); err != nil {
		return StatusChange{}, fmt.Errorf("%w: status must be one of pending, paid, overdue, cancelled", ErrInvalidPayment)
	}
	current, err := s.get(ctx, userID, id)
	if err != nil {
		return StatusChange{}, err
	}
	change := StatusChange{Payment: current, PreviousStatus: current.Status}
	if current.Status == status {
		return change, nil
	}
	if err := s.payments.UpdateStatus(ctx, userID, id, status); err != nil {
		return StatusChange{}, mapPaymentError(err)
	}
	change.Payment.Status = status
	change.Changed = true
	return change, nil
}

// Delete devuelve el pago eliminado.
func (s *PaymentService) Delete(ctx context.Context, userID, id string) (domain.Payment, error) {
	current, err := s.get(ctx, userID, id)
	if err != nil {
		return domain.Payment{}, err
	}
	if err := s.payments.Delete(ctx, userID, id); err != nil {
		return domain.Payment{}, mapPaymentError(err)
	}
	s.logger.Info("payment deleted", zap.String("user_id", userID), zap.String("payment_id", id))
	return current, nil
}

func (s *PaymentService) get(ctx context.Context, userID, id string) (domain.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Payment{}, ErrPaymentNotFound
	}
	p, err := s.payments.GetByID(ctx, userID, id)
	if err != nil {
		return domain.Payment{}, mapPaymentError(err)
	}
	return p, nil
}

func mapPaymentError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPaymentNotFound
	}
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must have at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
