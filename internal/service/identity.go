package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"duemate/internal/clock"
	"duemate/internal/domain"
	"duemate/internal/repository"
)

// IdentityResolver asocia un contacto con su usuario persistido.
type IdentityResolver struct {
	users repository.UserRepository
	clock clock.Clocker
}

func NewIdentityResolver(users repository.UserRepository, clk clock.Clocker) *IdentityResolver {
	if clk == nil {
		clk = clock.New()
	}
	return &IdentityResolver{users: users, clock: clk}
}

// Resolve nunca crea usuarios.
func (r *IdentityResolver) Resolve(ctx context.Context, contact domain.Contact) (domain.User, error) {
	user, err := r.lookup(ctx, contact)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}

// ResolveOrCreate devuelve el usuario del contacto, creándolo si no existe.
// Si otra petición lo crea en paralelo, se relee el registro ganador.
func (r *IdentityResolver) ResolveOrCreate(ctx context.Context, contact domain.Contact) (domain.User, error) {
	user, err := r.lookup(ctx, contact)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	user = domain.User{
		ID:        uuid.NewString(),
		CreatedAt: r.clock.Now(),
	}
	switch contact.Channel {
	case domain.ChannelEmail:
		user.Email = contact.Value
	case domain.ChannelPhone:
		user.PhoneNumber = contact.Value
	}
	if err := r.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return r.lookup(ctx, contact)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *IdentityResolver) lookup(ctx context.Context, contact domain.Contact) (domain.User, error) {
	switch contact.Channel {
	case domain.ChannelEmail:
		return r.users.GetByEmail(ctx, contact.Value)
	case domain.ChannelPhone:
		return r.users.GetByPhone(ctx, contact.Value)
	default:
		return domain.User{}, ErrInvalidContact
	}
}
