package notify

import (
	"context"
	"errors"
)

type disabledGateway struct {
	reason string
}

// NewDisabledGateway devuelve un gateway que siempre falla con reason.
func NewDisabledGateway(reason string) Gateway {
	return &disabledGateway{reason: reason}
}

func (g *disabledGateway) Send(_ context.Context, _ Message) error {
	if g.reason == "" {
		return errors.New("notification gateway disabled")
	}
	return errors.New(g.reason)
}
