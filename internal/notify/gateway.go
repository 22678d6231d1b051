package notify

import (
	"context"
	"errors"
	"fmt"

	"duemate/internal/domain"
)

// Message es el contenido a entregar a un correo o teléfono.
type Message struct {
	Channel domain.Channel
	To      string
	Subject string
	Text    string
}

// Gateway envía un mensaje a su destino. Cualquier error es un fallo de entrega.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}

var (
	ErrNoRecipient        = errors.New("recipient is required")
	ErrUnsupportedChannel = errors.New("unsupported channel")
)

// Router despacha cada mensaje al gateway de su canal.
type Router struct {
	email Gateway
	sms   Gateway
}

func NewRouter(email, sms Gateway) *Router {
	return &Router{email: email, sms: sms}
}

func (r *Router) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	var target Gateway
	switch msg.Channel {
	case domain.ChannelEmail:
		target = r.email
	case domain.ChannelPhone:
		target = r.sms
	}
	if target == nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedChannel, msg.Channel)
	}
	return target.Send(ctx, msg)
}
