package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"duemate/internal/logger"
)

// RecordingGateway guarda los mensajes en memoria en lugar de enviarlos (modo demo).
type RecordingGateway struct {
	mu     sync.Mutex
	logger *zap.Logger
	sent   []Message
}

func NewRecordingGateway(log *zap.Logger) *RecordingGateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecordingGateway{logger: log}
}

func (g *RecordingGateway) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return ErrNoRecipient
	}
	g.mu.Lock()
	g.sent = append(g.sent, msg)
	g.mu.Unlock()

	g.logger.Info("demo notification recorded",
		zap.String("channel", string(msg.Channel)),
		zap.String("to", logger.MaskContact(msg.To)),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// Sent devuelve una copia de los mensajes registrados.
func (g *RecordingGateway) Sent() []Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Message, len(g.sent))
	copy(out, g.sent)
	return out
}

// Last devuelve el último mensaje enviado a to.
func (g *RecordingGateway) Last(to string) (Message, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.sent) - 1; i >= 0; i-- {
		if g.sent[i].To == to {
			return g.sent[i], true
		}
	}
	return Message{}, false
}
