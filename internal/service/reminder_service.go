package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"duemate/internal/clock"
	"duemate/internal/domain"
	"duemate/internal/logger"
	"duemate/internal/notify"
	"duemate/internal/repository"
)

type ReminderReport struct {
	Payments int
	Sent     int
	Failed   int
}

// ReminderService avisa a los dueños de pagos que vencen dentro del plazo
// configurado, por correo y por SMS según los contactos que tengan.
type ReminderService struct {
	logger      *zap.Logger
	payments    repository.PaymentRepository
	gateway     notify.Gateway
	clock       clock.Clocker
	leadTime    time.Duration
	sendTimeout time.Duration
	concurrency int
}

func NewReminderService(logger *zap.Logger, payments repository.PaymentRepository, gateway notify.Gateway, leadTime time.Duration) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if leadTime <= 0 {
		leadTime = 48 * time.Hour
	}
	return &ReminderService{
		logger:      logger,
		payments:    payments,
		gateway:     gateway,
		clock:       clock.New(),
		leadTime:    leadTime,
		sendTimeout: 10 * time.Second,
		concurrency: 4,
	}
}

func (s *ReminderService) WithClock(c clock.Clocker) *ReminderService {
	if c != nil {
		s.clock = c
	}
	return s
}

// Run ejecuta una pasada. Un envío fallido no detiene el resto.
func (s *ReminderService) Run(ctx context.Context) (ReminderReport, error) {
	now := s.clock.Now()
	due, err := s.payments.ListDue(ctx, now.Add(s.leadTime))
	if err != nil {
		return ReminderReport{}, fmt.Errorf("list due payments: %w", err)
	}

	messages := lo.FlatMap(due, func(d domain.DuePayment, _ int) []notify.Message {
		var out []notify.Message
		if d.OwnerEmail != "" {
			out = append(out, notify.ReminderMessage(domain.ChannelEmail, d.OwnerEmail, d.Payment, now))
		}
		if d.OwnerPhone != "" {
			out = append(out, notify.ReminderMessage(domain.ChannelPhone, d.OwnerPhone, d.Payment, now))
		}
		return out
	})

	var sent, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, msg := range messages {
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(gctx, s.sendTimeout)
			defer cancel()
			if err := s.gateway.Send(sendCtx, msg); err != nil {
				failed.Add(1)
				s.logger.Warn("reminder delivery failed",
					zap.String("channel", string(msg.Channel)),
					zap.String("to", logger.MaskContact(msg.To)),
					zap.Error(err),
				)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	report := ReminderReport{Payments: len(due), Sent: int(sent.Load()), Failed: int(failed.Load())}
	s.logger.Info("reminder sweep finished",
		zap.Int("payments", report.Payments),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
