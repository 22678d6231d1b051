package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"duemate/internal/db"
	"duemate/internal/notify"
	"duemate/internal/repository"
	"duemate/internal/service"
)

var remindLeadTime time.Duration

func remindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Send reminders for payments due soon or overdue",
		Long: `Send one reminder per contact for every pending or overdue payment whose
deadline falls within the lead time. Meant to run from cron.

Examples:
  duematectl remind
  duematectl remind --lead-time 24h`,
		Args: cobra.NoArgs,
		RunE: runRemind,
	}
	cmd.Flags().DurationVar(&remindLeadTime, "lead-time", 0, "override REMINDER_LEAD_TIME")
	return cmd
}

func runRemind(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	leadTime := cfg.ReminderLeadTime
	if remindLeadTime > 0 {
		leadTime = remindLeadTime
	}

	reminders := service.NewReminderService(
		logger,
		repository.NewPgPaymentRepository(pool),
		notify.FromConfig(cfg, logger),
		leadTime,
	)
	report, err := reminders.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("reminder run finished",
		zap.Int("payments", report.Payments),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "payments: %d, sent: %d, failed: %d\n", report.Payments, report.Sent, report.Failed)
	return nil
}
