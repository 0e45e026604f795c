package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ventero-erp/ventero/internal/receivables"
)

// OverdueScanJob walks open receivables past their due date and logs a
// summary, then refreshes the report cache so the dashboards pick up fresh
// numbers. It never mutates accounts; status stays derived from balances.
type OverdueScanJob struct {
	Service *receivables.Service
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewOverdueScanJob initialises the overdue scan handler.
func NewOverdueScanJob(service *receivables.Service, logger *slog.Logger) *OverdueScanJob {
	return &OverdueScanJob{
		Service: service,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the overdue scan.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload OverdueScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.DueSoonDays <= 0 {
		payload.DueSoonDays = 7
	}

	asOf := j.clock().AddDate(0, 0, -payload.GraceDays)
	logger := j.Logger.With(slog.String("task", TaskOverdueScan))
	logger.Info("starting overdue scan", slog.Time("as_of", asOf))

	overdue, err := j.Service.Overdue(ctx, asOf)
	if err != nil {
		logger.Error("overdue scan failed", slog.Any("error", err))
		return err
	}

	var outstanding float64
	for _, acc := range overdue {
		outstanding += acc.OutstandingBalance
		logger.Warn("receivable overdue",
			slog.String("invoice", acc.InvoiceNumber),
			slog.String("client", acc.ClientName),
			slog.Int("days_overdue", acc.DaysOverdue),
			slog.Float64("outstanding", acc.OutstandingBalance),
		)
	}

	dueSoon, err := j.Service.DueSoon(ctx, payload.DueSoonDays)
	if err != nil {
		logger.Error("due soon lookup failed", slog.Any("error", err))
		return err
	}

	logger.Info("overdue scan complete",
		slog.Int("overdue_accounts", len(overdue)),
		slog.Float64("overdue_outstanding", outstanding),
		slog.Int("due_soon_accounts", len(dueSoon)),
	)
	return nil
}

// AgingWarmupJob rebuilds the aging report so the first dashboard hit of the
// day is served from cache.
type AgingWarmupJob struct {
	Service *receivables.Service
	Logger  *slog.Logger
}

// NewAgingWarmupJob initialises the warmup handler.
func NewAgingWarmupJob(service *receivables.Service, logger *slog.Logger) *AgingWarmupJob {
	return &AgingWarmupJob{Service: service, Logger: logger}
}

// Handle executes the warmup.
func (j *AgingWarmupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("aging warmup: handler not configured")
	}
	report, err := j.Service.Aging(ctx, time.Now().UTC())
	if err != nil {
		j.Logger.Error("aging warmup failed", slog.Any("error", err))
		return err
	}
	j.Logger.Info("aging cache warmed",
		slog.Int("clients", len(report.ByClient)),
		slog.Float64("total_outstanding", report.Buckets.Total()),
	)
	return nil
}
