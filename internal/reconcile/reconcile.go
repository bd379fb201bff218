// Package reconcile compares what every worker accrued with what they were
// paid, month by month. Any missing input column aborts the run.
package reconcile

import (
	"context"
	"fmt"

	"timeledger/internal/core"
	"timeledger/internal/ledger"
	"timeledger/internal/log"
	"timeledger/internal/registry"
	"timeledger/internal/sheets"
)

const JobName = "reconcile"

type Config struct {
	Registry sheets.TableRef
	Ledger   sheets.TableRef
	Payments sheets.TableRef
	Report   sheets.TableRef
}

type Reconciler struct {
	store  sheets.Workbooks
	cfg    Config
	logger *log.Logger
}

func New(store sheets.Workbooks, cfg Config, logger *log.Logger) *Reconciler {
	return &Reconciler{store: store, cfg: cfg, logger: logger.WithComponent(log.ComponentReconciler)}
}

func (r *Reconciler) Name() string { return JobName }

func (r *Reconciler) Run(ctx context.Context) (core.RunStats, error) {
	var stats core.RunStats

	hidden, err := registry.LoadHiddenOwners(ctx, r.store, r.cfg.Registry)
	if err != nil {
		return stats, err
	}
	ledgerValues, err := r.store.ReadTable(ctx, r.cfg.Ledger)
	if err != nil {
		return stats, fmt.Errorf("read ledger: %w", err)
	}
	entries, err := ledger.Decode(ledgerValues, ledger.ColOwnerName, ledger.ColDate, ledger.ColTotalCost)
	if err != nil {
		return stats, err
	}
	paymentValues, err := r.store.ReadTable(ctx, r.cfg.Payments)
	if err != nil {
		return stats, fmt.Errorf("read payments: %w", err)
	}
	payments, rejected, err := ParsePayments(paymentValues)
	if err != nil {
		return stats, err
	}
	for _, re := range rejected {
		r.logger.Warn("payment row ignored", log.FieldSourceRow, re.Row, log.FieldError, re.Err.Error())
	}
	stats.Skipped = len(rejected)

	report := Build(entries, payments, hidden)
	if err := r.store.ReplaceTable(ctx, r.cfg.Report, report.Rows()); err != nil {
		return stats, fmt.Errorf("write report: %w", err)
	}
	if err := r.store.BoldRows(ctx, r.cfg.Report, report.BoldRows()); err != nil {
		return stats, fmt.Errorf("format report: %w", err)
	}
	stats.Written = len(report.Owners)
	r.logger.Info("master report written",
		log.FieldSheet, r.cfg.Report.Sheet,
		"owners", len(report.Owners),
		"months", len(report.Months),
		"hidden", len(hidden),
		log.FieldSkipped, stats.Skipped)
	return stats, nil
}
