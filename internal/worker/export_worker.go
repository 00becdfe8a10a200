// Package worker turns expense change events into ledger exports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"spendlens/internal/amqp"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/query"
	"spendlens/internal/sheets"
	"spendlens/internal/store"
)

// Consumer delivers expense events to a handler until ctx ends.
type Consumer interface {
	Consume(ctx context.Context, handle amqp.Handler) error
}

// ExportWorker rewrites an owner's ledger whenever one of their expenses
// changes. Owners whose export failed are retried on the next sweep.
type ExportWorker struct {
	store  store.ExpenseStore
	ledger sheets.LedgerWriter
	logger *log.Logger

	mu      sync.Mutex
	pending map[string]struct{}

	exported atomic.Int64
	failed   atomic.Int64
}

func NewExportWorker(s store.ExpenseStore, ledger sheets.LedgerWriter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportWorker{
		store:   s,
		ledger:  ledger,
		logger:  logger.WithComponent(log.ComponentWorker),
		pending: make(map[string]struct{}),
	}
}

// HandleEvent exports the ledger of the event's owner. It matches
// amqp.Handler; a returned error requeues the message.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev amqp.ExpenseEvent) error {
	if ev.OwnerID == "" {
		w.logger.WarnContext(ctx, "Ignoring event without owner",
			log.FieldEventType, ev.Type, log.FieldExpenseID, ev.ExpenseID)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing expense event",
		log.FieldEventType, ev.Type,
		log.FieldOwnerID, ev.OwnerID,
		log.FieldExpenseID, ev.ExpenseID)

	if err := w.ExportOwner(ctx, ev.OwnerID); err != nil {
		w.markPending(ev.OwnerID)
		return err
	}
	w.clearPending(ev.OwnerID)
	return nil
}

// ExportOwner replaces owner's ledger with their valid expenses, oldest
// first. Records that fail normalization are left out.
func (w *ExportWorker) ExportOwner(ctx context.Context, owner string) error {
	start := time.Now()

	raws, err := w.store.ListExpenses(ctx, owner)
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("list expenses: %w", err)
	}
	snap := core.Normalize(owner, raws)
	expenses := query.Sort(snap.Expenses, query.Order{Field: query.FieldDate, Direction: query.Asc})

	if err := w.ledger.ExportLedger(ctx, owner, expenses); err != nil {
		w.failed.Add(1)
		w.logger.LogError(ctx, "Failed to export ledger", err, log.OpExport,
			log.NewFields().WithOwner(owner))
		return fmt.Errorf("export ledger: %w", err)
	}
	w.exported.Add(1)

	w.logger.InfoContext(ctx, "Exported ledger",
		log.FieldOwnerID, owner,
		log.FieldCount, len(expenses),
		log.FieldIssues, len(snap.Issues),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// RetryPending exports every owner whose last export failed and returns how
// many succeeded.
func (w *ExportWorker) RetryPending(ctx context.Context) int {
	owners := w.Pending()
	if len(owners) == 0 {
		return 0
	}
	w.logger.InfoContext(ctx, "Retrying pending ledger exports", log.FieldCount, len(owners))

	ok := 0
	for _, owner := range owners {
		if ctx.Err() != nil {
			break
		}
		if err := w.ExportOwner(ctx, owner); err != nil {
			continue
		}
		w.clearPending(owner)
		ok++
	}
	return ok
}

// Pending lists owners waiting for a retry, sorted.
func (w *ExportWorker) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	owners := make([]string, 0, len(w.pending))
	for owner := range w.pending {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners
}

// Run consumes events and retries failed exports every retryEvery until ctx
// ends. A consumer failure stops the retry loop too.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer, retryEvery time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.Consume(gctx, w.HandleEvent)
	})

	if retryEvery > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(retryEvery)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					w.RetryPending(gctx)
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type Stats struct {
	Exported int64
	Failed   int64
	Pending  int
}

func (w *ExportWorker) Stats() Stats {
	w.mu.Lock()
	pending := len(w.pending)
	w.mu.Unlock()
	return Stats{
		Exported: w.exported.Load(),
		Failed:   w.failed.Load(),
		Pending:  pending,
	}
}

func (w *ExportWorker) markPending(owner string) {
	w.mu.Lock()
	w.pending[owner] = struct{}{}
	w.mu.Unlock()
}

func (w *ExportWorker) clearPending(owner string) {
	w.mu.Lock()
	delete(w.pending, owner)
	w.mu.Unlock()
}
