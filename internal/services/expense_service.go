package services

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendlens/internal/amqp"
	"spendlens/internal/analytics"
	"spendlens/internal/blob"
	"spendlens/internal/cache"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/query"
	"spendlens/internal/store"
)

const (
	DefaultMaxReceiptBytes = 5 << 20
	defaultCacheSize       = 256
	defaultCacheTTL        = 5 * time.Minute
)

var receiptExt = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Publisher sends expense change events. *amqp.Client implements it.
type Publisher interface {
	PublishExpenseEvent(ctx context.Context, ev amqp.ExpenseEvent) error
}

// ExpenseOptions carries the optional collaborators of ExpenseService.
type ExpenseOptions struct {
	Blobs           blob.Store
	Publisher       Publisher
	Snapshots       *cache.LRUCache[core.Snapshot]
	MaxReceiptBytes int64
	Logger          *log.Logger
}

// ExpenseService validates and applies expense changes for an explicit
// owner and serves normalized snapshots of the owner's records.
type ExpenseService struct {
	store           store.ExpenseStore
	blobs           blob.Store
	publisher       Publisher
	snapshots       *cache.LRUCache[core.Snapshot]
	maxReceiptBytes int64
	logger          *log.Logger
	now             func() time.Time
}

// ListResult is one filtered and sorted view of an owner's expenses.
type ListResult struct {
	Expenses []core.Expense
	Issues   []core.Issue
	Total    decimal.Decimal
}

func NewExpenseService(s store.ExpenseStore, opts ExpenseOptions) *ExpenseService {
	if opts.Snapshots == nil {
		opts.Snapshots = cache.NewLRUCache[core.Snapshot](defaultCacheSize, defaultCacheTTL)
	}
	if opts.MaxReceiptBytes <= 0 {
		opts.MaxReceiptBytes = DefaultMaxReceiptBytes
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	return &ExpenseService{
		store:           s,
		blobs:           opts.Blobs,
		publisher:       opts.Publisher,
		snapshots:       opts.Snapshots,
		maxReceiptBytes: opts.MaxReceiptBytes,
		logger:          opts.Logger.WithComponent(log.ComponentExpense),
		now:             time.Now,
	}
}

// Snapshot returns the owner's normalized records. Results are cached per
// owner until the owner's next write; a load that raced with a write is
// returned but not cached.
func (s *ExpenseService) Snapshot(ctx context.Context, owner string) (core.Snapshot, error) {
	if owner == "" {
		return core.Snapshot{}, ErrNoOwner
	}
	if snap, ok := s.snapshots.Get(owner); ok {
		return snap.Clone(), nil
	}

	version := s.snapshots.Version(owner)
	raws, err := s.store.ListExpenses(ctx, owner)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("list expenses: %w", err)
	}

	snap := core.Normalize(owner, raws)
	if len(snap.Issues) > 0 {
		s.logger.WarnContext(ctx, "Excluded malformed expense records",
			log.FieldOwnerID, owner,
			log.FieldIssues, len(snap.Issues))
	}
	s.snapshots.SetIfVersion(owner, version, snap)
	return snap.Clone(), nil
}

// List filters the owner's snapshot with spec, then sorts it by order.
func (s *ExpenseService) List(ctx context.Context, owner string, spec query.Spec, order query.Order) (ListResult, error) {
	if err := spec.Validate(); err != nil {
		return ListResult{}, err
	}
	snap, err := s.Snapshot(ctx, owner)
	if err != nil {
		return ListResult{}, err
	}
	expenses := query.Sort(query.Filter(snap.Expenses, spec), order)
	return ListResult{
		Expenses: expenses,
		Issues:   snap.Issues,
		Total:    core.RoundCurrency(analytics.Total(expenses)),
	}, nil
}

func (s *ExpenseService) Create(ctx context.Context, owner string, in core.ExpenseInput) (core.Expense, error) {
	if owner == "" {
		return core.Expense{}, ErrNoOwner
	}
	draft, err := in.Draft()
	if err != nil {
		return core.Expense{}, err
	}

	e := core.Expense{
		OwnerID:   owner,
		Title:     draft.Title,
		Amount:    draft.Amount,
		Category:  draft.Category,
		Date:      draft.Date,
		CreatedAt: s.now().UTC(),
	}
	id, err := s.store.CreateExpense(ctx, e.Raw())
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	e.ID = id

	s.snapshots.Delete(owner)
	s.logger.InfoContext(ctx, "Expense created",
		log.FieldOwnerID, owner,
		log.FieldExpenseID, id,
		log.FieldCategory, e.Category,
		log.FieldAmount, e.Amount.String())
	s.publish(ctx, amqp.ExpenseCreated, owner, id)
	return e, nil
}

// Update replaces every editable field of the owner's expense id. The
// receipt reference is kept.
func (s *ExpenseService) Update(ctx context.Context, owner, id string, in core.ExpenseInput) (core.Expense, error) {
	if owner == "" {
		return core.Expense{}, ErrNoOwner
	}
	draft, err := in.Draft()
	if err != nil {
		return core.Expense{}, err
	}

	existing, err := s.store.GetExpense(ctx, owner, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}

	e := core.Expense{
		ID:        existing.ID,
		OwnerID:   existing.OwnerID,
		Title:     draft.Title,
		Amount:    draft.Amount,
		Category:  draft.Category,
		Date:      draft.Date,
		Receipt:   core.ReceiptFromStored(existing.ReceiptURL),
		CreatedAt: existing.CreatedAt,
	}
	if err := s.store.UpdateExpense(ctx, owner, e.Raw()); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.snapshots.Delete(owner)
	s.logger.InfoContext(ctx, "Expense updated", log.FieldOwnerID, owner, log.FieldExpenseID, id)
	s.publish(ctx, amqp.ExpenseUpdated, owner, id)
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, owner, id string) error {
	if owner == "" {
		return ErrNoOwner
	}
	if err := s.store.DeleteExpense(ctx, owner, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.snapshots.Delete(owner)
	s.logger.InfoContext(ctx, "Expense deleted", log.FieldOwnerID, owner, log.FieldExpenseID, id)
	s.publish(ctx, amqp.ExpenseDeleted, owner, id)
	return nil
}

// AttachReceipt uploads data to the blob store and points the expense at
// it. Ownership and record validity are checked before anything is
// uploaded; the upload is removed again if the record update fails.
func (s *ExpenseService) AttachReceipt(ctx context.Context, owner, id, filename, contentType string, data []byte) (core.Expense, error) {
	if owner == "" {
		return core.Expense{}, ErrNoOwner
	}
	if s.blobs == nil {
		return core.Expense{}, ErrReceiptsDisabled
	}
	if len(data) == 0 {
		return core.Expense{}, ErrEmptyReceipt
	}
	if int64(len(data)) > s.maxReceiptBytes {
		return core.Expense{}, fmt.Errorf("%w: %d bytes (max %d)", ErrReceiptTooLarge, len(data), s.maxReceiptBytes)
	}
	mediaType, err := receiptMediaType(contentType, data)
	if err != nil {
		return core.Expense{}, err
	}

	existing, err := s.store.GetExpense(ctx, owner, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	if _, issues, ok := core.NormalizeRecord(0, existing); !ok {
		return core.Expense{}, fmt.Errorf("%w: %v", ErrInvalidRecord, issues[0])
	}

	key := receiptKey(owner, filename, mediaType)
	receiptURL, err := s.blobs.Upload(ctx, key, mediaType, data)
	if err != nil {
		return core.Expense{}, store.Wrap("upload receipt", err)
	}

	existing.ReceiptURL = core.NewReceipt(receiptURL).Stored()
	if err := s.store.UpdateExpense(ctx, owner, existing); err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.WarnContext(ctx, "Failed to remove orphaned receipt",
				log.FieldBlobKey, key, log.FieldError, derr)
		}
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	e, _, _ := core.NormalizeRecord(0, existing)
	s.snapshots.Delete(owner)
	s.logger.InfoContext(ctx, "Receipt attached",
		log.FieldOwnerID, owner,
		log.FieldExpenseID, id,
		log.FieldBlobKey, key)
	s.publish(ctx, amqp.ExpenseReceiptAttached, owner, id)
	return e, nil
}

// receiptMediaType resolves the declared type, sniffing data when the
// client sent none, and accepts only images and PDF.
func receiptMediaType(declared string, data []byte) (string, error) {
	if declared == "" || strings.HasPrefix(declared, "application/octet-stream") {
		declared = http.DetectContentType(data)
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedReceipt, declared)
	}
	if mediaType != "application/pdf" && !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedReceipt, mediaType)
	}
	return mediaType, nil
}

// receiptKey builds receipts/<owner>/<uuid><ext>.
func receiptKey(owner, filename, mediaType string) string {
	ext := strings.ToLower(path.Ext(filename))
	if !receiptExt.MatchString(ext) {
		ext = ""
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return "receipts/" + url.PathEscape(owner) + "/" + uuid.NewString() + ext
}

func (s *ExpenseService) publish(ctx context.Context, t amqp.EventType, owner, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(t, owner, id)); err != nil {
		// The write already succeeded; the ledger catches up on the next event.
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldEventType, string(t),
			log.FieldOwnerID, owner,
			log.FieldExpenseID, id,
			log.FieldError, err)
	}
}
