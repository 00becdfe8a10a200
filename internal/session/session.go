// Package session keeps the signed-in owner's snapshot and derives list and
// chart views from it.
//
// Each owner change cancels the load in flight for the previous owner. A
// load that finishes after the owner changed is discarded, so a slow fetch
// for one user can never replace the state of the next.
package session

import (
	"context"
	"errors"
	"sync"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/identity"
	"spendlens/internal/log"
	"spendlens/internal/query"
)

var (
	ErrSignedOut = errors.New("no owner signed in")
	ErrClosed    = errors.New("session closed")
)

// Loader fetches an owner's normalized records.
type Loader interface {
	Snapshot(ctx context.Context, owner string) (core.Snapshot, error)
}

// State is the outcome of the latest completed load.
type State struct {
	Owner    string
	Snapshot core.Snapshot
	Err      error
	Loading  bool
}

// View is a filtered and sorted list plus the records left out as invalid.
type View struct {
	Owner    string         `json:"owner"`
	Expenses []core.Expense `json:"expenses"`
	Issues   []core.Issue   `json:"issues"`
}

// Charts holds every series of the analytics screen for one period.
type Charts struct {
	Categories []analytics.Point `json:"categories"`
	Months     []analytics.Point `json:"months"`
	Days       []analytics.Point `json:"days,omitempty"`
	Summary    analytics.Summary `json:"summary"`
}

// Report is a list view and the charts of one period, both derived from the
// same load.
type Report struct {
	View
	Charts Charts `json:"charts"`
}

type Session struct {
	loader Loader
	logger *log.Logger

	mu       sync.Mutex
	gen      uint64
	owner    string
	cancel   context.CancelFunc
	done     chan struct{}
	snapshot core.Snapshot
	err      error
	closed   bool
	wg       sync.WaitGroup
}

func New(loader Loader, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	done := make(chan struct{})
	close(done)
	return &Session{
		loader: loader,
		logger: logger.WithComponent(log.ComponentSession),
		done:   done,
		err:    ErrSignedOut,
	}
}

// SetOwner switches to owner and starts loading its snapshot. An empty
// owner signs out. Setting the current owner again is a no-op; use Refresh
// to reload.
func (s *Session) SetOwner(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (owner == s.owner && s.gen > 0) {
		return
	}
	s.startLocked(owner)
}

// Refresh reloads the current owner's snapshot, replacing any load in
// flight.
func (s *Session) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.startLocked(s.owner)
}

func (s *Session) startLocked(owner string) {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.owner = owner
	s.snapshot = core.Snapshot{}

	done := make(chan struct{})
	s.done = done
	if owner == "" {
		s.err = ErrSignedOut
		close(done)
		return
	}
	s.err = nil

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	gen := s.gen
	s.wg.Add(1)
	go s.load(ctx, gen, owner, done)
}

func (s *Session) load(ctx context.Context, gen uint64, owner string, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)

	snap, err := s.loader.Snapshot(ctx, owner)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.logger.DebugContext(ctx, "Discarded stale snapshot", log.FieldOwnerID, owner)
		return
	}
	s.cancel = nil
	if err != nil {
		s.err = err
		s.logger.WarnContext(ctx, "Snapshot load failed", log.FieldOwnerID, owner, log.FieldError, err)
		return
	}
	s.snapshot = snap
	s.err = nil
}

// State returns the current owner and the latest load outcome.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	loading := false
	select {
	case <-s.done:
	default:
		loading = true
	}
	return State{
		Owner:    s.owner,
		Snapshot: s.snapshot.Clone(),
		Err:      s.err,
		Loading:  loading,
	}
}

// Wait blocks until the current load finishes or ctx ends. If the owner
// changes while waiting, it waits for the new owner's load instead.
func (s *Session) Wait(ctx context.Context) (State, error) {
	for {
		s.mu.Lock()
		done, gen := s.done, s.gen
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return State{}, ctx.Err()
		case <-done:
		}

		s.mu.Lock()
		current := gen == s.gen
		s.mu.Unlock()
		if current {
			st := s.State()
			return st, st.Err
		}
	}
}

// View filters then sorts the loaded snapshot.
func (s *Session) View(spec query.Spec, order query.Order) (View, error) {
	if err := spec.Validate(); err != nil {
		return View{}, err
	}
	st := s.State()
	if st.Err != nil {
		return View{}, st.Err
	}
	return viewOf(st, spec, order), nil
}

// Charts aggregates the loaded snapshot, filtered by spec, for year. Days
// are only filled when month is between 1 and 12.
func (s *Session) Charts(spec query.Spec, year, month int) (Charts, error) {
	if err := spec.Validate(); err != nil {
		return Charts{}, err
	}
	st := s.State()
	if st.Err != nil {
		return Charts{}, st.Err
	}
	return chartsOf(st, spec, year, month), nil
}

// Report waits for the current load, then builds the list and the charts
// from that one state.
func (s *Session) Report(ctx context.Context, spec query.Spec, order query.Order, year, month int) (Report, error) {
	if err := spec.Validate(); err != nil {
		return Report{}, err
	}
	st, err := s.Wait(ctx)
	if err != nil {
		return Report{}, err
	}
	return Report{
		View:   viewOf(st, spec, order),
		Charts: chartsOf(st, spec, year, month),
	}, nil
}

func viewOf(st State, spec query.Spec, order query.Order) View {
	return View{
		Owner:    st.Owner,
		Expenses: query.Sort(query.Filter(st.Snapshot.Expenses, spec), order),
		Issues:   st.Snapshot.Issues,
	}
}

func chartsOf(st State, spec query.Spec, year, month int) Charts {
	expenses := query.Filter(st.Snapshot.Expenses, spec)
	c := Charts{
		Categories: analytics.CategorySeries(analytics.ByCategory(expenses)),
		Months:     analytics.MonthSeries(analytics.ByMonth(expenses, year)),
		Summary:    analytics.Summarize(expenses, year),
	}
	if month >= 1 && month <= 12 {
		c.Days = analytics.DaySeries(analytics.ByDay(expenses, year, month))
	}
	return c
}

// Follow applies the watcher's current owner and every later change until
// ctx ends or the session is closed.
func (s *Session) Follow(ctx context.Context, w *identity.Watcher) {
	changes, unsubscribe := w.Subscribe()
	defer unsubscribe()

	owner, _ := w.Current()
	s.SetOwner(owner)
	s.follow(ctx, changes)
}

// Track applies the watcher's current owner before returning, then follows
// later changes in the background until stop is called.
func (s *Session) Track(w *identity.Watcher) (stop func()) {
	changes, unsubscribe := w.Subscribe()
	owner, _ := w.Current()
	s.SetOwner(owner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.follow(ctx, changes)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			unsubscribe()
		})
	}
}

func (s *Session) follow(ctx context.Context, changes <-chan identity.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-changes:
			if !ok {
				return
			}
			s.SetOwner(ch.Owner)
		}
	}
}

// Close cancels any load in flight and waits for it to return.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.owner = ""
	s.snapshot = core.Snapshot{}
	s.err = ErrClosed
	done := make(chan struct{})
	close(done)
	s.done = done
	s.mu.Unlock()

	s.wg.Wait()
}
