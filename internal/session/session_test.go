package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/core"
	"spendlens/internal/identity"
	"spendlens/internal/log"
	"spendlens/internal/query"
)

// gatedLoader blocks each owner's load until release is called for it.
type gatedLoader struct {
	mu        sync.Mutex
	gates     map[string]chan struct{}
	data      map[string][]core.RawExpense
	errs      map[string]error
	cancelled map[string]bool
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{
		gates:     make(map[string]chan struct{}),
		data:      make(map[string][]core.RawExpense),
		errs:      make(map[string]error),
		cancelled: make(map[string]bool),
	}
}

func (l *gatedLoader) gate(owner string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.gates[owner]
	if !ok {
		g = make(chan struct{})
		l.gates[owner] = g
	}
	return g
}

func (l *gatedLoader) release(owner string) { close(l.gate(owner)) }

// Snapshot records a cancellation but still waits for its gate, like a
// fetch that cannot be aborted midway.
func (l *gatedLoader) Snapshot(ctx context.Context, owner string) (core.Snapshot, error) {
	select {
	case <-l.gate(owner):
	case <-ctx.Done():
		l.mu.Lock()
		l.cancelled[owner] = true
		l.mu.Unlock()
		<-l.gate(owner)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.errs[owner]; err != nil {
		return core.Snapshot{}, err
	}
	return core.Normalize(owner, l.data[owner]), nil
}

func (l *gatedLoader) wasCancelled(owner string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancelled[owner]
}

func raw(id, owner, title, amount, category, date string) core.RawExpense {
	return core.RawExpense{ID: id, OwnerID: owner, Title: title, Amount: amount, Category: category, Date: date}
}

func newSession(t *testing.T, l Loader) *Session {
	t.Helper()
	s := New(l, log.New(log.Config{Output: io.Discard}))
	t.Cleanup(s.Close)
	return s
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSession_SignedOutByDefault(t *testing.T) {
	s := newSession(t, newGatedLoader())
	st := s.State()
	assert.Empty(t, st.Owner)
	assert.ErrorIs(t, st.Err, ErrSignedOut)
	_, err := s.View(query.Spec{}, query.DefaultOrder)
	assert.ErrorIs(t, err, ErrSignedOut)
}

func TestSession_LoadAndView(t *testing.T) {
	l := newGatedLoader()
	l.data["alice"] = []core.RawExpense{
		raw("1", "alice", "Pizza", "100.005", "Food", "2025-03-01"),
		raw("2", "alice", "Sushi", "50", "Food", "2025-03-15"),
		raw("3", "alice", "Broken", "abc", "Food", "2025-03-16"),
	}
	s := newSession(t, l)

	s.SetOwner("alice")
	assert.True(t, s.State().Loading)
	l.release("alice")

	st, err := s.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "alice", st.Owner)
	assert.False(t, st.Loading)
	assert.Len(t, st.Snapshot.Expenses, 2)

	from, _ := core.ParseDate("2025-03-10")
	v, err := s.View(query.Spec{Category: "Food", DateFrom: from}, query.DefaultOrder)
	require.NoError(t, err)
	require.Len(t, v.Expenses, 1)
	assert.Equal(t, "2", v.Expenses[0].ID)
	require.Len(t, v.Issues, 1)
	assert.Equal(t, "3", v.Issues[0].ID)

	c, err := s.Charts(query.Spec{}, 2025, 3)
	require.NoError(t, err)
	require.Len(t, c.Categories, 1)
	assert.Equal(t, 150.01, c.Categories[0].Value)
	assert.Len(t, c.Months, 12)
	assert.Len(t, c.Days, 31)
	assert.Equal(t, 2, c.Summary.Count)

	c, err = s.Charts(query.Spec{}, 2025, 0)
	require.NoError(t, err)
	assert.Nil(t, c.Days)
}

func TestSession_StaleLoadIsDiscarded(t *testing.T) {
	l := newGatedLoader()
	l.data["alice"] = []core.RawExpense{raw("a1", "alice", "Alice lunch", "10", "Food", "2025-03-01")}
	l.data["bob"] = []core.RawExpense{raw("b1", "bob", "Bob taxi", "20", "Commute", "2025-03-01")}
	s := newSession(t, l)

	s.SetOwner("alice")
	s.SetOwner("bob")
	require.Eventually(t, func() bool { return l.wasCancelled("alice") }, time.Second, time.Millisecond,
		"previous owner's load is cancelled")

	l.release("bob")
	st, err := s.Wait(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, "bob", st.Owner)

	// alice's slow fetch completes after bob signed in
	l.release("alice")
	s.wg.Wait()

	v, err := s.View(query.Spec{}, query.DefaultOrder)
	require.NoError(t, err)
	assert.Equal(t, "bob", v.Owner)
	require.Len(t, v.Expenses, 1)
	assert.Equal(t, "b1", v.Expenses[0].ID)
}

func TestSession_LoadFailure(t *testing.T) {
	l := newGatedLoader()
	storeErr := errors.New("store unavailable")
	l.errs["alice"] = storeErr
	s := newSession(t, l)

	s.SetOwner("alice")
	l.release("alice")
	_, err := s.Wait(waitCtx(t))
	assert.ErrorIs(t, err, storeErr)

	_, err = s.View(query.Spec{}, query.DefaultOrder)
	assert.ErrorIs(t, err, storeErr, "failure is not reported as an empty list")
}

func TestSession_Refresh(t *testing.T) {
	l := newGatedLoader()
	l.data["alice"] = []core.RawExpense{raw("1", "alice", "A", "1", "Food", "2025-03-01")}
	l.release("alice")
	s := newSession(t, l)

	s.SetOwner("alice")
	_, err := s.Wait(waitCtx(t))
	require.NoError(t, err)

	l.mu.Lock()
	l.data["alice"] = append(l.data["alice"], raw("2", "alice", "B", "2", "Food", "2025-03-02"))
	l.mu.Unlock()

	s.SetOwner("alice")
	st, err := s.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Len(t, st.Snapshot.Expenses, 1, "same owner does not reload")

	s.Refresh()
	st, err = s.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Len(t, st.Snapshot.Expenses, 2)
}

func TestSession_InvalidSpec(t *testing.T) {
	l := newGatedLoader()
	l.release("alice")
	s := newSession(t, l)
	s.SetOwner("alice")
	_, err := s.Wait(waitCtx(t))
	require.NoError(t, err)

	from, _ := core.ParseDate("2025-03-10")
	to, _ := core.ParseDate("2025-03-01")
	_, err = s.View(query.Spec{DateFrom: from, DateTo: to}, query.DefaultOrder)
	assert.ErrorIs(t, err, query.ErrInvalidSpec)
	_, err = s.Charts(query.Spec{DateFrom: from, DateTo: to}, 2025, 3)
	assert.ErrorIs(t, err, query.ErrInvalidSpec)
}

func TestSession_FollowWatcher(t *testing.T) {
	l := newGatedLoader()
	l.data["alice"] = []core.RawExpense{raw("a1", "alice", "A", "1", "Food", "2025-03-01")}
	l.release("alice")
	l.release("bob")
	s := newSession(t, l)

	w := identity.NewWatcher()
	w.SignIn("alice")

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Follow(ctx, w)
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		st := s.State()
		return st.Owner == "alice" && !st.Loading && len(st.Snapshot.Expenses) == 1
	}, time.Second, time.Millisecond)

	w.SignIn("bob")
	require.Eventually(t, func() bool {
		st := s.State()
		return st.Owner == "bob" && !st.Loading
	}, time.Second, time.Millisecond)
	assert.Empty(t, s.State().Snapshot.Expenses)

	w.SignOut()
	require.Eventually(t, func() bool {
		return errors.Is(s.State().Err, ErrSignedOut)
	}, time.Second, time.Millisecond)

	cancel()
	<-stopped
}

func TestSession_CloseCancelsInFlight(t *testing.T) {
	l := newGatedLoader()
	s := New(l, log.New(log.Config{Output: io.Discard}))

	s.SetOwner("alice")
	go func() {
		assert.Eventually(t, func() bool { return l.wasCancelled("alice") }, time.Second, time.Millisecond)
		l.release("alice")
	}()
	s.Close()

	assert.ErrorIs(t, s.State().Err, ErrClosed)
	s.SetOwner("bob")
	assert.Empty(t, s.State().Owner, "closed sessions ignore owner changes")
	s.Close()
}

func TestSession_TrackAndReport(t *testing.T) {
	l := newGatedLoader()
	l.data["alice"] = []core.RawExpense{
		raw("1", "alice", "Pizza", "100.005", "Food", "2025-03-01"),
		raw("2", "alice", "Sushi", "50", "Food", "2025-03-15"),
		raw("3", "alice", "Broken", "abc", "Food", "2025-03-16"),
	}
	l.release("alice")
	s := newSession(t, l)

	w := identity.NewWatcher()
	w.SignIn("alice")
	stop := s.Track(w)
	t.Cleanup(stop)
	assert.Equal(t, "alice", s.State().Owner, "current owner is applied before Track returns")

	r, err := s.Report(waitCtx(t), query.Spec{Category: "Food"}, query.DefaultOrder, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, "alice", r.Owner)
	require.Len(t, r.Expenses, 2)
	assert.Equal(t, "2", r.Expenses[0].ID)
	require.Len(t, r.Issues, 1)
	require.Len(t, r.Charts.Categories, 1)
	assert.Equal(t, 150.01, r.Charts.Categories[0].Value)
	assert.Len(t, r.Charts.Days, 31)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	var out struct {
		Owner    string           `json:"owner"`
		Expenses []map[string]any `json:"expenses"`
		Issues   []map[string]any `json:"issues"`
		Charts   struct {
			Categories []map[string]any `json:"categories"`
			Months     []map[string]any `json:"months"`
		} `json:"charts"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "alice", out.Owner)
	assert.Len(t, out.Expenses, 2)
	assert.Equal(t, core.ErrInvalidAmount.Error(), out.Issues[0]["reason"])
	assert.Len(t, out.Charts.Months, 12)

	w.SignOut()
	require.Eventually(t, func() bool {
		return errors.Is(s.State().Err, ErrSignedOut)
	}, time.Second, time.Millisecond)
	_, err = s.Report(waitCtx(t), query.Spec{}, query.DefaultOrder, 2025, 0)
	assert.ErrorIs(t, err, ErrSignedOut)

	stop()
	w.SignIn("bob")
	assert.Empty(t, s.State().Owner, "a stopped session no longer follows the watcher")
}
