package identity

import "sync"

// Change reports the owner after a sign-in or sign-out. Owner is empty
// after a sign-out.
type Change struct {
	Owner string
}

func (c Change) SignedIn() bool { return c.Owner != "" }

// Watcher holds the current owner and notifies subscribers when it changes.
// A slow subscriber only ever sees the latest change; intermediate ones are
// dropped.
type Watcher struct {
	mu     sync.Mutex
	owner  string
	subs   map[int]chan Change
	nextID int
}

func NewWatcher() *Watcher {
	return &Watcher{subs: make(map[int]chan Change)}
}

// Current returns the signed-in owner, if any.
func (w *Watcher) Current() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.owner, w.owner != ""
}

// SignIn makes owner current. Signing in the current owner again does not
// notify.
func (w *Watcher) SignIn(owner string) {
	w.set(owner)
}

func (w *Watcher) SignOut() {
	w.set("")
}

func (w *Watcher) set(owner string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if owner == w.owner {
		return
	}
	w.owner = owner
	for _, ch := range w.subs {
		// Replace any undelivered change with this one.
		select {
		case <-ch:
		default:
		}
		ch <- Change{Owner: owner}
	}
}

// Subscribe returns a channel of changes and a function that ends the
// subscription and closes the channel.
func (w *Watcher) Subscribe() (<-chan Change, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	ch := make(chan Change, 1)
	w.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.subs, id)
			close(ch)
		})
	}
}
