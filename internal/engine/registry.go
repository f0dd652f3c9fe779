package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"signal-advisor/config"
)

// ErrHourlyCap reports that the rolling-hour emission cap refused a
// registration.
var ErrHourlyCap = errors.New("hourly signal cap reached")

// History bounds: when the log grows past historyMax it is trimmed back to
// the most recent historyKeep entries in one step, amortizing the copy.
const (
	historyMax  = 1000
	historyKeep = 500
)

// Registry is the in-memory book of record for signals: the active set, a
// bounded append-only history, and the per-symbol emission guards (cooldown
// and rolling-hour cap). All methods are safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	cfg config.SignalConfig

	active     map[string]*Signal
	history    []Signal
	lastSignal map[string]time.Time
	emitTimes  []time.Time

	symbolLocks sync.Map // symbol -> *sync.Mutex

	now func() time.Time
}

// NewRegistry creates an empty signal registry.
func NewRegistry(cfg config.SignalConfig) *Registry {
	return &Registry{
		cfg:        cfg,
		active:     make(map[string]*Signal),
		lastSignal: make(map[string]time.Time),
		now:        time.Now,
	}
}

// LockSymbol acquires the per-symbol emission lock and returns its release.
// The engine holds it across the guard check and the register so that two
// concurrent cycles for one symbol cannot both pass the cooldown.
func (r *Registry) LockSymbol(symbol string) func() {
	v, _ := r.symbolLocks.LoadOrStore(symbol, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// IsInCooldown reports whether the symbol emitted a signal within the
// cooldown window, and how long until the window clears.
func (r *Registry) IsInCooldown(symbol string) (bool, time.Duration) {
	cooldown := r.cfg.CooldownDuration()
	if cooldown <= 0 {
		return false, 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	last, ok := r.lastSignal[symbol]
	if !ok {
		return false, 0
	}
	elapsed := r.now().Sub(last)
	if elapsed >= cooldown {
		return false, 0
	}
	return true, cooldown - elapsed
}

// pruneEmitTimes drops emissions older than one hour. Caller holds mu.
func (r *Registry) pruneEmitTimes() {
	cutoff := r.now().Add(-time.Hour)
	kept := r.emitTimes[:0]
	for _, t := range r.emitTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.emitTimes = kept
}

// Register admits a signal into the active set and the history, and starts
// the symbol's cooldown. The rolling-hour cap is enforced here, under the
// registry lock, so concurrent cycles for different symbols cannot race past
// it. A duplicate ID is refused: two emissions for one symbol within the
// same second are the cooldown's job to prevent, so a collision here means
// the caller is misbehaving.
func (r *Registry) Register(sig *Signal) error {
	if sig == nil {
		return fmt.Errorf("nil signal")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.MaxSignalsPerHour > 0 {
		r.pruneEmitTimes()
		if len(r.emitTimes) >= r.cfg.MaxSignalsPerHour {
			return ErrHourlyCap
		}
	}

	if _, exists := r.active[sig.ID]; exists {
		return fmt.Errorf("signal %s already registered", sig.ID)
	}
	// IDs must be unique across the whole retention window, not just the
	// active set
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].ID == sig.ID {
			return fmt.Errorf("signal %s already in history", sig.ID)
		}
	}

	now := r.now()
	sig.Status = StatusActive
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = now
	}
	sig.UpdatedAt = sig.CreatedAt

	r.active[sig.ID] = sig
	r.history = append(r.history, *sig)
	r.lastSignal[sig.Symbol] = now
	r.emitTimes = append(r.emitTimes, now)

	if len(r.history) > historyMax {
		r.history = append([]Signal(nil), r.history[len(r.history)-historyKeep:]...)
	}

	return nil
}

// GetActive returns the active signals, newest first.
func (r *Registry) GetActive() []Signal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Signal, 0, len(r.active))
	for _, sig := range r.active {
		out = append(out, *sig)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// GetHistory returns up to limit history entries, newest first. A limit of 0
// or less returns the full retained history.
func (r *Registry) GetHistory(limit int) []Signal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.history)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Signal, n)
	for i := 0; i < n; i++ {
		out[i] = r.history[len(r.history)-1-i]
	}
	return out
}

// UpdateStatus transitions a signal's lifecycle state. Closing or expiring a
// signal removes it from the active set; the history entry keeps the final
// state.
func (r *Registry) UpdateStatus(id, status string) (*Signal, error) {
	if status != StatusActive && status != StatusClosed && status != StatusExpired {
		return nil, fmt.Errorf("unknown status %q", status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sig, ok := r.active[id]
	if !ok {
		return nil, fmt.Errorf("signal %s not found or no longer active", id)
	}

	sig.Status = status
	sig.UpdatedAt = r.now()
	if status != StatusActive {
		delete(r.active, id)
	}

	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].ID == id {
			r.history[i].Status = status
			r.history[i].UpdatedAt = sig.UpdatedAt
			break
		}
	}

	copied := *sig
	return &copied, nil
}

// Counts returns the active and retained-history sizes.
func (r *Registry) Counts() (active, history int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active), len(r.history)
}
