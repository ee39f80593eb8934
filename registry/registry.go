package registry

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	ffiguard "github.com/wippyai/ffi-guard"
	"github.com/wippyai/ffi-guard/errors"
)

// Registry maps pointer identities to their live allocations. All methods
// are safe for concurrent use.
type Registry struct {
	entries   map[ffiguard.Ptr]entry
	observers []Observer
	mu        sync.Mutex
	obsMu     sync.RWMutex
	closed    bool
}

type entry struct {
	value   any
	cleanup func()
	tag     ffiguard.Tag
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[ffiguard.Ptr]entry, 64),
	}
}

var defaultRegistry = sync.OnceValue(New)

// Default returns the lazily created process-wide registry. The handle and
// cmem packages operate on it.
func Default() *Registry {
	return defaultRegistry()
}

// Track registers p as a live allocation of the tagged type. The registry
// keeps value alive and runs cleanup exactly once when the entry is freed.
// Tracking the null identity is a no-op. Tracking an identity that is
// already live displaces the old entry: a warning is logged and the
// displaced cleanup runs, so the old allocation is reclaimed rather than
// leaked.
func (r *Registry) Track(p ffiguard.Ptr, tag ffiguard.Tag, value any, cleanup func()) {
	if p.IsNull() {
		Logger().Debug("track called with null identity", zap.Stringer("tag", tag))
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		Logger().Warn("track after close",
			zap.Stringer("ptr", p),
			zap.Stringer("tag", tag),
		)
		if cleanup != nil {
			cleanup()
		}
		return
	}
	displaced, overwrote := r.entries[p]
	r.entries[p] = entry{tag: tag, value: value, cleanup: cleanup}
	r.mu.Unlock()

	if overwrote {
		Logger().Warn("identity tracked twice, displacing live entry",
			zap.Stringer("ptr", p),
			zap.Stringer("old", displaced.tag),
			zap.Stringer("new", tag),
		)
		if displaced.cleanup != nil {
			displaced.cleanup()
		}
		r.notify(Event{Type: EventOverwritten, Ptr: p, Tag: displaced.tag, Value: displaced.value})
	}

	r.notify(Event{Type: EventTracked, Ptr: p, Tag: tag, Value: value})
}

// Validate reports whether p is live and of the tagged type. It never
// mutates the entry, so a failed assertion leaves the handle usable.
func (r *Registry) Validate(p ffiguard.Ptr, tag ffiguard.Tag) error {
	if p.IsNull() {
		return errors.NullParameter("validate")
	}

	r.mu.Lock()
	e, ok := r.entries[p]
	r.mu.Unlock()

	if !ok {
		return errors.InvalidHandle("validate", p)
	}
	if e.tag != tag {
		return errors.WrongHandleType("validate", p, tag, e.tag)
	}
	return nil
}

// Resolve validates p against the tagged type and returns the tracked
// value. Like Validate, it never mutates the entry.
func (r *Registry) Resolve(p ffiguard.Ptr, tag ffiguard.Tag) (any, error) {
	if p.IsNull() {
		return nil, errors.NullParameter("resolve")
	}

	r.mu.Lock()
	e, ok := r.entries[p]
	r.mu.Unlock()

	if !ok {
		return nil, errors.InvalidHandle("resolve", p)
	}
	if e.tag != tag {
		return nil, errors.WrongHandleType("resolve", p, tag, e.tag)
	}
	return e.value, nil
}

// Free removes the entry for p and runs its cleanup. Freeing the null
// identity succeeds as a no-op. The entry is removed under the lock and the
// cleanup runs after the lock is released, so concurrent frees of the same
// identity resolve to exactly one success and the cleanup may re-enter the
// registry.
func (r *Registry) Free(p ffiguard.Ptr) error {
	if p.IsNull() {
		return nil
	}

	r.mu.Lock()
	e, ok := r.entries[p]
	if ok {
		delete(r.entries, p)
	}
	r.mu.Unlock()

	if !ok {
		return errors.InvalidHandle("free", p)
	}

	if e.cleanup != nil {
		e.cleanup()
	}
	r.notify(Event{Type: EventFreed, Ptr: p, Tag: e.tag, Value: e.value})
	return nil
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Live returns a snapshot of all tracked entries, ordered by identity.
func (r *Registry) Live() []EntryInfo {
	r.mu.Lock()
	infos := make([]EntryInfo, 0, len(r.entries))
	for p, e := range r.entries {
		infos = append(infos, EntryInfo{Ptr: p, Tag: e.tag})
	}
	r.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Ptr < infos[j].Ptr })
	return infos
}

// ReportLeaks logs a warning describing every entry still tracked and
// returns the count. It is a diagnostic only: entries stay live and no
// cleanup runs.
func (r *Registry) ReportLeaks() int {
	live := r.Live()
	if len(live) == 0 {
		return 0
	}

	byType := make(map[string]int, len(live))
	for _, e := range live {
		byType[e.Tag.String()]++
	}
	Logger().Warn("tracked allocations were never freed",
		zap.Int("count", len(live)),
		zap.Any("by_type", byType),
	)
	return len(live)
}

// Close frees every remaining entry and rejects further tracking. Cleanups
// run after the lock is released, in unspecified order. Close is idempotent.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true

	freed := make([]Event, 0, len(r.entries))
	cleanups := make([]func(), 0, len(r.entries))
	for p, e := range r.entries {
		freed = append(freed, Event{Type: EventFreed, Ptr: p, Tag: e.tag, Value: e.value})
		if e.cleanup != nil {
			cleanups = append(cleanups, e.cleanup)
		}
	}
	r.entries = make(map[ffiguard.Ptr]entry)
	r.mu.Unlock()

	if len(freed) > 0 {
		Logger().Info("registry closed with live entries", zap.Int("count", len(freed)))
	}
	for _, fn := range cleanups {
		fn()
	}
	for _, ev := range freed {
		r.notify(ev)
	}
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer.
func (r *Registry) Unsubscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, o := range r.observers {
		o.OnRegistryEvent(e)
	}
}
