package dircache

import (
	"sync"

	errUtils "github.com/cachekeep/cachekeep/errors"
)

// registry is the Manager's process-local state: which version directories
// this process currently holds and in what mode, and which stubs it already
// wrote today. Both exist to keep lock semantics and write avoidance correct
// without consulting the filesystem.
type registry struct {
	mu      sync.Mutex
	held    map[string]*holdState
	touched map[string]int64
}

// holdState tracks the locks this process holds on one version directory.
// count covers re-entrant shared holds; an exclusive hold never coexists
// with anything else.
type holdState struct {
	exclusive bool
	count     int
}

func newRegistry() *registry {
	return &registry{
		held:    make(map[string]*holdState),
		touched: make(map[string]int64),
	}
}

// checkConflict rejects lock requests that flock(2) would let this process
// deadlock itself on: an exclusive request for a path already held in any
// mode, or a shared request for a path held exclusively. Lock modes are
// never silently upgraded or downgraded.
func (r *registry) checkConflict(abs string, exclusive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	hs, ok := r.held[abs]
	if !ok {
		return nil
	}

	if exclusive || hs.exclusive {
		return errUtils.Build(errUtils.ErrLockModeConflict).
			WithContext("path", abs).
			WithContext("held", modeString(hs.exclusive)).
			WithContext("requested", modeString(exclusive)).
			WithHint("release the existing lock handle before changing lock modes").
			Err()
	}

	return nil
}

// register records a granted lock.
func (r *registry) register(abs string, exclusive bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if hs, ok := r.held[abs]; ok {
		hs.count++
		return
	}
	r.held[abs] = &holdState{exclusive: exclusive, count: 1}
}

// unregister removes one hold on abs.
func (r *registry) unregister(abs string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hs, ok := r.held[abs]
	if !ok {
		return
	}
	hs.count--
	if hs.count <= 0 {
		delete(r.held, abs)
	}
}

// isHeld reports whether this process holds abs in any mode.
func (r *registry) isHeld(abs string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.held[abs]
	return ok
}

// markReleased flips a handle to released exactly once.
func (r *registry) markReleased(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h.released {
		return errUtils.Build(errUtils.ErrLockReleased).
			WithContext("path", h.dir).
			Err()
	}
	h.released = true
	return nil
}

// recordTouched notes that abs's stub was written on day.
func (r *registry) recordTouched(abs string, day int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.touched[abs] = day
}

// touchedOn reports whether abs's stub was already written on day by this
// process.
func (r *registry) touchedOn(abs string, day int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.touched[abs]
	return ok && d == day
}

// flushTouched clears the write-avoidance cache.
func (r *registry) flushTouched() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.touched = make(map[string]int64)
}

// forgetTouched drops one path from the write-avoidance cache.
func (r *registry) forgetTouched(abs string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.touched, abs)
}

func modeString(exclusive bool) string {
	if exclusive {
		return "exclusive"
	}
	return "shared"
}
