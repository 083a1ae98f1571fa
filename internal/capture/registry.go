package capture

import (
	"errors"
	"log/slog"

	"github.com/breeze-rmm/duplicator/internal/logging"
)

// Registry arbitrates duplication-session sharing by monitor index. A second
// Acquire for the same index returns the existing session with its refcount
// bumped; sessions are destroyed only when the count reaches zero.
//
// Not safe for concurrent use. All registry and session operations are
// expected to run on a single coordinating thread, normally the rendering
// thread of the hosting pipeline.
type Registry struct {
	device   Device
	provider Provider
	windows  WindowSystem
	preview  bool
	log      *slog.Logger

	instances map[int]*Duplicator
}

// NewRegistry creates an empty registry. windows may be nil, in which case
// sessions are created capture-only. preview controls whether new sessions
// attempt to open a preview window.
func NewRegistry(device Device, provider Provider, windows WindowSystem, preview bool) *Registry {
	return &Registry{
		device:    device,
		provider:  provider,
		windows:   windows,
		preview:   preview,
		log:       logging.L("registry"),
		instances: make(map[int]*Duplicator),
	}
}

// Acquire returns the shared session for the monitor index, creating it on
// first request. Returns nil when the index names no output or duplication
// cannot be established; the registry is left unchanged in that case.
func (r *Registry) Acquire(idx int) *Duplicator {
	if d, ok := r.instances[idx]; ok {
		d.refs++
		return d
	}

	d, err := newDuplicator(r.device, r.provider, r.windows, idx, r.preview)
	if err != nil {
		if errors.Is(err, ErrOutputNotFound) {
			r.log.Debug("invalid monitor index", logging.KeyMonitor, idx)
		} else {
			r.log.Error("failed to create duplication session",
				logging.KeyMonitor, idx, logging.KeyError, err)
		}
		return nil
	}

	r.instances[idx] = d
	return d
}

// Release drops one reference. At zero the registry entry is removed and the
// session's provider and GPU resources are destroyed. Releasing more often
// than acquiring is a caller contract violation; extra releases on an
// already-destroyed handle are ignored rather than crashing.
func (r *Registry) Release(d *Duplicator) {
	if d == nil || d.refs <= 0 {
		return
	}
	d.refs--
	if d.refs > 0 {
		return
	}
	delete(r.instances, d.idx)
	d.close()
}

// ResetFreshness clears every session's fresh-frame flag. Call once per outer
// polling cycle, before any session's UpdateFrame, so staleness is measured
// per cycle rather than per caller.
func (r *Registry) ResetFreshness() {
	for _, d := range r.instances {
		d.updated = false
	}
}

// Active returns the number of live sessions.
func (r *Registry) Active() int {
	return len(r.instances)
}
