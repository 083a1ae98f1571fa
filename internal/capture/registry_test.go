package capture

import (
	"errors"
	"testing"
)

func newTestRegistry(provider *fakeProvider) *Registry {
	return NewRegistry(&fakeDevice{}, provider, nil, false)
}

func TestRegistrySharesSessionPerMonitor(t *testing.T) {
	provider := &fakeProvider{outputs: []OutputInfo{fullHDOutput(0), fullHDOutput(1)}}
	r := newTestRegistry(provider)

	first := r.Acquire(0)
	if first == nil {
		t.Fatal("acquire failed for a valid monitor")
	}
	second := r.Acquire(0)
	if second != first {
		t.Fatal("second acquire for the same monitor must return the shared session")
	}
	if first.refs != 2 {
		t.Fatalf("refcount = %d, want 2", first.refs)
	}
	if r.Active() != 1 {
		t.Fatalf("active sessions = %d, want 1", r.Active())
	}

	other := r.Acquire(1)
	if other == nil || other == first {
		t.Fatal("different monitor must get its own session")
	}
	if r.Active() != 2 {
		t.Fatalf("active sessions = %d, want 2", r.Active())
	}
}

func TestRegistryDestroysAtZeroRefs(t *testing.T) {
	provider := &fakeProvider{outputs: []OutputInfo{fullHDOutput(0)}}
	r := newTestRegistry(provider)

	d := r.Acquire(0)
	r.Acquire(0)

	r.Release(d)
	if r.Active() != 1 {
		t.Fatal("session destroyed while still referenced")
	}
	if provider.dups[0].closed {
		t.Fatal("duplication closed while still referenced")
	}

	r.Release(d)
	if r.Active() != 0 {
		t.Fatal("session not removed at zero refs")
	}
	if !provider.dups[0].closed {
		t.Fatal("duplication not closed at zero refs")
	}

	// Extra releases on a destroyed handle are ignored.
	r.Release(d)
	r.Release(nil)
	if r.Active() != 0 {
		t.Fatal("extra release corrupted the registry")
	}
}

func TestRegistryReacquireAfterDestroy(t *testing.T) {
	provider := &fakeProvider{outputs: []OutputInfo{fullHDOutput(0)}}
	r := newTestRegistry(provider)

	d := r.Acquire(0)
	r.Release(d)

	// The old fake duplication is closed; hand out a fresh one.
	delete(provider.dups, 0)

	next := r.Acquire(0)
	if next == nil {
		t.Fatal("reacquire after destroy failed")
	}
	if next == d {
		t.Fatal("reacquire must build a new session, not revive the destroyed one")
	}
}

func TestRegistryInvalidMonitorIndex(t *testing.T) {
	provider := &fakeProvider{outputs: []OutputInfo{fullHDOutput(0)}}
	r := newTestRegistry(provider)

	if d := r.Acquire(7); d != nil {
		t.Fatal("out-of-range monitor index must not produce a session")
	}
	if r.Active() != 0 {
		t.Fatal("failed acquire left a registry entry behind")
	}
}

func TestRegistryDuplicationFailureLeavesNoEntry(t *testing.T) {
	provider := &fakeProvider{
		outputs: []OutputInfo{fullHDOutput(0)},
		dupErr:  errors.New("desktop duplication unavailable"),
	}
	r := newTestRegistry(provider)

	if d := r.Acquire(0); d != nil {
		t.Fatal("duplication failure must not produce a session")
	}
	if r.Active() != 0 {
		t.Fatal("failed acquire left a registry entry behind")
	}
}

func TestRegistryResetFreshness(t *testing.T) {
	provider := &fakeProvider{
		outputs: []OutputInfo{fullHDOutput(0)},
		dups: map[int]*fakeDuplication{
			0: {queue: []acquireResult{frameOf(1920, 1080, FormatBGRA)}},
		},
	}
	r := newTestRegistry(provider)

	d := r.Acquire(0)
	d.UpdateFrame()
	if !d.Fresh() {
		t.Fatal("captured frame must mark the session fresh")
	}

	r.ResetFreshness()
	if d.Fresh() {
		t.Fatal("freshness must clear at the cycle boundary")
	}
}
