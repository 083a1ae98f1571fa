package capture

import (
	"errors"
	"testing"
)

func newTestDuplicator(t *testing.T, dev *fakeDevice, dup *fakeDuplication, withPreview bool) (*Duplicator, *fakeWindowSystem) {
	t.Helper()
	provider := &fakeProvider{
		outputs: []OutputInfo{fullHDOutput(0)},
		dups:    map[int]*fakeDuplication{0: dup},
	}
	ws := &fakeWindowSystem{}
	d, err := newDuplicator(dev, provider, ws, 0, withPreview)
	if err != nil {
		t.Fatalf("newDuplicator failed: %v", err)
	}
	return d, ws
}

func TestUpdateFrameNoNewFrame(t *testing.T) {
	dev := &fakeDevice{}
	dup := &fakeDuplication{}
	d, _ := newTestDuplicator(t, dev, dup, false)

	if !d.UpdateFrame() {
		t.Fatal("timeout poll must not invalidate the session")
	}
	if d.Texture() != nil {
		t.Fatal("no texture should exist before the first captured frame")
	}
	if dup.releases != 0 {
		t.Fatalf("ReleaseFrame called %d times without an acquired frame", dup.releases)
	}
}

func TestUpdateFrameAccessLost(t *testing.T) {
	dev := &fakeDevice{}
	dup := &fakeDuplication{queue: []acquireResult{{err: ErrAccessLost}}}
	d, _ := newTestDuplicator(t, dev, dup, false)

	if d.UpdateFrame() {
		t.Fatal("access loss must report the session as dead")
	}
	if dup.releases != 0 {
		t.Fatal("no frame was acquired, so none may be released")
	}
}

func TestUpdateFrameTransientAcquireError(t *testing.T) {
	dev := &fakeDevice{}
	dup := &fakeDuplication{queue: []acquireResult{{err: errors.New("device hiccup")}}}
	d, _ := newTestDuplicator(t, dev, dup, false)

	if !d.UpdateFrame() {
		t.Fatal("transient acquire errors must keep the session alive")
	}
	if d.Fresh() {
		t.Fatal("a failed poll must not mark the cycle fresh")
	}
}

func TestUpdateFrameCapturesAndReleases(t *testing.T) {
	dev := &fakeDevice{}
	dup := &fakeDuplication{queue: []acquireResult{frameOf(1920, 1080, FormatBGRA)}}
	d, _ := newTestDuplicator(t, dev, dup, false)

	if !d.UpdateFrame() {
		t.Fatal("successful capture reported session death")
	}
	if d.Texture() == nil {
		t.Fatal("cached texture missing after capture")
	}
	if got := d.Texture().Desc(); got.Width != 1920 || got.Height != 1080 {
		t.Fatalf("cached texture is %dx%d, want 1920x1080", got.Width, got.Height)
	}
	if !d.Fresh() {
		t.Fatal("captured frame must mark the cycle fresh")
	}
	if dup.releases != 1 {
		t.Fatalf("frame released %d times, want exactly 1", dup.releases)
	}
	if dev.copies != 1 {
		t.Fatalf("expected one full-resource copy, got %d", dev.copies)
	}
}

func TestUpdateFrameReleasesOnTextureQueryFailure(t *testing.T) {
	dev := &fakeDevice{}
	dup := &fakeDuplication{queue: []acquireResult{
		{frame: &fakeFrame{texErr: errors.New("QI failed")}},
	}}
	d, _ := newTestDuplicator(t, dev, dup, false)

	if !d.UpdateFrame() {
		t.Fatal("texture query failure must not kill the session")
	}
	if dup.releases != 1 {
		t.Fatalf("acquired frame must be released exactly once, got %d", dup.releases)
	}
	if d.Fresh() {
		t.Fatal("failed capture must not mark the cycle fresh")
	}
}

func TestUpdateFrameSourceReleasedAfterCopy(t *testing.T) {
	dev := &fakeDevice{}
	src := frameOf(1920, 1080, FormatBGRA)
	dup := &fakeDuplication{queue: []acquireResult{src}}
	d, _ := newTestDuplicator(t, dev, dup, false)

	d.UpdateFrame()
	if src.frame.tex.released != 1 {
		t.Fatalf("source texture released %d times, want 1", src.frame.tex.released)
	}
}

func TestUpdateFrameCopyFailureKeepsSession(t *testing.T) {
	dev := &fakeDevice{createErr: errors.New("out of video memory")}
	dup := &fakeDuplication{queue: []acquireResult{frameOf(1920, 1080, FormatBGRA)}}
	d, _ := newTestDuplicator(t, dev, dup, false)

	if !d.UpdateFrame() {
		t.Fatal("copy failure must not kill the session")
	}
	if d.Fresh() {
		t.Fatal("failed copy must not mark the cycle fresh")
	}
	if dup.releases != 1 {
		t.Fatalf("frame released %d times, want 1", dup.releases)
	}
}

func TestUpdateFrameRePresentsWithoutPolling(t *testing.T) {
	dev := &fakeDevice{}
	dup := &fakeDuplication{queue: []acquireResult{frameOf(1920, 1080, FormatBGRA)}}
	d, ws := newTestDuplicator(t, dev, dup, true)

	if len(ws.windows) != 1 {
		t.Fatalf("expected a preview window, got %d", len(ws.windows))
	}

	d.UpdateFrame()
	acquiresAfterCapture := dup.acquires
	regionsAfterCapture := dev.regions

	// Same cycle: the second caller re-presents the cached frame.
	d.UpdateFrame()
	if dup.acquires != acquiresAfterCapture {
		t.Fatal("second update in the same cycle must not poll the provider again")
	}
	if dev.regions <= regionsAfterCapture {
		t.Fatal("re-present must blit the cached texture again")
	}
}

func TestUpdateFramePollsAgainAfterFreshnessReset(t *testing.T) {
	dev := &fakeDevice{}
	dup := &fakeDuplication{queue: []acquireResult{frameOf(1920, 1080, FormatBGRA)}}
	d, _ := newTestDuplicator(t, dev, dup, true)

	d.UpdateFrame()
	d.updated = false

	acquires := dup.acquires
	d.UpdateFrame()
	if dup.acquires != acquires+1 {
		t.Fatal("a new cycle must poll the provider")
	}
}

func TestDuplicatorDisplayMetadata(t *testing.T) {
	dev := &fakeDevice{}
	dup := &fakeDuplication{info: DisplayInfo{HDR: true, SDRWhiteNits: 240}}
	d, _ := newTestDuplicator(t, dev, dup, false)

	if !d.HDR() {
		t.Fatal("HDR state not carried from the provider")
	}
	if d.SDRWhiteLevel() != 240 {
		t.Fatalf("SDR white level = %v, want 240", d.SDRWhiteLevel())
	}
	if d.MonitorIndex() != 0 {
		t.Fatalf("monitor index = %d, want 0", d.MonitorIndex())
	}
}

func TestPreviewFailureLeavesCaptureOnly(t *testing.T) {
	dev := &fakeDevice{swapErr: errors.New("no swap chain for you")}
	dup := &fakeDuplication{queue: []acquireResult{frameOf(1920, 1080, FormatBGRA)}}
	provider := &fakeProvider{
		outputs: []OutputInfo{fullHDOutput(0)},
		dups:    map[int]*fakeDuplication{0: dup},
	}
	ws := &fakeWindowSystem{}

	d, err := newDuplicator(dev, provider, ws, 0, true)
	if err != nil {
		t.Fatalf("preview failure must not fail session creation: %v", err)
	}
	if d.preview != nil {
		t.Fatal("session should be capture-only after preview setup failure")
	}
	if len(ws.windows) != 1 || !ws.windows[0].destroyed {
		t.Fatal("half-created preview window must be destroyed")
	}
	if !d.UpdateFrame() {
		t.Fatal("capture must work without a preview")
	}
	if d.Texture() == nil {
		t.Fatal("capture-only session produced no texture")
	}
}
