package capture

import (
	"errors"
	"testing"

	"github.com/breeze-rmm/duplicator/internal/logging"
)

func newTestPreview(t *testing.T, dev *fakeDevice) (*Preview, *fakeWindow, *fakeSwapChain) {
	t.Helper()
	ws := &fakeWindowSystem{}
	p := newPreview(dev, ws, fullHDOutput(0), logging.L("test"))
	if p == nil {
		t.Fatal("newPreview failed with healthy fakes")
	}
	return p, ws.windows[0], dev.swaps[0]
}

func TestPreviewHalvesOutputResolution(t *testing.T) {
	dev := &fakeDevice{}
	_, window, surface := newTestPreview(t, dev)

	if window.clientW != 960 || window.clientH != 540 {
		t.Fatalf("preview window is %dx%d, want 960x540", window.clientW, window.clientH)
	}
	if surface.width != 960 || surface.height != 540 {
		t.Fatalf("preview surface is %dx%d, want 960x540", surface.width, surface.height)
	}
	if !window.visible {
		t.Fatal("preview window must start visible")
	}
}

func TestPreviewPresentBlitsAndFlips(t *testing.T) {
	dev := &fakeDevice{}
	p, _, surface := newTestPreview(t, dev)
	src := &fakeTexture{desc: TextureDesc{Width: 1920, Height: 1080, Format: FormatBGRA}}

	p.Present(src)

	if dev.renders != 1 || dev.regions != 1 {
		t.Fatalf("renders=%d regions=%d, want 1/1", dev.renders, dev.regions)
	}
	if surface.presents != 1 {
		t.Fatalf("presents = %d, want 1", surface.presents)
	}
	if surface.resizes != 0 {
		t.Fatal("matching client size must not resize the surface")
	}
}

func TestPreviewPresentSkipsHiddenWindow(t *testing.T) {
	dev := &fakeDevice{}
	p, window, surface := newTestPreview(t, dev)
	window.visible = false

	p.Present(&fakeTexture{desc: TextureDesc{Width: 1920, Height: 1080, Format: FormatBGRA}})

	if dev.regions != 0 || surface.presents != 0 {
		t.Fatal("hidden preview must not render or present")
	}
}

func TestPreviewPresentSkipsZeroClientArea(t *testing.T) {
	dev := &fakeDevice{}
	p, window, surface := newTestPreview(t, dev)
	window.clientW, window.clientH = 0, 0 // minimized

	p.Present(&fakeTexture{desc: TextureDesc{Width: 1920, Height: 1080, Format: FormatBGRA}})

	if surface.resizes != 0 {
		t.Fatal("zero client area must not trigger a resize")
	}
	if dev.regions != 0 || surface.presents != 0 {
		t.Fatal("zero client area must not render or present")
	}
}

func TestPreviewSurfaceTracksWindowSize(t *testing.T) {
	dev := &fakeDevice{}
	p, window, surface := newTestPreview(t, dev)
	window.clientW, window.clientH = 640, 480

	p.Present(&fakeTexture{desc: TextureDesc{Width: 1920, Height: 1080, Format: FormatBGRA}})

	if surface.resizes != 1 {
		t.Fatalf("resizes = %d, want 1", surface.resizes)
	}
	if surface.width != 640 || surface.height != 480 {
		t.Fatalf("surface is %dx%d, want the window's 640x480", surface.width, surface.height)
	}
	if dev.regions != 1 || surface.presents != 1 {
		t.Fatal("present must continue after a successful resize")
	}
}

func TestPreviewResizeFailureAbortsAttempt(t *testing.T) {
	dev := &fakeDevice{}
	p, window, surface := newTestPreview(t, dev)
	window.clientW, window.clientH = 640, 480
	surface.resizeErr = errors.New("resize rejected")

	p.Present(&fakeTexture{desc: TextureDesc{Width: 1920, Height: 1080, Format: FormatBGRA}})

	if dev.regions != 0 || surface.presents != 0 {
		t.Fatal("failed resize must abort the present attempt")
	}
}

func TestPreviewVsyncFollowsWaitableSurface(t *testing.T) {
	src := &fakeTexture{desc: TextureDesc{Width: 1920, Height: 1080, Format: FormatBGRA}}

	dev := &fakeDevice{}
	p, _, surface := newTestPreview(t, dev)
	surface.waitable = true
	p.Present(src)
	if !surface.lastVsync {
		t.Fatal("wait-able surface must present with vsync")
	}

	dev = &fakeDevice{}
	p, _, surface = newTestPreview(t, dev)
	p.Present(src)
	if surface.lastVsync {
		t.Fatal("non-wait-able surface must present without vsync")
	}
}

func TestPreviewClose(t *testing.T) {
	dev := &fakeDevice{}
	p, window, surface := newTestPreview(t, dev)

	p.Close()
	if !surface.released {
		t.Fatal("surface not released on close")
	}
	if !window.destroyed {
		t.Fatal("window not destroyed on close")
	}
}
