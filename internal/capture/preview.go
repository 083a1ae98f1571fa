package capture

import (
	"fmt"
	"log/slog"

	"github.com/breeze-rmm/duplicator/internal/logging"
)

// Preview mirrors the last captured frame into a top-level window for visual
// inspection. It is strictly optional: any creation or presentation failure
// leaves capture itself untouched.
type Preview struct {
	device  Device
	window  Window
	surface SwapChain
	log     *slog.Logger
}

// newPreview creates a preview window sized to half the output's resolution
// with a presentation surface bound to it. Returns nil on any failure; the
// session then runs capture-only.
func newPreview(device Device, windows WindowSystem, out OutputInfo, log *slog.Logger) *Preview {
	width := out.Width / 2
	height := out.Height / 2

	window, err := windows.CreateWindow(fmt.Sprintf("Monitor %d preview", out.Index), width, height)
	if err != nil {
		log.Warn("failed to create preview window", logging.KeyError, err)
		return nil
	}

	surface, err := device.CreateSwapChain(window, uint32(width), uint32(height), FormatBGRA)
	if err != nil {
		log.Warn("failed to create preview surface", logging.KeyError, err)
		window.Destroy()
		return nil
	}

	window.SetVisible(true)

	return &Preview{
		device:  device,
		window:  window,
		surface: surface,
		log:     log,
	}
}

// Present mirrors src into the preview window. No-op while the window is
// hidden or has a zero client area. The surface tracks the window's client
// size, never the capture size; a resize failure aborts only this attempt.
func (p *Preview) Present(src Texture) {
	if src == nil || !p.window.Visible() {
		return
	}

	width, height := p.window.ClientSize()
	if width == 0 || height == 0 {
		return
	}

	if width != p.surface.Width() || height != p.surface.Height() {
		if err := p.surface.Resize(width, height); err != nil {
			p.log.Error("failed to resize preview surface", logging.KeyError, err)
			return
		}
	}

	err := p.device.RenderTo(p.surface, func() error {
		return p.device.CopyRegion(p.surface.Backbuffer(), src)
	})
	if err != nil {
		p.log.Error("preview present failed", logging.KeyError, err)
		return
	}

	// Vsync only when the surface supports wait-able presentation.
	if err := p.surface.Present(p.surface.Waitable()); err != nil {
		p.log.Error("preview flip failed", logging.KeyError, err)
	}
}

// SetVisible shows or hides the preview window without affecting capture.
func (p *Preview) SetVisible(show bool) {
	p.window.SetVisible(show)
}

// Close releases the presentation surface and destroys the window.
func (p *Preview) Close() {
	if p.surface != nil {
		p.surface.Release()
		p.surface = nil
	}
	if p.window != nil {
		p.window.Destroy()
		p.window = nil
	}
}
