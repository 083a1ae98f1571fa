package capture

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/breeze-rmm/duplicator/internal/logging"
)

// preferredFormats is the duplication format wishlist, widest first. The
// provider falls back to its default 8-bit path when the extended-range
// float format cannot be negotiated.
var preferredFormats = []ColorFormat{FormatRGBA16F, FormatBGRA}

// Duplicator is one reference-counted duplication session for a monitor. It
// owns the capture handle, the cached destination texture and, optionally, a
// live preview window. All methods must run on the rendering thread; see
// Registry for the sharing contract.
type Duplicator struct {
	idx  int
	refs int
	log  *slog.Logger

	dup   Duplication
	cache textureCache

	hdr          bool
	sdrWhiteNits float32

	// updated is the per-cycle fresh-frame flag, cleared by
	// Registry.ResetFreshness at each outer cycle boundary.
	updated bool

	preview *Preview
}

func newDuplicator(device Device, provider Provider, windows WindowSystem, idx int, withPreview bool) (*Duplicator, error) {
	out, err := provider.Output(idx)
	if err != nil {
		return nil, err
	}

	dup, err := provider.Duplicate(idx, preferredFormats)
	if err != nil {
		return nil, fmt.Errorf("duplicate output %d: %w", idx, err)
	}

	info := dup.DisplayInfo()
	d := &Duplicator{
		idx:          idx,
		refs:         1,
		log:          logging.WithMonitor(logging.L("duplicator"), idx),
		dup:          dup,
		cache:        textureCache{device: device, hdr: info.HDR},
		hdr:          info.HDR,
		sdrWhiteNits: info.SDRWhiteNits,
	}

	if withPreview && windows != nil {
		// Preview failure leaves the session capture-only.
		d.preview = newPreview(device, windows, out, d.log)
	}

	d.log.Info("duplication session started",
		"hdr", d.hdr, "sdrWhiteNits", d.sdrWhiteNits, "preview", d.preview != nil)
	return d, nil
}

// UpdateFrame polls the provider for a new frame and refreshes the cached
// texture. Returns false only when the duplication is unrecoverably lost;
// the caller must then release the session and acquire a new one. Timeouts
// and transient provider errors report success with the previous texture
// left intact.
func (d *Duplicator) UpdateFrame() bool {
	if d.dup == nil {
		return false
	}

	// The provider only delivers changed frames. Once a frame was captured
	// this cycle, keep the preview animated by re-presenting it instead of
	// polling again.
	if d.preview != nil && d.cache.tex != nil && d.updated {
		d.preview.Present(d.cache.tex)
		return true
	}

	frame, err := d.dup.AcquireNextFrame(0)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoFrame):
			return true
		case errors.Is(err, ErrAccessLost):
			d.log.Warn("duplication access lost, session must be rebuilt")
			return false
		default:
			d.log.Error("frame acquire failed", logging.KeyError, err)
			return true
		}
	}

	src, err := frame.Texture()
	if err != nil {
		d.log.Error("failed to resolve frame texture", logging.KeyError, err)
		d.dup.ReleaseFrame()
		return true
	}

	copyErr := d.cache.update(src)
	src.Release()
	d.dup.ReleaseFrame()

	if copyErr != nil {
		d.log.Error("frame copy failed", logging.KeyError, copyErr)
		return true
	}

	d.updated = true

	if d.preview != nil {
		d.preview.Present(d.cache.tex)
	}
	return true
}

// Texture returns the cached destination texture, or nil before the first
// captured frame.
func (d *Duplicator) Texture() Texture {
	return d.cache.tex
}

// ColorSpace returns the color space of the cached texture.
func (d *Duplicator) ColorSpace() ColorSpace {
	return d.cache.colorSpace
}

// SDRWhiteLevel returns the display's SDR white level in nits, recorded when
// the session was created.
func (d *Duplicator) SDRWhiteLevel() float32 {
	return d.sdrWhiteNits
}

// HDR reports whether the output was in HDR mode when the session started.
func (d *Duplicator) HDR() bool {
	return d.hdr
}

// Fresh reports whether a new frame was captured since the last freshness
// reset. Consumers polling a stale texture can use this to skip downstream
// work.
func (d *Duplicator) Fresh() bool {
	return d.updated
}

// MonitorIndex returns the output index this session captures.
func (d *Duplicator) MonitorIndex() int {
	return d.idx
}

// SetPreviewVisible shows or hides the preview window without affecting
// capture. No-op for capture-only sessions.
func (d *Duplicator) SetPreviewVisible(show bool) {
	if d.preview != nil {
		d.preview.SetVisible(show)
	}
}

// close tears the session down: capture handle first, then the cached
// texture, then preview resources.
func (d *Duplicator) close() {
	if d.dup != nil {
		d.dup.Close()
		d.dup = nil
	}
	d.cache.release()
	if d.preview != nil {
		d.preview.Close()
		d.preview = nil
	}
	d.log.Info("duplication session destroyed")
}
