package capture

import "fmt"

// ColorFormat is the reduced set of pixel formats the capture pipeline
// standardizes on, independent of the provider's exact native format.
type ColorFormat int

const (
	FormatUnknown ColorFormat = iota
	FormatBGRA
	FormatBGRX
	FormatRGBA
	FormatRGBA16F
	FormatRGB10A2
)

func (f ColorFormat) String() string {
	switch f {
	case FormatBGRA:
		return "bgra"
	case FormatBGRX:
		return "bgrx"
	case FormatRGBA:
		return "rgba"
	case FormatRGBA16F:
		return "rgba16f"
	case FormatRGB10A2:
		return "rgb10a2"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// GeneralizeFormat collapses alpha-less variants onto their alpha-carrying
// equivalents so the cached texture format stays stable across sources that
// only differ in unused alpha bits.
func GeneralizeFormat(f ColorFormat) ColorFormat {
	if f == FormatBGRX {
		return FormatBGRA
	}
	return f
}

// ColorSpace describes how the cached texture's values map to display light.
type ColorSpace int

const (
	// ColorSpaceSRGB is the standard 8-bit display color space.
	ColorSpaceSRGB ColorSpace = iota
	// ColorSpaceSRGB16F is linear high-precision sRGB, used for half-float
	// captures of SDR content.
	ColorSpaceSRGB16F
	// ColorSpace709ScRGB is extended-range linear scRGB, used when the
	// output is in HDR mode.
	ColorSpace709ScRGB
)

func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceSRGB16F:
		return "srgb16f"
	case ColorSpace709ScRGB:
		return "709scrgb"
	default:
		return "srgb"
	}
}

// TextureDesc describes a GPU texture's dimensions and pixel format.
type TextureDesc struct {
	Width  uint32
	Height uint32
	Format ColorFormat
}

// Texture is a GPU-resident image owned by whoever created or acquired it.
type Texture interface {
	Desc() TextureDesc

	// Release frees the underlying GPU resource. Safe to call once.
	Release()
}

// SwapChain is a window-bound presentation surface.
type SwapChain interface {
	Width() uint32
	Height() uint32

	// Backbuffer returns the current backbuffer texture. The swap chain
	// retains ownership; the returned texture is invalidated by Resize.
	Backbuffer() Texture

	// Resize recreates the backbuffers at the given size.
	Resize(width, height uint32) error

	// Present flips the backbuffer to the window.
	Present(vsync bool) error

	// Waitable reports whether the surface supports wait-able presentation,
	// in which case presents should be paced with vsync.
	Waitable() bool

	Release()
}

// Device is the GPU resource binding the capture pipeline runs on. All
// methods are expected to be called from a single rendering thread.
type Device interface {
	// CreateTexture allocates a GPU-only texture suitable as a copy
	// destination and shader resource.
	CreateTexture(desc TextureDesc) (Texture, error)

	// CreateSwapChain creates a presentation surface bound to the window.
	CreateSwapChain(window Window, width, height uint32, format ColorFormat) (SwapChain, error)

	// CopyResource performs a full-resource GPU copy. Both textures must
	// have identical dimensions and compatible formats.
	CopyResource(dst, src Texture) error

	// CopyRegion copies src's full extent into dst at the origin. Used to
	// blit a capture texture into a backbuffer of a different size.
	CopyRegion(dst, src Texture) error

	// RenderTo binds the swap chain's backbuffer as the current render
	// target with a full viewport, clears it, runs fn, and restores the
	// previously bound target and viewport on every exit path.
	RenderTo(sc SwapChain, fn func() error) error

	Release()
}

// Window is a top-level preview window handle.
type Window interface {
	// Handle returns the native window handle.
	Handle() uintptr

	// ClientSize returns the window's client-area size in pixels.
	ClientSize() (width, height uint32)

	Visible() bool
	SetVisible(show bool)
	Destroy()
}

// WindowSystem creates preview windows and dispatches their events.
type WindowSystem interface {
	CreateWindow(title string, width, height int) (Window, error)

	// PumpEvents processes pending window-system events without blocking.
	// Must be called regularly from the thread that created the windows.
	PumpEvents()
}
