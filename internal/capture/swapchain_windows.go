//go:build windows

package capture

import (
	"fmt"
	"syscall"
	"unsafe"
)

const (
	dxgiUsageRenderTargetOutput = 0x20

	dxgiSwapEffectDiscard     = 0
	dxgiSwapEffectFlipDiscard = 4

	dxgiSwapChainFlagWaitable = 0x40 // DXGI_SWAP_CHAIN_FLAG_FRAME_LATENCY_WAITABLE_OBJECT

	dxgiFactory2CreateSwapChainForHwnd = 15 // IDXGIFactory2

	dxgiSwapChainPresent       = 8  // IDXGISwapChain
	dxgiSwapChainGetBuffer     = 9  // IDXGISwapChain
	dxgiSwapChainResizeBuffers = 13 // IDXGISwapChain
)

type dxgiSampleDesc struct {
	Count   uint32
	Quality uint32
}

// dxgiSwapChainDesc1 matches DXGI_SWAP_CHAIN_DESC1.
type dxgiSwapChainDesc1 struct {
	Width       uint32
	Height      uint32
	Format      uint32
	Stereo      int32 // BOOL
	SampleDesc  dxgiSampleDesc
	BufferUsage uint32
	BufferCount uint32
	Scaling     uint32
	SwapEffect  uint32
	AlphaMode   uint32
	Flags       uint32
}

// dxgiSwapChain implements SwapChain over IDXGISwapChain1.
type dxgiSwapChain struct {
	device *d3d11Device

	swap       uintptr // IDXGISwapChain1
	backbuffer *d3d11Texture
	rtv        uintptr // ID3D11RenderTargetView

	width    uint32
	height   uint32
	format   ColorFormat
	flags    uint32
	waitable bool
}

// CreateSwapChain creates a window-bound presentation surface. A flip-model
// wait-able swap chain is preferred; older drivers get the plain discard
// model without wait-able pacing.
func (d *d3d11Device) CreateSwapChain(window Window, width, height uint32, format ColorFormat) (SwapChain, error) {
	desc := dxgiSwapChainDesc1{
		Width:       width,
		Height:      height,
		Format:      colorFormatToDXGI(format),
		SampleDesc:  dxgiSampleDesc{Count: 1},
		BufferUsage: dxgiUsageRenderTargetOutput,
		BufferCount: 2,
		SwapEffect:  dxgiSwapEffectFlipDiscard,
		Flags:       dxgiSwapChainFlagWaitable,
	}

	waitable := true
	var swap uintptr
	_, err := comCall(d.factory, dxgiFactory2CreateSwapChainForHwnd,
		d.device,
		window.Handle(),
		uintptr(unsafe.Pointer(&desc)),
		0, // pFullscreenDesc
		0, // pRestrictToOutput
		uintptr(unsafe.Pointer(&swap)),
	)
	if err != nil {
		desc.SwapEffect = dxgiSwapEffectDiscard
		desc.BufferCount = 1
		desc.Flags = 0
		waitable = false
		_, err = comCall(d.factory, dxgiFactory2CreateSwapChainForHwnd,
			d.device,
			window.Handle(),
			uintptr(unsafe.Pointer(&desc)),
			0,
			0,
			uintptr(unsafe.Pointer(&swap)),
		)
		if err != nil {
			return nil, fmt.Errorf("CreateSwapChainForHwnd: %w", err)
		}
	}

	sc := &dxgiSwapChain{
		device:   d,
		swap:     swap,
		width:    width,
		height:   height,
		format:   format,
		flags:    desc.Flags,
		waitable: waitable,
	}
	if err := sc.acquireBackbuffer(); err != nil {
		comRelease(swap)
		return nil, err
	}
	return sc, nil
}

func (sc *dxgiSwapChain) acquireBackbuffer() error {
	var buf uintptr
	_, err := comCall(sc.swap, dxgiSwapChainGetBuffer,
		0,
		uintptr(unsafe.Pointer(&iidID3D11Texture2D)),
		uintptr(unsafe.Pointer(&buf)),
	)
	if err != nil {
		return fmt.Errorf("GetBuffer: %w", err)
	}

	var rtv uintptr
	_, err = comCall(sc.device.device, d3d11DeviceCreateRTV,
		buf,
		0, // pDesc
		uintptr(unsafe.Pointer(&rtv)),
	)
	if err != nil {
		comRelease(buf)
		return fmt.Errorf("CreateRenderTargetView: %w", err)
	}

	sc.backbuffer = &d3d11Texture{
		ptr: buf,
		desc: TextureDesc{
			Width:  sc.width,
			Height: sc.height,
			Format: sc.format,
		},
	}
	sc.rtv = rtv
	return nil
}

func (sc *dxgiSwapChain) releaseBackbuffer() {
	if sc.rtv != 0 {
		comRelease(sc.rtv)
		sc.rtv = 0
	}
	if sc.backbuffer != nil {
		sc.backbuffer.Release()
		sc.backbuffer = nil
	}
}

func (sc *dxgiSwapChain) Width() uint32 { return sc.width }
func (sc *dxgiSwapChain) Height() uint32 { return sc.height }

func (sc *dxgiSwapChain) Backbuffer() Texture {
	return sc.backbuffer
}

// Resize recreates the backbuffers at the window's new client size. All
// backbuffer references must be dropped before ResizeBuffers, hence the
// release/re-acquire dance.
func (sc *dxgiSwapChain) Resize(width, height uint32) error {
	sc.releaseBackbuffer()

	_, err := comCall(sc.swap, dxgiSwapChainResizeBuffers,
		0, // keep buffer count
		uintptr(width),
		uintptr(height),
		0, // DXGI_FORMAT_UNKNOWN keeps the format
		uintptr(sc.flags),
	)
	if err != nil {
		return fmt.Errorf("ResizeBuffers %dx%d: %w", width, height, err)
	}

	sc.width = width
	sc.height = height
	return sc.acquireBackbuffer()
}

func (sc *dxgiSwapChain) Present(vsync bool) error {
	interval := uintptr(0)
	if vsync {
		interval = 1
	}
	hr, _, _ := syscall.SyscallN(
		comVtblFn(sc.swap, dxgiSwapChainPresent),
		sc.swap,
		interval,
		0, // Flags
	)
	if int32(hr) < 0 {
		return fmt.Errorf("Present: 0x%08X", uint32(hr))
	}
	return nil
}

func (sc *dxgiSwapChain) Waitable() bool { return sc.waitable }

func (sc *dxgiSwapChain) Release() {
	sc.releaseBackbuffer()
	if sc.swap != 0 {
		comRelease(sc.swap)
		sc.swap = 0
	}
}
