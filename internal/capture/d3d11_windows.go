//go:build windows

package capture

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	d3d11DLL              = windows.NewLazySystemDLL("d3d11.dll")
	procD3D11CreateDevice = d3d11DLL.NewProc("D3D11CreateDevice")
)

// D3D11/DXGI constants
const (
	d3dDriverTypeHardware = 1
	d3dFeatureLevel11_0   = 0xb000
	d3d11SDKVersion       = 7

	d3d11CreateDeviceBGRASupport = 0x20

	d3d11UsageDefault       = 0
	d3d11BindShaderResource = 0x8
	d3d11BindRenderTarget   = 0x20

	dxgiFormatRGBA16F = 10 // DXGI_FORMAT_R16G16B16A16_FLOAT
	dxgiFormatRGB10A2 = 24 // DXGI_FORMAT_R10G10B10A2_UNORM
	dxgiFormatRGBA8   = 28 // DXGI_FORMAT_R8G8B8A8_UNORM
	dxgiFormatBGRA8   = 87 // DXGI_FORMAT_B8G8R8A8_UNORM
	dxgiFormatBGRX8   = 88 // DXGI_FORMAT_B8G8R8X8_UNORM

	dxgiErrNotFound    = 0x887A0002
	dxgiErrWaitTimeout = 0x887A0027
	dxgiErrAccessLost  = 0x887A0026

	// DXGI/D3D11 COM vtable indices. Fixed by the COM ABI; must be exact.
	dxgiObjectGetParent        = 6  // IDXGIObject
	dxgiDeviceGetAdapter       = 7  // IDXGIDevice (after IUnknown+IDXGIObject)
	dxgiAdapterEnumOutputs     = 7  // IDXGIAdapter
	dxgiOutputGetDesc          = 7  // IDXGIOutput
	dxgiOutput1DuplicateOutput = 22 // IDXGIOutput1
	dxgiOutput5DuplicateOut1   = 26 // IDXGIOutput5::DuplicateOutput1
	dxgiOutput6GetDesc1        = 27 // IDXGIOutput6
	dxgiDuplAcquireNextFrame   = 8  // IDXGIOutputDuplication
	dxgiDuplReleaseFrame       = 14 // IDXGIOutputDuplication

	d3d11DeviceCreateTexture2D = 5  // ID3D11Device
	d3d11DeviceCreateRTV       = 9  // ID3D11Device::CreateRenderTargetView
	d3d11TextureGetDesc        = 10 // ID3D11Texture2D (after ID3D11Resource)

	d3d11CtxOMSetRenderTargets = 33 // ID3D11DeviceContext
	d3d11CtxRSSetViewports     = 44 // ID3D11DeviceContext
	d3d11CtxCopySubresource    = 46 // ID3D11DeviceContext::CopySubresourceRegion
	d3d11CtxCopyResource       = 47 // ID3D11DeviceContext
	d3d11CtxClearRTV           = 50 // ID3D11DeviceContext::ClearRenderTargetView
	d3d11CtxOMGetRenderTargets = 89 // ID3D11DeviceContext
	d3d11CtxRSGetViewports     = 95 // ID3D11DeviceContext
)

// COM GUIDs for the interfaces we query.
var (
	iidIDXGIDevice     = comGUID{0x54ec77fa, 0x1377, 0x44e6, [8]byte{0x8c, 0x32, 0x88, 0xfd, 0x5f, 0x44, 0xc8, 0x4c}}
	iidIDXGIFactory2   = comGUID{0x50c83a1c, 0xe072, 0x4c48, [8]byte{0x87, 0xb0, 0x36, 0x30, 0xfa, 0x36, 0xa6, 0xd0}}
	iidIDXGIOutput1    = comGUID{0x00cddea8, 0x939b, 0x4b83, [8]byte{0xa3, 0x40, 0xa6, 0x85, 0x22, 0x66, 0x66, 0xcc}}
	iidIDXGIOutput5    = comGUID{0x80a07424, 0xab52, 0x42eb, [8]byte{0x83, 0x3c, 0x0c, 0x42, 0xfd, 0x28, 0x2d, 0x98}}
	iidIDXGIOutput6    = comGUID{0x068346e8, 0xaaec, 0x4b84, [8]byte{0xad, 0xd7, 0x13, 0x7f, 0x51, 0x3f, 0x77, 0xa1}}
	iidID3D11Texture2D = comGUID{0x6f15aaf2, 0xd208, 0x4e89, [8]byte{0x9a, 0xb4, 0x48, 0x95, 0x35, 0xd3, 0x4f, 0x9c}}
)

// d3d11Texture2DDesc matches D3D11_TEXTURE2D_DESC (44 bytes).
type d3d11Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32 // DXGI_SAMPLE_DESC.Count
	SampleQuality  uint32 // DXGI_SAMPLE_DESC.Quality
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

// d3d11Viewport matches D3D11_VIEWPORT.
type d3d11Viewport struct {
	TopLeftX float32
	TopLeftY float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

// d3d11Box matches D3D11_BOX.
type d3d11Box struct {
	Left   uint32
	Top    uint32
	Front  uint32
	Right  uint32
	Bottom uint32
	Back   uint32
}

func dxgiToColorFormat(f uint32) (ColorFormat, error) {
	switch f {
	case dxgiFormatBGRA8:
		return FormatBGRA, nil
	case dxgiFormatBGRX8:
		return FormatBGRX, nil
	case dxgiFormatRGBA8:
		return FormatRGBA, nil
	case dxgiFormatRGBA16F:
		return FormatRGBA16F, nil
	case dxgiFormatRGB10A2:
		return FormatRGB10A2, nil
	default:
		return FormatUnknown, fmt.Errorf("unhandled DXGI format %d", f)
	}
}

func colorFormatToDXGI(f ColorFormat) uint32 {
	switch f {
	case FormatBGRX:
		return dxgiFormatBGRX8
	case FormatRGBA:
		return dxgiFormatRGBA8
	case FormatRGBA16F:
		return dxgiFormatRGBA16F
	case FormatRGB10A2:
		return dxgiFormatRGB10A2
	default:
		return dxgiFormatBGRA8
	}
}

// d3d11Texture wraps an ID3D11Texture2D pointer.
type d3d11Texture struct {
	ptr  uintptr
	desc TextureDesc
}

func (t *d3d11Texture) Desc() TextureDesc {
	return t.desc
}

func (t *d3d11Texture) Release() {
	if t.ptr != 0 {
		comRelease(t.ptr)
		t.ptr = 0
	}
}

// wrapD3D11Texture reads the native texture's description and wraps it.
func wrapD3D11Texture(ptr uintptr) (*d3d11Texture, error) {
	// GetDesc is void; nothing to check.
	var desc d3d11Texture2DDesc
	syscall.SyscallN(
		comVtblFn(ptr, d3d11TextureGetDesc),
		ptr,
		uintptr(unsafe.Pointer(&desc)),
	)

	format, err := dxgiToColorFormat(desc.Format)
	if err != nil {
		return nil, err
	}
	return &d3d11Texture{
		ptr: ptr,
		desc: TextureDesc{
			Width:  desc.Width,
			Height: desc.Height,
			Format: format,
		},
	}, nil
}

// d3d11Device implements Device on top of a hardware D3D11 device.
type d3d11Device struct {
	device  uintptr // ID3D11Device
	context uintptr // ID3D11DeviceContext
	adapter uintptr // IDXGIAdapter
	factory uintptr // IDXGIFactory2
}

// newD3D11Device creates a hardware device on the default adapter and
// resolves the adapter and DXGI factory it came from.
func newD3D11Device() (*d3d11Device, error) {
	var device, context uintptr
	featureLevel := uint32(d3dFeatureLevel11_0)
	var actualLevel uint32

	hr, _, _ := procD3D11CreateDevice.Call(
		0,                              // pAdapter (NULL = default)
		uintptr(d3dDriverTypeHardware), // DriverType
		0,                              // Software
		uintptr(d3d11CreateDeviceBGRASupport),
		uintptr(unsafe.Pointer(&featureLevel)),
		1,
		uintptr(d3d11SDKVersion),
		uintptr(unsafe.Pointer(&device)),
		uintptr(unsafe.Pointer(&actualLevel)),
		uintptr(unsafe.Pointer(&context)),
	)
	if int32(hr) < 0 {
		// Some drivers reject the BGRA flag. Fall back to a plain device.
		hr, _, _ = procD3D11CreateDevice.Call(
			0,
			uintptr(d3dDriverTypeHardware),
			0,
			0,
			uintptr(unsafe.Pointer(&featureLevel)),
			1,
			uintptr(d3d11SDKVersion),
			uintptr(unsafe.Pointer(&device)),
			uintptr(unsafe.Pointer(&actualLevel)),
			uintptr(unsafe.Pointer(&context)),
		)
	}
	if int32(hr) < 0 {
		return nil, fmt.Errorf("D3D11CreateDevice failed: 0x%08X", uint32(hr))
	}

	var dxgiDevice uintptr
	_, err := comCall(device, vtblQueryInterface,
		uintptr(unsafe.Pointer(&iidIDXGIDevice)),
		uintptr(unsafe.Pointer(&dxgiDevice)),
	)
	if err != nil {
		comRelease(context)
		comRelease(device)
		return nil, fmt.Errorf("QueryInterface IDXGIDevice: %w", err)
	}
	defer comRelease(dxgiDevice)

	var adapter uintptr
	_, err = comCall(dxgiDevice, dxgiDeviceGetAdapter, uintptr(unsafe.Pointer(&adapter)))
	if err != nil {
		comRelease(context)
		comRelease(device)
		return nil, fmt.Errorf("IDXGIDevice::GetAdapter: %w", err)
	}

	var factory uintptr
	_, err = comCall(adapter, dxgiObjectGetParent,
		uintptr(unsafe.Pointer(&iidIDXGIFactory2)),
		uintptr(unsafe.Pointer(&factory)),
	)
	if err != nil {
		comRelease(adapter)
		comRelease(context)
		comRelease(device)
		return nil, fmt.Errorf("IDXGIAdapter::GetParent IDXGIFactory2: %w", err)
	}

	return &d3d11Device{
		device:  device,
		context: context,
		adapter: adapter,
		factory: factory,
	}, nil
}

func (d *d3d11Device) CreateTexture(desc TextureDesc) (Texture, error) {
	texDesc := d3d11Texture2DDesc{
		Width:       desc.Width,
		Height:      desc.Height,
		MipLevels:   1,
		ArraySize:   1,
		Format:      colorFormatToDXGI(desc.Format),
		SampleCount: 1,
		Usage:       d3d11UsageDefault,
		BindFlags:   d3d11BindShaderResource | d3d11BindRenderTarget,
	}

	var tex uintptr
	_, err := comCall(d.device, d3d11DeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&texDesc)),
		0, // pInitialData
		uintptr(unsafe.Pointer(&tex)),
	)
	if err != nil {
		return nil, fmt.Errorf("CreateTexture2D: %w", err)
	}

	return &d3d11Texture{ptr: tex, desc: desc}, nil
}

func (d *d3d11Device) CopyResource(dst, src Texture) error {
	dstTex, srcTex, err := nativePair(dst, src)
	if err != nil {
		return err
	}
	syscall.SyscallN(
		comVtblFn(d.context, d3d11CtxCopyResource),
		d.context,
		dstTex,
		srcTex,
	)
	return nil
}

func (d *d3d11Device) CopyRegion(dst, src Texture) error {
	dstTex, srcTex, err := nativePair(dst, src)
	if err != nil {
		return err
	}
	srcDesc := src.Desc()
	box := d3d11Box{
		Right:  srcDesc.Width,
		Bottom: srcDesc.Height,
		Back:   1,
	}
	syscall.SyscallN(
		comVtblFn(d.context, d3d11CtxCopySubresource),
		d.context,
		dstTex,
		0, // DstSubresource
		0, // DstX
		0, // DstY
		0, // DstZ
		srcTex,
		0, // SrcSubresource
		uintptr(unsafe.Pointer(&box)),
	)
	return nil
}

// RenderTo binds sc's backbuffer as the render target, clears it and runs fn.
// The previously bound target and viewport are restored on every exit path so
// unrelated rendering in progress on this thread is not corrupted.
func (d *d3d11Device) RenderTo(sc SwapChain, fn func() error) error {
	chain, ok := sc.(*dxgiSwapChain)
	if !ok {
		return fmt.Errorf("swap chain is not a DXGI swap chain")
	}
	if chain.rtv == 0 {
		return fmt.Errorf("missing render target view")
	}

	// Save the current target and viewport. OMGetRenderTargets AddRefs the
	// returned views; release them after restore.
	var prevRTV, prevDSV uintptr
	syscall.SyscallN(
		comVtblFn(d.context, d3d11CtxOMGetRenderTargets),
		d.context,
		1,
		uintptr(unsafe.Pointer(&prevRTV)),
		uintptr(unsafe.Pointer(&prevDSV)),
	)
	var prevVPCount uint32 = 1
	var prevVP d3d11Viewport
	syscall.SyscallN(
		comVtblFn(d.context, d3d11CtxRSGetViewports),
		d.context,
		uintptr(unsafe.Pointer(&prevVPCount)),
		uintptr(unsafe.Pointer(&prevVP)),
	)

	defer func() {
		syscall.SyscallN(
			comVtblFn(d.context, d3d11CtxOMSetRenderTargets),
			d.context,
			1,
			uintptr(unsafe.Pointer(&prevRTV)),
			prevDSV,
		)
		if prevVPCount > 0 {
			syscall.SyscallN(
				comVtblFn(d.context, d3d11CtxRSSetViewports),
				d.context,
				1,
				uintptr(unsafe.Pointer(&prevVP)),
			)
		}
		comRelease(prevRTV)
		comRelease(prevDSV)
	}()

	clearColor := [4]float32{0, 0, 0, 0}
	syscall.SyscallN(
		comVtblFn(d.context, d3d11CtxClearRTV),
		d.context,
		chain.rtv,
		uintptr(unsafe.Pointer(&clearColor)),
	)
	syscall.SyscallN(
		comVtblFn(d.context, d3d11CtxOMSetRenderTargets),
		d.context,
		1,
		uintptr(unsafe.Pointer(&chain.rtv)),
		0,
	)
	viewport := d3d11Viewport{
		Width:    float32(chain.width),
		Height:   float32(chain.height),
		MaxDepth: 1,
	}
	syscall.SyscallN(
		comVtblFn(d.context, d3d11CtxRSSetViewports),
		d.context,
		1,
		uintptr(unsafe.Pointer(&viewport)),
	)

	return fn()
}

func (d *d3d11Device) Release() {
	comRelease(d.factory)
	d.factory = 0
	comRelease(d.adapter)
	d.adapter = 0
	comRelease(d.context)
	d.context = 0
	comRelease(d.device)
	d.device = 0
}

func nativePair(dst, src Texture) (uintptr, uintptr, error) {
	dstTex, ok := dst.(*d3d11Texture)
	if !ok {
		return 0, 0, fmt.Errorf("destination is not a D3D11 texture")
	}
	srcTex, ok := src.(*d3d11Texture)
	if !ok {
		return 0, 0, fmt.Errorf("source is not a D3D11 texture")
	}
	return dstTex.ptr, srcTex.ptr, nil
}
