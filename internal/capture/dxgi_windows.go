//go:build windows

package capture

import (
	"fmt"
	"log/slog"
	"syscall"
	"time"
	"unsafe"

	"github.com/breeze-rmm/duplicator/internal/logging"
)

// defaultSDRWhiteNits is assumed when the display reports no white level.
const defaultSDRWhiteNits = 80.0

// DXGI_COLOR_SPACE_RGB_FULL_G2084_NONE_P709: the output is in HDR mode.
const dxgiColorSpaceRGBFullG2084 = 12

// dxgiOutputDesc matches DXGI_OUTPUT_DESC (96 bytes).
type dxgiOutputDesc struct {
	DeviceName        [32]uint16
	Left              int32
	Top               int32
	Right             int32
	Bottom            int32
	AttachedToDesktop int32
	Rotation          uint32
	Monitor           uintptr
}

// dxgiOutputDesc1 matches DXGI_OUTPUT_DESC1 (dxgi1_6.h).
type dxgiOutputDesc1 struct {
	DeviceName            [32]uint16
	Left                  int32
	Top                   int32
	Right                 int32
	Bottom                int32
	AttachedToDesktop     int32
	Rotation              uint32
	Monitor               uintptr
	BitsPerColor          uint32
	ColorSpace            uint32
	RedPrimary            [2]float32
	GreenPrimary          [2]float32
	BluePrimary           [2]float32
	WhitePoint            [2]float32
	MinLuminance          float32
	MaxLuminance          float32
	MaxFullFrameLuminance float32
}

// dxgiOutDuplFrameInfo matches DXGI_OUTDUPL_FRAME_INFO.
type dxgiOutDuplFrameInfo struct {
	LastPresentTime           int64
	LastMouseUpdateTime       int64
	AccumulatedFrames         uint32
	RectsCoalesced            int32
	ProtectedContentMaskedOut int32
	PointerPositionX          int32
	PointerPositionY          int32
	PointerVisible            int32
	TotalMetadataBufferSize   uint32
	PointerShapeBufferSize    uint32
}

func rotationDegrees(r uint32) int {
	switch r {
	case 2: // DXGI_MODE_ROTATION_ROTATE90
		return 90
	case 3: // DXGI_MODE_ROTATION_ROTATE180
		return 180
	case 4: // DXGI_MODE_ROTATION_ROTATE270
		return 270
	default: // UNSPECIFIED and IDENTITY
		return 0
	}
}

// dxgiProvider implements Provider using DXGI Desktop Duplication on the
// adapter the device was created on.
type dxgiProvider struct {
	dev *d3d11Device
	log *slog.Logger
}

func newDXGIProvider(dev *d3d11Device) *dxgiProvider {
	return &dxgiProvider{dev: dev, log: logging.L("dxgi")}
}

func (p *dxgiProvider) enumOutput(idx int) (uintptr, error) {
	var output uintptr
	hr, _, _ := syscall.SyscallN(
		comVtblFn(p.dev.adapter, dxgiAdapterEnumOutputs),
		p.dev.adapter,
		uintptr(idx),
		uintptr(unsafe.Pointer(&output)),
	)
	if uint32(hr) == dxgiErrNotFound {
		return 0, ErrOutputNotFound
	}
	if int32(hr) < 0 {
		return 0, fmt.Errorf("EnumOutputs %d: 0x%08X", idx, uint32(hr))
	}
	return output, nil
}

func (p *dxgiProvider) Output(idx int) (OutputInfo, error) {
	output, err := p.enumOutput(idx)
	if err != nil {
		return OutputInfo{}, err
	}
	defer comRelease(output)

	var desc dxgiOutputDesc
	hr, _, _ := syscall.SyscallN(
		comVtblFn(output, dxgiOutputGetDesc),
		output,
		uintptr(unsafe.Pointer(&desc)),
	)
	if int32(hr) < 0 {
		return OutputInfo{}, fmt.Errorf("IDXGIOutput::GetDesc: 0x%08X", uint32(hr))
	}
	return outputInfo(idx, &desc), nil
}

func (p *dxgiProvider) Outputs() ([]OutputInfo, error) {
	var outputs []OutputInfo
	for i := 0; ; i++ {
		out, err := p.Output(i)
		if err != nil {
			if err == ErrOutputNotFound {
				break
			}
			p.log.Warn("output query failed", logging.KeyMonitor, i, logging.KeyError, err)
			continue
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func outputInfo(idx int, desc *dxgiOutputDesc) OutputInfo {
	return OutputInfo{
		Index:           idx,
		Name:            syscall.UTF16ToString(desc.DeviceName[:]),
		X:               int(desc.Left),
		Y:               int(desc.Top),
		Width:           int(desc.Right - desc.Left),
		Height:          int(desc.Bottom - desc.Top),
		RotationDegrees: rotationDegrees(desc.Rotation),
		Monitor:         desc.Monitor,
	}
}

// Duplicate establishes desktop duplication for one output. When the output
// supports format negotiation (IDXGIOutput5), the preferred formats are
// requested widest-first and the display's HDR state and SDR white level are
// recorded. Otherwise the legacy 8-bit path is used with SDR defaults.
func (p *dxgiProvider) Duplicate(idx int, preferred []ColorFormat) (Duplication, error) {
	output, err := p.enumOutput(idx)
	if err != nil {
		return nil, err
	}
	defer comRelease(output)

	info := DisplayInfo{SDRWhiteNits: defaultSDRWhiteNits}
	var dupl uintptr

	var output5 uintptr
	_, qiErr := comCall(output, vtblQueryInterface,
		uintptr(unsafe.Pointer(&iidIDXGIOutput5)),
		uintptr(unsafe.Pointer(&output5)),
	)
	if qiErr == nil && len(preferred) > 0 {
		defer comRelease(output5)

		formats := make([]uint32, len(preferred))
		for i, f := range preferred {
			formats[i] = colorFormatToDXGI(f)
		}
		_, err = comCall(output5, dxgiOutput5DuplicateOut1,
			p.dev.device,
			0, // Flags
			uintptr(len(formats)),
			uintptr(unsafe.Pointer(&formats[0])),
			uintptr(unsafe.Pointer(&dupl)),
		)
		if err != nil {
			return nil, fmt.Errorf("DuplicateOutput1: %w", err)
		}
		info = p.displayInfo(output)
	} else {
		var output1 uintptr
		_, err = comCall(output, vtblQueryInterface,
			uintptr(unsafe.Pointer(&iidIDXGIOutput1)),
			uintptr(unsafe.Pointer(&output1)),
		)
		if err != nil {
			return nil, fmt.Errorf("QueryInterface IDXGIOutput1: %w", err)
		}
		defer comRelease(output1)

		_, err = comCall(output1, dxgiOutput1DuplicateOutput,
			p.dev.device,
			uintptr(unsafe.Pointer(&dupl)),
		)
		if err != nil {
			return nil, fmt.Errorf("DuplicateOutput: %w", err)
		}
	}

	return &dxgiDuplication{dup: dupl, info: info}, nil
}

// displayInfo reads the output's HDR state and SDR white level. Failures
// degrade to SDR defaults; metadata is best-effort and captured once.
func (p *dxgiProvider) displayInfo(output uintptr) DisplayInfo {
	info := DisplayInfo{SDRWhiteNits: defaultSDRWhiteNits}

	var output6 uintptr
	_, err := comCall(output, vtblQueryInterface,
		uintptr(unsafe.Pointer(&iidIDXGIOutput6)),
		uintptr(unsafe.Pointer(&output6)),
	)
	if err != nil {
		return info
	}
	defer comRelease(output6)

	var desc1 dxgiOutputDesc1
	hr, _, _ := syscall.SyscallN(
		comVtblFn(output6, dxgiOutput6GetDesc1),
		output6,
		uintptr(unsafe.Pointer(&desc1)),
	)
	if int32(hr) < 0 {
		return info
	}

	info.HDR = desc1.ColorSpace == dxgiColorSpaceRGBFullG2084
	if nits, ok := sdrWhiteLevelForMonitor(desc1.Monitor); ok {
		info.SDRWhiteNits = nits
	}
	return info
}

// dxgiDuplication implements Duplication over IDXGIOutputDuplication.
type dxgiDuplication struct {
	dup   uintptr // IDXGIOutputDuplication
	info  DisplayInfo
	frame *dxgiFrame
}

func (d *dxgiDuplication) AcquireNextFrame(timeout time.Duration) (Frame, error) {
	if d.frame != nil {
		// Caller misuse: the previous frame was never released.
		return nil, fmt.Errorf("previous frame not released")
	}

	var frameInfo dxgiOutDuplFrameInfo
	var resource uintptr
	hr, _, _ := syscall.SyscallN(
		comVtblFn(d.dup, dxgiDuplAcquireNextFrame),
		d.dup,
		uintptr(timeout/time.Millisecond),
		uintptr(unsafe.Pointer(&frameInfo)),
		uintptr(unsafe.Pointer(&resource)),
	)

	switch uint32(hr) {
	case dxgiErrWaitTimeout:
		return nil, ErrNoFrame
	case dxgiErrAccessLost:
		return nil, ErrAccessLost
	}
	if int32(hr) < 0 {
		return nil, fmt.Errorf("AcquireNextFrame: 0x%08X", uint32(hr))
	}

	d.frame = &dxgiFrame{resource: resource}
	return d.frame, nil
}

func (d *dxgiDuplication) ReleaseFrame() {
	if d.frame == nil {
		return
	}
	comRelease(d.frame.resource)
	d.frame.resource = 0
	d.frame = nil
	syscall.SyscallN(comVtblFn(d.dup, dxgiDuplReleaseFrame), d.dup)
}

func (d *dxgiDuplication) DisplayInfo() DisplayInfo {
	return d.info
}

func (d *dxgiDuplication) Close() {
	d.ReleaseFrame()
	if d.dup != 0 {
		comRelease(d.dup)
		d.dup = 0
	}
}

// dxgiFrame is one acquired desktop frame (an IDXGIResource).
type dxgiFrame struct {
	resource uintptr
}

func (f *dxgiFrame) Texture() (Texture, error) {
	var texture uintptr
	_, err := comCall(f.resource, vtblQueryInterface,
		uintptr(unsafe.Pointer(&iidID3D11Texture2D)),
		uintptr(unsafe.Pointer(&texture)),
	)
	if err != nil {
		return nil, fmt.Errorf("QueryInterface ID3D11Texture2D: %w", err)
	}

	tex, err := wrapD3D11Texture(texture)
	if err != nil {
		comRelease(texture)
		return nil, err
	}
	return tex, nil
}
