//go:build windows

package capture

import (
	"syscall"
	"unsafe"
)

// SDR white level lookup via the DISPLAYCONFIG API. Windows reports the
// level in units of 1/1000 of the 80-nit reference white, so a slider value
// of "100%" comes back as 1000.

var (
	procGetDisplayConfigBufferSizes = user32.NewProc("GetDisplayConfigBufferSizes")
	procQueryDisplayConfig          = user32.NewProc("QueryDisplayConfig")
	procDisplayConfigGetDeviceInfo  = user32.NewProc("DisplayConfigGetDeviceInfo")
	procGetMonitorInfoW             = user32.NewProc("GetMonitorInfoW")
)

const (
	qdcOnlyActivePaths = 0x2

	displayConfigDeviceInfoGetSourceName    = 1
	displayConfigDeviceInfoGetSDRWhiteLevel = 11
)

type win32LUID struct {
	LowPart  uint32
	HighPart int32
}

// displayConfigPathSourceInfo matches DISPLAYCONFIG_PATH_SOURCE_INFO.
type displayConfigPathSourceInfo struct {
	AdapterID   win32LUID
	ID          uint32
	ModeInfoIdx uint32
	StatusFlags uint32
}

// displayConfigPathTargetInfo matches DISPLAYCONFIG_PATH_TARGET_INFO.
type displayConfigPathTargetInfo struct {
	AdapterID        win32LUID
	ID               uint32
	ModeInfoIdx      uint32
	OutputTechnology uint32
	Rotation         uint32
	Scaling          uint32
	RefreshRate      struct{ Numerator, Denominator uint32 }
	ScanLineOrdering uint32
	TargetAvailable  int32
	StatusFlags      uint32
}

// displayConfigPathInfo matches DISPLAYCONFIG_PATH_INFO.
type displayConfigPathInfo struct {
	Source displayConfigPathSourceInfo
	Target displayConfigPathTargetInfo
	Flags  uint32
}

// displayConfigModeInfo matches DISPLAYCONFIG_MODE_INFO. The union payload
// is opaque: mode details are not needed for the white level query.
type displayConfigModeInfo struct {
	InfoType  uint32
	ID        uint32
	AdapterID win32LUID
	Union     [48]byte
}

// displayConfigDeviceInfoHeader matches DISPLAYCONFIG_DEVICE_INFO_HEADER.
type displayConfigDeviceInfoHeader struct {
	Type      uint32
	Size      uint32
	AdapterID win32LUID
	ID        uint32
}

// displayConfigSourceDeviceName matches DISPLAYCONFIG_SOURCE_DEVICE_NAME.
type displayConfigSourceDeviceName struct {
	Header            displayConfigDeviceInfoHeader
	ViewGDIDeviceName [32]uint16
}

// displayConfigSDRWhiteLevel matches DISPLAYCONFIG_SDR_WHITE_LEVEL.
type displayConfigSDRWhiteLevel struct {
	Header        displayConfigDeviceInfoHeader
	SDRWhiteLevel uint32
}

// monitorInfoExW matches MONITORINFOEXW.
type monitorInfoExW struct {
	CbSize    uint32
	RcMonitor win32Rect
	RcWork    win32Rect
	DwFlags   uint32
	SzDevice  [32]uint16
}

// sdrWhiteLevelForMonitor resolves the user-configured SDR white level in
// nits for the display attached to hmon. Returns false when the level cannot
// be determined; callers fall back to the 80-nit reference white.
func sdrWhiteLevelForMonitor(hmon uintptr) (float32, bool) {
	if hmon == 0 {
		return 0, false
	}

	var mi monitorInfoExW
	mi.CbSize = uint32(unsafe.Sizeof(mi))
	ret, _, _ := procGetMonitorInfoW.Call(hmon, uintptr(unsafe.Pointer(&mi)))
	if ret == 0 {
		return 0, false
	}
	gdiName := syscall.UTF16ToString(mi.SzDevice[:])

	var numPaths, numModes uint32
	ret, _, _ = procGetDisplayConfigBufferSizes.Call(
		uintptr(qdcOnlyActivePaths),
		uintptr(unsafe.Pointer(&numPaths)),
		uintptr(unsafe.Pointer(&numModes)),
	)
	if ret != 0 || numPaths == 0 {
		return 0, false
	}

	paths := make([]displayConfigPathInfo, numPaths)
	modes := make([]displayConfigModeInfo, numModes)
	ret, _, _ = procQueryDisplayConfig.Call(
		uintptr(qdcOnlyActivePaths),
		uintptr(unsafe.Pointer(&numPaths)),
		uintptr(unsafe.Pointer(&paths[0])),
		uintptr(unsafe.Pointer(&numModes)),
		uintptr(unsafe.Pointer(&modes[0])),
		0, // currentTopologyId
	)
	if ret != 0 {
		return 0, false
	}

	for i := range paths[:numPaths] {
		path := &paths[i]

		var source displayConfigSourceDeviceName
		source.Header = displayConfigDeviceInfoHeader{
			Type:      displayConfigDeviceInfoGetSourceName,
			Size:      uint32(unsafe.Sizeof(source)),
			AdapterID: path.Source.AdapterID,
			ID:        path.Source.ID,
		}
		ret, _, _ = procDisplayConfigGetDeviceInfo.Call(uintptr(unsafe.Pointer(&source)))
		if ret != 0 {
			continue
		}
		if syscall.UTF16ToString(source.ViewGDIDeviceName[:]) != gdiName {
			continue
		}

		var level displayConfigSDRWhiteLevel
		level.Header = displayConfigDeviceInfoHeader{
			Type:      displayConfigDeviceInfoGetSDRWhiteLevel,
			Size:      uint32(unsafe.Sizeof(level)),
			AdapterID: path.Target.AdapterID,
			ID:        path.Target.ID,
		}
		ret, _, _ = procDisplayConfigGetDeviceInfo.Call(uintptr(unsafe.Pointer(&level)))
		if ret != 0 {
			return 0, false
		}
		return float32(level.SDRWhiteLevel) * 80.0 / 1000.0, true
	}
	return 0, false
}
