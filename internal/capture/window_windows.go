//go:build windows

package capture

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procRegisterClassW   = user32.NewProc("RegisterClassW")
	procCreateWindowExW  = user32.NewProc("CreateWindowExW")
	procDefWindowProcW   = user32.NewProc("DefWindowProcW")
	procDestroyWindow    = user32.NewProc("DestroyWindow")
	procShowWindow       = user32.NewProc("ShowWindow")
	procIsWindowVisible  = user32.NewProc("IsWindowVisible")
	procGetClientRect    = user32.NewProc("GetClientRect")
	procLoadCursorW      = user32.NewProc("LoadCursorW")
	procPeekMessageW     = user32.NewProc("PeekMessageW")
	procTranslateMessage = user32.NewProc("TranslateMessage")
	procDispatchMessageW = user32.NewProc("DispatchMessageW")

	procGetStockObject   = gdi32.NewProc("GetStockObject")
	procGetModuleHandleW = kernel32.NewProc("GetModuleHandleW")
)

const (
	wmClose   = 0x0010
	wmDestroy = 0x0002
	wmSize    = 0x0005

	wsOverlappedWindow = 0x00CF0000
	cwUseDefault       = 0x80000000

	csHRedraw = 0x0002
	csVRedraw = 0x0001

	swHide = 0
	swShow = 5

	idcArrow   = 32512
	blackBrush = 4

	pmRemove = 1
)

// wndClassW matches WNDCLASSW.
type wndClassW struct {
	Style         uint32
	LpfnWndProc   uintptr
	CbClsExtra    int32
	CbWndExtra    int32
	HInstance     uintptr
	HIcon         uintptr
	HCursor       uintptr
	HbrBackground uintptr
	LpszMenuName  *uint16
	LpszClassName *uint16
}

// win32Rect matches RECT.
type win32Rect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

// win32Msg matches MSG.
type win32Msg struct {
	HWnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	PtX     int32
	PtY     int32
}

var (
	windowClassOnce sync.Once
	windowClassErr  error
	windowClassName *uint16
)

// previewWndProc hides the window on close instead of destroying it, so a
// user closing the preview never tears down capture resources.
func previewWndProc(hwnd uintptr, msg uint32, wparam, lparam uintptr) uintptr {
	switch msg {
	case wmClose:
		procShowWindow.Call(hwnd, swHide)
		return 0
	case wmDestroy:
		return 0
	case wmSize:
		// Surface resizing happens on the next present.
		return 0
	}
	ret, _, _ := procDefWindowProcW.Call(hwnd, uintptr(msg), wparam, lparam)
	return ret
}

func registerWindowClass() error {
	windowClassOnce.Do(func() {
		name, err := windows.UTF16PtrFromString("DupcapPreviewWindow")
		if err != nil {
			windowClassErr = err
			return
		}
		windowClassName = name

		hInstance, _, _ := procGetModuleHandleW.Call(0)
		cursor, _, _ := procLoadCursorW.Call(0, uintptr(idcArrow))
		brush, _, _ := procGetStockObject.Call(uintptr(blackBrush))

		wc := wndClassW{
			Style:         csHRedraw | csVRedraw,
			LpfnWndProc:   syscall.NewCallback(previewWndProc),
			HInstance:     hInstance,
			HCursor:       cursor,
			HbrBackground: brush,
			LpszClassName: name,
		}

		atom, _, err := procRegisterClassW.Call(uintptr(unsafe.Pointer(&wc)))
		if atom == 0 {
			windowClassErr = fmt.Errorf("RegisterClassW: %w", err)
		}
	})
	return windowClassErr
}

// win32WindowSystem implements WindowSystem on top of user32.
type win32WindowSystem struct{}

// NewWindowSystem returns the platform window system. The calling goroutine
// must stay locked to its OS thread: windows are bound to the thread that
// created them and PumpEvents must run there.
func NewWindowSystem() (WindowSystem, error) {
	return &win32WindowSystem{}, nil
}

func (ws *win32WindowSystem) CreateWindow(title string, width, height int) (Window, error) {
	if err := registerWindowClass(); err != nil {
		return nil, err
	}

	titlePtr, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return nil, err
	}

	hInstance, _, _ := procGetModuleHandleW.Call(0)
	hwnd, _, callErr := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(windowClassName)),
		uintptr(unsafe.Pointer(titlePtr)),
		uintptr(wsOverlappedWindow),
		uintptr(cwUseDefault),
		uintptr(cwUseDefault),
		uintptr(width),
		uintptr(height),
		0, // parent
		0, // menu
		hInstance,
		0,
	)
	if hwnd == 0 {
		return nil, fmt.Errorf("CreateWindowExW: %w", callErr)
	}
	return &win32Window{hwnd: hwnd}, nil
}

// PumpEvents drains pending messages for all windows on this thread.
func (ws *win32WindowSystem) PumpEvents() {
	var msg win32Msg
	for {
		ret, _, _ := procPeekMessageW.Call(
			uintptr(unsafe.Pointer(&msg)),
			0, 0, 0,
			uintptr(pmRemove),
		)
		if ret == 0 {
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

type win32Window struct {
	hwnd uintptr
}

func (w *win32Window) Handle() uintptr {
	return w.hwnd
}

func (w *win32Window) ClientSize() (uint32, uint32) {
	var rect win32Rect
	ret, _, _ := procGetClientRect.Call(w.hwnd, uintptr(unsafe.Pointer(&rect)))
	if ret == 0 {
		return 0, 0
	}
	return uint32(rect.Right - rect.Left), uint32(rect.Bottom - rect.Top)
}

func (w *win32Window) Visible() bool {
	ret, _, _ := procIsWindowVisible.Call(w.hwnd)
	return ret != 0
}

func (w *win32Window) SetVisible(show bool) {
	cmd := uintptr(swHide)
	if show {
		cmd = swShow
	}
	procShowWindow.Call(w.hwnd, cmd)
}

func (w *win32Window) Destroy() {
	if w.hwnd != 0 {
		procDestroyWindow.Call(w.hwnd)
		w.hwnd = 0
	}
}
