//go:build windows

package capture

import (
	"errors"
	"fmt"

	"github.com/go-ole/go-ole"

	"github.com/breeze-rmm/duplicator/internal/logging"
)

const (
	hrSFalse         = 0x00000001 // COM already initialized on this thread
	hrRPCChangedMode = 0x80010106 // initialized with a different threading model
)

// NewStack initializes COM, creates the D3D11 device, and wires the DXGI
// duplication provider. The caller must have the goroutine locked to its OS
// thread before calling.
func NewStack() (*Stack, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) ||
			(uint32(oleErr.Code()) != hrSFalse && uint32(oleErr.Code()) != hrRPCChangedMode) {
			return nil, fmt.Errorf("failed to initialize COM: %w", err)
		}
	}

	dev, err := newD3D11Device()
	if err != nil {
		ole.CoUninitialize()
		return nil, err
	}

	ws, err := NewWindowSystem()
	if err != nil {
		dev.Release()
		ole.CoUninitialize()
		return nil, err
	}

	logging.L("capture").Debug("platform stack initialized")
	return &Stack{
		Device:   dev,
		Provider: newDXGIProvider(dev),
		Windows:  ws,
	}, nil
}

func platformTeardown() {
	ole.CoUninitialize()
}
