package capture

import (
	"errors"

	"github.com/breeze-rmm/duplicator/internal/logging"
)

var monitorLog = logging.L("monitor")

// MonitorInfo describes one display output's geometry as seen by capture
// consumers.
type MonitorInfo struct {
	Index           int    `json:"index"`
	Name            string `json:"name"`
	X               int    `json:"x"`
	Y               int    `json:"y"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	RotationDegrees int    `json:"rotationDegrees"`
	IsPrimary       bool   `json:"isPrimary"`
}

// ListMonitors enumerates the provider's outputs.
func ListMonitors(p Provider) ([]MonitorInfo, error) {
	outs, err := p.Outputs()
	if err != nil {
		return nil, err
	}
	monitors := make([]MonitorInfo, 0, len(outs))
	for _, out := range outs {
		monitors = append(monitors, monitorInfo(out))
	}
	return monitors, nil
}

// MonitorCapabilities returns the geometry and rotation of one output.
// ok is false when idx exceeds the available outputs.
func MonitorCapabilities(p Provider, idx int) (info MonitorInfo, ok bool) {
	out, err := p.Output(idx)
	if err != nil {
		if !errors.Is(err, ErrOutputNotFound) {
			monitorLog.Error("monitor capability query failed", "monitor", idx, "error", err)
		}
		return MonitorInfo{}, false
	}
	return monitorInfo(out), true
}

// MonitorIndexForHandle linearly scans the provider outputs for the one whose
// platform monitor identifier matches handle. Returns -1 when none matches.
func MonitorIndexForHandle(p Provider, handle uintptr) int {
	outs, err := p.Outputs()
	if err != nil {
		monitorLog.Error("output enumeration failed", "error", err)
		return -1
	}
	for _, out := range outs {
		if out.Monitor == handle {
			return out.Index
		}
	}
	return -1
}

func monitorInfo(out OutputInfo) MonitorInfo {
	return MonitorInfo{
		Index:           out.Index,
		Name:            out.Name,
		X:               out.X,
		Y:               out.Y,
		Width:           out.Width,
		Height:          out.Height,
		RotationDegrees: out.RotationDegrees,
		IsPrimary:       out.X == 0 && out.Y == 0,
	}
}
