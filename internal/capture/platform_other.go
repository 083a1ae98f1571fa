//go:build !windows

package capture

// NewStack is unsupported off Windows: desktop duplication requires
// DXGI.
func NewStack() (*Stack, error) {
	return nil, ErrNotSupported
}

func platformTeardown() {}
