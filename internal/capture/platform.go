package capture

// Stack bundles the platform graphics and windowing backends. One Stack is
// created per capture thread; everything hanging off it must be used from
// the goroutine that called NewStack, locked to its OS thread.
type Stack struct {
	Device   Device
	Provider Provider
	Windows  WindowSystem
}

// Close tears down the stack. Any registry built on the stack must be
// drained first.
func (s *Stack) Close() {
	if s.Device != nil {
		s.Device.Release()
		s.Device = nil
	}
	platformTeardown()
}
