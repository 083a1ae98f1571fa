package capture

import (
	"time"
)

// Test doubles for the graphics and provider interfaces. Everything counts
// calls so tests can assert resource-lifetime contracts, not just outcomes.

type fakeTexture struct {
	desc     TextureDesc
	released int
}

func (t *fakeTexture) Desc() TextureDesc { return t.desc }
func (t *fakeTexture) Release() { t.released++ }

type fakeSwapChain struct {
	width, height uint32
	format        ColorFormat
	backbuffer    *fakeTexture

	resizes   int
	resizeErr error
	presents  int
	lastVsync bool
	waitable  bool
	released  bool
}

func (sc *fakeSwapChain) Width() uint32 { return sc.width }
func (sc *fakeSwapChain) Height() uint32 { return sc.height }
func (sc *fakeSwapChain) Backbuffer() Texture { return sc.backbuffer }

func (sc *fakeSwapChain) Resize(width, height uint32) error {
	sc.resizes++
	if sc.resizeErr != nil {
		return sc.resizeErr
	}
	sc.width, sc.height = width, height
	sc.backbuffer = &fakeTexture{desc: TextureDesc{Width: width, Height: height, Format: sc.format}}
	return nil
}

func (sc *fakeSwapChain) Present(vsync bool) error {
	sc.presents++
	sc.lastVsync = vsync
	return nil
}

func (sc *fakeSwapChain) Waitable() bool { return sc.waitable }
func (sc *fakeSwapChain) Release() { sc.released = true }

type fakeDevice struct {
	created   []*fakeTexture
	createErr error

	copies    int
	copyErr   error
	regions   int
	regionErr error
	renders   int

	swapErr error
	swaps   []*fakeSwapChain
}

func (d *fakeDevice) CreateTexture(desc TextureDesc) (Texture, error) {
	if d.createErr != nil {
		return nil, d.createErr
	}
	t := &fakeTexture{desc: desc}
	d.created = append(d.created, t)
	return t, nil
}

func (d *fakeDevice) CreateSwapChain(window Window, width, height uint32, format ColorFormat) (SwapChain, error) {
	if d.swapErr != nil {
		return nil, d.swapErr
	}
	sc := &fakeSwapChain{
		width:      width,
		height:     height,
		format:     format,
		backbuffer: &fakeTexture{desc: TextureDesc{Width: width, Height: height, Format: format}},
	}
	d.swaps = append(d.swaps, sc)
	return sc, nil
}

func (d *fakeDevice) CopyResource(dst, src Texture) error {
	d.copies++
	return d.copyErr
}

func (d *fakeDevice) CopyRegion(dst, src Texture) error {
	d.regions++
	return d.regionErr
}

func (d *fakeDevice) RenderTo(sc SwapChain, fn func() error) error {
	d.renders++
	return fn()
}

func (d *fakeDevice) Release() {}

type fakeWindow struct {
	visible          bool
	clientW, clientH uint32
	destroyed        bool
}

func (w *fakeWindow) Handle() uintptr { return 42 }
func (w *fakeWindow) ClientSize() (uint32, uint32) { return w.clientW, w.clientH }
func (w *fakeWindow) Visible() bool { return w.visible }
func (w *fakeWindow) SetVisible(show bool) { w.visible = show }
func (w *fakeWindow) Destroy() { w.destroyed = true }

type fakeWindowSystem struct {
	windows   []*fakeWindow
	createErr error
	pumps     int
}

func (ws *fakeWindowSystem) CreateWindow(title string, width, height int) (Window, error) {
	if ws.createErr != nil {
		return nil, ws.createErr
	}
	w := &fakeWindow{clientW: uint32(width), clientH: uint32(height)}
	ws.windows = append(ws.windows, w)
	return w, nil
}

func (ws *fakeWindowSystem) PumpEvents() { ws.pumps++ }

type fakeFrame struct {
	tex    *fakeTexture
	texErr error
}

func (f *fakeFrame) Texture() (Texture, error) {
	if f.texErr != nil {
		return nil, f.texErr
	}
	return f.tex, nil
}

type acquireResult struct {
	frame *fakeFrame
	err   error
}

type fakeDuplication struct {
	queue    []acquireResult
	acquires int
	releases int
	closed   bool
	info     DisplayInfo
}

func (d *fakeDuplication) AcquireNextFrame(timeout time.Duration) (Frame, error) {
	d.acquires++
	if len(d.queue) == 0 {
		return nil, ErrNoFrame
	}
	next := d.queue[0]
	d.queue = d.queue[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.frame, nil
}

func (d *fakeDuplication) ReleaseFrame() { d.releases++ }
func (d *fakeDuplication) DisplayInfo() DisplayInfo { return d.info }
func (d *fakeDuplication) Close() { d.closed = true }

type fakeProvider struct {
	outputs []OutputInfo
	dups    map[int]*fakeDuplication
	dupErr  error

	lastPreferred []ColorFormat
}

func (p *fakeProvider) Outputs() ([]OutputInfo, error) {
	return p.outputs, nil
}

func (p *fakeProvider) Output(idx int) (OutputInfo, error) {
	if idx < 0 || idx >= len(p.outputs) {
		return OutputInfo{}, ErrOutputNotFound
	}
	return p.outputs[idx], nil
}

func (p *fakeProvider) Duplicate(idx int, preferred []ColorFormat) (Duplication, error) {
	p.lastPreferred = preferred
	if p.dupErr != nil {
		return nil, p.dupErr
	}
	if idx < 0 || idx >= len(p.outputs) {
		return nil, ErrOutputNotFound
	}
	dup, ok := p.dups[idx]
	if !ok {
		dup = &fakeDuplication{info: DisplayInfo{SDRWhiteNits: 80}}
		if p.dups == nil {
			p.dups = make(map[int]*fakeDuplication)
		}
		p.dups[idx] = dup
	}
	return dup, nil
}

func fullHDOutput(idx int) OutputInfo {
	return OutputInfo{
		Index:  idx,
		Name:   "\\\\.\\DISPLAY1",
		Width:  1920,
		Height: 1080,
	}
}

func frameOf(width, height uint32, format ColorFormat) acquireResult {
	return acquireResult{frame: &fakeFrame{
		tex: &fakeTexture{desc: TextureDesc{Width: width, Height: height, Format: format}},
	}}
}
