package capture

import "fmt"

// textureCache owns the destination texture for one duplicated output. The
// texture always matches the dimensions and generalized format of the most
// recently copied frame; on mismatch it is recreated, never resized in place.
type textureCache struct {
	device Device
	hdr    bool

	tex        Texture
	colorSpace ColorSpace
}

// update ensures the cached texture matches src and copies src into it with a
// full-resource copy. Recomputing the color space is a side effect of
// recreation: HDR outputs map to extended-range scRGB, half-float SDR
// captures to linear 16F, everything else to plain sRGB.
func (c *textureCache) update(src Texture) error {
	desc := src.Desc()
	general := GeneralizeFormat(desc.Format)

	if c.tex == nil || c.tex.Desc().Width != desc.Width || c.tex.Desc().Height != desc.Height ||
		c.tex.Desc().Format != general {

		if c.tex != nil {
			c.tex.Release()
			c.tex = nil
		}

		tex, err := c.device.CreateTexture(TextureDesc{
			Width:  desc.Width,
			Height: desc.Height,
			Format: general,
		})
		if err != nil {
			return fmt.Errorf("create cached texture %dx%d %s: %w", desc.Width, desc.Height, general, err)
		}
		c.tex = tex

		switch {
		case c.hdr:
			c.colorSpace = ColorSpace709ScRGB
		case desc.Format == FormatRGBA16F:
			c.colorSpace = ColorSpaceSRGB16F
		default:
			c.colorSpace = ColorSpaceSRGB
		}
	}

	return c.device.CopyResource(c.tex, src)
}

func (c *textureCache) release() {
	if c.tex != nil {
		c.tex.Release()
		c.tex = nil
	}
}
