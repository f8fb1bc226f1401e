package gpu

import (
	"fmt"
	"image"
	"image/color"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/spritebake/internal/raster"
)

// Blitter implements raster.Blitter with glBlitFramebuffer. The source is
// uploaded into a texture-backed framebuffer, the destination is cleared to
// the fill color and the region is copied 1:1 with NEAREST filtering, so the
// result matches raster.CPUBlitter exactly.
type Blitter struct {
	ctx *Context
	log *zap.Logger
}

var _ raster.Blitter = (*Blitter)(nil)

// NewBlitter returns a Blitter drawing with ctx.
func NewBlitter(ctx *Context) *Blitter {
	return &Blitter{ctx: ctx, log: ctx.log.Named("blit")}
}

// Blit implements raster.Blitter.
func (b *Blitter) Blit(src *raster.Buffer, srcRect image.Rectangle, dstW, dstH int, dstOff image.Point, fill color.RGBA) (*raster.Buffer, error) {
	if b.ctx == nil || b.ctx.glContext == nil {
		return nil, fmt.Errorf("gpu: context closed")
	}
	if dstW <= 0 || dstH <= 0 {
		return nil, fmt.Errorf("gpu: invalid destination %dx%d", dstW, dstH)
	}

	srcRect = srcRect.Intersect(image.Rect(0, 0, src.Width, src.Height))

	// Both targets exist before any binding changes.
	var in *framebuffer
	if !srcRect.Empty() {
		var err error
		if in, err = newFramebuffer(src.Width, src.Height, src.Pix); err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		defer in.destroy()
	}
	dst, err := newFramebuffer(dstW, dstH, nil)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	defer dst.destroy()

	restore := dst.bind()
	defer restore()
	dst.clear(fill)

	if in != nil {
		var prevRead int32
		gl.GetIntegerv(gl.READ_FRAMEBUFFER_BINDING, &prevRead)
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, in.fbo)
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, dst.fbo)
		gl.BlitFramebuffer(
			int32(srcRect.Min.X), int32(srcRect.Min.Y), int32(srcRect.Max.X), int32(srcRect.Max.Y),
			int32(dstOff.X), int32(dstOff.Y), int32(dstOff.X+srcRect.Dx()), int32(dstOff.Y+srcRect.Dy()),
			gl.COLOR_BUFFER_BIT, gl.NEAREST,
		)
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(prevRead))
	}

	out := dst.readPixels()
	if code := gl.GetError(); code != gl.NO_ERROR {
		return nil, fmt.Errorf("gpu: blit failed with GL error 0x%x", code)
	}

	b.log.Debug("blit",
		zap.Int("src_w", src.Width),
		zap.Int("src_h", src.Height),
		zap.Int("dst_w", dstW),
		zap.Int("dst_h", dstH),
	)
	return out, nil
}
