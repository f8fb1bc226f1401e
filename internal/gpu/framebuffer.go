package gpu

import (
	"fmt"
	"image/color"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/spritebake/internal/raster"
)

// framebuffer is an RGBA8 offscreen target. Row y of a raster buffer is
// stored at GL y, so uploads and readbacks need no flip as long as both
// sides use the same convention.
type framebuffer struct {
	fbo     uint32
	texture uint32
	width   int32
	height  int32
}

// newFramebuffer creates a framebuffer of the given size, initialized from
// pixels when non-nil. The caller's READ and DRAW bindings are left as they
// were.
func newFramebuffer(width, height int, pixels []byte) (*framebuffer, error) {
	fb := &framebuffer{width: int32(max(width, 1)), height: int32(max(height, 1))}

	var prevRead, prevDraw int32
	gl.GetIntegerv(gl.READ_FRAMEBUFFER_BINDING, &prevRead)
	gl.GetIntegerv(gl.DRAW_FRAMEBUFFER_BINDING, &prevDraw)
	defer func() {
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(prevRead))
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(prevDraw))
	}()

	gl.GenFramebuffers(1, &fb.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)

	var data unsafe.Pointer
	if pixels != nil {
		data = gl.Ptr(pixels)
	}
	gl.GenTextures(1, &fb.texture)
	gl.BindTexture(gl.TEXTURE_2D, fb.texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, fb.width, fb.height, 0, gl.RGBA, gl.UNSIGNED_BYTE, data)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, fb.texture, 0)

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		fb.destroy()
		return nil, fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}
	return fb, nil
}

// bind makes fb the draw target and returns a function restoring the
// previous framebuffer and viewport.
func (fb *framebuffer) bind() func() {
	var prevFBO int32
	var prevViewport [4]int32
	gl.GetIntegerv(gl.DRAW_FRAMEBUFFER_BINDING, &prevFBO)
	gl.GetIntegerv(gl.VIEWPORT, &prevViewport[0])

	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, fb.fbo)
	gl.Viewport(0, 0, fb.width, fb.height)

	return func() {
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(prevFBO))
		gl.Viewport(prevViewport[0], prevViewport[1], prevViewport[2], prevViewport[3])
	}
}

func (fb *framebuffer) clear(c color.RGBA) {
	gl.ClearColor(float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, float32(c.A)/255)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// readPixels reads the color attachment into a raster buffer.
func (fb *framebuffer) readPixels() *raster.Buffer {
	out := raster.New(int(fb.width), int(fb.height))

	var prevFBO int32
	gl.GetIntegerv(gl.READ_FRAMEBUFFER_BINDING, &prevFBO)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, fb.fbo)

	gl.ReadPixels(0, 0, fb.width, fb.height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(out.Pix))

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(prevFBO))
	return out
}

func (fb *framebuffer) destroy() {
	if fb.fbo != 0 {
		gl.DeleteFramebuffers(1, &fb.fbo)
		fb.fbo = 0
	}
	if fb.texture != 0 {
		gl.DeleteTextures(1, &fb.texture)
		fb.texture = 0
	}
}
