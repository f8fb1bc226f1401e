// Package gpu trims frames with OpenGL. It owns a hidden SDL window whose
// GL 4.1 core context backs offscreen framebuffers.
package gpu

import (
	"fmt"
	"runtime"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"
)

func init() {
	// OpenGL calls must be made from the main thread
	runtime.LockOSThread()
}

// Context is a GL context bound to a hidden window. Every GL call, including
// those made through a Blitter, must come from the goroutine that created it.
type Context struct {
	window    *sdl.Window
	glContext sdl.GLContext
	log       *zap.Logger
}

// NewContext initializes SDL and creates the context. A nil logger disables
// logging.
func NewContext(log *zap.Logger) (*Context, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Context{log: log}

	log.Info("initializing SDL2")
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("SDL_Init failed: %w", err)
	}

	// OpenGL 4.1 Core Profile (max supported on macOS)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 1)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)

	var err error
	c.window, err = sdl.CreateWindow("spritebake", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		1, 1, sdl.WINDOW_OPENGL|sdl.WINDOW_HIDDEN)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}

	c.glContext, err = c.window.GLCreateContext()
	if err != nil {
		c.window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("SDL_GL_CreateContext failed: %w", err)
	}

	if err := gl.Init(); err != nil {
		c.Close()
		return nil, fmt.Errorf("gl.Init failed: %w", err)
	}

	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)

	log.Info("GL context created",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)
	return c, nil
}

// Close destroys the context and shuts SDL down.
func (c *Context) Close() {
	c.log.Info("closing GL context")

	if c.glContext != nil {
		sdl.GLDeleteContext(c.glContext)
		c.glContext = nil
	}
	if c.window != nil {
		c.window.Destroy()
		c.window = nil
	}

	sdl.Quit()
}
