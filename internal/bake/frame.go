package bake

import (
	"fmt"
	"time"
)

// Frame identifies a sample point. Two frames with the same Index are the
// same frame whatever their Time.
type Frame struct {
	Index int     `yaml:"index"`
	Time  float64 `yaml:"time"` // normalized position in [0,1]
}

// Same reports whether f and o identify the same sample point.
func (f Frame) Same(o Frame) bool {
	return f.Index == o.Index
}

func (f Frame) String() string {
	return fmt.Sprintf("#%d@%.3f", f.Index, f.Time)
}

// EvenFrames returns n frames spread evenly over [0,1], both ends included.
func EvenFrames(n int) []Frame {
	if n <= 0 {
		return nil
	}
	frames := make([]Frame, n)
	for i := range frames {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		frames[i] = Frame{Index: i, Time: t}
	}
	return frames
}

// Dedupe drops frames whose index was already seen, keeping the first.
func Dedupe(frames []Frame) []Frame {
	seen := make(map[int]struct{}, len(frames))
	out := make([]Frame, 0, len(frames))
	for _, f := range frames {
		if _, ok := seen[f.Index]; ok {
			continue
		}
		seen[f.Index] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Animation describes one clip of a model.
type Animation struct {
	Name   string
	Length time.Duration
}

// View is one camera angle around the model, in degrees.
type View struct {
	Index int     `yaml:"index"`
	Yaw   float64 `yaml:"yaw"`
	Pitch float64 `yaml:"pitch"`
}

func (v View) String() string {
	return fmt.Sprintf("view%d(%.0f/%.0f)", v.Index, v.Yaw, v.Pitch)
}

// EvenViews returns n views spread evenly around the vertical axis.
func EvenViews(n int, pitch float64) []View {
	if n <= 0 {
		return nil
	}
	views := make([]View, n)
	for i := range views {
		views[i] = View{Index: i, Yaw: 360 * float64(i) / float64(n), Pitch: pitch}
	}
	return views
}
