package scene

import (
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/Faultbox/spritebake/internal/bake"
	"github.com/Faultbox/spritebake/internal/matte"
	"github.com/Faultbox/spritebake/internal/raster"
	"github.com/Faultbox/spritebake/pkg/math"
)

func near(a, b, eps float32) bool {
	d := a - b
	return d < eps && d > -eps
}

func pair(alpha uint8) *Static {
	c := color.RGBA{R: 200, G: 60, B: 60, A: alpha}
	return NewStatic("pair", math.Vec3{}, []Part{
		{Offset: math.Vec3{X: -1}, Radius: 0.5, Color: c},
		{Offset: math.Vec3{X: 1}, Radius: 0.5, Color: c},
	})
}

func TestRenderer_ProjectsPivotToCenter(t *testing.T) {
	m := pair(255)
	r := NewRenderer(64, 64, m, m.Bounds())
	x, y := r.Project(math.Vec3{})
	if !near(x, 32, 0.01) || !near(y, 32, 0.01) {
		t.Errorf("origin projected to (%v,%v), want (32,32)", x, y)
	}
}

func TestRenderer_ViewRotatesScene(t *testing.T) {
	m := pair(255)
	r := NewRenderer(64, 64, m, m.Bounds())

	r.SetView(bake.View{Yaw: 0})
	x0, _ := r.Project(math.Vec3{X: 1})
	if x0 <= 33 {
		t.Errorf("+X at yaw 0 projected to x=%v, want right of center", x0)
	}

	r.SetView(bake.View{Yaw: 90})
	x90, _ := r.Project(math.Vec3{X: 1})
	if !near(x90, 32, 0.01) {
		t.Errorf("+X at yaw 90 projected to x=%v, want center", x90)
	}
	if r.View().Yaw != 90 {
		t.Errorf("View() = %v", r.View())
	}
}

func TestRenderer_OpaqueMatte(t *testing.T) {
	m := pair(255)
	r := NewRenderer(64, 64, m, m.Bounds())
	r.SetView(bake.View{})

	onBlack, _ := r.Render(raster.Black)
	onWhite, _ := r.Render(raster.White)
	img := matte.ExtractOpaque(onBlack, onWhite)

	cx, cy := r.Project(math.Vec3{X: 1})
	if a := img.Alpha(int(cx), int(cy)); a != 255 {
		t.Errorf("sphere center alpha = %d, want 255", a)
	}
	if a := img.Alpha(0, 0); a != 0 {
		t.Errorf("corner alpha = %d, want 0", a)
	}
	if a := img.Alpha(32, 32); a != 0 {
		t.Errorf("gap between spheres alpha = %d, want 0", a)
	}
}

func TestRenderer_TranslucentMatte(t *testing.T) {
	m := pair(128)
	r := NewRenderer(64, 64, m, m.Bounds())

	onBlack, _ := r.Render(raster.Black)
	onWhite, _ := r.Render(raster.White)
	img := matte.ExtractSoft(onBlack, onWhite, 0)

	cx, cy := r.Project(math.Vec3{X: -1})
	if a := int(img.Alpha(int(cx), int(cy))); a < 126 || a > 130 {
		t.Errorf("alpha = %d, want about 128", a)
	}
}

func TestRenderer_Normals(t *testing.T) {
	m := pair(255)
	r := NewRenderer(64, 64, m, m.Bounds())
	r.SetView(bake.View{})

	n, err := r.RenderNormals()
	if err != nil {
		t.Fatalf("RenderNormals: %v", err)
	}
	if n.At(0, 0) != raster.FlatNormal {
		t.Errorf("background normal = %v, want flat", n.At(0, 0))
	}
	cx, cy := r.Project(math.Vec3{X: 1})
	got := n.At(int(cx), int(cy))
	if got.B < 250 {
		t.Errorf("normal facing the camera = %v, want blue near 255", got)
	}
}

func TestMesh_PoseAndSpin(t *testing.T) {
	m := NewMesh("m", math.Vec3{}, []Part{{Offset: math.Vec3{X: 1}, Radius: 0.1, Color: color.RGBA{A: 255}}},
		[]Clip{{Name: "spin", Length: time.Second, Spin: 1}})

	saved := m.SavePose()
	if err := m.Simulate(0, bake.Frame{Index: 1, Time: 0.25}); err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	c := m.Spheres()[0].Center
	if !near(c.X, 0, 1e-5) || !near(c.Z, -1, 1e-5) {
		t.Errorf("quarter turn center = %v, want (0,0,-1)", c)
	}

	m.RestorePose(saved)
	c = m.Spheres()[0].Center
	if !near(c.X, 1, 1e-5) {
		t.Errorf("restored center = %v, want (1,0,0)", c)
	}

	if err := m.Simulate(3, bake.Frame{}); err == nil {
		t.Error("expected an error for a missing clip")
	}

	b := m.Bounds()
	if b.Min.X > -1.1 || b.Max.Z < 1.1 {
		t.Errorf("bounds %v do not cover the spin", b)
	}
}

func TestParticles_Deterministic(t *testing.T) {
	e := Emitter{Seed: 3, Count: 10, Duration: 2 * time.Second, Lifetime: time.Second, Speed: 1, Size: 0.1, Color: color.RGBA{R: 255, A: 200}}
	a := NewParticles("a", math.Vec3{}, e)
	b := NewParticles("b", math.Vec3{}, e)

	f := bake.Frame{Index: 2, Time: 0.5}
	_ = a.Simulate(0, f)
	_ = b.Simulate(0, f)
	sa, sb := a.Spheres(), b.Spheres()
	if len(sa) == 0 || len(sa) != len(sb) {
		t.Fatalf("got %d and %d particles", len(sa), len(sb))
	}
	for i := range sa {
		if sa[i] != sb[i] {
			t.Fatalf("particle %d differs: %v vs %v", i, sa[i], sb[i])
		}
	}

	_ = a.Simulate(0, bake.Frame{})
	first := a.Spheres()
	if len(first) != 1 || first[0].Color.A != 200 {
		t.Errorf("at t=0 got %v, want one fresh particle", first)
	}
	if got := a.Animations()[0].Length; got != 2*time.Second {
		t.Errorf("simulation length = %v", got)
	}
}

func TestParse_Demo(t *testing.T) {
	sc, err := Load("testdata/demo.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sc.Sources) != 5 {
		t.Fatalf("got %d sources, want 5", len(sc.Sources))
	}
	if sc.Sources[2] != nil {
		t.Error("skipped source should be nil")
	}

	wantKinds := map[int]bake.Kind{0: bake.Mesh, 1: bake.Particle, 3: bake.Static, 4: bake.Runtime}
	for i, k := range wantKinds {
		if sc.Sources[i].Kind != k {
			t.Errorf("source %d kind = %v, want %v", i, sc.Sources[i].Kind, k)
		}
	}

	anims := sc.Sources[0].Model.Animations()
	if len(anims) != 2 || anims[1].Length != 2*time.Second {
		t.Errorf("slime animations = %+v", anims)
	}
	if got := sc.Sources[4].Model.Animations()[0].Length; got != 500*time.Millisecond {
		t.Errorf("flame length = %v", got)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown kind", "sources:\n  - name: x\n    kind: voxel\n"},
		{"particle without emitter", "sources:\n  - name: x\n    kind: particle\n"},
		{"mesh without parts", "sources:\n  - name: x\n    kind: mesh\n"},
		{"missing name", "sources:\n  - kind: static\n"},
		{"bad yaml", "sources: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/nope.yaml")
	if err == nil || errors.Unwrap(err) == nil {
		t.Errorf("Load = %v, want a wrapped error", err)
	}
}
