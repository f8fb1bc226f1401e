package scene

import (
	"fmt"
	"image/color"
	gomath "math"
	"math/rand"
	"time"

	"github.com/Faultbox/spritebake/internal/bake"
	"github.com/Faultbox/spritebake/pkg/math"
)

// Part is one sphere of a mesh, placed relative to the model origin.
type Part struct {
	Offset math.Vec3
	Radius float32
	Color  color.RGBA
}

// Clip animates every part of a mesh over Length. Spin is in turns about the
// vertical axis, Bob a vertical amplitude and Pulse a relative radius change.
type Clip struct {
	Name   string
	Length time.Duration
	Spin   float32
	Bob    float32
	Pulse  float32
}

// Mesh is an animated model built from spheres.
type Mesh struct {
	name  string
	pivot math.Vec3
	parts []Part
	clips []Clip

	clip    int
	time    float64
	playing bool
}

type meshPose struct {
	clip int
	time float64
}

// NewMesh creates a mesh posed at the start of its first clip.
func NewMesh(name string, pivot math.Vec3, parts []Part, clips []Clip) *Mesh {
	return &Mesh{name: name, pivot: pivot, parts: parts, clips: clips}
}

func (m *Mesh) Name() string             { return m.name }
func (m *Mesh) IsReady() bool            { return len(m.parts) > 0 }
func (m *Mesh) PivotPosition() math.Vec3 { return m.pivot }

func (m *Mesh) Animations() []bake.Animation {
	anims := make([]bake.Animation, len(m.clips))
	for i, c := range m.clips {
		anims[i] = bake.Animation{Name: c.Name, Length: c.Length}
	}
	return anims
}

// Bounds covers every pose of every clip.
func (m *Mesh) Bounds() math.Box {
	var spin, bob, pulse float32
	for _, c := range m.clips {
		spin = max(spin, abs32(c.Spin))
		bob = max(bob, abs32(c.Bob))
		pulse = max(pulse, abs32(c.Pulse))
	}
	box := math.Box{Min: m.pivot, Max: m.pivot}
	for _, p := range m.parts {
		r := p.Radius * (1 + pulse)
		center := m.pivot.Add(p.Offset)
		reach := math.Vec3{X: r, Y: bob + r, Z: r}
		if spin != 0 {
			// A spinning part sweeps a circle around the vertical axis.
			xz := float32(gomath.Hypot(float64(p.Offset.X), float64(p.Offset.Z))) + r
			center.X, center.Z = m.pivot.X, m.pivot.Z
			reach.X, reach.Z = xz, xz
		}
		box = box.Union(math.Box{Min: center.Sub(reach), Max: center.Add(reach)})
	}
	return box
}

func (m *Mesh) Simulate(animation int, f bake.Frame) error {
	if len(m.clips) > 0 && (animation < 0 || animation >= len(m.clips)) {
		return fmt.Errorf("mesh %s has no clip %d", m.name, animation)
	}
	m.clip, m.time = animation, f.Time
	return nil
}

func (m *Mesh) SavePose() any { return meshPose{clip: m.clip, time: m.time} }

func (m *Mesh) RestorePose(pose any) {
	if p, ok := pose.(meshPose); ok {
		m.clip, m.time = p.clip, p.time
	}
}

func (m *Mesh) Play()         { m.playing = true }
func (m *Mesh) Stop()         { m.playing = false }
func (m *Mesh) Playing() bool { return m.playing }

// Spheres returns the parts in the current pose.
func (m *Mesh) Spheres() []Sphere {
	var clip Clip
	if m.clip >= 0 && m.clip < len(m.clips) {
		clip = m.clips[m.clip]
	}
	phase := 2 * gomath.Pi * m.time
	rot := math.RotateY(clip.Spin * float32(phase))
	lift := math.Vec3{Y: clip.Bob * float32(gomath.Sin(phase))}
	scale := 1 + clip.Pulse*float32(gomath.Sin(phase))

	out := make([]Sphere, len(m.parts))
	for i, p := range m.parts {
		out[i] = Sphere{
			Center: m.pivot.Add(rot.TransformPoint(p.Offset)).Add(lift),
			Radius: p.Radius * scale,
			Color:  p.Color,
		}
	}
	return out
}

// Emitter describes a particle burst. Particles are born evenly over the
// first Duration-Lifetime of the simulation and fade out over Lifetime.
type Emitter struct {
	Seed     int64
	Count    int
	Duration time.Duration
	Lifetime time.Duration
	Speed    float32
	Size     float32
	Gravity  float32
	Color    color.RGBA
}

type particle struct {
	birth float64 // seconds
	dir   math.Vec3
}

// Particles is a deterministic particle simulation.
type Particles struct {
	name      string
	pivot     math.Vec3
	emitter   Emitter
	particles []particle
	time      float64
}

// NewParticles seeds the simulation. The same emitter always produces the
// same particles.
func NewParticles(name string, pivot math.Vec3, e Emitter) *Particles {
	if e.Lifetime <= 0 || e.Lifetime > e.Duration {
		e.Lifetime = e.Duration
	}
	rng := rand.New(rand.NewSource(e.Seed))
	span := (e.Duration - e.Lifetime).Seconds()

	ps := make([]particle, e.Count)
	for i := range ps {
		birth := 0.0
		if e.Count > 1 {
			birth = span * float64(i) / float64(e.Count-1)
		}
		dir := math.Vec3{
			X: float32(rng.Float64()*2 - 1),
			Y: float32(rng.Float64()),
			Z: float32(rng.Float64()*2 - 1),
		}.Normalize()
		ps[i] = particle{birth: birth, dir: dir}
	}
	return &Particles{name: name, pivot: pivot, emitter: e, particles: ps}
}

func (p *Particles) Name() string             { return p.name }
func (p *Particles) IsReady() bool            { return p.emitter.Duration > 0 && len(p.particles) > 0 }
func (p *Particles) PivotPosition() math.Vec3 { return p.pivot }

func (p *Particles) Animations() []bake.Animation {
	return []bake.Animation{{Name: p.name, Length: p.emitter.Duration}}
}

func (p *Particles) Bounds() math.Box {
	life := float32(p.emitter.Lifetime.Seconds())
	reach := p.emitter.Speed*life + p.emitter.Size
	fall := p.emitter.Gravity * life * life / 2
	return math.Box{
		Min: p.pivot.Sub(math.Vec3{X: reach, Y: reach + max(fall, 0), Z: reach}),
		Max: p.pivot.Add(math.Vec3{X: reach, Y: reach, Z: reach}),
	}
}

func (p *Particles) Simulate(_ int, f bake.Frame) error {
	p.time = f.Time
	return nil
}

func (p *Particles) SavePose() any { return p.time }

func (p *Particles) RestorePose(pose any) {
	if t, ok := pose.(float64); ok {
		p.time = t
	}
}

// Spheres returns the particles alive at the current time.
func (p *Particles) Spheres() []Sphere {
	now := p.time * p.emitter.Duration.Seconds()
	life := p.emitter.Lifetime.Seconds()

	var out []Sphere
	for _, pt := range p.particles {
		age := now - pt.birth
		if age < 0 || age >= life {
			continue
		}
		a := float32(age)
		pos := p.pivot.Add(pt.dir.Scale(p.emitter.Speed * a))
		pos.Y -= p.emitter.Gravity * a * a / 2

		c := p.emitter.Color
		c.A = uint8(float64(c.A) * (1 - age/life))
		out = append(out, Sphere{Center: pos, Radius: p.emitter.Size, Color: c})
	}
	return out
}

// Static is a model that never moves.
type Static struct {
	name  string
	pivot math.Vec3
	parts []Part
}

// NewStatic creates a static model.
func NewStatic(name string, pivot math.Vec3, parts []Part) *Static {
	return &Static{name: name, pivot: pivot, parts: parts}
}

func (s *Static) Name() string {
	return s.name
}

func (s *Static) IsReady() bool {
	return len(s.parts) > 0
}

func (s *Static) PivotPosition() math.Vec3 {
	return s.pivot
}

func (s *Static) Animations() []bake.Animation {
	return nil
}

func (s *Static) Simulate(int, bake.Frame) error {
	return nil
}

func (s *Static) Bounds() math.Box {
	box := math.Box{Min: s.pivot, Max: s.pivot}
	for _, p := range s.parts {
		r := math.Vec3{X: p.Radius, Y: p.Radius, Z: p.Radius}
		c := s.pivot.Add(p.Offset)
		box = box.Union(math.Box{Min: c.Sub(r), Max: c.Add(r)})
	}
	return box
}

func (s *Static) Spheres() []Sphere {
	out := make([]Sphere, len(s.parts))
	for i, p := range s.parts {
		out[i] = Sphere{Center: s.pivot.Add(p.Offset), Radius: p.Radius, Color: p.Color}
	}
	return out
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

var (
	_ bake.Model  = (*Mesh)(nil)
	_ bake.Poser  = (*Mesh)(nil)
	_ bake.Player = (*Mesh)(nil)
	_ bake.Model  = (*Particles)(nil)
	_ bake.Poser  = (*Particles)(nil)
	_ bake.Model  = (*Static)(nil)
)
