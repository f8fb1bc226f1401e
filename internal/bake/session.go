package bake

import "go.uber.org/zap"

// Session records the scene state a pass mutates and puts it back on Close.
// Each piece of state is saved the first time it is touched, so only what
// the pass actually changed is restored.
type Session struct {
	touched  map[string]struct{}
	restores []namedRestore
	closed   bool
	log      *zap.Logger
}

type namedRestore struct {
	name string
	fn   func()
}

// NewSession starts an empty session.
func NewSession(log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{touched: make(map[string]struct{}), log: log}
}

// Touch saves a piece of state under name unless it was saved already. save
// runs immediately and returns the function that restores the saved value.
func (s *Session) Touch(name string, save func() (restore func())) {
	if s.closed {
		return
	}
	if _, ok := s.touched[name]; ok {
		return
	}
	s.touched[name] = struct{}{}
	s.restores = append(s.restores, namedRestore{name: name, fn: save()})
}

// TouchView saves the renderer's current view.
func (s *Session) TouchView(r Renderer) {
	s.Touch("view", func() func() {
		v := r.View()
		return func() { r.SetView(v) }
	})
}

// TouchPose saves the model pose when the model supports it.
func (s *Session) TouchPose(m Model) {
	p, ok := m.(Poser)
	if !ok {
		return
	}
	s.Touch("pose", func() func() {
		pose := p.SavePose()
		return func() { p.RestorePose(pose) }
	})
}

// TouchPlayback saves whether the model was playing.
func (s *Session) TouchPlayback(m Model) {
	p, ok := m.(Player)
	if !ok {
		return
	}
	s.Touch("playback", func() func() {
		playing := p.Playing()
		return func() {
			if playing {
				p.Play()
			} else {
				p.Stop()
			}
		}
	})
}

// Close restores every touched piece of state in reverse order. It is safe
// to call more than once. A panicking restore is logged and the remaining
// restores still run.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for i := len(s.restores) - 1; i >= 0; i-- {
		s.restore(s.restores[i])
	}
	s.restores = nil
}

func (s *Session) restore(r namedRestore) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("restore failed", zap.String("state", r.name), zap.Any("panic", p))
		}
	}()
	r.fn()
	s.log.Debug("state restored", zap.String("state", r.name))
}
