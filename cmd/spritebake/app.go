package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/spritebake/internal/bake"
	"github.com/Faultbox/spritebake/internal/batch"
	"github.com/Faultbox/spritebake/internal/config"
	"github.com/Faultbox/spritebake/internal/emit"
	"github.com/Faultbox/spritebake/internal/gpu"
	"github.com/Faultbox/spritebake/internal/logger"
	"github.com/Faultbox/spritebake/internal/raster"
	"github.com/Faultbox/spritebake/internal/scene"
)

// app holds what every run mode shares.
type app struct {
	cfg      *config.Config
	settings bake.Settings
	scene    *scene.Scene
	sink     *emit.Dir
	gl       *gpu.Context
	trim     []bake.Option
	log      *zap.Logger
}

func newApp(cfg *config.Config) (*app, error) {
	settings, err := cfg.BakeSettings()
	if err != nil {
		return nil, err
	}
	sc, err := scene.Load(cfg.Scene.Path)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		settings: settings,
		scene:    sc,
		sink:     emit.NewDir(cfg.Output.Dir, logger.Named("emit")),
		log:      logger.Named("app"),
	}

	if cfg.GPU.Enabled {
		ctx, err := gpu.NewContext(logger.Named("gpu"))
		if err != nil {
			a.log.Warn("GPU unavailable, trimming on the CPU", zap.Error(err))
		} else {
			a.gl = ctx
			a.trim = append(a.trim, bake.WithTrimmer(raster.NewTrimmer(
				raster.WithBlitter(gpu.NewBlitter(ctx)),
				raster.WithLogger(logger.Named("trim")),
			)))
		}
	}
	return a, nil
}

// Close releases the GL context, if one was created.
func (a *app) Close() {
	if a.gl != nil {
		a.gl.Close()
		a.gl = nil
	}
}

// jobs turns the scene into batch jobs. A selection applies to the source it
// names, or to every source when it names none.
func (a *app) jobs(sel *emit.Selection) []*batch.Job {
	jobs := make([]*batch.Job, len(a.scene.Sources))
	for i, src := range a.scene.Sources {
		if src == nil {
			continue
		}
		job := &batch.Job{
			Name:     src.Name,
			Kind:     src.Kind,
			Model:    src.Model,
			Renderer: src.Renderer(a.cfg.Bake.Width, a.cfg.Bake.Height),
		}
		if sel != nil && (sel.Model == "" || sel.Model == src.Name) {
			s := a.settings
			s.SelectedFrames = sel.Frames
			job.Settings = &s
		}
		jobs[i] = job
	}
	return jobs
}

// bake runs the whole scene as one batch.
func (a *app) bake(ctx context.Context, selectionPath string) error {
	var sel *emit.Selection
	if selectionPath != "" {
		var err error
		if sel, err = emit.ReadSelection(selectionPath); err != nil {
			return err
		}
		a.log.Info("selection loaded", zap.String("model", sel.Model), zap.Int("frames", len(sel.Frames)))
	}

	opts := append([]bake.Option{bake.WithSink(a.sink)}, a.trim...)
	b := batch.New(a.jobs(sel), a.settings,
		batch.WithLogger(logger.Named("batch")),
		batch.WithBakeOptions(opts...),
	)
	if err := b.Start(); err != nil {
		return err
	}

	p := &progress{log: a.log}
	drive(ctx, a.cfg.Bake.Tick, func() bool {
		ok := b.Tick()
		p.update(b.Progress())
		return ok
	}, b.Cancel)

	for _, r := range b.Results() {
		if r.Err == nil {
			a.log.Info("baked", zap.String("source", r.Name), zap.Int("views", len(r.Views)))
		}
	}
	return b.Err()
}

// sample runs a sampler over every source and writes the samples with a
// selection file that can be edited and passed back with -select.
func (a *app) sample(ctx context.Context, count int) error {
	var errs []error
	for _, src := range a.scene.Sources {
		if src == nil {
			continue
		}
		if ctx.Err() != nil {
			return bake.ErrCancelled
		}

		opts := append([]bake.Option{bake.WithLogger(logger.Named("sample"))}, a.trim...)
		r := src.Renderer(a.cfg.Bake.Width, a.cfg.Bake.Height)
		s, err := bake.NewSampler(src.Kind, src.Model, r, count, a.settings, opts...)
		if err == nil {
			err = s.Start()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}

		drive(ctx, a.cfg.Bake.Tick, s.Update, s.Cancel)

		if err := s.Err(); err != nil {
			if errors.Is(err, bake.ErrCancelled) {
				return err
			}
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}

		dir := filepath.Join(a.cfg.Output.Dir, src.Name, "samples")
		if err := emit.WriteSamples(dir, src.Name, s.Samples()); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}
		a.log.Info("samples written", zap.String("source", src.Name), zap.Int("count", len(s.Samples())), zap.String("dir", dir))
	}
	return errors.Join(errs...)
}

// drive calls step once per tick until it reports false. When ctx ends,
// cancel is called once and stepping continues so the pass can unwind.
func drive(ctx context.Context, interval time.Duration, step func() bool, cancel func()) {
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	done := ctx.Done()
	for step() {
		select {
		case <-done:
			cancel()
			done = nil
		case <-ticker.C:
		}
	}
}

// progress logs every tenth of the way.
type progress struct {
	log  *zap.Logger
	last int
}

func (p *progress) update(f float64) {
	if step := int(f * 10); step > p.last {
		p.last = step
		p.log.Info("progress", zap.Int("percent", step*10))
	}
}
