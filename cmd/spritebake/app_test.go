package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Faultbox/spritebake/internal/bake"
	"github.com/Faultbox/spritebake/internal/config"
	"github.com/Faultbox/spritebake/internal/emit"
)

const testScene = `sources:
  - name: rock
    kind: static
    parts:
      - offset: [0, 0.4, 0]
        radius: 0.4
        color: [120, 120, 130, 255]
  - name: ghost
    kind: static
    skip: true
  - name: slime
    kind: mesh
    parts:
      - offset: [0, 0.5, 0]
        radius: 0.6
        color: [80, 200, 120, 200]
    clips:
      - name: idle
        length: 1s
        bob: 0.1
`

func testApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "scene.yaml")
	if err := os.WriteFile(scenePath, []byte(testScene), 0644); err != nil {
		t.Fatalf("failed to write scene: %v", err)
	}

	cfg := config.Default()
	cfg.Scene.Path = scenePath
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Bake.Width = 48
	cfg.Bake.Height = 48
	cfg.Bake.Frames = 3
	cfg.Bake.Views = 2
	cfg.Bake.Tick = time.Microsecond

	a, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func exists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s: %v", path, err)
	}
}

func TestApp_Bake(t *testing.T) {
	a := testApp(t)

	if err := a.bake(context.Background(), ""); err != nil {
		t.Fatalf("bake: %v", err)
	}

	out := a.cfg.Output.Dir
	for _, name := range []string{
		"rock/default_view00.png",
		"rock/default_view01.yaml",
		"slime/idle_view00.png",
		"slime/idle_view01.yaml",
	} {
		exists(t, filepath.Join(out, name))
	}
	if _, err := os.Stat(filepath.Join(out, "ghost")); err == nil {
		t.Error("skipped source was baked")
	}
}

func TestApp_SampleThenSelect(t *testing.T) {
	a := testApp(t)

	if err := a.sample(context.Background(), 2); err != nil {
		t.Fatalf("sample: %v", err)
	}
	selPath := filepath.Join(a.cfg.Output.Dir, "slime", "samples", "selection.yaml")
	exists(t, selPath)

	sel, err := emit.ReadSelection(selPath)
	if err != nil {
		t.Fatalf("ReadSelection: %v", err)
	}
	if sel.Model != "slime" || len(sel.Frames) != 2 {
		t.Fatalf("selection = %+v, want 2 slime frames", sel)
	}

	jobs := a.jobs(sel)
	if len(jobs) != 3 || jobs[1] != nil {
		t.Fatalf("jobs = %v, want 3 with the skipped source nil", jobs)
	}
	if jobs[0].Settings != nil {
		t.Error("selection for slime applied to rock")
	}
	if jobs[2].Settings == nil || len(jobs[2].Settings.SelectedFrames) != 2 {
		t.Error("selection not applied to slime")
	}

	if err := a.bake(context.Background(), selPath); err != nil {
		t.Fatalf("bake with selection: %v", err)
	}
	exists(t, filepath.Join(a.cfg.Output.Dir, "slime", "idle_view00.png"))
}

func TestApp_CancelledContext(t *testing.T) {
	a := testApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.bake(ctx, ""); err != bake.ErrCancelled {
		t.Errorf("bake err = %v, want ErrCancelled", err)
	}
	if err := a.sample(ctx, 2); err != bake.ErrCancelled {
		t.Errorf("sample err = %v, want ErrCancelled", err)
	}
}

func TestDrive_CancelsOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	steps, cancels := 0, 0
	drive(ctx, time.Microsecond, func() bool {
		steps++
		return steps < 5
	}, func() { cancels++ })

	if steps != 5 {
		t.Errorf("steps = %d, want 5", steps)
	}
	if cancels != 1 {
		t.Errorf("cancels = %d, want 1", cancels)
	}
}
