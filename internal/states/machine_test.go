package states

import (
	"errors"
	"testing"
)

func TestMachine_UpdateRunsCurrentActionOnce(t *testing.T) {
	m := New[string]()
	calls := map[string]int{}
	m.AddState("a", func() { calls["a"]++ })
	m.AddState("b", func() { calls["b"]++ })

	if m.Update() {
		t.Error("Update before any state must report false")
	}

	if err := m.ChangeState("a"); err != nil {
		t.Fatalf("ChangeState failed: %v", err)
	}
	m.Update()
	m.Update()
	if calls["a"] != 2 || calls["b"] != 0 {
		t.Errorf("calls = %v, want a=2 b=0", calls)
	}

	m.MustChangeState("b")
	m.Update()
	if calls["a"] != 2 || calls["b"] != 1 {
		t.Errorf("calls = %v, want a=2 b=1", calls)
	}
}

func TestMachine_ChangeFromActionTakesEffectNextUpdate(t *testing.T) {
	m := New[int]()
	var visited []int
	m.AddState(1, func() {
		visited = append(visited, 1)
		m.MustChangeState(2)
	})
	m.AddState(2, func() {
		visited = append(visited, 2)
		m.MustChangeState(3)
	})
	m.AddState(3, func() { visited = append(visited, 3) })

	m.MustChangeState(1)
	m.Update()
	if len(visited) != 1 {
		t.Fatalf("one Update must run one action, visited %v", visited)
	}
	m.Update()
	m.Update()
	m.Update()

	want := []int{1, 2, 3, 3}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("visited = %v, want %v", visited, want)
		}
	}
	if cur, ok := m.Current(); !ok || cur != 3 {
		t.Errorf("Current() = %v, %v", cur, ok)
	}
}

func TestMachine_UnknownState(t *testing.T) {
	m := New[string]()
	m.AddState("known", func() {})
	if err := m.ChangeState("missing"); !errors.Is(err, ErrUnknownState) {
		t.Errorf("expected ErrUnknownState, got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustChangeState must panic for an unknown label")
		}
	}()
	m.MustChangeState("missing")
}

func TestMachine_OnChange(t *testing.T) {
	m := New[string]()
	m.AddState("x", func() {})
	m.AddState("y", func() {})

	var log []string
	m.OnChange(func(from, to string) { log = append(log, from+">"+to) })
	m.MustChangeState("x")
	m.MustChangeState("y")

	if len(log) != 2 || log[0] != ">x" || log[1] != "x>y" {
		t.Errorf("transitions = %v", log)
	}
}

func TestMachine_Deterministic(t *testing.T) {
	run := func() []string {
		m := New[string]()
		var trace []string
		count := 0
		m.AddState("loop", func() {
			trace = append(trace, "loop")
			count++
			if count == 3 {
				m.MustChangeState("done")
			}
		})
		m.AddState("done", func() { trace = append(trace, "done") })
		m.MustChangeState("loop")
		for i := 0; i < 6; i++ {
			m.Update()
		}
		return trace
	}

	first, second := run(), run()
	if len(first) != len(second) {
		t.Fatalf("traces differ in length: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("traces differ: %v vs %v", first, second)
		}
	}
}
