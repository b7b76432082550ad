package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"weave/internal/driver"
)

func TestProgressModelTracksModules(t *testing.T) {
	m := NewProgressModel("build weave.toml", []string{"alpha", "beta"}, nil).(*progressModel)
	if got := m.fraction(); got != 0 {
		t.Fatalf("initial fraction = %v", got)
	}

	m.Update(eventMsg(driver.Event{Module: "alpha", Status: driver.StatusBuilding}))
	if got := m.fraction(); got != 0.25 {
		t.Fatalf("fraction after building = %v", got)
	}
	m.Update(eventMsg(driver.Event{Module: "alpha", Status: driver.StatusDone, Elapsed: time.Millisecond}))
	m.Update(eventMsg(driver.Event{Module: "beta", Status: driver.StatusError, Err: errors.New("bad body\nmore")}))
	m.Update(eventMsg(driver.Event{Module: "gamma", Status: driver.StatusDone}))

	if got := m.fraction(); got != 1 {
		t.Fatalf("fraction = %v", got)
	}
	if m.finished() != 2 {
		t.Fatalf("finished = %d", m.finished())
	}
	if m.items[1].note != "bad body" {
		t.Fatalf("error note = %q", m.items[1].note)
	}

	_, cmd := m.Update(doneMsg{})
	if cmd == nil || !m.done {
		t.Fatal("done message should quit")
	}
	view := m.View()
	for _, want := range []string{"done: build weave.toml (2/2)", "alpha", "1ms", "beta  bad body"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestProgressModelListensUntilClosed(t *testing.T) {
	events := make(chan driver.Event, 1)
	m := NewProgressModel("b", []string{"a"}, events).(*progressModel)
	events <- driver.Event{Module: "a", Status: driver.StatusDone}
	if msg := m.listenForEvent()(); msg != eventMsg(driver.Event{Module: "a", Status: driver.StatusDone}) {
		t.Fatalf("msg = %#v", msg)
	}
	close(events)
	if _, ok := m.listenForEvent()().(doneMsg); !ok {
		t.Fatal("closed channel should yield doneMsg")
	}
}

func TestProgressModelEmpty(t *testing.T) {
	if v := NewProgressModel("b", nil, nil).View(); v != "" {
		t.Fatalf("view = %q", v)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"module", 0, "module"},
		{"module", 10, "module"},
		{"long_module_name", 8, "long_..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
