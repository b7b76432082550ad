package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota // nothing is recorded
	LevelError               // heartbeats only
	LevelPhase               // driver and module boundaries
	LevelDetail              // plus function builds
	LevelDebug               // plus every emitted statement
)

var levels = [...]struct {
	name   string
	finest Scope // 0 emits nothing
}{
	LevelOff:    {"off", 0},
	LevelError:  {"error", 0},
	LevelPhase:  {"phase", ScopeModule},
	LevelDetail: {"detail", ScopeFunction},
	LevelDebug:  {"debug", ScopeStatement},
}

func (l Level) String() string {
	if int(l) < len(levels) {
		return levels[l].name
	}
	return "unknown"
}

// ParseLevel converts a level name, in any case, to a Level.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(s)
	for l, def := range levels {
		if def.name == name {
			return Level(l), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|phase|detail|debug)", s)
}

// ShouldEmit reports whether events of scope are recorded at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	if int(l) >= len(levels) {
		return false
	}
	return scope <= levels[l].finest
}
