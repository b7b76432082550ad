package main

import (
	"fmt"
	"os"
	"strings"
)

// triState is the auto|on|off setting shared by --color and --ui.
type triState string

const (
	stateAuto triState = "auto"
	stateOn   triState = "on"
	stateOff  triState = "off"
)

func parseTriState(flag, value string) (triState, error) {
	switch s := triState(strings.TrimSpace(strings.ToLower(value))); s {
	case "":
		return stateAuto, nil
	case stateAuto, stateOn, stateOff:
		return s, nil
	}
	return "", fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
}

// enabled resolves auto against whether f is a terminal.
func (s triState) enabled(f *os.File) bool {
	switch s {
	case stateOn:
		return true
	case stateOff:
		return false
	default:
		return isTerminal(f)
	}
}
