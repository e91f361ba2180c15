package core

import (
	"fmt"
	"github.com/pkg/errors"
)

// ExecMode is the execution thread state.
// Idle -> Running -> Suspending -> Suspended -> Running ...; teardown returns to Idle.
type ExecMode int

const (
	Idle ExecMode = iota
	Running
	// requested; the execution thread moves to Suspended at its next safe point
	Suspending
	Suspended
)

func (m ExecMode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Suspending:
		return "suspending"
	case Suspended:
		return "suspended"
	}
	return fmt.Sprintf("ExecMode(%d)", int(m))
}

var (
	ErrNotBootable = errors.New("no bootable image")
	ErrLegacyImage = errors.New("legacy image format is not supported")
)

// InvariantError is raised for controller defects. It is never handled as a CPU fault.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "invariant violated: " + e.Msg
}

func invariant(format string, a ...interface{}) {
	panic(&InvariantError{fmt.Sprintf(format, a...)})
}
