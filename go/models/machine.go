package models

import (
	"github.com/lunixbochs/emucore/go/models/cpu"
)

// Machine is everything a snapshot covers.
type Machine interface {
	Cpu() cpu.Cpu
	Registry() Registry
	// Supplement returns the freezer for state serialized in a second pass after
	// the named subsystem's record, or nil if the subsystem has none.
	Supplement(name string) Freezer
	// ClearExecutionCache drops all translated code.
	ClearExecutionCache()
}
