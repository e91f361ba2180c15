package core

import (
	"fmt"
	"github.com/pkg/errors"
	"runtime/debug"
)

// Fault is a CPU failure caught by the execution fault scope.
type Fault struct {
	// recovered panic value, nil if the CPU returned an error
	Value interface{}
	Err   error
	Stack []byte
}

func (f *Fault) Error() string {
	return fmt.Sprintf("cpu fault: %v", f.Err)
}

func (f *Fault) Cause() error {
	return f.Err
}

// FaultHandler is the fault policy.
// Returning nil re-enters the run loop, returning an error ends the execution thread with it.
type FaultHandler func(f *Fault) error

func newFault(r interface{}) *Fault {
	f := &Fault{Value: r, Stack: debug.Stack()}
	if err, ok := r.(error); ok {
		f.Err = err
	} else {
		f.Err = errors.Errorf("%v", r)
	}
	return f
}
