package models

import (
	"sync"
)

// Event is a broadcast wakeup.
// Register with Wait() while holding whatever lock guards the condition,
// then release the lock and receive from the returned channel.
type Event struct {
	sync.Mutex
	cb    []chan struct{}
	posts uint64
}

func (e *Event) Wait() <-chan struct{} {
	e.Lock()
	ret := make(chan struct{})
	e.cb = append(e.cb, ret)
	e.Unlock()
	return ret
}

// Notify wakes every registered waiter.
func (e *Event) Notify() {
	e.Lock()
	for _, c := range e.cb {
		close(c)
	}
	e.cb = e.cb[:0]
	e.posts++
	e.Unlock()
}

// number of Notify() calls so far
func (e *Event) Posts() uint64 {
	e.Lock()
	defer e.Unlock()
	return e.posts
}

func (e *Event) Waiting() int {
	e.Lock()
	defer e.Unlock()
	return len(e.cb)
}
