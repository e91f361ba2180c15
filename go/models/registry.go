package models

type FreezeMode int

const (
	// Freeze returns the number of bytes a save would need
	FreezeSize FreezeMode = iota
	// Freeze writes state into data and returns bytes written
	FreezeSave
	// Freeze restores state from data and returns bytes consumed
	FreezeLoad
)

func (m FreezeMode) String() string {
	switch m {
	case FreezeSize:
		return "size"
	case FreezeSave:
		return "save"
	case FreezeLoad:
		return "load"
	}
	return "unknown"
}

// Freezer is the freeze protocol shared by subsystems and supplemental state.
type Freezer interface {
	Freeze(mode FreezeMode, data []byte) (int, error)
}

type FreezerFunc func(mode FreezeMode, data []byte) (int, error)

func (f FreezerFunc) Freeze(mode FreezeMode, data []byte) (int, error) {
	return f(mode, data)
}

// Registry is the set of attached hardware subsystems.
// Names() order is the order subsystems appear in a snapshot.
type Registry interface {
	Open() error
	Close() error
	Names() []string
	Freeze(name string, mode FreezeMode, data []byte) (int, error)
}

// Bind returns a Freezer for one named registry entry.
func Bind(r Registry, name string) Freezer {
	return FreezerFunc(func(mode FreezeMode, data []byte) (int, error) {
		return r.Freeze(name, mode, data)
	})
}
