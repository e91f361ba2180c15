package mock

import (
	"sync"
	"sync/atomic"

	"github.com/lunixbochs/emucore/go/models"
	"github.com/lunixbochs/emucore/go/models/cpu"
)

type Machine struct {
	C   *Cpu
	Reg models.Registry
	// supplemental freezers keyed by subsystem name
	Supplements map[string]models.Freezer

	clears int64
}

func NewMachine(reg models.Registry) *Machine {
	return &Machine{C: NewCpu(), Reg: reg, Supplements: make(map[string]models.Freezer)}
}

func (m *Machine) Cpu() cpu.Cpu              { return m.C }
func (m *Machine) Registry() models.Registry { return m.Reg }
func (m *Machine) ClearExecutionCache()      { atomic.AddInt64(&m.clears, 1) }
func (m *Machine) Clears() int64             { return atomic.LoadInt64(&m.clears) }
func (m *Machine) Supplement(name string) models.Freezer {
	if f, ok := m.Supplements[name]; ok {
		return f
	}
	return nil
}

type Booter struct {
	sync.Mutex
	Kind models.ImageKind
	Path string
	Err  error

	Booted []string
}

func (b *Booter) ResolveBootableImage() (models.ImageKind, string, error) {
	return b.Kind, b.Path, b.Err
}

func (b *Booter) BootAndInject(path string) error {
	b.Lock()
	b.Booted = append(b.Booted, path)
	b.Unlock()
	return nil
}

func (b *Booter) Boots() int {
	b.Lock()
	defer b.Unlock()
	return len(b.Booted)
}
