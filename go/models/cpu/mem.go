package cpu

import (
	"encoding/binary"
	"github.com/pkg/errors"
)

// wraps MemSim to make a Cpu interface-compatible memory model
type Mem struct {
	bits uint
	// methods return an error for addresses that do not fit inside mask
	mask uint64
	// set when passing *Mem to NewHooks()
	hooks *Hooks
	sim   *MemSim

	order binary.ByteOrder
}

func NewMem(bits uint, order binary.ByteOrder) *Mem {
	return &Mem{
		bits:  bits,
		mask:  ^uint64(0) >> (64 - bits),
		sim:   &MemSim{},
		order: order,
	}
}

func (m *Mem) MemMapProt(addr, size uint64, prot int) error {
	return m.MemMapDesc(addr, size, prot, "")
}

func (m *Mem) MemMapDesc(addr, size uint64, prot int, desc string) error {
	if end := addr + size - 1; size == 0 || end&m.mask != end || end < addr {
		return errors.Errorf("region %#x+%#x outside memory range", addr, size)
	}
	m.sim.Map(addr, size, prot, desc)
	return nil
}

func (m *Mem) MemUnmap(addr, size uint64) error {
	if mapped, _ := m.sim.RangeValid(addr, size, 0); !mapped {
		return errors.New("range not mapped")
	}
	m.sim.Unmap(addr, size)
	return nil
}

func (m *Mem) Mappings() Pages {
	return m.sim.Mem
}

func (m *Mem) MemRead(addr, size uint64) ([]byte, error) {
	p := make([]byte, size)
	if err := m.sim.Read(addr, p, 0); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Mem) MemWrite(addr uint64, p []byte) error {
	return m.sim.Write(addr, p, 0)
}

// ReadProt is MemRead with a protection check.
func (m *Mem) ReadProt(addr, size uint64, prot int) ([]byte, error) {
	p := make([]byte, size)
	if err := m.sim.Read(addr, p, prot); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Mem) WriteProt(addr uint64, p []byte, prot int) error {
	return m.sim.Write(addr, p, prot)
}

// zeroes every mapped page, keeping the memory map
func (m *Mem) MemReset() {
	for _, page := range m.sim.Mem {
		for i := range page.Data {
			page.Data[i] = 0
		}
	}
}

// ReadUint reads a size-byte integer while checking protections and dispatching hooks.
// This exists to support a CPU interpreter.
func (m *Mem) ReadUint(addr uint64, size, prot int) (uint64, error) {
	p := make([]byte, size)
	if err := m.sim.Read(addr, p, prot); err != nil {
		m.fault(err, addr, size, 0)
		return 0, err
	}
	var val uint64
	switch size {
	case 8:
		val = m.order.Uint64(p)
	case 4:
		val = uint64(m.order.Uint32(p))
	case 2:
		val = uint64(m.order.Uint16(p))
	case 1:
		val = uint64(p[0])
	default:
		return 0, errors.Errorf("unsupported uint size: %d", size)
	}
	if m.hooks != nil {
		m.hooks.OnMem(MEM_READ, addr, size, int64(val))
	}
	return val, nil
}

// WriteUint is the write half of ReadUint.
func (m *Mem) WriteUint(addr uint64, size, prot int, val uint64) error {
	var buf [8]byte
	switch size {
	case 8:
		m.order.PutUint64(buf[:], val)
	case 4:
		m.order.PutUint32(buf[:], uint32(val))
	case 2:
		m.order.PutUint16(buf[:], uint16(val))
	case 1:
		buf[0] = byte(val)
	default:
		return errors.Errorf("unsupported uint size: %d", size)
	}
	if err := m.sim.Write(addr, buf[:size], prot); err != nil {
		m.fault(err, addr, size, int64(val))
		return err
	}
	if m.hooks != nil {
		m.hooks.OnMem(MEM_WRITE, addr, size, int64(val))
	}
	return nil
}

func (m *Mem) fault(err error, addr uint64, size int, val int64) {
	if merr, ok := err.(*MemError); ok && m.hooks != nil {
		m.hooks.OnFault(merr.Enum, addr, size, val)
	}
}
