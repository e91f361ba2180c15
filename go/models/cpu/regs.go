package cpu

import (
	"github.com/pkg/errors"
	"sort"
)

// Regs is a register file conforming to the register half of cpu.Cpu.
// Enums are kept sorted so savestates always list registers in the same order.
type Regs struct {
	mask  uint64
	enums []int
	vals  map[int]uint64
}

func NewRegs(bits uint, enums []int) *Regs {
	r := &Regs{
		mask:  ^uint64(0) >> (64 - bits),
		enums: make([]int, len(enums)),
		vals:  make(map[int]uint64, len(enums)),
	}
	copy(r.enums, enums)
	sort.Ints(r.enums)
	for _, e := range enums {
		r.vals[e] = 0
	}
	return r
}

func (r *Regs) RegEnums() []int {
	return r.enums
}

func (r *Regs) RegRead(enum int) (uint64, error) {
	val, ok := r.vals[enum]
	if !ok {
		return 0, errors.Errorf("invalid register: %d", enum)
	}
	return val, nil
}

func (r *Regs) RegWrite(enum int, val uint64) error {
	if _, ok := r.vals[enum]; !ok {
		return errors.Errorf("invalid register: %d", enum)
	}
	r.vals[enum] = val & r.mask
	return nil
}

// zeroes every register
func (r *Regs) RegReset() {
	for _, e := range r.enums {
		r.vals[e] = 0
	}
}
