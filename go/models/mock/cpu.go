package mock

import (
	"encoding/binary"
	"github.com/pkg/errors"
	"runtime"
	"sync/atomic"

	"github.com/lunixbochs/emucore/go/models/cpu"
)

const (
	PC = iota + 1
	COUNTER
	FLAGS
)

const (
	RamBase = 0x1000
	RamSize = 0x1000
)

// Cpu is a trivial interpreter: every block bumps COUNTER and stores it to RAM.
type Cpu struct {
	*cpu.Hooks
	*cpu.Regs
	*cpu.Mem

	// Execute returns an error when COUNTER reaches FaultAt
	FaultAt uint64
	// Execute panics with a *cpu.MemError when COUNTER reaches PanicAt
	PanicAt uint64

	stop   int32
	blocks uint64
}

func NewCpu() *Cpu {
	c := &Cpu{
		Regs: cpu.NewRegs(32, []int{PC, COUNTER, FLAGS}),
		Mem:  cpu.NewMem(32, binary.LittleEndian),
	}
	c.Hooks = cpu.NewHooks(c, c.Mem)
	c.Reset()
	return c
}

func (c *Cpu) Reset() error {
	for _, p := range append(cpu.Pages(nil), c.Mappings()...) {
		c.MemUnmap(p.Addr, p.Size)
	}
	c.RegReset()
	if err := c.MemMapDesc(RamBase, RamSize, cpu.PROT_ALL, "ram"); err != nil {
		return err
	}
	return c.RegWrite(PC, RamBase)
}

func (c *Cpu) Execute() error {
	atomic.StoreInt32(&c.stop, 0)
	for {
		pc, _ := c.RegRead(PC)
		c.OnBlock(pc, 4)
		if atomic.LoadInt32(&c.stop) != 0 {
			return nil
		}
		atomic.AddUint64(&c.blocks, 1)
		n, _ := c.RegRead(COUNTER)
		n++
		c.RegWrite(COUNTER, n)
		if n == c.PanicAt {
			panic(&cpu.MemError{Addr: pc, Size: 4, Enum: cpu.MEM_FETCH_UNMAPPED})
		}
		if n == c.FaultAt {
			return errors.Errorf("mock fault at block %d", n)
		}
		if err := c.WriteUint(RamBase+(n*8)%RamSize, 8, cpu.PROT_WRITE, n); err != nil {
			return err
		}
		c.RegWrite(PC, RamBase+(n*4)%RamSize)
		runtime.Gosched()
	}
}

func (c *Cpu) Stop() error {
	atomic.StoreInt32(&c.stop, 1)
	return nil
}

// Blocks counts executed blocks across every Execute call.
func (c *Cpu) Blocks() uint64 {
	return atomic.LoadUint64(&c.blocks)
}

func (c *Cpu) Close() error {
	return nil
}
