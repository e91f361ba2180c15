package cpu

type Hook interface{}

// Cpu abstracts the virtual processor driven by the core thread.
// Everything a savestate needs from the processor is reachable through it:
// the register file (RegEnums/RegRead/RegWrite) and the memory map (Mappings/MemRead/MemWrite).
type Cpu interface {
	// memory mapping
	MemMapProt(addr, size uint64, prot int) error
	MemUnmap(addr, size uint64) error
	Mappings() Pages

	// memory IO
	MemRead(addr, size uint64) ([]byte, error)
	MemWrite(addr uint64, p []byte) error

	// register IO
	RegEnums() []int
	RegRead(reg int) (uint64, error)
	RegWrite(reg int, val uint64) error

	// execution
	// Execute runs from the current program counter until Stop() is called or a fault occurs.
	// Block hooks are the only points where other goroutines can observe a consistent machine.
	Reset() error
	Execute() error
	Stop() error

	// hooks
	HookAdd(htype int, cb interface{}, begin, end uint64) (Hook, error)
	HookDel(hook Hook) error

	// cleanup
	Close() error
}
