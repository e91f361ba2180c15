package cpu

import (
	"github.com/pkg/errors"
)

type hookInfo struct {
	htype int
	start uint64
	end   uint64
}

func (h *hookInfo) Type() int {
	return h.htype
}

// start > end means the hook covers the whole address space
func (h *hookInfo) Contains(addr uint64) bool {
	return h.start > h.end || addr >= h.start && addr <= h.end
}

type hinfo interface {
	Type() int
}

type codeHook struct {
	hookInfo
	cb func(Cpu, uint64, uint32)
}

type memHook struct {
	hookInfo
	cb func(Cpu, int, uint64, int, int64)
}

type memFaultHook struct {
	hookInfo
	cb func(Cpu, int, uint64, int, int64) bool
}

// Hooks implements hook bookkeeping and dispatch for interpreter CPUs.
type Hooks struct {
	cpu Cpu

	code     []*codeHook
	block    []*codeHook
	mem      []*memHook
	memFault []*memFaultHook
}

// creates &Hooks{}, optionally attaching to a *Mem instance
func NewHooks(cpu Cpu, mem *Mem) *Hooks {
	h := &Hooks{cpu: cpu}
	if mem != nil {
		mem.hooks = h
	}
	return h
}

func (h *Hooks) HookAdd(htype int, cb interface{}, start uint64, end uint64) (Hook, error) {
	info := hookInfo{htype, start, end}
	var hook Hook
	var ok bool
	switch htype {
	case HOOK_BLOCK, HOOK_CODE:
		hh := &codeHook{hookInfo: info}
		if hh.cb, ok = cb.(func(Cpu, uint64, uint32)); ok {
			if htype == HOOK_BLOCK {
				h.block = append(h.block, hh)
			} else {
				h.code = append(h.code, hh)
			}
		}
		hook = hh
	case HOOK_MEM_READ, HOOK_MEM_WRITE, HOOK_MEM_READ | HOOK_MEM_WRITE:
		hh := &memHook{hookInfo: info}
		if hh.cb, ok = cb.(func(Cpu, int, uint64, int, int64)); ok {
			h.mem = append(h.mem, hh)
		}
		hook = hh
	case HOOK_MEM_ERR:
		hh := &memFaultHook{hookInfo: info}
		if hh.cb, ok = cb.(func(Cpu, int, uint64, int, int64) bool); ok {
			h.memFault = append(h.memFault, hh)
		}
		hook = hh
	default:
		return nil, errors.Errorf("unknown hook type: %d", htype)
	}
	if !ok {
		return nil, errors.Errorf("wrong callback type %T for hook type %d", cb, htype)
	}
	return hook, nil
}

func (h *Hooks) HookDel(hh Hook) error {
	info, ok := hh.(hinfo)
	if !ok {
		return errors.Errorf("not a hook: %T", hh)
	}
	switch info.Type() {
	case HOOK_BLOCK:
		h.block = delCode(h.block, hh)
	case HOOK_CODE:
		h.code = delCode(h.code, hh)
	case HOOK_MEM_READ, HOOK_MEM_WRITE, HOOK_MEM_READ | HOOK_MEM_WRITE:
		tmp := h.mem[:0:0]
		for _, v := range h.mem {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.mem = tmp
	case HOOK_MEM_ERR:
		tmp := h.memFault[:0:0]
		for _, v := range h.memFault {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.memFault = tmp
	}
	return nil
}

func delCode(list []*codeHook, hh Hook) []*codeHook {
	tmp := list[:0:0]
	for _, v := range list {
		if v != hh {
			tmp = append(tmp, v)
		}
	}
	return tmp
}

func (h *Hooks) OnBlock(addr uint64, size uint32) {
	for _, v := range h.block {
		if v.Contains(addr) {
			v.cb(h.cpu, addr, size)
		}
	}
}

func (h *Hooks) OnCode(addr uint64, size uint32) {
	for _, v := range h.code {
		if v.Contains(addr) {
			v.cb(h.cpu, addr, size)
		}
	}
}

func (h *Hooks) OnMem(access int, addr uint64, size int, val int64) {
	for _, v := range h.mem {
		if v.Contains(addr) {
			v.cb(h.cpu, access, addr, size, val)
		}
	}
}

func (h *Hooks) OnFault(access int, addr uint64, size int, val int64) bool {
	for _, v := range h.memFault {
		if v.Contains(addr) && v.cb(h.cpu, access, addr, size, val) {
			return true
		}
	}
	return false
}
