package cpu

import (
	"fmt"
	"strings"
)

// Page is one contiguous mapping of guest memory.
type Page struct {
	Addr uint64
	Size uint64
	Prot int
	Data []byte

	Desc string
}

func (p *Page) String() string {
	prot := []byte("---")
	for i, bit := range []int{PROT_READ, PROT_WRITE, PROT_EXEC} {
		if p.Prot&bit != 0 {
			prot[i] = "rwx"[i]
		}
	}
	desc := fmt.Sprintf("0x%x-0x%x %s", p.Addr, p.Addr+p.Size, prot)
	if p.Desc != "" {
		desc += fmt.Sprintf(" [%s]", p.Desc)
	}
	return desc
}

func (p *Page) Contains(addr uint64) bool {
	return addr >= p.Addr && addr < p.Addr+p.Size
}

// start = max(s1, s2), end = min(e1, e2), ok = end > start
func (p *Page) Intersect(addr, size uint64) (uint64, uint64, bool) {
	start, end := p.Addr, p.Addr+p.Size
	if e2 := addr + size; end > e2 {
		end = e2
	}
	if start < addr {
		start = addr
	}
	return start, end - start, end > start
}

func (p *Page) slice(addr, size uint64) *Page {
	o := addr - p.Addr
	return &Page{Addr: addr, Size: size, Prot: p.Prot, Data: p.Data[o : o+size], Desc: p.Desc}
}

// Split cuts [addr, addr+size) out of the page.
// The receiver is narrowed to the intersection; any leftover space is returned as left/right.
func (p *Page) Split(addr, size uint64) (left, right *Page) {
	start, n, ok := p.Intersect(addr, size)
	if !ok {
		return nil, nil
	}
	if end := start + n; end < p.Addr+p.Size {
		right = p.slice(end, p.Addr+p.Size-end)
	}
	if start > p.Addr {
		left = p.slice(p.Addr, start-p.Addr)
	}
	p.Data = p.Data[start-p.Addr : start-p.Addr+n]
	p.Addr, p.Size = start, n
	return left, right
}

type Pages []*Page

func (p Pages) Len() int           { return len(p) }
func (p Pages) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
func (p Pages) Less(i, j int) bool { return p[i].Addr < p[j].Addr }

func (p Pages) String() string {
	s := make([]string, len(p))
	for i, v := range p {
		s[i] = v.String()
	}
	return strings.Join(s, "\n")
}

// binary search for the index of the region containing addr, or -1
func (p Pages) bsearch(addr uint64) int {
	l, r := 0, len(p)-1
	for l <= r {
		mid := (l + r) / 2
		e := p[mid]
		switch {
		case addr < e.Addr:
			r = mid - 1
		case addr >= e.Addr+e.Size:
			l = mid + 1
		default:
			return mid
		}
	}
	return -1
}

func (p Pages) Find(addr uint64) *Page {
	if i := p.bsearch(addr); i >= 0 {
		return p[i]
	}
	return nil
}

// FindRange returns every page overlapping [addr, addr+size).
func (p Pages) FindRange(addr, size uint64) Pages {
	var ret Pages
	for _, v := range p {
		if _, _, ok := v.Intersect(addr, size); ok {
			ret = append(ret, v)
		}
	}
	return ret
}
