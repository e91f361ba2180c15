package savestate

import (
	"fmt"
	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/models"
)

// Entry names one registry slot in a snapshot.
type Entry struct {
	Name       string
	Supplement bool
}

// Layout describes how m frames its subsystems.
func Layout(m models.Machine) []Entry {
	names := m.Registry().Names()
	layout := make([]Entry, len(names))
	for i, name := range names {
		layout[i] = Entry{Name: name, Supplement: m.Supplement(name) != nil}
	}
	return layout
}

type RegValue struct {
	Enum int
	Val  uint64
}

type PageInfo struct {
	Addr, Size uint64
	Prot       int
}

type RecordInfo struct {
	Name   string
	Offset int
	Size   int
	// continuation block size, -1 if none
	Block int
}

type Summary struct {
	Regs    []RegValue
	Pages   []PageInfo
	Records []RecordInfo
}

// Inspect parses a full snapshot without applying it.
// With a nil layout every length-prefixed chunk is listed as its own record.
func Inspect(data []byte, layout []Entry) (*Summary, error) {
	r := NewReader(data)
	s, hdr, err := unpackCpuHeader(r)
	if err != nil {
		return nil, err
	}
	sum := &Summary{}
	for i := uint32(0); i < hdr.RegCount; i++ {
		var reg regEntry
		if err := s.Unpack(&reg); err != nil {
			return nil, errors.Wrapf(ErrShort, "register %d", i)
		}
		sum.Regs = append(sum.Regs, RegValue{int(reg.Enum), reg.Val})
	}
	for i := uint32(0); i < hdr.PageCount; i++ {
		var page pageEntry
		if err := s.Unpack(&page); err != nil {
			return nil, errors.Wrapf(ErrShort, "page %d", i)
		}
		if page.Size > uint64(r.Remaining()) {
			return nil, errors.Wrapf(ErrShort, "page %#x+%#x", page.Addr, page.Size)
		}
		r.Next(int(page.Size))
		sum.Pages = append(sum.Pages, PageInfo{page.Addr, page.Size, int(page.Prot)})
	}
	if layout == nil {
		for i := 0; r.Remaining() > 0; i++ {
			off := r.Offset()
			rec, err := r.Record()
			if err != nil {
				return nil, err
			}
			sum.Records = append(sum.Records, RecordInfo{Name: fmt.Sprintf("#%d", i), Offset: off, Size: len(rec), Block: -1})
		}
		return sum, nil
	}
	for _, e := range layout {
		info := RecordInfo{Name: e.Name, Offset: r.Offset(), Block: -1}
		rec, err := r.Record()
		if err != nil {
			return nil, errors.Wrap(err, e.Name)
		}
		info.Size = len(rec)
		if e.Supplement {
			block, err := r.Record()
			if err != nil {
				return nil, errors.Wrapf(err, "%s continuation", e.Name)
			}
			info.Block = len(block)
		}
		sum.Records = append(sum.Records, info)
	}
	if n := r.Remaining(); n != 0 {
		return nil, errors.Errorf("%d trailing bytes after snapshot", n)
	}
	return sum, nil
}
