package savestate

import (
	"encoding/binary"
	"github.com/pkg/errors"
	"io"

	"github.com/lunixbochs/emucore/go/models"
	"github.com/lunixbochs/emucore/go/models/cpu"
)

// cpu region:
// cpuHeader
// 1..RegCount: regEntry
// 1..PageCount: pageEntry, <raw memory bytes of Size>

type cpuHeader struct {
	RegCount  uint32
	PageCount uint32
}

type regEntry struct {
	Enum uint32
	Val  uint64
}

type pageEntry struct {
	Addr uint64
	Size uint64
	Prot uint32
}

func saveCpu(w io.Writer, c cpu.Cpu) error {
	s := &models.StrucStream{W: w, Order: binary.LittleEndian}
	enums := c.RegEnums()
	pages := c.Mappings()
	if err := s.Pack(&cpuHeader{uint32(len(enums)), uint32(len(pages))}); err != nil {
		return errors.Wrap(err, "pack cpu header")
	}
	for _, enum := range enums {
		val, err := c.RegRead(enum)
		if err != nil {
			return err
		}
		if err := s.Pack(&regEntry{uint32(enum), val}); err != nil {
			return errors.Wrap(err, "pack register")
		}
	}
	for _, p := range pages {
		if err := s.Pack(&pageEntry{p.Addr, p.Size, uint32(p.Prot)}); err != nil {
			return errors.Wrap(err, "pack page")
		}
		mem, err := c.MemRead(p.Addr, p.Size)
		if err != nil {
			return err
		}
		if _, err := w.Write(mem); err != nil {
			return err
		}
	}
	return nil
}

func unpackCpuHeader(r *Reader) (*models.StrucStream, *cpuHeader, error) {
	s := &models.StrucStream{R: r, Order: binary.LittleEndian}
	var hdr cpuHeader
	if err := s.Unpack(&hdr); err != nil {
		return nil, nil, errors.Wrap(ErrShort, "cpu header")
	}
	return s, &hdr, nil
}

// loadCpu replaces the register file and the whole memory map.
func loadCpu(r *Reader, c cpu.Cpu) error {
	s, hdr, err := unpackCpuHeader(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < hdr.RegCount; i++ {
		var reg regEntry
		if err := s.Unpack(&reg); err != nil {
			return errors.Wrapf(ErrShort, "register %d", i)
		}
		if err := c.RegWrite(int(reg.Enum), reg.Val); err != nil {
			return err
		}
	}
	for _, p := range append(cpu.Pages(nil), c.Mappings()...) {
		if err := c.MemUnmap(p.Addr, p.Size); err != nil {
			return err
		}
	}
	for i := uint32(0); i < hdr.PageCount; i++ {
		var page pageEntry
		if err := s.Unpack(&page); err != nil {
			return errors.Wrapf(ErrShort, "page %d", i)
		}
		if page.Size > uint64(r.Remaining()) {
			return errors.Wrapf(ErrShort, "page %#x+%#x", page.Addr, page.Size)
		}
		data, _ := r.Next(int(page.Size))
		if err := c.MemMapProt(page.Addr, page.Size, int(page.Prot)); err != nil {
			return err
		}
		if err := c.MemWrite(page.Addr, data); err != nil {
			return err
		}
	}
	return nil
}
