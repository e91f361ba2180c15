package savestate

import (
	"bytes"
	"github.com/pkg/errors"
	"io"

	"github.com/lunixbochs/emucore/go/models"
)

// full snapshot:
// cpu region (see cpu.go)
// for each registry name, in order:
//   [u32 len][subsystem payload]
//   [u32 len][continuation block]   only if the machine has a supplement for it
//
// single subsystem snapshot:
//   [u32 len][subsystem payload][u32 len][continuation block]
//   the block is empty when the machine has no supplement for the subsystem

// Codec is one freeze/thaw pass over a machine.
// The sink is whatever io.Writer the caller passes; Source decides where subsystem bytes come from.
type Codec struct {
	Machine models.Machine
	Source  Source
}

func New(m models.Machine) *Codec {
	return &Codec{Machine: m, Source: Live{}}
}

func (c *Codec) source() Source {
	if c.Source == nil {
		return Live{}
	}
	return c.Source
}

func (c *Codec) FreezeAll(w io.Writer) error {
	sw := NewWriter(w)
	if err := saveCpu(sw, c.Machine.Cpu()); err != nil {
		return errors.Wrap(err, "freeze cpu")
	}
	src := c.source()
	for _, name := range c.Machine.Registry().Names() {
		record, block, err := src.Subsystem(c.Machine, name)
		if err != nil {
			return err
		}
		if err := sw.Record(record); err != nil {
			return err
		}
		if block != nil {
			if err := sw.Record(block); err != nil {
				return err
			}
		}
	}
	return nil
}

// Snapshot is FreezeAll into a new buffer.
func (c *Codec) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.FreezeAll(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Codec) ThawAll(data []byte) error {
	r := NewReader(data)
	if err := loadCpu(r, c.Machine.Cpu()); err != nil {
		return errors.Wrap(err, "thaw cpu")
	}
	reg := c.Machine.Registry()
	for _, name := range reg.Names() {
		record, err := r.Record()
		if err != nil {
			return errors.Wrapf(err, "read %s", name)
		}
		if err := load(models.Bind(reg, name), record); err != nil {
			return errors.Wrapf(err, "thaw %s", name)
		}
		if sup := c.Machine.Supplement(name); sup != nil {
			block, err := r.Record()
			if err != nil {
				return errors.Wrapf(err, "read %s continuation", name)
			}
			if err := load(sup, block); err != nil {
				return errors.Wrapf(err, "thaw %s continuation", name)
			}
		}
	}
	if n := r.Remaining(); n != 0 {
		return errors.Errorf("%d trailing bytes after snapshot", n)
	}
	return nil
}

func (c *Codec) FreezeSubsystem(w io.Writer, name string) error {
	record, block, err := c.source().Subsystem(c.Machine, name)
	if err != nil {
		return err
	}
	sw := NewWriter(w)
	if err := sw.Record(record); err != nil {
		return err
	}
	return sw.Record(block)
}

// SplitSubsystem returns the record and continuation block of a single subsystem snapshot.
func SplitSubsystem(data []byte) (record, block []byte, err error) {
	r := NewReader(data)
	if record, err = r.Record(); err != nil {
		return nil, nil, err
	}
	if block, err = r.Record(); err != nil {
		return nil, nil, err
	}
	if n := r.Remaining(); n != 0 {
		return nil, nil, errors.Errorf("%d trailing bytes after subsystem snapshot", n)
	}
	return record, block, nil
}

func (c *Codec) ThawSubsystem(name string, data []byte) error {
	record, block, err := SplitSubsystem(data)
	if err != nil {
		return err
	}
	if err := load(models.Bind(c.Machine.Registry(), name), record); err != nil {
		return errors.Wrapf(err, "thaw %s", name)
	}
	sup := c.Machine.Supplement(name)
	if sup == nil {
		if len(block) != 0 {
			return errors.Errorf("%s: continuation block without a supplement", name)
		}
		return nil
	}
	if err := load(sup, block); err != nil {
		return errors.Wrapf(err, "thaw %s continuation", name)
	}
	return nil
}
