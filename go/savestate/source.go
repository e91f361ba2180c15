package savestate

import (
	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/models"
)

// Source produces the bytes written for one subsystem.
// block is the continuation payload, or nil when the machine has no supplement for name.
type Source interface {
	Subsystem(m models.Machine, name string) (record, block []byte, err error)
}

// Live queries the running subsystem.
type Live struct{}

func (Live) Subsystem(m models.Machine, name string) ([]byte, []byte, error) {
	record, err := save(models.Bind(m.Registry(), name))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "freeze %s", name)
	}
	var block []byte
	if sup := m.Supplement(name); sup != nil {
		if block, err = save(sup); err != nil {
			return nil, nil, errors.Wrapf(err, "freeze %s supplement", name)
		}
		if block == nil {
			block = []byte{}
		}
	}
	return record, block, nil
}

// Cached substitutes previously captured bytes for one subsystem
// and defers everything else to Fallback (Live when nil).
type Cached struct {
	Name   string
	Record []byte
	Block  []byte

	Fallback Source
}

func (c *Cached) Subsystem(m models.Machine, name string) ([]byte, []byte, error) {
	if name != c.Name {
		fallback := c.Fallback
		if fallback == nil {
			fallback = Live{}
		}
		return fallback.Subsystem(m, name)
	}
	var block []byte
	if m.Supplement(name) != nil {
		block = c.Block
		if block == nil {
			block = []byte{}
		}
	}
	return c.Record, block, nil
}
