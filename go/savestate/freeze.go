package savestate

import (
	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/models"
)

// save runs the size query then the save into a buffer of that size.
func save(f models.Freezer) ([]byte, error) {
	n, err := f.Freeze(models.FreezeSize, nil)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	m, err := f.Freeze(models.FreezeSave, buf)
	if err != nil {
		return nil, err
	}
	if m > n {
		return nil, errors.Errorf("freeze wrote %d bytes, sized %d", m, n)
	}
	return buf[:m], nil
}

// load requires the freezer to consume all of data.
func load(f models.Freezer, data []byte) error {
	n, err := f.Freeze(models.FreezeLoad, data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return errors.Errorf("load consumed %d of %d bytes", n, len(data))
	}
	return nil
}
