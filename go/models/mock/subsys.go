package mock

import (
	"github.com/pkg/errors"
	"sync"

	"github.com/lunixbochs/emucore/go/models"
)

// Blob is a subsystem whose whole state is an opaque byte slice.
type Blob struct {
	sync.Mutex
	name string
	data []byte

	Inits, Opens, Closes int
	// returned from Open() when set
	OpenErr error
	// returned from Freeze(FreezeSave) when set
	SaveErr error
}

func NewBlob(name string, data []byte) *Blob {
	return &Blob{name: name, data: append([]byte(nil), data...)}
}

func (b *Blob) Name() string { return b.name }

func (b *Blob) Init() error {
	b.Lock()
	b.Inits++
	b.Unlock()
	return nil
}

func (b *Blob) Open() error {
	b.Lock()
	defer b.Unlock()
	if b.OpenErr != nil {
		return b.OpenErr
	}
	b.Opens++
	return nil
}

func (b *Blob) Close() error {
	b.Lock()
	b.Closes++
	b.Unlock()
	return nil
}

func (b *Blob) Freeze(mode models.FreezeMode, data []byte) (int, error) {
	b.Lock()
	defer b.Unlock()
	switch mode {
	case models.FreezeSize:
		return len(b.data), nil
	case models.FreezeSave:
		if b.SaveErr != nil {
			return 0, b.SaveErr
		}
		if len(data) < len(b.data) {
			return 0, errors.Errorf("%s: save buffer too small (%d < %d)", b.name, len(data), len(b.data))
		}
		return copy(data, b.data), nil
	case models.FreezeLoad:
		b.data = append(b.data[:0:0], data...)
		return len(data), nil
	}
	return 0, errors.Errorf("%s: bad freeze mode %d", b.name, mode)
}

func (b *Blob) Bytes() []byte {
	b.Lock()
	defer b.Unlock()
	return append([]byte(nil), b.data...)
}

func (b *Blob) Set(data []byte) {
	b.Lock()
	b.data = append([]byte(nil), data...)
	b.Unlock()
}

func (b *Blob) Counts() (inits, opens, closes int) {
	b.Lock()
	defer b.Unlock()
	return b.Inits, b.Opens, b.Closes
}
