package subsys

import (
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"sync"

	"github.com/lunixbochs/emucore/go/models"
)

var ErrUnknown = errors.New("unknown subsystem")

// Subsystem is one attached hardware component.
// Init runs once, before the first Open.
type Subsystem interface {
	Name() string
	Init() error
	Open() error
	Close() error
	models.Freezer
}

// Manager is an ordered models.Registry.
type Manager struct {
	sync.Mutex
	log    hclog.Logger
	list   []Subsystem
	byName map[string]Subsystem
	inited map[string]bool
	open   bool
}

func New(log hclog.Logger, list ...Subsystem) (*Manager, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	m := &Manager{
		log:    log.Named("subsys"),
		byName: make(map[string]Subsystem),
		inited: make(map[string]bool),
	}
	for _, s := range list {
		if err := m.Add(s); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add appends a subsystem to the snapshot order.
func (m *Manager) Add(s Subsystem) error {
	m.Lock()
	defer m.Unlock()
	if m.open {
		return errors.Errorf("cannot add %s while subsystems are open", s.Name())
	}
	if _, ok := m.byName[s.Name()]; ok {
		return errors.Errorf("duplicate subsystem: %s", s.Name())
	}
	m.list = append(m.list, s)
	m.byName[s.Name()] = s
	return nil
}

func (m *Manager) Get(name string) (Subsystem, error) {
	m.Lock()
	defer m.Unlock()
	s, ok := m.byName[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknown, name)
	}
	return s, nil
}

func (m *Manager) Names() []string {
	m.Lock()
	defer m.Unlock()
	names := make([]string, len(m.list))
	for i, s := range m.list {
		names[i] = s.Name()
	}
	return names
}

func (m *Manager) IsOpen() bool {
	m.Lock()
	defer m.Unlock()
	return m.open
}

// Open initializes anything never initialized, then opens everything in order.
// If one subsystem fails, the ones already opened are closed again.
func (m *Manager) Open() error {
	m.Lock()
	defer m.Unlock()
	if m.open {
		return nil
	}
	for i, s := range m.list {
		if !m.inited[s.Name()] {
			if err := s.Init(); err != nil {
				m.closeList(m.list[:i])
				return errors.Wrapf(err, "%s.Init() failed", s.Name())
			}
			m.inited[s.Name()] = true
		}
		if err := s.Open(); err != nil {
			m.closeList(m.list[:i])
			return errors.Wrapf(err, "%s.Open() failed", s.Name())
		}
		m.log.Debug("opened", "name", s.Name())
	}
	m.open = true
	return nil
}

// Close closes in reverse order. Closing a closed manager is a no-op.
func (m *Manager) Close() error {
	m.Lock()
	defer m.Unlock()
	if !m.open {
		return nil
	}
	m.open = false
	return m.closeList(m.list)
}

func (m *Manager) closeList(list []Subsystem) error {
	var first error
	for i := len(list) - 1; i >= 0; i-- {
		s := list[i]
		if err := s.Close(); err != nil {
			m.log.Warn("close failed", "name", s.Name(), "error", err)
			if first == nil {
				first = errors.Wrapf(err, "%s.Close() failed", s.Name())
			}
		}
	}
	return first
}

func (m *Manager) Freeze(name string, mode models.FreezeMode, data []byte) (int, error) {
	m.Lock()
	defer m.Unlock()
	s, ok := m.byName[name]
	if !ok {
		return 0, errors.Wrap(ErrUnknown, name)
	}
	if !m.open {
		return 0, errors.Errorf("%s: freeze(%s) while closed", name, mode)
	}
	return s.Freeze(mode, data)
}
