package recovery

import (
	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/savestate"
)

// SaveToFile writes the full snapshot if one is held, otherwise streams a live one.
// With neither a buffer nor a session it does nothing.
func (s *Store) SaveToFile(path string) error {
	s.mu.Lock()
	full := s.full
	s.mu.Unlock()
	if full != nil {
		if err := savestate.WriteFile(path, full); err != nil {
			s.log.Warn("save failed", "path", path, "error", err)
			return errors.Wrap(err, "SaveToFile() failed")
		}
		s.log.Info("saved recovery snapshot", "path", path)
		return nil
	}
	emu, ok := s.active()
	if !ok {
		return nil
	}
	emu.Suspend(true)
	defer emu.Resume()

	s.mu.Lock()
	codec, err := s.codecLocked()
	s.mu.Unlock()
	if err == nil {
		err = savestate.Create(path, codec.FreezeAll)
	}
	if err != nil {
		s.log.Warn("save failed", "path", path, "error", err)
		return errors.Wrap(err, "SaveToFile() failed")
	}
	s.log.Info("saved", "path", path)
	return nil
}

func (s *Store) SaveToSlot(slot int) error {
	path, err := s.slots(slot)
	if err != nil {
		return err
	}
	return s.SaveToFile(path)
}

// LoadFromFile installs a persisted snapshot as the full recovery buffer.
// It takes effect the next time an execution thread starts.
func (s *Store) LoadFromFile(path string) error {
	data, err := savestate.ReadFile(path)
	if err != nil {
		return err
	}
	if _, err := savestate.Inspect(data, savestate.Layout(s.m)); err != nil {
		return errors.Wrapf(err, "%s does not match this machine", path)
	}
	s.mu.Lock()
	s.full, s.partial, s.partialName = data, nil, ""
	s.mu.Unlock()
	s.log.Info("loaded", "path", path, "bytes", len(data))
	return nil
}

func (s *Store) LoadFromSlot(slot int) error {
	path, err := s.slots(slot)
	if err != nil {
		return err
	}
	return s.LoadFromFile(path)
}
