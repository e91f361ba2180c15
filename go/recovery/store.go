package recovery

import (
	"bytes"
	"context"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"sync"

	"github.com/lunixbochs/emucore/go/models"
	"github.com/lunixbochs/emucore/go/savestate"
)

// Emulation is the part of the execution controller the store drives.
type Emulation interface {
	Suspend(blocking bool)
	Resume()
	// InProgress reports a live session whose subsystems are open.
	InProgress() bool
	// IsExecution reports whether ctx belongs to the execution goroutine.
	IsExecution(ctx context.Context) bool
}

type Options struct {
	Log   hclog.Logger
	Slots SlotNamer
}

// Store holds machine state captured ahead of a destructive operation.
// A full snapshot always wins over a subsystem-only one.
type Store struct {
	mu  sync.Mutex
	m   models.Machine
	emu Emulation
	log hclog.Logger

	slots SlotNamer

	full        []byte
	partial     []byte
	partialName string
}

func New(m models.Machine, opts *Options) *Store {
	if opts == nil {
		opts = &Options{}
	}
	log := opts.Log
	if log == nil {
		log = hclog.NewNullLogger()
	}
	slots := opts.Slots
	if slots == nil {
		slots = DefaultSlotNamer("")
	}
	return &Store{m: m, log: log.Named("recovery"), slots: slots}
}

// Attach sets the controller used to suspend and resume around snapshots.
func (s *Store) Attach(emu Emulation) {
	s.mu.Lock()
	s.emu = emu
	s.mu.Unlock()
}

func (s *Store) emulation() Emulation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emu
}

func (s *Store) active() (Emulation, bool) {
	emu := s.emulation()
	return emu, emu != nil && emu.InProgress()
}

func (s *Store) HasRecovery() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.full != nil || s.partial != nil
}

func (s *Store) HasFull() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.full != nil
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.full, s.partial, s.partialName = nil, nil, ""
	s.mu.Unlock()
}

// codec for a full pass; the partial buffer, if any, stands in for its subsystem.
// must be called with s.mu held
func (s *Store) codecLocked() (*savestate.Codec, error) {
	codec := savestate.New(s.m)
	if s.partial != nil {
		record, block, err := savestate.SplitSubsystem(s.partial)
		if err != nil {
			return nil, errors.Wrap(err, "bad subsystem buffer")
		}
		codec.Source = &savestate.Cached{Name: s.partialName, Record: record, Block: block}
	}
	return codec, nil
}

// MakeFull captures the whole machine unless a full snapshot already exists.
// Emulation is suspended for the duration and resumed afterwards, even on failure.
func (s *Store) MakeFull() error {
	emu, ok := s.active()
	if !ok || s.HasFull() {
		return nil
	}
	emu.Suspend(true)
	defer emu.Resume()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full != nil {
		return nil
	}
	codec, err := s.codecLocked()
	if err == nil {
		s.full, err = codec.Snapshot()
	}
	if err != nil {
		s.full = nil
		s.log.Warn("recovery snapshot failed; state will not survive the reset", "error", err)
		return errors.Wrap(err, "MakeFull() failed")
	}
	s.partial, s.partialName = nil, ""
	s.log.Debug("full snapshot", "bytes", len(s.full))
	return nil
}

// MakeSubsystemOnly replaces any recovery state with a snapshot of one subsystem.
func (s *Store) MakeSubsystemOnly(name string) error {
	s.Clear()
	emu, ok := s.active()
	if !ok {
		return nil
	}
	emu.Suspend(true)
	defer emu.Resume()

	var buf bytes.Buffer
	if err := savestate.New(s.m).FreezeSubsystem(&buf, name); err != nil {
		s.log.Warn("subsystem snapshot failed", "name", name, "error", err)
		return errors.Wrapf(err, "MakeSubsystemOnly(%s) failed", name)
	}
	s.mu.Lock()
	s.partial, s.partialName = buf.Bytes(), name
	s.mu.Unlock()
	s.log.Debug("subsystem snapshot", "name", name, "bytes", buf.Len())
	return nil
}

// Recover applies and clears whatever the store holds.
// It must run on the execution goroutine with the registry open.
func (s *Store) Recover(ctx context.Context) error {
	emu := s.emulation()
	if emu == nil || !emu.IsExecution(ctx) {
		panic("recovery.Store.Recover() called outside the execution goroutine")
	}
	s.mu.Lock()
	full, partial, name := s.full, s.partial, s.partialName
	s.full, s.partial, s.partialName = nil, nil, ""
	s.mu.Unlock()
	if full == nil && partial == nil {
		return nil
	}
	defer s.m.ClearExecutionCache()

	codec := savestate.New(s.m)
	if full != nil {
		if err := codec.ThawAll(full); err != nil {
			return errors.Wrap(err, "full recovery failed")
		}
		s.log.Debug("recovered full snapshot", "bytes", len(full))
		return nil
	}
	if err := codec.ThawSubsystem(name, partial); err != nil {
		return errors.Wrapf(err, "%s recovery failed", name)
	}
	s.log.Debug("recovered subsystem", "name", name, "bytes", len(partial))
	return nil
}
