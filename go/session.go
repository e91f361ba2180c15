package emucore

import (
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"sync"

	"github.com/lunixbochs/emucore/go/core"
	"github.com/lunixbochs/emucore/go/models"
	"github.com/lunixbochs/emucore/go/recovery"
)

type Options struct {
	Log    hclog.Logger
	Booter models.Booter
	Faults core.FaultHandler
	// defaults to slot files under Config.SlotDir
	Slots recovery.SlotNamer
}

// Session ties one machine to its recovery store and the current execution thread.
type Session struct {
	mu     sync.Mutex
	m      models.Machine
	cfg    *models.Config
	opts   Options
	log    hclog.Logger
	store  *recovery.Store
	thread *core.Thread
}

func NewSession(m models.Machine, cfg *models.Config, opts *Options) *Session {
	s := &Session{m: m, cfg: cfg}
	if opts != nil {
		s.opts = *opts
	}
	if s.cfg == nil {
		s.cfg = models.DefaultConfig()
	}
	if s.opts.Log == nil {
		s.opts.Log = hclog.NewNullLogger()
	}
	if s.opts.Slots == nil {
		s.opts.Slots = recovery.DefaultSlotNamer(s.cfg.SlotDir)
	}
	s.log = s.opts.Log.Named("session")
	s.store = recovery.New(m, &recovery.Options{Log: s.opts.Log, Slots: s.opts.Slots})
	return s
}

func (s *Session) Store() *recovery.Store { return s.store }

func (s *Session) Thread() *core.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thread
}

func (s *Session) Config() *models.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Start launches a fresh execution thread and lets it run.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.thread != nil && s.thread.IsRunning() {
		return errors.New("session already running")
	}
	return s.startLocked()
}

func (s *Session) startLocked() error {
	t := core.New(s.m, s.cfg, &core.Options{
		Recovery: s.store,
		Booter:   s.opts.Booter,
		Faults:   s.opts.Faults,
		Log:      s.opts.Log,
	})
	s.store.Attach(t)
	if err := t.Start(); err != nil {
		return err
	}
	s.thread = t
	t.Resume()
	return nil
}

// restartLocked replaces the execution thread; the new one recovers whatever the store holds.
func (s *Session) restartLocked() error {
	if s.thread != nil {
		s.thread.Close()
		<-s.thread.Done()
	}
	return s.startLocked()
}

func (s *Session) Suspend(blocking bool) {
	if t := s.Thread(); t != nil {
		t.Suspend(blocking)
	}
}

func (s *Session) Resume() {
	if t := s.Thread(); t != nil {
		t.Resume()
	}
}

// ApplySettings hands cfg to the running thread; translated code is dropped on the next resume.
func (s *Session) ApplySettings(cfg *models.Config) {
	s.mu.Lock()
	s.cfg = cfg
	t := s.thread
	s.mu.Unlock()
	if t != nil {
		t.ApplySettings(cfg)
	}
}

// Reset restarts the execution thread under cfg without losing machine state.
// If the state cannot be captured the running session is left alone.
func (s *Session) Reset(cfg *models.Config) error {
	if err := s.store.MakeFull(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg != nil {
		s.cfg = cfg
	}
	s.log.Info("resetting execution thread")
	return s.restartLocked()
}

func (s *Session) SaveState(slot int) error {
	return s.store.SaveToSlot(slot)
}

func (s *Session) SaveStateFile(path string) error {
	return s.store.SaveToFile(path)
}

// LoadStateFile restarts the session from a persisted snapshot.
func (s *Session) LoadStateFile(path string) error {
	if err := s.store.LoadFromFile(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restartLocked()
}

func (s *Session) LoadState(slot int) error {
	path, err := s.opts.Slots(slot)
	if err != nil {
		return err
	}
	return s.LoadStateFile(path)
}

func (s *Session) Close() error {
	s.mu.Lock()
	t := s.thread
	s.mu.Unlock()
	if t == nil {
		return nil
	}
	t.Close()
	s.store.Clear()
	return t.Err()
}
