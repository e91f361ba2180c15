package core

import (
	"context"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/lunixbochs/emucore/go/models"
	"github.com/lunixbochs/emucore/go/models/cpu"
)

// Recovery supplies machine state captured before the thread was (re)started.
type Recovery interface {
	HasRecovery() bool
	Recover(ctx context.Context) error
}

type Options struct {
	Recovery Recovery
	Booter   models.Booter
	Faults   FaultHandler
	Log      hclog.Logger
}

type execKey struct{}

// Thread owns the execution goroutine for one session.
// It runs at most once: Start, any number of Resume/Suspend calls, then Close.
type Thread struct {
	m    models.Machine
	opts Options
	log  hclog.Logger

	mu         sync.Mutex
	mode       ExecMode
	cfg        *models.Config
	recReset   bool
	profReset  bool
	started    bool
	alive      bool
	inProgress bool

	// "resume requested" and "suspend completed"
	resumed   models.Event
	suspended models.Event

	tid    int32
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	// execution goroutine only
	opened bool
	hook   cpu.Hook
}

func New(m models.Machine, cfg *models.Config, opts *Options) *Thread {
	t := &Thread{m: m, cfg: cfg, done: make(chan struct{})}
	if opts != nil {
		t.opts = *opts
	}
	if t.cfg == nil {
		t.cfg = models.DefaultConfig()
	}
	log := t.opts.Log
	if log == nil {
		log = hclog.NewNullLogger()
	}
	t.log = log.Named("core")
	return t
}

// Start launches the execution goroutine. It stays Idle until the first Resume.
func (t *Thread) Start() error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return errors.New("execution thread already started")
	}
	t.started, t.alive = true, true
	t.ctx, t.cancel = context.WithCancel(context.WithValue(context.Background(), execKey{}, t))
	ctx := t.ctx
	t.mu.Unlock()

	ready := make(chan struct{})
	go t.run(ctx, ready)
	<-ready
	return nil
}

// Close cancels the execution goroutine and waits for it to exit.
func (t *Thread) Close() error {
	t.mu.Lock()
	started, cancel := t.started, t.cancel
	t.mu.Unlock()
	if !started {
		return nil
	}
	cancel()
	if t.IsSelf() {
		return nil
	}
	<-t.done
	return nil
}

// closed when the execution goroutine has exited
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Err is why the execution goroutine exited: nil after a plain Close.
func (t *Thread) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Thread) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alive
}

// InProgress reports that the machine is open and initialized.
func (t *Thread) InProgress() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inProgress
}

func (t *Thread) IsSelf() bool {
	tid := atomic.LoadInt32(&t.tid)
	return tid != 0 && gettid() == tid
}

// IsExecution reports whether ctx was handed out by this thread's execution goroutine.
func (t *Thread) IsExecution(ctx context.Context) bool {
	owner, _ := ctx.Value(execKey{}).(*Thread)
	return owner == t
}

func (t *Thread) Mode() ExecMode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

func (t *Thread) Config() *models.Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

func (t *Thread) ResetPending() (recompiler, profiler bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recReset, t.profReset
}

// ApplySettings swaps in cfg and flags the translated code it invalidates.
// Flags accumulate until the next Resume consumes them.
func (t *Thread) ApplySettings(cfg *models.Config) {
	t.mu.Lock()
	rec, prof := t.cfg.ResetScope(cfg)
	t.recReset = t.recReset || rec
	t.profReset = t.profReset || prof
	t.cfg = cfg
	t.mu.Unlock()
	if rec || prof {
		t.log.Debug("settings applied", "recompiler_reset", rec, "profiler_reset", prof)
	}
}

func (t *Thread) Resume() {
	if t.IsSelf() {
		return
	}
	t.mu.Lock()
	for {
		if !t.alive {
			t.mu.Unlock()
			return
		}
		switch t.mode {
		case Running:
			t.mu.Unlock()
			return
		case Suspending:
			if !t.recReset && !t.profReset {
				// rescinds the pending suspend
				t.mode = Running
				t.mu.Unlock()
				return
			}
			// a reset must happen while suspended
			wait := t.suspended.Wait()
			t.mu.Unlock()
			<-wait
			t.mu.Lock()
		case Suspended, Idle:
			if t.recReset || t.profReset {
				t.m.ClearExecutionCache()
				t.recReset, t.profReset = false, false
			}
			t.mode = Running
			t.resumed.Notify()
			t.mu.Unlock()
			t.log.Trace("resumed")
			return
		}
	}
}

// Suspend asks the execution thread to stop at its next safe point.
// With blocking set it waits until the thread is Suspended.
func (t *Thread) Suspend(blocking bool) {
	if t.IsSelf() {
		return
	}
	t.mu.Lock()
	if !t.alive {
		t.mu.Unlock()
		return
	}
	switch t.mode {
	case Suspended, Idle:
		t.mu.Unlock()
		return
	case Running:
		t.mode = Suspending
	}
	if !blocking {
		t.mu.Unlock()
		return
	}
	wait := t.suspended.Wait()
	t.mu.Unlock()
	<-wait
}

func (t *Thread) run(ctx context.Context, ready chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	atomic.StoreInt32(&t.tid, gettid())
	close(ready)

	var err error
	defer func() {
		t.teardown(err)
	}()
	err = t.body(ctx)
}

func (t *Thread) body(ctx context.Context) error {
	if !t.waitRunning(ctx) {
		return nil
	}
	if err := t.initialize(ctx); err != nil {
		t.log.Error("startup failed", "error", err)
		return err
	}
	return t.execute(ctx)
}

// waitRunning blocks until the first Resume. Returns false on cancellation.
func (t *Thread) waitRunning(ctx context.Context) bool {
	t.mu.Lock()
	for t.mode == Idle {
		wake := t.resumed.Wait()
		t.mu.Unlock()
		select {
		case <-wake:
		case <-ctx.Done():
			return false
		}
		t.mu.Lock()
	}
	t.mu.Unlock()
	return true
}

func (t *Thread) initialize(ctx context.Context) error {
	if err := t.m.Registry().Open(); err != nil {
		return errors.Wrap(err, "registry.Open() failed")
	}
	t.opened = true
	c := t.m.Cpu()
	if err := c.Reset(); err != nil {
		return errors.Wrap(err, "cpu.Reset() failed")
	}
	t.m.ClearExecutionCache()
	hook, err := c.HookAdd(cpu.HOOK_BLOCK, func(c cpu.Cpu, addr uint64, size uint32) {
		if !t.stateCheck(ctx) {
			c.Stop()
		}
	}, 1, 0)
	if err != nil {
		return errors.Wrap(err, "HookAdd() failed")
	}
	t.hook = hook

	t.mu.Lock()
	t.inProgress = true
	t.mu.Unlock()

	if t.opts.Recovery != nil && t.opts.Recovery.HasRecovery() {
		if err := t.opts.Recovery.Recover(ctx); err != nil {
			return err
		}
		t.log.Info("resumed from recovery state")
		return nil
	}
	return t.boot()
}

func (t *Thread) boot() error {
	cfg := t.Config()
	if !cfg.FastBoot || t.opts.Booter == nil {
		t.log.Debug("starting from reset vector")
		return nil
	}
	kind, path, err := t.opts.Booter.ResolveBootableImage()
	if err != nil {
		return errors.Wrap(err, "ResolveBootableImage() failed")
	}
	switch kind {
	case models.ImageNotBootable:
		return ErrNotBootable
	case models.ImageLegacy:
		return errors.Wrap(ErrLegacyImage, path)
	}
	if err := t.opts.Booter.BootAndInject(path); err != nil {
		return errors.Wrapf(err, "boot %s", path)
	}
	t.log.Info("booted", "path", path)
	return nil
}

// stateCheck is the safe point. It returns false when the thread should exit.
func (t *Thread) stateCheck(ctx context.Context) bool {
	t.mu.Lock()
	for {
		switch t.mode {
		case Running:
			t.mu.Unlock()
			return ctx.Err() == nil
		case Suspending:
			t.mode = Suspended
			t.suspended.Notify()
			fallthrough
		case Suspended:
			wake := t.resumed.Wait()
			t.mu.Unlock()
			select {
			case <-wake:
			case <-ctx.Done():
				return false
			}
			t.mu.Lock()
		default:
			mode := t.mode
			t.mu.Unlock()
			invariant("execution thread observed %s while alive", mode)
		}
	}
}

func (t *Thread) execute(ctx context.Context) error {
	for {
		if !t.stateCheck(ctx) {
			return nil
		}
		err := t.cpuExecute()
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			t.log.Info("cpu halted")
			return nil
		}
		f, ok := err.(*Fault)
		if !ok {
			f = &Fault{Err: err}
		}
		if t.opts.Faults == nil {
			t.log.Error("unhandled cpu fault", "error", f.Err)
			return f
		}
		if err := t.opts.Faults(f); err != nil {
			t.log.Error("cpu fault ended execution", "error", err)
			return err
		}
		t.log.Warn("cpu fault handled", "error", f.Err)
	}
}

// cpuExecute is the fault scope around the CPU run loop.
//
//go:noinline
func (t *Thread) cpuExecute() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ierr, ok := r.(*InvariantError); ok {
				panic(ierr)
			}
			err = newFault(r)
		}
	}()
	return t.m.Cpu().Execute()
}

func (t *Thread) teardown(err error) {
	if t.hook != nil {
		t.m.Cpu().HookDel(t.hook)
		t.hook = nil
	}
	if t.opened {
		if cerr := t.m.Registry().Close(); cerr != nil {
			t.log.Warn("registry.Close() failed", "error", cerr)
		}
		t.opened = false
	}
	t.mu.Lock()
	t.mode = Idle
	t.alive, t.inProgress = false, false
	t.err = err
	t.cancel()
	t.mu.Unlock()
	t.resumed.Notify()
	t.suspended.Notify()
	close(t.done)
	t.log.Debug("execution thread exited", "error", err)
}
