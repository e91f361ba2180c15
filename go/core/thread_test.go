package core

import (
	"context"
	"github.com/pkg/errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lunixbochs/emucore/go/models"
	"github.com/lunixbochs/emucore/go/models/cpu"
	"github.com/lunixbochs/emucore/go/models/mock"
	"github.com/lunixbochs/emucore/go/recovery"
	"github.com/lunixbochs/emucore/go/subsys"
)

type rig struct {
	m      *mock.Machine
	gs     *mock.Blob
	reg    *subsys.Manager
	booter *mock.Booter
}

func makeRig(t *testing.T) *rig {
	r := &rig{gs: mock.NewBlob("gs", []byte("gs")), booter: &mock.Booter{Kind: models.ImageOK, Path: "game.elf"}}
	var err error
	if r.reg, err = subsys.New(nil, r.gs); err != nil {
		t.Fatal(err)
	}
	r.m = mock.NewMachine(r.reg)
	return r
}

func (r *rig) thread(cfg *models.Config, opts *Options) *Thread {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Booter == nil {
		opts.Booter = r.booter
	}
	return New(r.m, cfg, opts)
}

func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for " + msg)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitDone(t *testing.T, th *Thread) {
	t.Helper()
	select {
	case <-th.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("execution thread did not exit")
	}
}

// waits for the cpu to make progress past the current block count
func (r *rig) progress(t *testing.T, n uint64) {
	t.Helper()
	start := r.m.C.Blocks()
	waitFor(t, "cpu progress", func() bool { return r.m.C.Blocks() >= start+n })
}

func TestModeString(t *testing.T) {
	for mode, name := range map[ExecMode]string{Idle: "idle", Running: "running", Suspending: "suspending", Suspended: "suspended"} {
		if mode.String() != name {
			t.Errorf("%d.String() = %s", int(mode), mode)
		}
	}
}

func TestStartResumeSuspend(t *testing.T) {
	r := makeRig(t)
	th := r.thread(nil, nil)
	if err := th.Start(); err != nil {
		t.Fatal(err, "Start() failed")
	}
	if err := th.Start(); err == nil {
		t.Fatal("second Start() succeeded")
	}
	if th.Mode() != Idle || th.InProgress() {
		t.Fatal("thread left Idle before Resume()")
	}
	th.Resume()
	r.progress(t, 10)
	if _, opens, _ := r.gs.Counts(); !th.InProgress() || opens != 1 {
		t.Fatal("registry not opened")
	}

	th.Suspend(true)
	if th.Mode() != Suspended {
		t.Fatalf("Suspend(true) returned in mode %s", th.Mode())
	}
	blocks := r.m.C.Blocks()
	time.Sleep(20 * time.Millisecond)
	if r.m.C.Blocks() != blocks {
		t.Fatal("cpu ran while suspended")
	}
	// suspending again is a no-op
	th.Suspend(true)

	th.Resume()
	if th.Mode() != Running {
		t.Fatalf("Resume() left mode %s", th.Mode())
	}
	r.progress(t, 10)
	if r.booter.Boots() != 0 {
		t.Fatal("booted without fast boot")
	}

	if err := th.Close(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, th)
	if th.Mode() != Idle || th.IsRunning() || th.Err() != nil {
		t.Fatalf("bad state after Close(): %s %v", th.Mode(), th.Err())
	}
	if _, _, closes := r.gs.Counts(); closes != 1 {
		t.Fatal("registry not closed on teardown")
	}
	// calls after teardown are no-ops
	th.Resume()
	th.Suspend(true)
	if th.Mode() != Idle {
		t.Fatal("dead thread changed mode")
	}
}

func TestSuspendResumeStress(t *testing.T) {
	r := makeRig(t)
	th := r.thread(nil, nil)
	th.Start()
	defer th.Close()
	th.Resume()

	var idle int32
	stop := make(chan struct{})
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if th.Mode() == Idle {
				atomic.StoreInt32(&idle, 1)
			}
			runtime.Gosched()
		}
	}()
	// non-blocking requests may be rescinded by each other freely
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				th.Suspend(false)
				th.Resume()
			}
		}()
	}
	wg.Wait()
	for i := 0; i < 50; i++ {
		th.Suspend(true)
		if mode := th.Mode(); mode != Suspended {
			t.Fatalf("Suspend(true) returned in mode %s", mode)
		}
		th.Resume()
	}
	close(stop)
	<-watched
	if atomic.LoadInt32(&idle) != 0 {
		t.Fatal("observed Idle while alive")
	}
	r.progress(t, 5)
}

func TestResumeRunningNoop(t *testing.T) {
	r := makeRig(t)
	th := r.thread(nil, nil)
	th.Start()
	defer th.Close()
	th.Resume()
	r.progress(t, 1)
	posts := th.resumed.Posts()
	th.Resume()
	if th.resumed.Posts() != posts || th.Mode() != Running {
		t.Fatal("Resume() while Running was not a no-op")
	}
}

func TestSuspendNonBlocking(t *testing.T) {
	r := makeRig(t)
	th := r.thread(nil, nil)
	th.Start()
	defer th.Close()
	th.Resume()
	r.progress(t, 1)
	th.Suspend(false)
	waitFor(t, "Suspended", func() bool { return th.Mode() == Suspended })
	th.Resume()
	r.progress(t, 1)
}

// white box: drive the state machine without an execution goroutine
func aliveThread(r *rig) *Thread {
	th := New(r.m, nil, nil)
	th.alive = true
	return th
}

func TestResumeRescindsSuspend(t *testing.T) {
	r := makeRig(t)
	th := aliveThread(r)
	th.mode = Suspending
	th.Resume()
	if th.mode != Running || r.m.Clears() != 0 || th.resumed.Posts() != 0 {
		t.Fatal("Resume() did not rescind the suspend request")
	}
}

func TestResumeWaitsForResetSuspend(t *testing.T) {
	r := makeRig(t)
	th := aliveThread(r)
	th.mode = Suspending
	th.profReset = true

	done := make(chan struct{})
	go func() {
		th.Resume()
		close(done)
	}()
	waitFor(t, "Resume() to block", func() bool { return th.suspended.Waiting() == 1 })
	select {
	case <-done:
		t.Fatal("Resume() returned before the thread suspended")
	default:
	}
	// play the execution thread reaching its safe point
	th.mu.Lock()
	th.mode = Suspended
	th.suspended.Notify()
	th.mu.Unlock()
	<-done
	if th.Mode() != Running || r.m.Clears() != 1 {
		t.Fatalf("mode %s, clears %d", th.Mode(), r.m.Clears())
	}
	if rec, prof := th.ResetPending(); rec || prof {
		t.Fatal("reset flags not cleared")
	}
}

func TestIdleSafePointPanics(t *testing.T) {
	r := makeRig(t)
	th := aliveThread(r)
	defer func() {
		if _, ok := recover().(*InvariantError); !ok {
			t.Fatal("expected *InvariantError")
		}
	}()
	th.stateCheck(context.Background())
}

func TestApplySettingsProfilerOnly(t *testing.T) {
	r := makeRig(t)
	cfg := models.DefaultConfig()
	th := r.thread(cfg, nil)
	th.Start()
	defer th.Close()
	th.Resume()
	r.progress(t, 1)
	th.Suspend(true)

	next := *cfg
	next.Profiler.Enabled = true
	th.ApplySettings(&next)
	if rec, prof := th.ResetPending(); rec || !prof {
		t.Fatalf("ResetPending() = %v, %v", rec, prof)
	}
	if th.Mode() != Suspended || th.Config() != &next {
		t.Fatal("ApplySettings() changed more than the config")
	}
	clears := r.m.Clears()
	th.Resume()
	th.Resume()
	if r.m.Clears() != clears+1 {
		t.Fatalf("execution cache cleared %d times", r.m.Clears()-clears)
	}
	if rec, prof := th.ResetPending(); rec || prof {
		t.Fatal("reset flags not cleared by Resume()")
	}
	r.progress(t, 1)

	// same settings again: nothing pending
	same := next
	th.ApplySettings(&same)
	if rec, prof := th.ResetPending(); rec || prof {
		t.Fatal("unchanged settings flagged a reset")
	}
}

func TestApplySettingsRecompiler(t *testing.T) {
	r := makeRig(t)
	th := r.thread(nil, nil)
	next := *models.DefaultConfig()
	next.Speedhacks.MTVU = true
	th.ApplySettings(&next)
	if rec, prof := th.ResetPending(); !rec || prof {
		t.Fatalf("ResetPending() = %v, %v", rec, prof)
	}
}

func TestSelfInvocationNoop(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("thread identity needs gettid")
	}
	r := makeRig(t)
	th := r.thread(nil, nil)
	var self int32
	r.m.C.HookAdd(cpu.HOOK_BLOCK, func(_ cpu.Cpu, addr uint64, size uint32) {
		if th.IsSelf() {
			atomic.StoreInt32(&self, 1)
			th.Suspend(true)
			th.Resume()
		}
	}, 1, 0)
	th.Start()
	defer th.Close()
	if th.IsSelf() {
		t.Fatal("test goroutine claims to be the execution thread")
	}
	th.Resume()
	r.progress(t, 10)
	if atomic.LoadInt32(&self) != 1 || th.Mode() != Running {
		t.Fatal("self invocation misbehaved")
	}
}

func TestCloseBeforeResume(t *testing.T) {
	r := makeRig(t)
	th := r.thread(nil, nil)
	th.Start()
	th.Close()
	waitDone(t, th)
	if _, opens, closes := r.gs.Counts(); opens != 0 || closes != 0 {
		t.Fatal("registry touched by a thread that never ran")
	}
	if err := New(r.m, nil, nil).Close(); err != nil {
		t.Fatal("Close() of an unstarted thread failed")
	}
}

func TestCloseWhileSuspended(t *testing.T) {
	r := makeRig(t)
	th := r.thread(nil, nil)
	th.Start()
	th.Resume()
	r.progress(t, 1)
	th.Suspend(true)
	th.Close()
	waitDone(t, th)
	if _, _, closes := r.gs.Counts(); closes != 1 || th.Err() != nil {
		t.Fatal("bad teardown from Suspended", th.Err())
	}
}

func TestFastBoot(t *testing.T) {
	r := makeRig(t)
	cfg := models.DefaultConfig()
	cfg.FastBoot = true
	th := r.thread(cfg, nil)
	th.Start()
	defer th.Close()
	th.Resume()
	r.progress(t, 1)
	if r.booter.Boots() != 1 || r.booter.Booted[0] != "game.elf" {
		t.Fatal("fast boot did not load the image")
	}
}

func TestBootErrors(t *testing.T) {
	for kind, want := range map[models.ImageKind]error{
		models.ImageNotBootable: ErrNotBootable,
		models.ImageLegacy:      ErrLegacyImage,
	} {
		r := makeRig(t)
		r.booter.Kind = kind
		cfg := models.DefaultConfig()
		cfg.FastBoot = true
		th := r.thread(cfg, nil)
		th.Start()
		th.Resume()
		waitDone(t, th)
		if errors.Cause(th.Err()) != want {
			t.Fatalf("%s: got %v, want %v", kind, th.Err(), want)
		}
		if _, _, closes := r.gs.Counts(); th.Mode() != Idle || th.IsRunning() || closes != 1 {
			t.Fatalf("%s: bad state after boot failure", kind)
		}
		if r.booter.Boots() != 0 {
			t.Fatalf("%s: image was loaded", kind)
		}
		// waiters are released by teardown
		th.Suspend(true)
		th.Resume()
	}
}

func TestFaultHandled(t *testing.T) {
	r := makeRig(t)
	r.m.C.PanicAt = 5
	r.m.C.FaultAt = 8
	var mu sync.Mutex
	var faults []*Fault
	th := r.thread(nil, &Options{Faults: func(f *Fault) error {
		mu.Lock()
		faults = append(faults, f)
		mu.Unlock()
		return nil
	}})
	th.Start()
	defer th.Close()
	th.Resume()
	waitFor(t, "blocks past both faults", func() bool { return r.m.C.Blocks() > 20 })
	mu.Lock()
	defer mu.Unlock()
	if len(faults) != 2 {
		t.Fatalf("expected 2 faults, got %d", len(faults))
	}
	if _, ok := errors.Cause(faults[0]).(*cpu.MemError); !ok || faults[0].Value == nil {
		t.Fatalf("first fault should be a recovered MemError: %v", faults[0])
	}
	if faults[1].Value != nil || faults[1].Err == nil {
		t.Fatalf("second fault should be a returned error: %v", faults[1])
	}
}

func TestFaultUnhandled(t *testing.T) {
	r := makeRig(t)
	r.m.C.PanicAt = 3
	th := r.thread(nil, nil)
	th.Start()
	th.Resume()
	waitDone(t, th)
	f, ok := th.Err().(*Fault)
	if !ok || len(f.Stack) == 0 {
		t.Fatalf("expected *Fault, got %v", th.Err())
	}
	if _, _, closes := r.gs.Counts(); closes != 1 {
		t.Fatal("registry not closed after fault")
	}
}

func TestFaultPolicyError(t *testing.T) {
	r := makeRig(t)
	r.m.C.FaultAt = 2
	stop := errors.New("give up")
	th := r.thread(nil, &Options{Faults: func(f *Fault) error { return stop }})
	th.Start()
	th.Resume()
	waitDone(t, th)
	if th.Err() != stop {
		t.Fatalf("got %v", th.Err())
	}
}

func TestFaultScopeRepanicsInvariant(t *testing.T) {
	r := makeRig(t)
	th := aliveThread(r)
	r.m.C.HookAdd(cpu.HOOK_BLOCK, func(_ cpu.Cpu, addr uint64, size uint32) {
		invariant("test")
	}, 1, 0)
	defer func() {
		if _, ok := recover().(*InvariantError); !ok {
			t.Fatal("fault scope swallowed an invariant violation")
		}
	}()
	th.cpuExecute()
}

func TestRecoverBypassesBoot(t *testing.T) {
	r := makeRig(t)
	cfg := models.DefaultConfig()
	cfg.FastBoot = true
	store := recovery.New(r.m, nil)

	first := r.thread(cfg, &Options{Recovery: store})
	store.Attach(first)
	first.Start()
	first.Resume()
	r.progress(t, 10)
	if err := store.MakeFull(); err != nil {
		t.Fatal(err, "MakeFull() failed")
	}
	if first.Mode() != Running {
		t.Fatal("MakeFull() did not resume")
	}
	r.gs.Set([]byte("changed after snapshot"))
	first.Close()
	waitDone(t, first)

	second := r.thread(cfg, &Options{Recovery: store})
	store.Attach(second)
	second.Start()
	defer second.Close()
	second.Resume()
	r.progress(t, 1)
	second.Suspend(true)
	if string(r.gs.Bytes()) != "gs" {
		t.Fatalf("gs not recovered: %q", r.gs.Bytes())
	}
	if n, _ := r.m.C.RegRead(mock.COUNTER); n < 10 {
		t.Fatalf("cpu state not recovered: COUNTER=%d", n)
	}
	if r.booter.Boots() != 1 || store.HasRecovery() {
		t.Fatal("recovery should replace the second boot and empty the store")
	}
}
