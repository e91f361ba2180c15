package models

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestResetScope(t *testing.T) {
	base := DefaultConfig()

	next := *base
	next.Profiler.Enabled = true
	rec, prof := base.ResetScope(&next)
	assert(t, rec || !prof, "profiler-only change misclassified")

	next = *base
	next.Gamefixes.VuSync = true
	rec, prof = base.ResetScope(&next)
	assert(t, !rec || prof, "gamefix change misclassified")

	next = *base
	next.Speedhacks.EECycleRate = 2
	rec, _ = base.ResetScope(&next)
	assert(t, !rec, "speedhack change misclassified")

	next = *base
	next.Cpu.ClampMode = 3
	rec, _ = base.ResetScope(&next)
	assert(t, !rec, "cpu change misclassified")

	next = *base
	next.FastBoot = !base.FastBoot
	next.SlotDir = "/tmp"
	rec, prof = base.ResetScope(&next)
	assert(t, rec || prof, "unrelated change triggered a reset")
}

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte("fast_boot: true\nprofiler:\n  enabled: true\n"))
	if err != nil {
		t.Fatal(err, "ParseConfig() failed")
	}
	assert(t, !c.FastBoot || !c.Profiler.Enabled, "yaml values not applied")
	assert(t, !c.Cpu.Recompiler, "defaults not kept")

	if _, err := ParseConfig([]byte("bogus: 1\n")); err == nil {
		t.Fatal("unknown key accepted")
	}
	if c, err := ParseConfig(nil); err != nil || *c != *DefaultConfig() {
		t.Fatal("empty config should equal defaults", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir, err := ioutil.TempDir("", "emucore")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "cfg.yaml")
	if err := ioutil.WriteFile(path, []byte("slot_dir: /saves\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err, "LoadConfig() failed")
	}
	assert(t, c.SlotDir != "/saves", "slot_dir not loaded")
	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}
