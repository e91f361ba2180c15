package models

import (
	"bytes"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"io"
	"io/ioutil"
)

type CpuOptions struct {
	Recompiler  bool `yaml:"recompiler"`
	ClampMode   int  `yaml:"clamp_mode"`
	RoundMode   int  `yaml:"round_mode"`
	BlockLimit  int  `yaml:"block_limit"`
	VU0Recomp   bool `yaml:"vu0_recompiler"`
	VU1Recomp   bool `yaml:"vu1_recompiler"`
	IopRecomp   bool `yaml:"iop_recompiler"`
	CacheEnable bool `yaml:"cache"`
}

type GamefixOptions struct {
	FpuMul       bool `yaml:"fpu_multiply"`
	FpuNegDiv    bool `yaml:"fpu_negative_divide"`
	XgKick       bool `yaml:"xgkick"`
	SkipMpeg     bool `yaml:"skip_mpeg"`
	DmaBusy      bool `yaml:"dma_busy"`
	EETiming     bool `yaml:"ee_timing"`
	InstantDma   bool `yaml:"instant_dma"`
	VuSync       bool `yaml:"vu_sync"`
	OPHFlag      bool `yaml:"oph_flag"`
	GoemonTlbFix bool `yaml:"goemon_tlb"`
}

type SpeedhackOptions struct {
	EECycleRate  int  `yaml:"ee_cycle_rate"`
	EECycleSkip  int  `yaml:"ee_cycle_skip"`
	IntcStat     bool `yaml:"intc_stat"`
	WaitLoop     bool `yaml:"wait_loop"`
	VuFlagHack   bool `yaml:"vu_flag_hack"`
	VuThread     bool `yaml:"vu_thread"`
	MTVU         bool `yaml:"mtvu"`
	FastCDVD     bool `yaml:"fast_cdvd"`
	BlockPerfect bool `yaml:"block_perfect"`
}

type ProfilerOptions struct {
	Enabled  bool `yaml:"enabled"`
	RecBlock bool `yaml:"rec_blocks"`
	Interval int  `yaml:"interval"`
}

// Config is treated as immutable once handed to the core.
// Groups are compared as whole values to decide reset scope.
type Config struct {
	Cpu        CpuOptions       `yaml:"cpu"`
	Gamefixes  GamefixOptions   `yaml:"gamefixes"`
	Speedhacks SpeedhackOptions `yaml:"speedhacks"`
	Profiler   ProfilerOptions  `yaml:"profiler"`

	FastBoot bool   `yaml:"fast_boot"`
	SlotDir  string `yaml:"slot_dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Cpu: CpuOptions{
			Recompiler: true,
			VU0Recomp:  true,
			VU1Recomp:  true,
			IopRecomp:  true,
			BlockLimit: 0x1000,
		},
		Speedhacks: SpeedhackOptions{
			IntcStat: true,
			WaitLoop: true,
		},
		Profiler: ProfilerOptions{Interval: 1000},
	}
}

// ParseConfig overlays yaml onto the defaults; unknown keys are an error.
func ParseConfig(data []byte) (*Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "yaml.Decode() failed")
	}
	return c, nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "ioutil.ReadFile() failed")
	}
	c, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "bad config %s", path)
	}
	return c, nil
}

// ResetScope reports which translated-code domains applying next would invalidate.
func (c *Config) ResetScope(next *Config) (recompiler, profiler bool) {
	recompiler = c.Cpu != next.Cpu || c.Gamefixes != next.Gamefixes || c.Speedhacks != next.Speedhacks
	profiler = c.Profiler != next.Profiler
	return
}
