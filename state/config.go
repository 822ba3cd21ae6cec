package state

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// SimCfg configures one simulation run.
type SimCfg struct {
	Name string `yaml:"name" validate:"required,simname"`
	// Seed fixes the random source. Zero picks a random seed.
	Seed uint64 `yaml:"seed,omitempty"`

	Width  float64 `yaml:"width" validate:"gt=0"`
	Height float64 `yaml:"height" validate:"gt=0"`

	WarmupNodes      int     `yaml:"warmup_nodes" validate:"gte=1"`
	MaxNodes         int     `yaml:"max_nodes" validate:"gtefield=WarmupNodes"`
	MaxPackets       int     `yaml:"max_packets" validate:"gte=0"`
	SpawnChance      float64 `yaml:"spawn_chance" validate:"gte=0,lte=1"`
	DeleteChance     float64 `yaml:"delete_chance" validate:"gte=0,lte=1"`
	SecondLinkChance float64 `yaml:"second_link_chance" validate:"gte=0,lte=1"`

	StepsPerTick int           `yaml:"steps_per_tick" validate:"gte=1"`
	TickInterval time.Duration `yaml:"tick_interval" validate:"gt=0"`
	// MaxTicks stops the run after this many ticks. Zero runs until interrupted.
	MaxTicks uint64 `yaml:"max_ticks,omitempty"`
	// Duration stops the run after this much wall-clock time. Zero disables it.
	Duration time.Duration `yaml:"duration,omitempty" validate:"gte=0"`

	LoadDecay   float64       `yaml:"load_decay" validate:"gt=0,lt=1"`
	TransitPace time.Duration `yaml:"transit_pace" validate:"gt=0"`
	EnterDelay  time.Duration `yaml:"enter_delay" validate:"gte=0"`

	LogPath string `yaml:"log_path,omitempty"` // if not empty, weft will also write logs to this file
}

func DefaultSimCfg() SimCfg {
	return SimCfg{
		Name:             "weft",
		Width:            FieldWidth,
		Height:           FieldHeight,
		WarmupNodes:      WarmupNodes,
		MaxNodes:         MaxNodes,
		MaxPackets:       MaxPackets,
		SpawnChance:      SpawnChance,
		DeleteChance:     DeleteChance,
		SecondLinkChance: SecondLinkChance,
		StepsPerTick:     StepsPerTick,
		TickInterval:     TickInterval,
		LoadDecay:        LoadDecay,
		TransitPace:      TransitPace,
		EnterDelay:       EnterDelay,
	}
}

// ReadSimCfg loads a config file on top of the defaults.
func ReadSimCfg(path string) (*SimCfg, error) {
	cfg := DefaultSimCfg()
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func WriteSimCfg(path string, cfg *SimCfg) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0600)
}
