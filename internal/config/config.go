// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tashanwin/gamesvc/internal/engine"
	"github.com/tashanwin/gamesvc/internal/money"
)

// Duration wraps time.Duration so yaml values read as "30s" / "3m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Server holds the HTTP listener settings.
type Server struct {
	Addr string `yaml:"addr"`
}

// Durations is the yaml shape of a variant's phase schedule.
type Durations struct {
	Betting   Duration `yaml:"betting"`
	Locked    Duration `yaml:"locked"`
	Revealing Duration `yaml:"revealing"`
	Cooldown  Duration `yaml:"cooldown"`
}

// Payouts is the yaml shape of a variant's multiplier table. Multipliers
// are written as plain factors (2.0, 4.5, 150) and converted to hundredths
// for the integral ledger arithmetic.
type Payouts struct {
	Color  map[string]float64 `yaml:"color"`
	Number float64            `yaml:"number"`
	Size   float64            `yaml:"size"`
	Parity float64            `yaml:"parity"`
	Sum    map[int]float64    `yaml:"sum"`
	Triple float64            `yaml:"triple"`
}

// Variant declares one game table in the lobby.
type Variant struct {
	Slug      string             `yaml:"slug"`
	Kind      string             `yaml:"kind"`
	Bands     []engine.CrashBand `yaml:"bands"`
	Durations Durations          `yaml:"durations"`
	Tick      Duration           `yaml:"tick"`
	MinBet    float64            `yaml:"min_bet"` // rupees
	MaxBet    float64            `yaml:"max_bet"` // rupees
	History   int                `yaml:"history"`
	Payouts   Payouts            `yaml:"payouts"`
}

// Config is the full service configuration.
type Config struct {
	Server   Server    `yaml:"server"`
	Variants []Variant `yaml:"variants"`
}

// Load reads and decodes the yaml config. Structural validation happens
// here; the engine validates tables and durations when each game is built,
// so a malformed variant stops the process before any round opens.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Variants) == 0 {
		return nil, fmt.Errorf("config %s declares no variants", path)
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	return &cfg, nil
}

func toHundredths(f float64) int64 {
	return int64(f*100 + 0.5)
}

// GameConfig converts a variant declaration into a validated engine config.
func (v Variant) GameConfig() (engine.Config, error) {
	table := engine.PayoutTable{
		Number: toHundredths(v.Payouts.Number),
		Size:   toHundredths(v.Payouts.Size),
		Parity: toHundredths(v.Payouts.Parity),
		Triple: toHundredths(v.Payouts.Triple),
	}
	if len(v.Payouts.Color) > 0 {
		table.Color = make(map[engine.Color]int64, len(v.Payouts.Color))
		for c, m := range v.Payouts.Color {
			table.Color[engine.Color(c)] = toHundredths(m)
		}
	}
	if len(v.Payouts.Sum) > 0 {
		table.Sum = make(map[int]int64, len(v.Payouts.Sum))
		for s, m := range v.Payouts.Sum {
			table.Sum[s] = toHundredths(m)
		}
	}

	cfg := engine.Config{
		Variant: v.Slug,
		Spec: engine.OutcomeSpec{
			Kind:  engine.Kind(v.Kind),
			Bands: v.Bands,
		},
		Payouts: table,
		Durations: engine.Durations{
			Betting:   time.Duration(v.Durations.Betting),
			Locked:    time.Duration(v.Durations.Locked),
			Revealing: time.Duration(v.Durations.Revealing),
			Cooldown:  time.Duration(v.Durations.Cooldown),
		},
		Stakes: engine.StakeBounds{
			Min: money.FromRupees(v.MinBet),
			Max: money.FromRupees(v.MaxBet),
		},
		Tick:    time.Duration(v.Tick),
		History: v.History,
	}
	if err := cfg.Validate(); err != nil {
		return engine.Config{}, fmt.Errorf("variant %s: %w", v.Slug, err)
	}
	return cfg, nil
}
