package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tashanwin/gamesvc/internal/engine"
	"github.com/tashanwin/gamesvc/internal/money"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const sampleConfig = `
server:
  addr: ":9090"

variants:
  - slug: wingo
    kind: color
    durations:
      betting: 3m
      locked: 30s
      revealing: 10s
      cooldown: 10s
    tick: 1s
    min_bet: 10
    max_bet: 10000
    history: 10
    payouts:
      color:
        red: 2.0
        green: 2.0
        violet: 4.5
      number: 9.0
      size: 2.0
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	require.Len(t, cfg.Variants, 1)
	v := cfg.Variants[0]
	assert.Equal(t, "wingo", v.Slug)
	assert.Equal(t, 3*time.Minute, time.Duration(v.Durations.Betting))
	assert.Equal(t, 10, v.History)
}

func TestLoadRejectsEmptyVariants(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  addr: \":8080\"\n"))
	assert.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	bad := `
variants:
  - slug: wingo
    kind: color
    durations:
      betting: soon
`
	_, err := Load(writeConfig(t, bad))
	assert.Error(t, err)
}

func TestLoadDefaultsAddr(t *testing.T) {
	noServer := `
variants:
  - slug: wingo
    kind: color
    durations:
      betting: 1m
`
	cfg, err := Load(writeConfig(t, noServer))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestGameConfigConversion(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	gc, err := cfg.Variants[0].GameConfig()
	require.NoError(t, err)

	assert.Equal(t, "wingo", gc.Variant)
	assert.Equal(t, engine.KindColor, gc.Spec.Kind)
	// Multipliers land in hundredths for the integral ledger arithmetic.
	assert.Equal(t, int64(200), gc.Payouts.Color[engine.ColorRed])
	assert.Equal(t, int64(450), gc.Payouts.Color[engine.ColorViolet])
	assert.Equal(t, int64(900), gc.Payouts.Number)
	// Stake bounds land in paise.
	assert.Equal(t, money.FromRupees(10), gc.Stakes.Min)
	assert.Equal(t, money.FromRupees(10000), gc.Stakes.Max)
	assert.Equal(t, time.Second, gc.Tick)
}

func TestGameConfigRejectsBrokenTable(t *testing.T) {
	broken := `
variants:
  - slug: wingo
    kind: color
    durations:
      betting: 1m
      locked: 10s
      revealing: 5s
      cooldown: 5s
    min_bet: 10
    max_bet: 100
    payouts:
      size: 2.0
`
	cfg, err := Load(writeConfig(t, broken))
	require.NoError(t, err)

	_, err = cfg.Variants[0].GameConfig()
	var cfgErr *engine.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
