// internal/engine/outcome_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultBands() []CrashBand {
	return []CrashBand{
		{Probability: 0.30, Min: 1.0, Max: 2.5},
		{Probability: 0.30, Min: 2.5, Max: 5.0},
		{Probability: 0.25, Min: 5.0, Max: 15.0},
		{Probability: 0.15, Min: 15.0, Max: 100.0},
	}
}

func TestNumberDerivations(t *testing.T) {
	assert.Equal(t, ColorViolet, NumberColor(0))
	assert.Equal(t, ColorViolet, NumberColor(5))
	assert.Equal(t, ColorRed, NumberColor(1))
	assert.Equal(t, ColorRed, NumberColor(3))
	assert.Equal(t, ColorRed, NumberColor(7))
	assert.Equal(t, ColorRed, NumberColor(9))
	assert.Equal(t, ColorGreen, NumberColor(2))
	assert.Equal(t, ColorGreen, NumberColor(4))
	assert.Equal(t, ColorGreen, NumberColor(6))
	assert.Equal(t, ColorGreen, NumberColor(8))

	assert.Equal(t, SizeSmall, NumberSize(4))
	assert.Equal(t, SizeBig, NumberSize(5))
}

func TestDiceDerivations(t *testing.T) {
	assert.Equal(t, 3, DiceSum([3]int{1, 1, 1}))
	assert.Equal(t, 18, DiceSum([3]int{6, 6, 6}))
	assert.Equal(t, SizeSmall, DiceSize(10))
	assert.Equal(t, SizeBig, DiceSize(11))
	assert.Equal(t, ParityOdd, DiceParity(11))
	assert.Equal(t, ParityEven, DiceParity(12))
	assert.True(t, DiceTriple([3]int{4, 4, 4}))
	assert.False(t, DiceTriple([3]int{4, 4, 5}))
}

func TestOutcomeSpecValidation(t *testing.T) {
	_, err := NewGenerator(OutcomeSpec{Kind: KindCrash})
	require.Error(t, err, "empty band table must fail at construction")
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewGenerator(OutcomeSpec{Kind: KindCrash, Bands: []CrashBand{
		{Probability: 0.5, Min: 1.0, Max: 2.0},
	}})
	require.Error(t, err, "probabilities not summing to 1 must fail")

	_, err = NewGenerator(OutcomeSpec{Kind: KindCrash, Bands: []CrashBand{
		{Probability: 1.0, Min: 0.5, Max: 2.0},
	}})
	require.Error(t, err, "band below 1.0x must fail")

	_, err = NewGenerator(OutcomeSpec{Kind: Kind("roulette")})
	require.Error(t, err)

	_, err = NewGenerator(OutcomeSpec{Kind: KindColor})
	require.NoError(t, err)
}

func TestDigitDrawUniformRange(t *testing.T) {
	gen, err := NewGenerator(OutcomeSpec{Kind: KindColor})
	require.NoError(t, err)
	seen := make(map[int]int)
	for i := 0; i < 10000; i++ {
		out := gen.Draw()
		require.GreaterOrEqual(t, out.Number, 0)
		require.LessOrEqual(t, out.Number, 9)
		seen[out.Number]++
	}
	for n := 0; n <= 9; n++ {
		assert.Greater(t, seen[n], 0, "digit %d never drawn in 10k samples", n)
	}
}

func TestDiceDrawRange(t *testing.T) {
	gen, err := NewGenerator(OutcomeSpec{Kind: KindDice})
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		out := gen.Draw()
		sum := DiceSum(out.Dice)
		require.GreaterOrEqual(t, sum, 3)
		require.LessOrEqual(t, sum, 18)
		for _, d := range out.Dice {
			require.GreaterOrEqual(t, d, 1)
			require.LessOrEqual(t, d, 6)
		}
	}
}

// TestCrashBandConvergence samples the crash generator heavily and checks
// the observed band frequencies against the declared probabilities.
func TestCrashBandConvergence(t *testing.T) {
	if testing.Short() {
		t.Skip("sampling test skipped in -short mode")
	}
	bands := defaultBands()
	gen, err := NewGenerator(OutcomeSpec{Kind: KindCrash, Bands: bands})
	require.NoError(t, err)

	const n = 100000
	counts := make([]int, len(bands))
	for i := 0; i < n; i++ {
		out := gen.Draw()
		mult := float64(out.CrashPoint) / 100
		require.GreaterOrEqual(t, mult, 1.0)
		require.Less(t, mult, 100.0)
		for bi, b := range bands {
			if mult >= b.Min && mult < b.Max {
				counts[bi]++
				break
			}
		}
	}

	// Chi-squared against the declared table. With 3 degrees of freedom
	// the 99.9% critical value is ~16.27; a healthy generator sits far
	// below it.
	var chi2 float64
	for bi, b := range bands {
		expected := b.Probability * n
		diff := float64(counts[bi]) - expected
		chi2 += diff * diff / expected
	}
	assert.Less(t, chi2, 16.27, "band frequencies diverge from declared probabilities (chi2=%.2f, counts=%v)", chi2, counts)
}

func TestCrashPointWithinBands(t *testing.T) {
	gen, err := NewGenerator(OutcomeSpec{Kind: KindCrash, Bands: defaultBands()})
	require.NoError(t, err)

	// Pin the band draw to each band boundary region in turn.
	draws := []struct {
		u   float64
		min int64
		max int64
	}{
		{0.0, 100, 250},
		{0.299, 100, 250},
		{0.30, 250, 500},
		{0.60, 500, 1500},
		{0.86, 1500, 10000},
	}
	for _, d := range draws {
		first := true
		gen.randFloat = func() float64 {
			if first {
				first = false
				return d.u
			}
			return 0.5 // midpoint within the band
		}
		out := gen.Draw()
		assert.GreaterOrEqual(t, out.CrashPoint, d.min, "band draw u=%v", d.u)
		assert.Less(t, out.CrashPoint, d.max, "band draw u=%v", d.u)
	}
}
