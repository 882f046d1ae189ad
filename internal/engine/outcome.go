// internal/engine/outcome.go
package engine

import (
	"crypto/rand"
	"math/big"
)

// Kind identifies how a variant's outcome is drawn and interpreted.
type Kind string

const (
	KindCrash Kind = "crash" // continuous multiplier, aviator-style
	KindColor Kind = "color" // single digit 0-9, wingo-style
	KindDice  Kind = "dice"  // three d6, k3-style
)

// Color of a digit draw. Violet for 0 and 5, red for the remaining odd
// digits, green for the remaining even ones.
type Color string

const (
	ColorViolet Color = "violet"
	ColorRed    Color = "red"
	ColorGreen  Color = "green"
)

// Size classifies a digit or dice sum as small or big.
type Size string

const (
	SizeSmall Size = "small"
	SizeBig   Size = "big"
)

// Parity of a dice sum.
type Parity string

const (
	ParityOdd  Parity = "odd"
	ParityEven Parity = "even"
)

// Outcome is the single result drawn for a round. Exactly one group of
// fields is meaningful, according to Kind. Color, size and parity are never
// stored; they are recomputed from the draw on demand so the derived views
// cannot diverge from it.
type Outcome struct {
	Kind Kind `json:"kind"`

	// Crash point in hundredths of the multiplier (187 => 1.87x).
	CrashPoint int64 `json:"crash_point,omitempty"`

	// Digit in [0,9] for color draws.
	Number int `json:"number"`

	// Three d6 faces for dice draws.
	Dice [3]int `json:"dice,omitempty"`
}

// NumberColor derives the color of a digit draw.
func NumberColor(n int) Color {
	if n == 0 || n == 5 {
		return ColorViolet
	}
	if n%2 == 1 {
		return ColorRed
	}
	return ColorGreen
}

// NumberSize derives the size of a digit draw: small for 0-4, big for 5-9.
func NumberSize(n int) Size {
	if n < 5 {
		return SizeSmall
	}
	return SizeBig
}

// DiceSum returns the sum of the three faces, in [3,18].
func DiceSum(d [3]int) int {
	return d[0] + d[1] + d[2]
}

// DiceSize derives the size of a dice sum: big for 11 and above.
func DiceSize(sum int) Size {
	if sum >= 11 {
		return SizeBig
	}
	return SizeSmall
}

// DiceParity derives the parity of a dice sum.
func DiceParity(sum int) Parity {
	if sum%2 == 1 {
		return ParityOdd
	}
	return ParityEven
}

// DiceTriple reports whether all three faces match. Triples pay a
// distinguished high multiplier.
func DiceTriple(d [3]int) bool {
	return d[0] == d[1] && d[1] == d[2]
}

// CrashBand is one segment of the crash-point distribution. Probability is
// the chance of landing in the band; within the band the multiplier is
// uniform over [Min, Max).
type CrashBand struct {
	Probability float64 `yaml:"probability" json:"probability"`
	Min         float64 `yaml:"min" json:"min"`
	Max         float64 `yaml:"max" json:"max"`
}

// OutcomeSpec declares how a variant's result is drawn. The crash band table
// lives in configuration, not code, so it can be tuned (or replaced by a
// provably-fair scheme) without touching the clock or the ledger.
type OutcomeSpec struct {
	Kind  Kind        `yaml:"kind"`
	Bands []CrashBand `yaml:"bands,omitempty"`
}

// bandProbTolerance allows for float noise when checking that band
// probabilities sum to 1.
const bandProbTolerance = 1e-9

// Validate checks the spec at startup. A bad table must never surface at
// draw time.
func (s OutcomeSpec) Validate() error {
	switch s.Kind {
	case KindColor, KindDice:
		return nil
	case KindCrash:
		if len(s.Bands) == 0 {
			return &ConfigurationError{Field: "bands", Detail: "crash variant requires at least one band"}
		}
		var total float64
		for _, b := range s.Bands {
			if b.Probability <= 0 {
				return &ConfigurationError{Field: "bands", Detail: "band probability must be positive"}
			}
			if b.Min < 1.0 || b.Max <= b.Min {
				return &ConfigurationError{Field: "bands", Detail: "band range must satisfy 1.0 <= min < max"}
			}
			total += b.Probability
		}
		if total < 1-bandProbTolerance || total > 1+bandProbTolerance {
			return &ConfigurationError{Field: "bands", Detail: "band probabilities must sum to 1"}
		}
		return nil
	default:
		return &ConfigurationError{Field: "kind", Detail: "unknown variant kind " + string(s.Kind)}
	}
}

// Generator draws one outcome per round from a validated OutcomeSpec. The
// draw never depends on wager volume; the house edge lives entirely in the
// payout tables.
type Generator struct {
	spec OutcomeSpec
	// randFloat and randIntn are swappable for deterministic tests.
	randFloat func() float64
	randIntn  func(n int) int
}

// NewGenerator validates the spec and returns a generator backed by
// crypto/rand.
func NewGenerator(spec OutcomeSpec) (*Generator, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		spec:      spec,
		randFloat: secureFloat,
		randIntn:  secureIntn,
	}, nil
}

// Draw produces one outcome. It has no failure mode: the spec was validated
// at construction.
func (g *Generator) Draw() Outcome {
	switch g.spec.Kind {
	case KindColor:
		return Outcome{Kind: KindColor, Number: g.randIntn(10)}
	case KindDice:
		return Outcome{
			Kind: KindDice,
			Dice: [3]int{1 + g.randIntn(6), 1 + g.randIntn(6), 1 + g.randIntn(6)},
		}
	default:
		return Outcome{Kind: KindCrash, CrashPoint: g.drawCrashPoint()}
	}
}

// drawCrashPoint selects a band with a single uniform draw on [0,1), then a
// uniform multiplier within the band, floored to hundredths.
func (g *Generator) drawCrashPoint() int64 {
	u := g.randFloat()
	var cum float64
	band := g.spec.Bands[len(g.spec.Bands)-1]
	for _, b := range g.spec.Bands {
		cum += b.Probability
		if u < cum {
			band = b
			break
		}
	}
	mult := band.Min + g.randFloat()*(band.Max-band.Min)
	return int64(mult * 100)
}

// secureIntn returns a uniform random int in [0, n) using crypto/rand.
func secureIntn(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// secureFloat returns a uniform random float64 in [0, 1) with 53 bits of
// precision, drawn from crypto/rand.
func secureFloat() float64 {
	const bits = 1 << 53
	v, err := rand.Int(rand.Reader, big.NewInt(bits))
	if err != nil {
		return 0
	}
	return float64(v.Int64()) / float64(bits)
}
