// internal/engine/payout.go
package engine

import "fmt"

// SelectionType identifies what a wager predicts.
type SelectionType string

const (
	SelectColor   SelectionType = "color"   // exact color (digit draws)
	SelectNumber  SelectionType = "number"  // exact digit 0-9
	SelectSize    SelectionType = "size"    // small/big (digit or dice)
	SelectParity  SelectionType = "parity"  // odd/even (dice)
	SelectSum     SelectionType = "sum"     // exact dice sum 3-18
	SelectTriple  SelectionType = "triple"  // all three dice equal
	SelectCashout SelectionType = "cashout" // crash auto-cashout threshold
)

// Selection is a player's prediction against a round. The populated field
// depends on Type; everything else is ignored.
type Selection struct {
	Type   SelectionType `json:"type"`
	Color  Color         `json:"color,omitempty"`
	Number int           `json:"number,omitempty"`
	Size   Size          `json:"size,omitempty"`
	Parity Parity        `json:"parity,omitempty"`
	Sum    int           `json:"sum,omitempty"`

	// Cashout is a crash multiplier threshold in hundredths (200 => 2.00x).
	Cashout int64 `json:"cashout,omitempty"`
}

// Validate rejects selections the given variant kind can never pay: a
// prediction type the variant does not offer, or a value outside its range.
// Placement runs this before the stake is debited, so a malformed bet is
// refused instead of being accepted into a guaranteed loss.
func (s Selection) Validate(kind Kind) error {
	switch kind {
	case KindColor:
		switch s.Type {
		case SelectColor:
			switch s.Color {
			case ColorViolet, ColorRed, ColorGreen:
				return nil
			}
			return &InvalidSelectionError{Kind: kind, Type: s.Type, Reason: fmt.Sprintf("unknown color %q", s.Color)}
		case SelectNumber:
			if s.Number < 0 || s.Number > 9 {
				return &InvalidSelectionError{Kind: kind, Type: s.Type, Reason: fmt.Sprintf("number %d outside 0..9", s.Number)}
			}
			return nil
		case SelectSize:
			return validateSize(kind, s.Size)
		}
	case KindDice:
		switch s.Type {
		case SelectSize:
			return validateSize(kind, s.Size)
		case SelectParity:
			if s.Parity != ParityOdd && s.Parity != ParityEven {
				return &InvalidSelectionError{Kind: kind, Type: s.Type, Reason: fmt.Sprintf("unknown parity %q", s.Parity)}
			}
			return nil
		case SelectSum:
			if s.Sum < 3 || s.Sum > 18 {
				return &InvalidSelectionError{Kind: kind, Type: s.Type, Reason: fmt.Sprintf("sum %d outside 3..18", s.Sum)}
			}
			return nil
		case SelectTriple:
			return nil
		}
	case KindCrash:
		if s.Type == SelectCashout {
			if s.Cashout < 100 {
				return &InvalidSelectionError{Kind: kind, Type: s.Type, Reason: fmt.Sprintf("cashout %d below the 1.00x floor", s.Cashout)}
			}
			return nil
		}
	}
	return &InvalidSelectionError{Kind: kind, Type: s.Type, Reason: "selection type not offered by this variant"}
}

func validateSize(kind Kind, size Size) error {
	if size != SizeSmall && size != SizeBig {
		return &InvalidSelectionError{Kind: kind, Type: SelectSize, Reason: fmt.Sprintf("unknown size %q", size)}
	}
	return nil
}

// PayoutTable holds the per-variant win multipliers in hundredths
// (200 => 2.00x). The house edge lives here, never in outcome selection.
// Tables come from the variant configuration and are validated at startup.
type PayoutTable struct {
	Color  map[Color]int64 `yaml:"color,omitempty"`
	Number int64           `yaml:"number,omitempty"`
	Size   int64           `yaml:"size,omitempty"`
	Parity int64           `yaml:"parity,omitempty"`
	Sum    map[int]int64   `yaml:"sum,omitempty"`
	Triple int64           `yaml:"triple,omitempty"`
}

// Validate checks the table supports its variant kind. Fatal at startup.
func (t PayoutTable) Validate(kind Kind) error {
	switch kind {
	case KindColor:
		if len(t.Color) == 0 || t.Number <= 0 || t.Size <= 0 {
			return &ConfigurationError{Field: "payouts", Detail: "color variant needs color, number and size multipliers"}
		}
		for c, m := range t.Color {
			if m <= 0 {
				return &ConfigurationError{Field: "payouts", Detail: "non-positive multiplier for color " + string(c)}
			}
		}
	case KindDice:
		if t.Size <= 0 || t.Parity <= 0 || t.Triple <= 0 {
			return &ConfigurationError{Field: "payouts", Detail: "dice variant needs size, parity and triple multipliers"}
		}
	case KindCrash:
		// Crash pays the cashout threshold itself; no static table entries.
	default:
		return &ConfigurationError{Field: "payouts", Detail: "unknown variant kind " + string(kind)}
	}
	return nil
}

// Multiplier returns the win multiplier in hundredths for a selection
// against an outcome, or 0 for a losing selection. It is a pure function of
// its inputs; resolution calls it exactly once per wager.
func (t PayoutTable) Multiplier(sel Selection, out Outcome) int64 {
	switch out.Kind {
	case KindColor:
		return t.colorMultiplier(sel, out)
	case KindDice:
		return t.diceMultiplier(sel, out)
	case KindCrash:
		// An auto-cashout wager wins its own threshold when the flight
		// survives past it; otherwise the stake is lost.
		if sel.Type == SelectCashout && sel.Cashout >= 100 && out.CrashPoint >= sel.Cashout {
			return sel.Cashout
		}
		return 0
	}
	return 0
}

func (t PayoutTable) colorMultiplier(sel Selection, out Outcome) int64 {
	switch sel.Type {
	case SelectColor:
		if NumberColor(out.Number) == sel.Color {
			return t.Color[sel.Color]
		}
	case SelectNumber:
		if sel.Number == out.Number {
			return t.Number
		}
	case SelectSize:
		if NumberSize(out.Number) == sel.Size {
			return t.Size
		}
	}
	return 0
}

func (t PayoutTable) diceMultiplier(sel Selection, out Outcome) int64 {
	sum := DiceSum(out.Dice)
	switch sel.Type {
	case SelectSize:
		if DiceSize(sum) == sel.Size {
			return t.Size
		}
	case SelectParity:
		if DiceParity(sum) == sel.Parity {
			return t.Parity
		}
	case SelectSum:
		if sel.Sum == sum {
			return t.Sum[sum]
		}
	case SelectTriple:
		if DiceTriple(out.Dice) {
			return t.Triple
		}
	}
	return 0
}
