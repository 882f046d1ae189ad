// internal/money/money.go
package money

import "fmt"

// Amount is a monetary value in minor units (paise). Wallet and ledger
// arithmetic stays integral end to end; floats only appear at the display
// boundary.
type Amount int64

// FromRupees converts a rupee value to paise, rounding to the nearest paisa.
func FromRupees(r float64) Amount {
	if r >= 0 {
		return Amount(r*100 + 0.5)
	}
	return Amount(r*100 - 0.5)
}

// Rupees returns the amount as a float for display purposes only.
func (a Amount) Rupees() float64 {
	return float64(a) / 100
}

// MulHundredths applies a payout multiplier expressed in hundredths
// (200 => 2.00x, 450 => 4.50x). The result stays in paise.
func (a Amount) MulHundredths(m int64) Amount {
	return Amount(int64(a) * m / 100)
}

func (a Amount) String() string {
	neg := ""
	v := int64(a)
	if v < 0 {
		neg = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", neg, v/100, v%100)
}
