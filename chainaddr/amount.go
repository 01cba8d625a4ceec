package chainaddr

import "strconv"

// UnitsPerCoin is the smallest-unit scale: 1 coin = 10^8 units.
const UnitsPerCoin = 1e8

// Amount is a quantity of value in the smallest unit, with a btcutil.Amount
// style String() for human-readable coin display.
type Amount uint64

// String renders the amount as a fixed-point coin value, e.g. "1.00000001".
func (a Amount) String() string {
	whole := uint64(a) / UnitsPerCoin
	frac := uint64(a) % UnitsPerCoin
	fracStr := strconv.FormatUint(frac, 10)
	for len(fracStr) < 8 {
		fracStr = "0" + fracStr
	}
	return strconv.FormatUint(whole, 10) + "." + fracStr
}

// Units returns the raw smallest-unit integer value.
func (a Amount) Units() uint64 { return uint64(a) }
