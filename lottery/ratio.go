package lottery

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Ratio converts a fixed-point ratio as stored by the contracts into a fraction of one.
func Ratio(raw *big.Int, precision uint64) decimal.Decimal {
	if raw == nil || precision == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, 0).Div(decimal.New(int64(precision), 0))
}
