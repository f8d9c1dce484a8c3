package settlement

import (
	"fmt"
	"math/big"

	"github.com/ironfinance/lottery-adapter/lottery"
)

// PrizeTier is the prize category of a ticket, ordered by prize value descending.
type PrizeTier int

const (
	Jackpot PrizeTier = iota
	MatchFour
	MatchThree
	Lost
)

// Tiers lists every tier in prize order.
var Tiers = []PrizeTier{Jackpot, MatchFour, MatchThree, Lost}

// WinningTiers lists the tiers that carry a prize, in the order their ids are claimed.
var WinningTiers = []PrizeTier{Jackpot, MatchFour, MatchThree}

func (pt PrizeTier) String() string {
	switch pt {
	case Jackpot:
		return "jackpot"
	case MatchFour:
		return "match4"
	case MatchThree:
		return "match3"
	case Lost:
		return "lost"
	default:
		return fmt.Sprintf("tier(%d)", int(pt))
	}
}

func (pt PrizeTier) MarshalText() ([]byte, error) {
	return []byte(pt.String()), nil
}

// PoolIndex is the position of the tier in the contract's prize and winner arrays.
func (pt PrizeTier) PoolIndex() (int, bool) {
	switch pt {
	case Jackpot, MatchFour, MatchThree:
		return int(pt), true
	default:
		return 0, false
	}
}

// IsWinning reports whether the tier carries a prize.
func (pt PrizeTier) IsWinning() bool {
	_, ok := pt.PoolIndex()
	return ok
}

// CountMatches counts the ticket numbers present among the winning numbers, regardless of position.
func CountMatches(numbers [lottery.RegularNumbersCount]uint16, winning [lottery.RegularNumbersCount]uint16) int {
	count := 0
	for _, n := range numbers {
		for _, w := range winning {
			if n == w {
				count++
				break
			}
		}
	}
	return count
}

// Classify assigns a ticket to its tier. The power number only turns a full match into a jackpot.
func Classify(ticket lottery.Ticket, winning lottery.WinningNumbers) PrizeTier {
	matches := CountMatches(ticket.Numbers, winning.Numbers)
	switch {
	case matches == lottery.RegularNumbersCount && ticket.Power == winning.Power:
		return Jackpot
	case matches == lottery.RegularNumbersCount:
		return MatchFour
	case matches == lottery.RegularNumbersCount-1:
		return MatchThree
	default:
		return Lost
	}
}

// ClaimableForTier splits pool among every winning ticket of the tier network-wide and returns the
// share of owned tickets, multiplying before dividing and truncating the remainder.
func ClaimableForTier(pool *big.Int, owned int, winners *big.Int) *big.Int {
	if pool == nil || winners == nil || winners.Sign() <= 0 || owned <= 0 {
		return big.NewInt(0)
	}

	amount := new(big.Int).Mul(pool, big.NewInt(int64(owned)))
	return amount.Quo(amount, winners)
}
