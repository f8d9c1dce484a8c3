package synchronizer

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ironfinance/lottery-adapter/lottery"
	"github.com/shopspring/decimal"
)

// LotteryStatus is the on-chain state of a round.
type LotteryStatus uint8

const (
	StatusNotStarted LotteryStatus = iota
	StatusOpen
	StatusClosed
	StatusCompleted
)

func (ls LotteryStatus) String() string {
	switch ls {
	case StatusNotStarted:
		return "NotStarted"
	case StatusOpen:
		return "Open"
	case StatusClosed:
		return "Closed"
	case StatusCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("LotteryStatus(%d)", uint8(ls))
	}
}

func (ls LotteryStatus) MarshalText() ([]byte, error) {
	return []byte(ls.String()), nil
}

// RoundSnapshot is one published view of a round. It must not be modified once published.
type RoundSnapshot struct {
	Version           uint64                  `json:"version"`
	RoundID           uint64                  `json:"roundId"`
	Status            LotteryStatus           `json:"status"`
	StartingTimestamp uint64                  `json:"startingTimestamp"`
	ClosingTimestamp  uint64                  `json:"closingTimestamp"`
	CostPerTicket     *big.Int                `json:"costPerTicket"`
	Distribution      []decimal.Decimal       `json:"distribution"`
	PrizePools        []*big.Int              `json:"prizePools"`
	Winners           []*big.Int              `json:"winners"`
	TicketsSold       *big.Int                `json:"ticketsSold"`
	WinningNumbers    *lottery.WinningNumbers `json:"winningNumbers"`
	FetchedAt         time.Time               `json:"fetchedAt"`
}

// IsDrawn reports whether the round's winning numbers are known.
func (rs *RoundSnapshot) IsDrawn() bool {
	return rs.WinningNumbers != nil
}

// PrizePool returns the prize pool of the tier at index, zero when the contract reported none.
func (rs *RoundSnapshot) PrizePool(index int) *big.Int {
	return valueAt(rs.PrizePools, index)
}

// WinnerCount returns the network-wide number of winning tickets of the tier at index.
func (rs *RoundSnapshot) WinnerCount(index int) *big.Int {
	return valueAt(rs.Winners, index)
}

// Equal compares every field except Version and FetchedAt.
func (rs *RoundSnapshot) Equal(other *RoundSnapshot) bool {
	if rs == nil || other == nil {
		return rs == other
	}

	return rs.RoundID == other.RoundID &&
		rs.Status == other.Status &&
		rs.StartingTimestamp == other.StartingTimestamp &&
		rs.ClosingTimestamp == other.ClosingTimestamp &&
		bigEqual(rs.CostPerTicket, other.CostPerTicket) &&
		decimalsEqual(rs.Distribution, other.Distribution) &&
		bigsEqual(rs.PrizePools, other.PrizePools) &&
		bigsEqual(rs.Winners, other.Winners) &&
		bigEqual(rs.TicketsSold, other.TicketsSold) &&
		winningEqual(rs.WinningNumbers, other.WinningNumbers)
}

func valueAt(values []*big.Int, index int) *big.Int {
	if index < 0 || index >= len(values) || values[index] == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(values[index])
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

func bigsEqual(a, b []*big.Int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bigEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func decimalsEqual(a, b []decimal.Decimal) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func winningEqual(a, b *lottery.WinningNumbers) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
