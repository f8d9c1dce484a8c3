package lottery

import (
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

// RegularNumbersCount is how many regular numbers a ticket or a draw carries besides the power number.
const RegularNumbersCount = 4

// Ticket is a purchased lottery ticket. Numbers are compared as a set, not by position.
type Ticket struct {
	ID      *big.Int                    `json:"id"`
	Numbers [RegularNumbersCount]uint16 `json:"numbers"`
	Power   uint16                      `json:"power"`
}

// NewTicket decodes the uint16[] layout used on chain: four regular numbers followed by the power number.
func NewTicket(id *big.Int, raw []uint16) (Ticket, error) {
	if len(raw) != RegularNumbersCount+1 {
		return Ticket{}, errors.Wrapf(ErrMalformedNumbers, "ticket %s has %d numbers", id, len(raw))
	}

	ticket := Ticket{
		ID:    new(big.Int).Set(id),
		Power: raw[RegularNumbersCount],
	}
	copy(ticket.Numbers[:], raw[:RegularNumbersCount])

	return ticket, nil
}

func (t Ticket) String() string {
	return fmt.Sprintf("#%s %v+%d", t.ID, t.Numbers, t.Power)
}

// WinningNumbers are the numbers of a drawn round.
type WinningNumbers struct {
	Numbers [RegularNumbersCount]uint16 `json:"numbers"`
	Power   uint16                      `json:"power"`
}

// NewWinningNumbers decodes getWinningNumbers output. An empty or all-zero array means the round
// has not been drawn yet and yields nil.
func NewWinningNumbers(raw []uint16) (*WinningNumbers, error) {
	if isUnset(raw) {
		return nil, nil
	}
	if len(raw) != RegularNumbersCount+1 {
		return nil, errors.Wrapf(ErrMalformedNumbers, "winning numbers have %d values", len(raw))
	}

	winning := &WinningNumbers{Power: raw[RegularNumbersCount]}
	copy(winning.Numbers[:], raw[:RegularNumbersCount])

	return winning, nil
}

// Slice returns the numbers in their on-chain layout.
func (wn *WinningNumbers) Slice() []uint16 {
	out := make([]uint16, 0, RegularNumbersCount+1)
	out = append(out, wn.Numbers[:]...)
	return append(out, wn.Power)
}

func (wn *WinningNumbers) String() string {
	return fmt.Sprintf("%v+%d", wn.Numbers, wn.Power)
}

func isUnset(raw []uint16) bool {
	for _, n := range raw {
		if n != 0 {
			return false
		}
	}
	return true
}
