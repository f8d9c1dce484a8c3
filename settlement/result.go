package settlement

import (
	"fmt"
	"math/big"

	"github.com/ironfinance/lottery-adapter/lottery"
)

// Verdict summarizes whether an account has anything left to claim.
type Verdict int

const (
	// VerdictNotApplicable is used when there is no winning ticket to check.
	VerdictNotApplicable Verdict = iota
	VerdictEligible
	VerdictNotEligible
	// VerdictUnavailable is used when the claim statuses could not be read at all.
	VerdictUnavailable
)

func (v Verdict) String() string {
	switch v {
	case VerdictNotApplicable:
		return "not applicable"
	case VerdictEligible:
		return "eligible"
	case VerdictNotEligible:
		return "not eligible"
	case VerdictUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Eligibility is the outcome of checking the claim status of every winning ticket.
type Eligibility struct {
	Verdict Verdict
	// Eligible is true only when at least one winning ticket is confirmed unclaimed.
	Eligible     bool
	Unclaimed    []*big.Int
	Unverifiable []*big.Int
	Err          error
}

// SettlementResult is the settlement of an account's tickets against one snapshot.
type SettlementResult struct {
	RoundID         uint64
	SnapshotVersion uint64
	Tickets         map[PrizeTier][]lottery.Ticket
	// Pending holds the tickets of a round that has not been drawn yet.
	Pending        []lottery.Ticket
	Claimable      map[PrizeTier]*big.Int
	TotalClaimable *big.Int
	WinCount       int
	Eligibility    Eligibility
}

func newSettlementResult() *SettlementResult {
	result := &SettlementResult{
		Tickets:        make(map[PrizeTier][]lottery.Ticket, len(Tiers)),
		Claimable:      make(map[PrizeTier]*big.Int, len(Tiers)),
		TotalClaimable: big.NewInt(0),
	}
	for _, tier := range Tiers {
		result.Tickets[tier] = make([]lottery.Ticket, 0)
		result.Claimable[tier] = big.NewInt(0)
	}

	return result
}

// ClaimableTicketIDs lists the winning ticket ids in claim order: jackpot, match four, match three.
func (sr *SettlementResult) ClaimableTicketIDs() []*big.Int {
	ids := make([]*big.Int, 0, sr.WinCount)
	for _, tier := range WinningTiers {
		for _, ticket := range sr.Tickets[tier] {
			ids = append(ids, new(big.Int).Set(ticket.ID))
		}
	}
	return ids
}
