package settlement

import (
	"context"
	"math/big"

	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/ironfinance/lottery-adapter/aggregator"
	"github.com/ironfinance/lottery-adapter/contracts"
	"github.com/ironfinance/lottery-adapter/lottery"
	"github.com/ironfinance/lottery-adapter/synchronizer"
	"github.com/pkg/errors"
)

var log = logger.GetOrCreate("settlement")

const claimStatusMethod = "getTicketClaimStatus"

// Engine settles an account's tickets against a round snapshot.
type Engine struct {
	agg    aggregator.Aggregator
	ticket *contracts.Contract
}

func NewEngine(agg aggregator.Aggregator, ticket *contracts.Contract) (*Engine, error) {
	if agg == nil {
		return nil, ErrNilAggregator
	}
	if ticket == nil || ticket.ABI == nil {
		return nil, ErrNilTicketContract
	}

	return &Engine{
		agg:    agg,
		ticket: ticket,
	}, nil
}

// Settle classifies tickets against the snapshot's winning numbers, computes the claimable
// amounts and checks on chain whether any winning ticket is still unclaimed. The claim check is
// the only network call and is skipped when nothing won.
func (e *Engine) Settle(ctx context.Context, snapshot *synchronizer.RoundSnapshot, tickets []lottery.Ticket) *SettlementResult {
	result := newSettlementResult()
	if snapshot != nil {
		result.RoundID = snapshot.RoundID
		result.SnapshotVersion = snapshot.Version
	}

	if snapshot == nil || !snapshot.IsDrawn() {
		result.Pending = append(result.Pending, tickets...)
		return result
	}

	winning := *snapshot.WinningNumbers
	for _, ticket := range tickets {
		tier := Classify(ticket, winning)
		result.Tickets[tier] = append(result.Tickets[tier], ticket)
		if tier.IsWinning() {
			result.WinCount++
		}
	}

	for _, tier := range WinningTiers {
		index, _ := tier.PoolIndex()
		amount := ClaimableForTier(snapshot.PrizePool(index), len(result.Tickets[tier]), snapshot.WinnerCount(index))
		result.Claimable[tier] = amount
		result.TotalClaimable.Add(result.TotalClaimable, amount)
	}

	if result.WinCount > 0 {
		result.Eligibility = e.checkEligibility(ctx, result.ClaimableTicketIDs())
	}

	log.Debug("settled tickets",
		"round", result.RoundID,
		"tickets", len(tickets),
		"winning", result.WinCount,
		"claimable", result.TotalClaimable.String(),
		"verdict", result.Eligibility.Verdict.String(),
	)

	return result
}

// checkEligibility reads the claim status of every id in one batch. A ticket whose status cannot
// be read never counts as unclaimed.
func (e *Engine) checkEligibility(ctx context.Context, ids []*big.Int) Eligibility {
	calls := make([]aggregator.ReadCall, len(ids))
	for i, id := range ids {
		calls[i] = aggregator.NewReadCall(e.ticket, claimStatusMethod, id)
	}

	results, err := e.agg.Batch(ctx, calls)
	if err != nil {
		log.Warn("claim statuses unavailable", "tickets", len(ids), "err", err.Error())
		return Eligibility{
			Verdict:      VerdictUnavailable,
			Unverifiable: ids,
			Err:          err,
		}
	}

	eligibility := Eligibility{}
	for i, result := range results {
		claimed, errStatus := result.Bool(0)
		if errStatus != nil {
			log.Debug("claim status unverifiable", "ticket", ids[i].String(), "err", errStatus.Error())
			eligibility.Unverifiable = append(eligibility.Unverifiable, ids[i])
			continue
		}
		if !claimed {
			eligibility.Unclaimed = append(eligibility.Unclaimed, ids[i])
		}
	}

	eligibility.Eligible = len(eligibility.Unclaimed) > 0
	eligibility.Verdict = VerdictNotEligible
	if eligibility.Eligible {
		eligibility.Verdict = VerdictEligible
	}
	if len(eligibility.Unverifiable) > 0 {
		eligibility.Err = errors.Wrapf(ErrUnverifiableClaim, "%d of %d tickets", len(eligibility.Unverifiable), len(ids))
	}

	return eligibility
}
