package adapter

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	models "github.com/ironfinance/lottery-adapter/data"
	"github.com/ironfinance/lottery-adapter/lottery"
	"github.com/ironfinance/lottery-adapter/settlement"
)

func newSettlementResponse(result *settlement.SettlementResult, account common.Address) *models.SettlementResponse {
	response := &models.SettlementResponse{
		RoundID:            result.RoundID,
		Account:            account.Hex(),
		SnapshotVersion:    result.SnapshotVersion,
		Tiers:              make(map[string]models.TierResponse, len(settlement.Tiers)),
		Pending:            ticketResponses(result.Pending),
		TotalClaimable:     result.TotalClaimable.String(),
		WinCount:           result.WinCount,
		ClaimableTicketIDs: bigIntStrings(result.ClaimableTicketIDs()),
		Eligibility: models.EligibilityResponse{
			Verdict:      result.Eligibility.Verdict.String(),
			Eligible:     result.Eligibility.Eligible,
			Unclaimed:    bigIntStrings(result.Eligibility.Unclaimed),
			Unverifiable: bigIntStrings(result.Eligibility.Unverifiable),
		},
	}
	if result.Eligibility.Err != nil {
		response.Eligibility.Error = result.Eligibility.Err.Error()
	}

	for _, tier := range settlement.Tiers {
		response.Tiers[tier.String()] = models.TierResponse{
			Tickets:   ticketResponses(result.Tickets[tier]),
			Claimable: result.Claimable[tier].String(),
		}
	}

	return response
}

func ticketResponses(tickets []lottery.Ticket) []models.TicketResponse {
	out := make([]models.TicketResponse, len(tickets))
	for i, ticket := range tickets {
		out[i] = models.TicketResponse{
			ID:      ticket.ID.String(),
			Numbers: ticket.Numbers,
			Power:   ticket.Power,
		}
	}
	return out
}

func bigIntStrings(values []*big.Int) []string {
	out := make([]string, len(values))
	for i, value := range values {
		out[i] = value.String()
	}
	return out
}
