package data

import "github.com/ironfinance/lottery-adapter/synchronizer"

type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
}

type CurrentRoundResponse struct {
	RoundID uint64 `json:"roundId"`
	Watched bool   `json:"watched"`
}

type RoundResponse struct {
	Snapshot  *synchronizer.RoundSnapshot `json:"snapshot"`
	Stale     bool                        `json:"stale"`
	LastError string                      `json:"lastError,omitempty"`
}

type TicketResponse struct {
	ID      string    `json:"id"`
	Numbers [4]uint16 `json:"numbers"`
	Power   uint16    `json:"power"`
}

type TierResponse struct {
	Tickets   []TicketResponse `json:"tickets"`
	Claimable string           `json:"claimable"`
}

type EligibilityResponse struct {
	Verdict      string   `json:"verdict"`
	Eligible     bool     `json:"eligible"`
	Unclaimed    []string `json:"unclaimed"`
	Unverifiable []string `json:"unverifiable"`
	Error        string   `json:"error,omitempty"`
}

type SettlementResponse struct {
	RoundID            uint64                  `json:"roundId"`
	Account            string                  `json:"account"`
	SnapshotVersion    uint64                  `json:"snapshotVersion"`
	Stale              bool                    `json:"stale"`
	Drawn              bool                    `json:"drawn"`
	Tiers              map[string]TierResponse `json:"tiers"`
	Pending            []TicketResponse        `json:"pending"`
	TotalClaimable     string                  `json:"totalClaimable"`
	WinCount           int                     `json:"winCount"`
	ClaimableTicketIDs []string                `json:"claimableTicketIds"`
	Eligibility        EligibilityResponse     `json:"eligibility"`
	UnreadableTickets  []string                `json:"unreadableTickets,omitempty"`
}
