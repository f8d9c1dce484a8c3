package lottery

import (
	"context"
	"math/big"

	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ironfinance/lottery-adapter/aggregator"
	"github.com/ironfinance/lottery-adapter/contracts"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var log = logger.GetOrCreate("lottery")

// Info is the lottery-wide configuration and pool balances. Fields that could not be read are
// left nil and named in Missing.
type Info struct {
	JackpotDistribution    *decimal.Decimal `json:"jackpotDistribution"`
	MatchFourDistribution  *decimal.Decimal `json:"matchFourDistribution"`
	MatchThreeDistribution *decimal.Decimal `json:"matchThreeDistribution"`
	TaxRate                *decimal.Decimal `json:"taxRate"`
	CostPerTicket          *big.Int         `json:"costPerTicket"`
	MaxValidRange          *uint16          `json:"maxValidRange"`
	PowerBallRange         *uint16          `json:"powerBallRange"`
	ReservePoolRatio       *decimal.Decimal `json:"reservePoolRatio"`
	BurnSteelPoolRatio     *decimal.Decimal `json:"burnSteelPoolRatio"`
	BurnDndPoolRatio       *decimal.Decimal `json:"burnDndPoolRatio"`
	PrizeReserveBalance    *big.Int         `json:"prizeReserveBalance"`
	BurnSteelBalance       *big.Int         `json:"burnSteelBalance"`
	BurnDndBalance         *big.Int         `json:"burnDndBalance"`
	RandomnessLinkBalance  *big.Int         `json:"randomnessLinkBalance"`
	Missing                []string         `json:"missing,omitempty"`
}

// Holdings are the tickets an account owns in one round.
type Holdings struct {
	RoundID uint64
	Account common.Address
	Tickets []Ticket
	// Unreadable lists owned ticket ids whose numbers could not be read.
	Unreadable []*big.Int
}

// Reader issues the typed lottery reads that sit around the round snapshot.
type Reader struct {
	agg            aggregator.Aggregator
	deployment     *contracts.Deployment
	ratioPrecision uint64
}

func NewReader(agg aggregator.Aggregator, deployment *contracts.Deployment, ratioPrecision uint64) (*Reader, error) {
	if agg == nil {
		return nil, ErrNilAggregator
	}
	if deployment == nil {
		return nil, ErrNilDeployment
	}
	if ratioPrecision == 0 {
		return nil, ErrInvalidPrecision
	}

	return &Reader{
		agg:            agg,
		deployment:     deployment,
		ratioPrecision: ratioPrecision,
	}, nil
}

type infoField struct {
	name  string
	call  aggregator.ReadCall
	apply func(info *Info, result aggregator.ReadResult) error
}

func (r *Reader) ratioField(name string, contract *contracts.Contract, method string, target func(info *Info) **decimal.Decimal, params ...interface{}) infoField {
	return infoField{
		name: name,
		call: aggregator.NewReadCall(contract, method, params...),
		apply: func(info *Info, result aggregator.ReadResult) error {
			raw, err := result.BigInt(0)
			if err != nil {
				return err
			}
			ratio := Ratio(raw, r.ratioPrecision)
			*target(info) = &ratio
			return nil
		},
	}
}

func bigIntField(name string, contract *contracts.Contract, method string, target func(info *Info) **big.Int, params ...interface{}) infoField {
	return infoField{
		name: name,
		call: aggregator.NewReadCall(contract, method, params...),
		apply: func(info *Info, result aggregator.ReadResult) error {
			value, err := result.BigInt(0)
			if err != nil {
				return err
			}
			*target(info) = value
			return nil
		},
	}
}

func uint16Field(name string, contract *contracts.Contract, method string, target func(info *Info) **uint16) infoField {
	return infoField{
		name: name,
		call: aggregator.NewReadCall(contract, method),
		apply: func(info *Info, result aggregator.ReadResult) error {
			value, err := result.Uint16(0)
			if err != nil {
				return err
			}
			*target(info) = &value
			return nil
		},
	}
}

func (r *Reader) infoFields() []infoField {
	d := r.deployment
	return []infoField{
		r.ratioField("jackpotDistribution", d.Lottery, "prizeDistribution_", func(i *Info) **decimal.Decimal { return &i.JackpotDistribution }, big.NewInt(0)),
		r.ratioField("matchFourDistribution", d.Lottery, "prizeDistribution_", func(i *Info) **decimal.Decimal { return &i.MatchFourDistribution }, big.NewInt(1)),
		r.ratioField("matchThreeDistribution", d.Lottery, "prizeDistribution_", func(i *Info) **decimal.Decimal { return &i.MatchThreeDistribution }, big.NewInt(2)),
		r.ratioField("taxRate", d.Lottery, "taxRate_", func(i *Info) **decimal.Decimal { return &i.TaxRate }),
		bigIntField("costPerTicket", d.Lottery, "costPerTicket_", func(i *Info) **big.Int { return &i.CostPerTicket }),
		uint16Field("maxValidRange", d.Lottery, "maxValidRange_", func(i *Info) **uint16 { return &i.MaxValidRange }),
		uint16Field("powerBallRange", d.Lottery, "powerBallRange_", func(i *Info) **uint16 { return &i.PowerBallRange }),
		r.ratioField("reservePoolRatio", d.TaxService, "reservePoolRatio_", func(i *Info) **decimal.Decimal { return &i.ReservePoolRatio }),
		r.ratioField("burnSteelPoolRatio", d.TaxService, "burnSteelPoolRatio_", func(i *Info) **decimal.Decimal { return &i.BurnSteelPoolRatio }),
		r.ratioField("burnDndPoolRatio", d.TaxService, "burnDndPoolRatio_", func(i *Info) **decimal.Decimal { return &i.BurnDndPoolRatio }),
		bigIntField("prizeReserveBalance", d.Token, "balanceOf", func(i *Info) **big.Int { return &i.PrizeReserveBalance }, d.PrizeReservePool),
		bigIntField("burnSteelBalance", d.Token, "balanceOf", func(i *Info) **big.Int { return &i.BurnSteelBalance }, d.BurnSteelPool),
		bigIntField("burnDndBalance", d.Token, "balanceOf", func(i *Info) **big.Int { return &i.BurnDndBalance }, d.BurnDndPool),
		bigIntField("randomnessLinkBalance", d.Link, "balanceOf", func(i *Info) **big.Int { return &i.RandomnessLinkBalance }, d.RandomNumberGenerator),
	}
}

// GetInfo reads the lottery configuration and pool balances in one batch.
func (r *Reader) GetInfo(ctx context.Context) (*Info, error) {
	fields := r.infoFields()
	calls := make([]aggregator.ReadCall, len(fields))
	for i, field := range fields {
		calls[i] = field.call
	}

	results, err := r.agg.Batch(ctx, calls)
	if err != nil {
		return nil, err
	}

	info := &Info{}
	for i, field := range fields {
		errApply := field.apply(info, results[i])
		if errApply != nil {
			log.Debug("lottery info field unavailable", "field", field.name, "err", errApply.Error())
			info.Missing = append(info.Missing, field.name)
		}
	}
	if len(info.Missing) > 0 {
		log.Warn("lottery info is partial", "missing", len(info.Missing))
	}

	return info, nil
}

// CurrentRoundID returns the id of the latest round the lottery has created.
func (r *Reader) CurrentRoundID(ctx context.Context) (uint64, error) {
	results, err := r.agg.Batch(ctx, []aggregator.ReadCall{
		aggregator.NewReadCall(r.deployment.Lottery, "lotteryIdCounter_"),
	})
	if err != nil {
		return 0, err
	}

	id, err := results[0].BigInt(0)
	if err != nil {
		return 0, errors.Wrap(err, "reading current round")
	}
	if !id.IsUint64() {
		return 0, errors.Errorf("round id %s overflows uint64", id)
	}

	return id.Uint64(), nil
}

// OwnedTickets lists the tickets account bought in roundID along with their numbers.
func (r *Reader) OwnedTickets(ctx context.Context, account common.Address, roundID uint64) (*Holdings, error) {
	round := new(big.Int).SetUint64(roundID)
	results, err := r.agg.Batch(ctx, []aggregator.ReadCall{
		aggregator.NewReadCall(r.deployment.Ticket, "getUserTickets", round, account),
	})
	if err != nil {
		return nil, err
	}

	ids, err := results[0].BigInts(0)
	if err != nil {
		return nil, errors.Wrapf(err, "reading tickets of %s in round %d", account.Hex(), roundID)
	}

	holdings := &Holdings{
		RoundID: roundID,
		Account: account,
		Tickets: make([]Ticket, 0, len(ids)),
	}
	if len(ids) == 0 {
		return holdings, nil
	}

	calls := make([]aggregator.ReadCall, len(ids))
	for i, id := range ids {
		calls[i] = aggregator.NewReadCall(r.deployment.Ticket, "getTicketNumbers", id)
	}
	results, err = r.agg.Batch(ctx, calls)
	if err != nil {
		return nil, err
	}

	for i, result := range results {
		ticket, errTicket := decodeTicket(ids[i], result)
		if errTicket != nil {
			log.Warn("ticket numbers unavailable", "ticket", ids[i].String(), "err", errTicket.Error())
			holdings.Unreadable = append(holdings.Unreadable, ids[i])
			continue
		}
		holdings.Tickets = append(holdings.Tickets, ticket)
	}

	return holdings, nil
}

func decodeTicket(id *big.Int, result aggregator.ReadResult) (Ticket, error) {
	raw, err := result.Uint16s(0)
	if err != nil {
		return Ticket{}, err
	}
	return NewTicket(id, raw)
}
