package testscommon

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ironfinance/lottery-adapter/config"
	"github.com/ironfinance/lottery-adapter/contracts"
)

var errReverted = errors.New("execution reverted")

// ContractsInfo returns a deployment configuration with distinct, deterministic addresses.
func ContractsInfo() config.ContractsInformation {
	return config.ContractsInformation{
		Lottery:               "0x00000000000000000000000000000000000000a1",
		Ticket:                "0x00000000000000000000000000000000000000a2",
		Token:                 "0x00000000000000000000000000000000000000a3",
		Link:                  "0x00000000000000000000000000000000000000a4",
		TaxService:            "0x00000000000000000000000000000000000000a5",
		Multicall:             "0x00000000000000000000000000000000000000a6",
		PrizeReservePool:      "0x00000000000000000000000000000000000000b1",
		BurnSteelPool:         "0x00000000000000000000000000000000000000b2",
		BurnDndPool:           "0x00000000000000000000000000000000000000b3",
		RandomNumberGenerator: "0x00000000000000000000000000000000000000b4",
	}
}

// MulticallConfig is a batching configuration small enough to fit every test batch in one request.
func MulticallConfig() config.MulticallConfig {
	return config.MulticallConfig{
		MaxBatchSize:        50,
		MaxConcurrentChunks: 2,
	}
}

func NewDeployment() *contracts.Deployment {
	deployment, err := contracts.NewDeployment(ContractsInfo())
	if err != nil {
		panic(err)
	}
	return deployment
}

// Round is the on-chain state of one lottery round served by LotteryChain.
type Round struct {
	Status         uint8
	Starting       int64
	Closing        int64
	CostPerTicket  *big.Int
	Distribution   []*big.Int
	Prizes         []*big.Int
	Winners        []*big.Int
	WinningNumbers []uint16
	TicketsSold    *big.Int
}

// Settings are the lottery-wide values served by LotteryChain.
type Settings struct {
	CostPerTicket      *big.Int
	MaxValidRange      uint16
	PowerBallRange     uint16
	TaxRate            *big.Int
	Distribution       []*big.Int
	ReservePoolRatio   *big.Int
	BurnSteelPoolRatio *big.Int
	BurnDndPoolRatio   *big.Int
	TokenBalances      map[common.Address]*big.Int
	LinkBalances       map[common.Address]*big.Int
}

// LotteryChain is a ChainStub serving the Lottery, Ticket, TaxService and token contracts from
// mutable in-memory state.
type LotteryChain struct {
	*ChainStub
	Deployment *contracts.Deployment

	mut           sync.Mutex
	currentRound  uint64
	settings      Settings
	rounds        map[uint64]Round
	ticketNumbers map[string][]uint16
	claimed       map[string]bool
	userTickets   map[string][]*big.Int
	reverting     map[string]bool
}

func NewLotteryChain() *LotteryChain {
	deployment := NewDeployment()
	lc := &LotteryChain{
		ChainStub:     NewChainStub(deployment.Multicall),
		Deployment:    deployment,
		rounds:        make(map[uint64]Round),
		ticketNumbers: make(map[string][]uint16),
		claimed:       make(map[string]bool),
		userTickets:   make(map[string][]*big.Int),
		reverting:     make(map[string]bool),
	}
	lc.registerLottery()
	lc.registerTicket()
	lc.registerTaxService()
	lc.registerTokens()

	return lc
}

func (lc *LotteryChain) SetCurrentRound(id uint64) {
	lc.mut.Lock()
	lc.currentRound = id
	lc.mut.Unlock()
}

func (lc *LotteryChain) SetRound(id uint64, round Round) {
	lc.mut.Lock()
	lc.rounds[id] = round
	lc.mut.Unlock()
}

// UpdateRound applies update to a copy of round id and stores it back.
func (lc *LotteryChain) UpdateRound(id uint64, update func(round *Round)) {
	lc.mut.Lock()
	round := lc.rounds[id]
	update(&round)
	lc.rounds[id] = round
	lc.mut.Unlock()
}

func (lc *LotteryChain) SetSettings(settings Settings) {
	lc.mut.Lock()
	lc.settings = settings
	lc.mut.Unlock()
}

// AddTicket records a ticket owned by owner in round.
func (lc *LotteryChain) AddTicket(round uint64, owner common.Address, id int64, numbers ...uint16) {
	lc.mut.Lock()
	defer lc.mut.Unlock()

	key := userKey(round, owner)
	lc.userTickets[key] = append(lc.userTickets[key], big.NewInt(id))
	lc.ticketNumbers[big.NewInt(id).String()] = numbers
}

func (lc *LotteryChain) SetClaimed(id int64, claimed bool) {
	lc.mut.Lock()
	lc.claimed[big.NewInt(id).String()] = claimed
	lc.mut.Unlock()
}

// Revert makes every call to method revert until Restore is called.
func (lc *LotteryChain) Revert(method string) {
	lc.mut.Lock()
	lc.reverting[method] = true
	lc.mut.Unlock()
}

func (lc *LotteryChain) Restore(method string) {
	lc.mut.Lock()
	delete(lc.reverting, method)
	lc.mut.Unlock()
}

func (lc *LotteryChain) serve(contract *contracts.Contract, method string, handler func(args []interface{}) ([]interface{}, error)) {
	lc.Register(contract, method, func(args []interface{}) ([]interface{}, error) {
		lc.mut.Lock()
		defer lc.mut.Unlock()

		if lc.reverting[method] {
			return nil, errReverted
		}
		return handler(args)
	})
}

func (lc *LotteryChain) round(args []interface{}) (Round, error) {
	id := args[0].(*big.Int)
	round, ok := lc.rounds[id.Uint64()]
	if !ok {
		return Round{}, errReverted
	}
	return round, nil
}

func (lc *LotteryChain) registerLottery() {
	lottery := lc.Deployment.Lottery

	lc.serve(lottery, "lotteryIdCounter_", func(_ []interface{}) ([]interface{}, error) {
		return []interface{}{new(big.Int).SetUint64(lc.currentRound)}, nil
	})
	lc.serve(lottery, "costPerTicket_", func(_ []interface{}) ([]interface{}, error) {
		return []interface{}{orZero(lc.settings.CostPerTicket)}, nil
	})
	lc.serve(lottery, "maxValidRange_", func(_ []interface{}) ([]interface{}, error) {
		return []interface{}{lc.settings.MaxValidRange}, nil
	})
	lc.serve(lottery, "powerBallRange_", func(_ []interface{}) ([]interface{}, error) {
		return []interface{}{lc.settings.PowerBallRange}, nil
	})
	lc.serve(lottery, "taxRate_", func(_ []interface{}) ([]interface{}, error) {
		return []interface{}{orZero(lc.settings.TaxRate)}, nil
	})
	lc.serve(lottery, "prizeDistribution_", func(args []interface{}) ([]interface{}, error) {
		index := args[0].(*big.Int).Int64()
		if index < 0 || index >= int64(len(lc.settings.Distribution)) {
			return nil, errReverted
		}
		return []interface{}{lc.settings.Distribution[index]}, nil
	})
	lc.serve(lottery, "getLottoStatus", func(args []interface{}) ([]interface{}, error) {
		round, err := lc.round(args)
		if err != nil {
			return nil, err
		}
		return []interface{}{round.Status}, nil
	})
	lc.serve(lottery, "getLottoTimestamps", func(args []interface{}) ([]interface{}, error) {
		round, err := lc.round(args)
		if err != nil {
			return nil, err
		}
		return []interface{}{big.NewInt(round.Starting), big.NewInt(round.Closing)}, nil
	})
	lc.serve(lottery, "getLottoCostPerTicket", func(args []interface{}) ([]interface{}, error) {
		round, err := lc.round(args)
		if err != nil {
			return nil, err
		}
		return []interface{}{orZero(round.CostPerTicket)}, nil
	})
	lc.serve(lottery, "getPrizeDistribution", func(args []interface{}) ([]interface{}, error) {
		round, err := lc.round(args)
		if err != nil {
			return nil, err
		}
		return []interface{}{orEmpty(round.Distribution)}, nil
	})
	lc.serve(lottery, "getPrizes", func(args []interface{}) ([]interface{}, error) {
		round, err := lc.round(args)
		if err != nil {
			return nil, err
		}
		return []interface{}{orEmpty(round.Prizes)}, nil
	})
	lc.serve(lottery, "getWinners", func(args []interface{}) ([]interface{}, error) {
		round, err := lc.round(args)
		if err != nil {
			return nil, err
		}
		return []interface{}{orEmpty(round.Winners)}, nil
	})
	lc.serve(lottery, "getWinningNumbers", func(args []interface{}) ([]interface{}, error) {
		round, err := lc.round(args)
		if err != nil {
			return nil, err
		}
		return []interface{}{append([]uint16{}, round.WinningNumbers...)}, nil
	})
	lc.serve(lottery, "getTicketsSold", func(args []interface{}) ([]interface{}, error) {
		round, err := lc.round(args)
		if err != nil {
			return nil, err
		}
		return []interface{}{orZero(round.TicketsSold)}, nil
	})
}

func (lc *LotteryChain) registerTicket() {
	ticket := lc.Deployment.Ticket

	lc.serve(ticket, "getTicketClaimStatus", func(args []interface{}) ([]interface{}, error) {
		id := args[0].(*big.Int)
		if _, ok := lc.ticketNumbers[id.String()]; !ok {
			return nil, errReverted
		}
		return []interface{}{lc.claimed[id.String()]}, nil
	})
	lc.serve(ticket, "getUserTickets", func(args []interface{}) ([]interface{}, error) {
		round := args[0].(*big.Int).Uint64()
		owner := args[1].(common.Address)
		return []interface{}{orEmpty(lc.userTickets[userKey(round, owner)])}, nil
	})
	lc.serve(ticket, "getTicketNumbers", func(args []interface{}) ([]interface{}, error) {
		numbers, ok := lc.ticketNumbers[args[0].(*big.Int).String()]
		if !ok {
			return nil, errReverted
		}
		return []interface{}{append([]uint16{}, numbers...)}, nil
	})
}

func (lc *LotteryChain) registerTaxService() {
	taxService := lc.Deployment.TaxService

	lc.serve(taxService, "reservePoolRatio_", func(_ []interface{}) ([]interface{}, error) {
		return []interface{}{orZero(lc.settings.ReservePoolRatio)}, nil
	})
	lc.serve(taxService, "burnSteelPoolRatio_", func(_ []interface{}) ([]interface{}, error) {
		return []interface{}{orZero(lc.settings.BurnSteelPoolRatio)}, nil
	})
	lc.serve(taxService, "burnDndPoolRatio_", func(_ []interface{}) ([]interface{}, error) {
		return []interface{}{orZero(lc.settings.BurnDndPoolRatio)}, nil
	})
}

func (lc *LotteryChain) registerTokens() {
	lc.serve(lc.Deployment.Token, "balanceOf", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{orZero(lc.settings.TokenBalances[args[0].(common.Address)])}, nil
	})
	lc.serve(lc.Deployment.Link, "balanceOf", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{orZero(lc.settings.LinkBalances[args[0].(common.Address)])}, nil
	})
}

func userKey(round uint64, owner common.Address) string {
	return fmt.Sprintf("%d/%s", round, owner.Hex())
}

func orZero(value *big.Int) *big.Int {
	if value == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(value)
}

func orEmpty(values []*big.Int) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = orZero(v)
	}
	return out
}

// Ints converts int64 values into the []*big.Int shape of uint256[] returns.
func Ints(values ...int64) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = big.NewInt(v)
	}
	return out
}
