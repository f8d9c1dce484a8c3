package adapter

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ironfinance/lottery-adapter/config"
	"github.com/ironfinance/lottery-adapter/interaction"
	"github.com/ironfinance/lottery-adapter/testscommon"
	"github.com/stretchr/testify/require"
)

const testRound = 7

var testAccount = common.HexToAddress("0x00000000000000000000000000000000000000c1")

type submitterStub struct {
	data []byte
}

func (ss *submitterStub) SubmitTransaction(_ context.Context, _ common.Address, _ common.Address, data []byte) (common.Hash, error) {
	ss.data = data
	return common.HexToHash("0xabcd"), nil
}

func createMockConfig() config.GeneralConfig {
	return config.GeneralConfig{
		Blockchain: config.BlockchainInformation{
			Environment:      "test",
			ProxyUrl:         "http://127.0.0.1:8545",
			RequestTimeoutMs: 1000,
		},
		Contracts: testscommon.ContractsInfo(),
		Multicall: testscommon.MulticallConfig(),
		Sync: config.SyncConfig{
			PollingIntervalMs: 3600000,
			RatioPrecision:    1000000,
		},
		Server: config.ServerConfig{Port: ":0"},
	}
}

func newTestChain() *testscommon.LotteryChain {
	chain := testscommon.NewLotteryChain()
	chain.SetCurrentRound(testRound)
	chain.SetSettings(testscommon.Settings{
		CostPerTicket:  big.NewInt(10),
		MaxValidRange:  25,
		PowerBallRange: 12,
		Distribution:   testscommon.Ints(500000, 300000, 200000),
	})
	chain.SetRound(testRound, testscommon.Round{
		Status:         3,
		Starting:       100,
		Closing:        200,
		CostPerTicket:  big.NewInt(10),
		Distribution:   testscommon.Ints(500000, 300000, 200000),
		Prizes:         testscommon.Ints(1000, 600, 400),
		Winners:        testscommon.Ints(1, 4, 2),
		WinningNumbers: []uint16{3, 7, 15, 22, 9},
		TicketsSold:    big.NewInt(40),
	})
	chain.AddTicket(testRound, testAccount, 1, 3, 7, 15, 22, 9)
	chain.AddTicket(testRound, testAccount, 2, 22, 15, 7, 3, 1)
	chain.AddTicket(testRound, testAccount, 3, 1, 2, 5, 6, 9)
	chain.SetClaimed(1, true)

	return chain
}

func newWatchingAdapter(t *testing.T, chain *testscommon.LotteryChain) *adapter {
	t.Helper()

	a, err := NewAdapter(createMockConfig(), chain)
	require.Nil(t, err)
	t.Cleanup(a.StopAll)

	roundID, err := a.WatchCurrentRound(context.Background())
	require.Nil(t, err)
	require.Equal(t, uint64(testRound), roundID)

	require.Eventually(t, func() bool {
		response, errRound := a.HandleRound(testRound)
		return errRound == nil && response.Snapshot != nil
	}, time.Second, 5*time.Millisecond)

	return a
}

func TestNewAdapter_InvalidArgumentsShouldErr(t *testing.T) {
	t.Parallel()

	chain := newTestChain()
	cfg := createMockConfig()
	cfg.Contracts.Lottery = "not-an-address"
	a, err := NewAdapter(cfg, chain)
	require.Nil(t, a)
	require.Error(t, err)

	a, err = NewAdapter(createMockConfig(), nil)
	require.Nil(t, a)
	require.Error(t, err)
}

func TestAdapter_WatchRoundShouldBeIdempotent(t *testing.T) {
	t.Parallel()

	chain := newTestChain()
	a := newWatchingAdapter(t, chain)

	first, _ := a.Round(testRound)
	second, err := a.WatchRound(context.Background(), testRound)
	require.Nil(t, err)
	require.Same(t, first, second)
	require.True(t, second.IsRunning())

	a.StopAll()
	require.False(t, second.IsRunning())

	third, err := a.WatchRound(context.Background(), testRound)
	require.Nil(t, err)
	require.Same(t, first, third)
	require.True(t, third.IsRunning())
}

func TestAdapter_HandleRoundUnwatchedShouldErr(t *testing.T) {
	t.Parallel()

	a, err := NewAdapter(createMockConfig(), newTestChain())
	require.Nil(t, err)

	_, err = a.HandleRound(testRound)
	require.True(t, errors.Is(err, ErrRoundNotWatched))

	_, err = a.HandleSettlement(context.Background(), testRound, testAccount)
	require.True(t, errors.Is(err, ErrRoundNotWatched))
}

func TestAdapter_HandleRoundShouldReturnSnapshot(t *testing.T) {
	t.Parallel()

	a := newWatchingAdapter(t, newTestChain())

	response, err := a.HandleRound(testRound)
	require.Nil(t, err)
	require.False(t, response.Stale)
	require.Empty(t, response.LastError)
	require.Equal(t, uint64(testRound), response.Snapshot.RoundID)
	require.True(t, response.Snapshot.IsDrawn())
}

func TestAdapter_HandleCurrentRound(t *testing.T) {
	t.Parallel()

	chain := newTestChain()
	a := newWatchingAdapter(t, chain)

	response, err := a.HandleCurrentRound(context.Background())
	require.Nil(t, err)
	require.Equal(t, uint64(testRound), response.RoundID)
	require.True(t, response.Watched)

	chain.SetCurrentRound(testRound + 1)
	response, err = a.HandleCurrentRound(context.Background())
	require.Nil(t, err)
	require.False(t, response.Watched)
}

func TestAdapter_HandleSettlementShouldSettleOwnedTickets(t *testing.T) {
	t.Parallel()

	a := newWatchingAdapter(t, newTestChain())

	response, err := a.HandleSettlement(context.Background(), testRound, testAccount)
	require.Nil(t, err)
	require.Equal(t, testAccount.Hex(), response.Account)
	require.True(t, response.Drawn)
	require.False(t, response.Stale)
	require.Equal(t, 2, response.WinCount)
	require.Equal(t, "1000", response.Tiers["jackpot"].Claimable)
	require.Equal(t, "150", response.Tiers["match4"].Claimable)
	require.Equal(t, "0", response.Tiers["match3"].Claimable)
	require.Len(t, response.Tiers["lost"].Tickets, 1)
	require.Equal(t, "1150", response.TotalClaimable)
	require.Equal(t, []string{"1", "2"}, response.ClaimableTicketIDs)
	require.Equal(t, "eligible", response.Eligibility.Verdict)
	require.True(t, response.Eligibility.Eligible)
	require.Equal(t, []string{"2"}, response.Eligibility.Unclaimed)
	require.Empty(t, response.UnreadableTickets)
}

func TestAdapter_ClaimRewardsReadOnlySessionShouldErr(t *testing.T) {
	t.Parallel()

	chain := newTestChain()
	a := newWatchingAdapter(t, chain)
	session, err := interaction.NewReadOnlyContext(chain, &testAccount)
	require.Nil(t, err)

	_, err = a.ClaimRewards(context.Background(), session, testRound)
	require.Equal(t, ErrReadOnlySession, err)
}

func TestAdapter_ClaimRewardsShouldSubmitUnclaimedTickets(t *testing.T) {
	t.Parallel()

	chain := newTestChain()
	a := newWatchingAdapter(t, chain)
	submitter := &submitterStub{}
	session, err := interaction.NewSignedContext(chain, testAccount, submitter, chain.Deployment.Lottery)
	require.Nil(t, err)

	txHash, err := a.ClaimRewards(context.Background(), session, testRound)
	require.Nil(t, err)
	require.Equal(t, common.HexToHash("0xabcd"), txHash)

	method := chain.Deployment.Lottery.ABI.Methods["batchClaimRewards"]
	args, err := method.Inputs.Unpack(submitter.data[4:])
	require.Nil(t, err)
	require.Equal(t, int64(testRound), args[0].(*big.Int).Int64())
	ids := args[1].([]*big.Int)
	require.Len(t, ids, 1)
	require.Equal(t, int64(2), ids[0].Int64())
}

func TestAdapter_ClaimRewardsNothingUnclaimedShouldErr(t *testing.T) {
	t.Parallel()

	chain := newTestChain()
	chain.SetClaimed(2, true)
	a := newWatchingAdapter(t, chain)
	submitter := &submitterStub{}
	session, err := interaction.NewSignedContext(chain, testAccount, submitter, chain.Deployment.Lottery)
	require.Nil(t, err)

	_, err = a.ClaimRewards(context.Background(), session, testRound)
	require.True(t, errors.Is(err, interaction.ErrNothingToClaim))
	require.Nil(t, submitter.data)
}
