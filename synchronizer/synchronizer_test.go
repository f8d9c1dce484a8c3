package synchronizer

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ironfinance/lottery-adapter/aggregator"
	"github.com/ironfinance/lottery-adapter/config"
	"github.com/ironfinance/lottery-adapter/lottery"
	"github.com/ironfinance/lottery-adapter/testscommon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const testRound = 7

func newTestRound() testscommon.Round {
	return testscommon.Round{
		Status:        uint8(StatusOpen),
		Starting:      100,
		Closing:       200,
		CostPerTicket: big.NewInt(10),
		Distribution:  testscommon.Ints(500000, 300000, 200000),
		Prizes:        testscommon.Ints(1000, 600, 400),
		Winners:       testscommon.Ints(0, 0, 0),
		TicketsSold:   big.NewInt(40),
	}
}

func createMockArgs(chain *testscommon.LotteryChain) ArgsSynchronizer {
	agg, err := aggregator.NewMulticallAggregator(chain, chain.Deployment.Multicall, testscommon.MulticallConfig(), nil)
	if err != nil {
		panic(err)
	}

	return ArgsSynchronizer{
		Aggregator: agg,
		Lottery:    chain.Deployment.Lottery,
		RoundID:    testRound,
		Config: config.SyncConfig{
			PollingIntervalMs: 3600000,
			RatioPrecision:    1000000,
		},
	}
}

func newTestSynchronizer(t *testing.T) (*Synchronizer, *testscommon.LotteryChain) {
	t.Helper()

	chain := testscommon.NewLotteryChain()
	chain.SetCurrentRound(testRound)
	chain.SetRound(testRound, newTestRound())

	s, err := NewSynchronizer(createMockArgs(chain))
	require.Nil(t, err)

	return s, chain
}

func TestNewSynchronizer_InvalidArgumentsShouldErr(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChain()

	args := createMockArgs(chain)
	args.Aggregator = nil
	s, err := NewSynchronizer(args)
	require.Nil(t, s)
	require.Equal(t, ErrNilAggregator, err)

	args = createMockArgs(chain)
	args.Lottery = nil
	s, err = NewSynchronizer(args)
	require.Nil(t, s)
	require.Equal(t, ErrNilLotteryContract, err)

	args = createMockArgs(chain)
	args.Config.PollingIntervalMs = 0
	s, err = NewSynchronizer(args)
	require.Nil(t, s)
	require.Equal(t, ErrInvalidPollingInterval, err)

	args = createMockArgs(chain)
	args.Config.RatioPrecision = 0
	s, err = NewSynchronizer(args)
	require.Nil(t, s)
	require.Equal(t, lottery.ErrInvalidPrecision, err)
}

func TestSynchronizer_PollOnceShouldBuildSnapshot(t *testing.T) {
	t.Parallel()

	s, chain := newTestSynchronizer(t)
	require.Nil(t, s.CurrentSnapshot())

	s.pollOnce(context.Background(), nil)

	snapshot := s.CurrentSnapshot()
	require.NotNil(t, snapshot)
	require.Equal(t, 1, chain.Requests())
	require.Equal(t, uint64(1), snapshot.Version)
	require.Equal(t, uint64(testRound), snapshot.RoundID)
	require.Equal(t, StatusOpen, snapshot.Status)
	require.Equal(t, uint64(100), snapshot.StartingTimestamp)
	require.Equal(t, uint64(200), snapshot.ClosingTimestamp)
	require.Equal(t, int64(10), snapshot.CostPerTicket.Int64())
	require.Equal(t, int64(40), snapshot.TicketsSold.Int64())
	require.Len(t, snapshot.Distribution, 3)
	require.Equal(t, "0.5", snapshot.Distribution[0].String())
	require.Equal(t, "0.3", snapshot.Distribution[1].String())
	require.Equal(t, "0.2", snapshot.Distribution[2].String())
	require.Equal(t, int64(600), snapshot.PrizePool(1).Int64())
	require.Equal(t, int64(0), snapshot.WinnerCount(0).Int64())
	require.Equal(t, int64(0), snapshot.PrizePool(5).Int64())
	require.False(t, snapshot.IsDrawn())
	require.False(t, s.IsStale())
	require.Nil(t, s.LastError())
}

func TestSynchronizer_IdenticalPollsShouldPublishOnce(t *testing.T) {
	t.Parallel()

	s, chain := newTestSynchronizer(t)
	registry := prometheus.NewRegistry()
	s.metrics = newMetrics(registry, testRound)
	updates := s.Subscribe()

	s.pollOnce(context.Background(), nil)
	first := s.CurrentSnapshot()
	s.pollOnce(context.Background(), nil)

	require.Same(t, first, s.CurrentSnapshot())
	require.Equal(t, uint64(1), s.CurrentSnapshot().Version)
	require.Equal(t, float64(2), testutil.ToFloat64(s.metrics.polls))
	require.Equal(t, float64(1), testutil.ToFloat64(s.metrics.publications))
	require.Same(t, first, <-updates)

	chain.UpdateRound(testRound, func(round *testscommon.Round) {
		round.TicketsSold = big.NewInt(41)
	})
	s.pollOnce(context.Background(), nil)

	second := s.CurrentSnapshot()
	require.Equal(t, uint64(2), second.Version)
	require.Equal(t, int64(41), second.TicketsSold.Int64())
	require.Equal(t, int64(40), first.TicketsSold.Int64())
	require.Same(t, second, <-updates)
}

func TestSynchronizer_PollFailureShouldKeepSnapshotAndFlagStale(t *testing.T) {
	t.Parallel()

	s, chain := newTestSynchronizer(t)
	s.pollOnce(context.Background(), nil)
	good := s.CurrentSnapshot()

	chain.SetRequestError(errors.New("node down"))
	s.pollOnce(context.Background(), nil)

	require.Same(t, good, s.CurrentSnapshot())
	require.True(t, s.IsStale())
	require.True(t, errors.Is(s.LastError(), aggregator.ErrBatchUnavailable))

	chain.SetRequestError(nil)
	s.pollOnce(context.Background(), nil)

	require.False(t, s.IsStale())
	require.Nil(t, s.LastError())
	require.Same(t, good, s.CurrentSnapshot())
}

func TestSynchronizer_RequiredFactFailureShouldFailPoll(t *testing.T) {
	t.Parallel()

	s, chain := newTestSynchronizer(t)
	chain.Revert("getPrizes")

	s.pollOnce(context.Background(), nil)

	require.Nil(t, s.CurrentSnapshot())
	require.True(t, s.IsStale())
	require.True(t, errors.Is(s.LastError(), ErrIncompleteSnapshot))
}

func TestSynchronizer_OptionalFactFailureShouldReusePreviousValue(t *testing.T) {
	t.Parallel()

	s, chain := newTestSynchronizer(t)
	s.pollOnce(context.Background(), nil)

	chain.Revert("getLottoTimestamps")
	chain.Revert("getLottoCostPerTicket")
	chain.UpdateRound(testRound, func(round *testscommon.Round) {
		round.Winners = testscommon.Ints(0, 1, 2)
	})
	s.pollOnce(context.Background(), nil)

	snapshot := s.CurrentSnapshot()
	require.False(t, s.IsStale())
	require.Equal(t, uint64(2), snapshot.Version)
	require.Equal(t, uint64(100), snapshot.StartingTimestamp)
	require.Equal(t, uint64(200), snapshot.ClosingTimestamp)
	require.Equal(t, int64(10), snapshot.CostPerTicket.Int64())
	require.Equal(t, int64(2), snapshot.WinnerCount(2).Int64())
}

func TestSynchronizer_OptionalFactFailureWithoutPreviousShouldUseZero(t *testing.T) {
	t.Parallel()

	s, chain := newTestSynchronizer(t)
	chain.Revert("getTicketsSold")
	chain.Revert("getPrizeDistribution")

	s.pollOnce(context.Background(), nil)

	snapshot := s.CurrentSnapshot()
	require.NotNil(t, snapshot)
	require.Equal(t, int64(0), snapshot.TicketsSold.Int64())
	require.Empty(t, snapshot.Distribution)
}

func TestSynchronizer_WinningNumbersShouldNotRegress(t *testing.T) {
	t.Parallel()

	s, chain := newTestSynchronizer(t)
	chain.UpdateRound(testRound, func(round *testscommon.Round) {
		round.Status = uint8(StatusCompleted)
		round.WinningNumbers = []uint16{3, 7, 15, 22, 9}
	})
	s.pollOnce(context.Background(), nil)
	drawn := s.CurrentSnapshot()
	require.True(t, drawn.IsDrawn())

	chain.UpdateRound(testRound, func(round *testscommon.Round) {
		round.WinningNumbers = nil
	})
	s.pollOnce(context.Background(), nil)
	require.Same(t, drawn, s.CurrentSnapshot())

	chain.UpdateRound(testRound, func(round *testscommon.Round) {
		round.WinningNumbers = []uint16{1, 2, 3, 4, 5}
	})
	s.pollOnce(context.Background(), nil)
	require.Same(t, drawn, s.CurrentSnapshot())
	require.Equal(t, []uint16{3, 7, 15, 22, 9}, s.CurrentSnapshot().WinningNumbers.Slice())
}

func TestSynchronizer_DistributionShouldBeFrozen(t *testing.T) {
	t.Parallel()

	s, chain := newTestSynchronizer(t)
	s.pollOnce(context.Background(), nil)
	first := s.CurrentSnapshot()

	chain.UpdateRound(testRound, func(round *testscommon.Round) {
		round.Distribution = testscommon.Ints(400000, 400000, 200000)
	})
	s.pollOnce(context.Background(), nil)

	require.Same(t, first, s.CurrentSnapshot())
	require.Equal(t, "0.5", s.CurrentSnapshot().Distribution[0].String())
}

func TestSynchronizer_PollCompletedAfterStopShouldBeDiscarded(t *testing.T) {
	t.Parallel()

	s, chain := newTestSynchronizer(t)
	stop := make(chan struct{})
	close(stop)

	s.pollOnce(context.Background(), stop)

	require.Equal(t, 1, chain.Requests())
	require.Nil(t, s.CurrentSnapshot())
	require.False(t, s.IsStale())
}

func TestSynchronizer_StartShouldPollImmediately(t *testing.T) {
	t.Parallel()

	s, _ := newTestSynchronizer(t)
	require.Nil(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.CurrentSnapshot() != nil
	}, time.Second, 5*time.Millisecond)
}

func TestSynchronizer_ConcurrentStartShouldErr(t *testing.T) {
	t.Parallel()

	s, _ := newTestSynchronizer(t)
	require.Nil(t, s.Start(context.Background()))
	require.Equal(t, ErrAlreadyRunning, s.Start(context.Background()))
	require.True(t, s.IsRunning())

	s.Stop()
	require.False(t, s.IsRunning())
	s.Stop()

	require.Nil(t, s.Start(context.Background()))
	s.Stop()
}

func TestSynchronizer_StopShouldDiscardInFlightPoll(t *testing.T) {
	t.Parallel()

	s, chain := newTestSynchronizer(t)
	started := make(chan struct{})
	release := make(chan struct{})
	chain.SetBeforeRequest(func(_ context.Context) error {
		close(started)
		<-release
		return nil
	})

	require.Nil(t, s.Start(context.Background()))
	<-started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		s.mut.Lock()
		defer s.mut.Unlock()
		return isClosed(s.stop)
	}, time.Second, time.Millisecond)

	select {
	case <-stopped:
		require.Fail(t, "stop returned before the in-flight poll finished")
	default:
	}

	close(release)
	<-stopped

	require.Nil(t, s.CurrentSnapshot())
	require.False(t, s.IsRunning())
	require.Equal(t, 1, chain.Requests())
}

func TestSynchronizer_StartShouldRepollAfterInterval(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChain()
	chain.SetRound(testRound, newTestRound())
	args := createMockArgs(chain)
	args.Config.PollingIntervalMs = 5
	s, err := NewSynchronizer(args)
	require.Nil(t, err)

	require.Nil(t, s.Start(context.Background()))
	require.Eventually(t, func() bool {
		return chain.Requests() >= 3
	}, time.Second, time.Millisecond)
	s.Stop()

	require.Equal(t, uint64(1), s.CurrentSnapshot().Version)
}

func TestSynchronizer_CancelledContextShouldEndLoop(t *testing.T) {
	t.Parallel()

	s, _ := newTestSynchronizer(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.Nil(t, s.Start(ctx))
	cancel()

	require.Eventually(t, func() bool {
		return !s.IsRunning()
	}, time.Second, time.Millisecond)
	s.Stop()
}

func TestNewMetrics_SameRoundTwiceShouldNotPanic(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	first := newMetrics(registry, testRound)
	second := newMetrics(registry, testRound)
	other := newMetrics(registry, testRound+1)

	first.polls.Inc()
	require.Equal(t, float64(1), testutil.ToFloat64(second.polls))
	require.Equal(t, float64(0), testutil.ToFloat64(other.polls))
}
