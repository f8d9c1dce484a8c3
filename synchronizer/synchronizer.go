package synchronizer

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/ironfinance/lottery-adapter/aggregator"
	"github.com/ironfinance/lottery-adapter/config"
	"github.com/ironfinance/lottery-adapter/contracts"
	"github.com/ironfinance/lottery-adapter/lottery"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

var log = logger.GetOrCreate("synchronizer")

// positions of the round facts inside a poll batch
const (
	statusIndex = iota
	prizesIndex
	winnersIndex
	winningNumbersIndex
	timestampsIndex
	costIndex
	distributionIndex
	ticketsSoldIndex
)

// ArgsSynchronizer groups the dependencies of a round synchronizer.
type ArgsSynchronizer struct {
	Aggregator aggregator.Aggregator
	Lottery    *contracts.Contract
	RoundID    uint64
	Config     config.SyncConfig
	Registerer prometheus.Registerer
}

// Synchronizer polls one lottery round and publishes a new RoundSnapshot whenever the round changes.
type Synchronizer struct {
	agg            aggregator.Aggregator
	lottery        *contracts.Contract
	roundID        uint64
	interval       time.Duration
	ratioPrecision uint64
	metrics        *metrics
	now            func() time.Time

	current atomic.Pointer[RoundSnapshot]
	stale   atomic.Bool

	mut         sync.Mutex
	lastErr     error
	running     bool
	stop        chan struct{}
	done        chan struct{}
	subscribers []chan *RoundSnapshot
}

func NewSynchronizer(args ArgsSynchronizer) (*Synchronizer, error) {
	if args.Aggregator == nil {
		return nil, ErrNilAggregator
	}
	if args.Lottery == nil || args.Lottery.ABI == nil {
		return nil, ErrNilLotteryContract
	}
	if args.Config.PollingInterval() <= 0 {
		return nil, ErrInvalidPollingInterval
	}
	if args.Config.RatioPrecision == 0 {
		return nil, lottery.ErrInvalidPrecision
	}

	return &Synchronizer{
		agg:            args.Aggregator,
		lottery:        args.Lottery,
		roundID:        args.RoundID,
		interval:       args.Config.PollingInterval(),
		ratioPrecision: args.Config.RatioPrecision,
		metrics:        newMetrics(args.Registerer, args.RoundID),
		now:            time.Now,
	}, nil
}

func (s *Synchronizer) RoundID() uint64 {
	return s.roundID
}

// CurrentSnapshot returns the last published snapshot, or nil before the first successful poll.
func (s *Synchronizer) CurrentSnapshot() *RoundSnapshot {
	return s.current.Load()
}

// IsStale reports whether the most recent poll failed.
func (s *Synchronizer) IsStale() bool {
	return s.stale.Load()
}

// LastError returns the error of the most recent poll, nil if it succeeded.
func (s *Synchronizer) LastError() error {
	s.mut.Lock()
	defer s.mut.Unlock()

	return s.lastErr
}

// IsRunning reports whether a polling loop is active.
func (s *Synchronizer) IsRunning() bool {
	s.mut.Lock()
	defer s.mut.Unlock()

	return s.running
}

// Subscribe returns a channel receiving newly published snapshots. A slow reader only misses
// intermediate snapshots, it never sees an older one after a newer one.
func (s *Synchronizer) Subscribe() <-chan *RoundSnapshot {
	ch := make(chan *RoundSnapshot, 1)

	s.mut.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mut.Unlock()

	return ch
}

// Start launches the polling loop. The first poll is issued immediately.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(ctx, s.stop, s.done)

	log.Debug("synchronizer started", "round", s.roundID, "interval", s.interval)

	return nil
}

// Stop halts the polling loop, waiting for an in-flight poll to finish. The result of that poll
// is discarded.
func (s *Synchronizer) Stop() {
	s.mut.Lock()
	if !s.running {
		s.mut.Unlock()
		return
	}
	stop, done := s.stop, s.done
	select {
	case <-stop:
	default:
		close(stop)
	}
	s.mut.Unlock()

	<-done

	log.Debug("synchronizer stopped", "round", s.roundID)
}

func (s *Synchronizer) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer func() {
		s.mut.Lock()
		s.running = false
		s.mut.Unlock()
		close(done)
	}()

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		if isClosed(stop) || ctx.Err() != nil {
			return
		}

		s.pollOnce(ctx, stop)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.interval)

		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// pollOnce fetches the round and publishes the result unless stop was closed meanwhile.
func (s *Synchronizer) pollOnce(ctx context.Context, stop <-chan struct{}) {
	previous := s.current.Load()
	candidate, err := s.fetch(ctx, previous)

	s.mut.Lock()
	defer s.mut.Unlock()

	if isClosed(stop) {
		log.Debug("discarding poll completed after stop", "round", s.roundID)
		return
	}

	s.metrics.polls.Inc()
	if err != nil {
		s.lastErr = err
		s.stale.Store(true)
		s.metrics.pollFailures.Inc()
		log.Warn("round poll failed", "round", s.roundID, "err", err.Error())
		return
	}

	s.lastErr = nil
	s.stale.Store(false)
	if previous.Equal(candidate) {
		return
	}

	if previous != nil {
		candidate.Version = previous.Version + 1
	} else {
		candidate.Version = 1
	}
	s.current.Store(candidate)
	s.metrics.publications.Inc()
	s.notify(candidate)

	log.Debug("published round snapshot",
		"round", s.roundID,
		"version", candidate.Version,
		"status", candidate.Status.String(),
		"drawn", candidate.IsDrawn(),
	)
}

// notify must be called with mut held.
func (s *Synchronizer) notify(snapshot *RoundSnapshot) {
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}

func (s *Synchronizer) pollCalls() []aggregator.ReadCall {
	round := new(big.Int).SetUint64(s.roundID)
	calls := make([]aggregator.ReadCall, ticketsSoldIndex+1)
	calls[statusIndex] = aggregator.NewReadCall(s.lottery, "getLottoStatus", round)
	calls[prizesIndex] = aggregator.NewReadCall(s.lottery, "getPrizes", round)
	calls[winnersIndex] = aggregator.NewReadCall(s.lottery, "getWinners", round)
	calls[winningNumbersIndex] = aggregator.NewReadCall(s.lottery, "getWinningNumbers", round)
	calls[timestampsIndex] = aggregator.NewReadCall(s.lottery, "getLottoTimestamps", round)
	calls[costIndex] = aggregator.NewReadCall(s.lottery, "getLottoCostPerTicket", round)
	calls[distributionIndex] = aggregator.NewReadCall(s.lottery, "getPrizeDistribution", round)
	calls[ticketsSoldIndex] = aggregator.NewReadCall(s.lottery, "getTicketsSold", round)

	return calls
}

// fetch builds a candidate snapshot from one batch. Optional facts that fail fall back to the
// previous snapshot's values.
func (s *Synchronizer) fetch(ctx context.Context, previous *RoundSnapshot) (*RoundSnapshot, error) {
	results, err := s.agg.Batch(ctx, s.pollCalls())
	if err != nil {
		return nil, err
	}

	candidate := &RoundSnapshot{
		RoundID:   s.roundID,
		FetchedAt: s.now(),
	}

	status, err := results[statusIndex].Uint8(0)
	if err != nil {
		return nil, incomplete("status", err)
	}
	candidate.Status = LotteryStatus(status)

	candidate.PrizePools, err = results[prizesIndex].BigInts(0)
	if err != nil {
		return nil, incomplete("prizes", err)
	}
	candidate.Winners, err = results[winnersIndex].BigInts(0)
	if err != nil {
		return nil, incomplete("winners", err)
	}

	rawWinning, err := results[winningNumbersIndex].Uint16s(0)
	if err != nil {
		return nil, incomplete("winning numbers", err)
	}
	candidate.WinningNumbers, err = lottery.NewWinningNumbers(rawWinning)
	if err != nil {
		return nil, incomplete("winning numbers", err)
	}

	s.applyTimestamps(candidate, results[timestampsIndex], previous)
	s.applyCost(candidate, results[costIndex], previous)
	s.applyDistribution(candidate, results[distributionIndex], previous)
	s.applyTicketsSold(candidate, results[ticketsSoldIndex], previous)
	s.keepWinningNumbers(candidate, previous)

	return candidate, nil
}

func incomplete(fact string, err error) error {
	return errors.Wrapf(ErrIncompleteSnapshot, "%s: %v", fact, err)
}

func (s *Synchronizer) applyTimestamps(candidate *RoundSnapshot, result aggregator.ReadResult, previous *RoundSnapshot) {
	starting, errStarting := result.BigInt(0)
	closing, errClosing := result.BigInt(1)
	if errStarting == nil && errClosing == nil {
		candidate.StartingTimestamp = starting.Uint64()
		candidate.ClosingTimestamp = closing.Uint64()
		return
	}

	s.logOptionalFailure("timestamps", result)
	if previous != nil {
		candidate.StartingTimestamp = previous.StartingTimestamp
		candidate.ClosingTimestamp = previous.ClosingTimestamp
	}
}

func (s *Synchronizer) applyCost(candidate *RoundSnapshot, result aggregator.ReadResult, previous *RoundSnapshot) {
	cost, err := result.BigInt(0)
	if err == nil {
		candidate.CostPerTicket = cost
		return
	}

	s.logOptionalFailure("cost per ticket", result)
	candidate.CostPerTicket = big.NewInt(0)
	if previous != nil && previous.CostPerTicket != nil {
		candidate.CostPerTicket = previous.CostPerTicket
	}
}

func (s *Synchronizer) applyTicketsSold(candidate *RoundSnapshot, result aggregator.ReadResult, previous *RoundSnapshot) {
	sold, err := result.BigInt(0)
	if err == nil {
		candidate.TicketsSold = sold
		return
	}

	s.logOptionalFailure("tickets sold", result)
	candidate.TicketsSold = big.NewInt(0)
	if previous != nil && previous.TicketsSold != nil {
		candidate.TicketsSold = previous.TicketsSold
	}
}

// applyDistribution keeps the ratios of the first snapshot that carried them for the whole round.
func (s *Synchronizer) applyDistribution(candidate *RoundSnapshot, result aggregator.ReadResult, previous *RoundSnapshot) {
	if previous != nil && len(previous.Distribution) > 0 {
		candidate.Distribution = previous.Distribution

		raw, err := result.BigInts(0)
		if err == nil && !decimalsEqual(s.ratios(raw), previous.Distribution) {
			log.Warn("ignoring changed prize distribution", "round", s.roundID)
		}
		return
	}

	raw, err := result.BigInts(0)
	if err != nil {
		s.logOptionalFailure("prize distribution", result)
		return
	}
	candidate.Distribution = s.ratios(raw)
}

// keepWinningNumbers stops a lagging node from taking back published winning numbers.
func (s *Synchronizer) keepWinningNumbers(candidate *RoundSnapshot, previous *RoundSnapshot) {
	if previous == nil || previous.WinningNumbers == nil {
		return
	}

	if candidate.WinningNumbers == nil {
		log.Debug("node reports round undrawn, keeping published winning numbers", "round", s.roundID)
	} else if *candidate.WinningNumbers != *previous.WinningNumbers {
		log.Warn("ignoring changed winning numbers",
			"round", s.roundID,
			"published", previous.WinningNumbers.String(),
			"read", candidate.WinningNumbers.String(),
		)
	}
	candidate.WinningNumbers = previous.WinningNumbers
}

func (s *Synchronizer) ratios(raw []*big.Int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(raw))
	for i, value := range raw {
		out[i] = lottery.Ratio(value, s.ratioPrecision)
	}
	return out
}

func (s *Synchronizer) logOptionalFailure(fact string, result aggregator.ReadResult) {
	reason := "unexpected value"
	if result.Err != nil {
		reason = result.Err.Error()
	}
	log.Debug("optional round fact unavailable", "round", s.roundID, "fact", fact, "err", reason)
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
