package adapter

import (
	"context"
	"sync"

	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ironfinance/lottery-adapter/aggregator"
	"github.com/ironfinance/lottery-adapter/config"
	"github.com/ironfinance/lottery-adapter/contracts"
	models "github.com/ironfinance/lottery-adapter/data"
	"github.com/ironfinance/lottery-adapter/interaction"
	"github.com/ironfinance/lottery-adapter/lottery"
	"github.com/ironfinance/lottery-adapter/settlement"
	"github.com/ironfinance/lottery-adapter/synchronizer"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var log = logger.GetOrCreate("adapter")

type adapter struct {
	config     config.GeneralConfig
	deployment *contracts.Deployment
	aggregator aggregator.Aggregator
	reader     *lottery.Reader
	engine     *settlement.Engine
	registry   *prometheus.Registry

	mut           sync.RWMutex
	synchronizers map[uint64]*synchronizer.Synchronizer
}

// NewAdapter wires the lottery components on top of caller. Every eth_call is bounded by the
// configured request timeout.
func NewAdapter(cfg config.GeneralConfig, caller aggregator.ContractCaller) (*adapter, error) {
	deployment, err := contracts.NewDeployment(cfg.Contracts)
	if err != nil {
		return nil, err
	}

	timeoutCaller, err := interaction.NewTimeoutCaller(caller, cfg.Blockchain.RequestTimeout())
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	agg, err := aggregator.NewMulticallAggregator(timeoutCaller, deployment.Multicall, cfg.Multicall, registry)
	if err != nil {
		return nil, err
	}
	reader, err := lottery.NewReader(agg, deployment, cfg.Sync.RatioPrecision)
	if err != nil {
		return nil, err
	}
	engine, err := settlement.NewEngine(agg, deployment.Ticket)
	if err != nil {
		return nil, err
	}

	return &adapter{
		config:        cfg,
		deployment:    deployment,
		aggregator:    agg,
		reader:        reader,
		engine:        engine,
		registry:      registry,
		synchronizers: make(map[uint64]*synchronizer.Synchronizer),
	}, nil
}

// WatchRound starts polling roundID, reusing the round's synchronizer if it was watched before.
func (a *adapter) WatchRound(ctx context.Context, roundID uint64) (*synchronizer.Synchronizer, error) {
	a.mut.Lock()
	defer a.mut.Unlock()

	s, found := a.synchronizers[roundID]
	if !found {
		var err error
		s, err = synchronizer.NewSynchronizer(synchronizer.ArgsSynchronizer{
			Aggregator: a.aggregator,
			Lottery:    a.deployment.Lottery,
			RoundID:    roundID,
			Config:     a.config.Sync,
			Registerer: a.registry,
		})
		if err != nil {
			return nil, err
		}
		a.synchronizers[roundID] = s
	}

	err := s.Start(ctx)
	if err != nil && !errors.Is(err, synchronizer.ErrAlreadyRunning) {
		return nil, err
	}

	log.Info("watching round", "round", roundID)

	return s, nil
}

// WatchCurrentRound resolves the latest round and watches it.
func (a *adapter) WatchCurrentRound(ctx context.Context) (uint64, error) {
	roundID, err := a.reader.CurrentRoundID(ctx)
	if err != nil {
		return 0, err
	}

	_, err = a.WatchRound(ctx, roundID)
	return roundID, err
}

func (a *adapter) Round(roundID uint64) (*synchronizer.Synchronizer, bool) {
	a.mut.RLock()
	defer a.mut.RUnlock()

	s, found := a.synchronizers[roundID]
	return s, found
}

// StopAll stops every watched round.
func (a *adapter) StopAll() {
	a.mut.RLock()
	watched := make([]*synchronizer.Synchronizer, 0, len(a.synchronizers))
	for _, s := range a.synchronizers {
		watched = append(watched, s)
	}
	a.mut.RUnlock()

	for _, s := range watched {
		s.Stop()
	}
}

func (a *adapter) HandleInfo(ctx context.Context) (*lottery.Info, error) {
	return a.reader.GetInfo(ctx)
}

func (a *adapter) HandleCurrentRound(ctx context.Context) (models.CurrentRoundResponse, error) {
	roundID, err := a.reader.CurrentRoundID(ctx)
	if err != nil {
		return models.CurrentRoundResponse{}, err
	}

	_, watched := a.Round(roundID)
	return models.CurrentRoundResponse{
		RoundID: roundID,
		Watched: watched,
	}, nil
}

func (a *adapter) HandleRound(roundID uint64) (models.RoundResponse, error) {
	s, found := a.Round(roundID)
	if !found {
		return models.RoundResponse{}, errors.Wrapf(ErrRoundNotWatched, "round %d", roundID)
	}

	response := models.RoundResponse{
		Snapshot: s.CurrentSnapshot(),
		Stale:    s.IsStale(),
	}
	if lastErr := s.LastError(); lastErr != nil {
		response.LastError = lastErr.Error()
	}

	return response, nil
}

// HandleSettlement settles account's tickets of roundID against the round's current snapshot.
func (a *adapter) HandleSettlement(ctx context.Context, roundID uint64, account common.Address) (*models.SettlementResponse, error) {
	settled, err := a.settle(ctx, roundID, account)
	if err != nil {
		return nil, err
	}

	response := newSettlementResponse(settled.result, account)
	response.Stale = settled.stale
	response.Drawn = settled.snapshot.IsDrawn()
	response.UnreadableTickets = bigIntStrings(settled.holdings.Unreadable)

	return response, nil
}

// ClaimRewards submits a claim for the winning tickets of roundID the session account has not
// claimed yet. Read-only sessions are refused.
func (a *adapter) ClaimRewards(ctx context.Context, session interaction.Session, roundID uint64) (common.Hash, error) {
	signed, ok := interaction.AsSigned(session)
	if !ok {
		return common.Hash{}, ErrReadOnlySession
	}
	account, _ := signed.Account()

	settled, err := a.settle(ctx, roundID, account)
	if err != nil {
		return common.Hash{}, err
	}
	eligibility := settled.result.Eligibility
	if !eligibility.Eligible {
		return common.Hash{}, errors.Wrapf(interaction.ErrNothingToClaim, "round %d: %s", roundID, eligibility.Verdict)
	}

	return signed.ClaimRewards(ctx, roundID, eligibility.Unclaimed)
}

type settledRound struct {
	result   *settlement.SettlementResult
	holdings *lottery.Holdings
	snapshot *synchronizer.RoundSnapshot
	stale    bool
}

func (a *adapter) settle(ctx context.Context, roundID uint64, account common.Address) (*settledRound, error) {
	s, found := a.Round(roundID)
	if !found {
		return nil, errors.Wrapf(ErrRoundNotWatched, "round %d", roundID)
	}
	snapshot := s.CurrentSnapshot()
	if snapshot == nil {
		return nil, errors.Wrapf(ErrSnapshotUnavailable, "round %d", roundID)
	}

	holdings, err := a.reader.OwnedTickets(ctx, account, roundID)
	if err != nil {
		return nil, err
	}

	return &settledRound{
		result:   a.engine.Settle(ctx, snapshot, holdings.Tickets),
		holdings: holdings,
		snapshot: snapshot,
		stale:    s.IsStale(),
	}, nil
}
