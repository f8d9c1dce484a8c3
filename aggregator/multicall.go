package aggregator

import (
	"context"
	"math/big"

	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ironfinance/lottery-adapter/config"
	"github.com/ironfinance/lottery-adapter/contracts"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const tryAggregateMethod = "tryAggregate"

var log = logger.GetOrCreate("aggregator")

// ContractCaller executes a read-only eth_call. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Aggregator is what consumers of batched reads depend on.
type Aggregator interface {
	Batch(ctx context.Context, calls []ReadCall) ([]ReadResult, error)
}

type multicallCall struct {
	Target   common.Address
	CallData []byte
}

type multicallResult struct {
	Success    bool
	ReturnData []byte
}

// MulticallAggregator turns a list of independent reads into Multicall2 tryAggregate requests.
type MulticallAggregator struct {
	caller              ContractCaller
	multicall           *contracts.Contract
	maxBatchSize        int
	maxConcurrentChunks int
	metrics             *metrics
}

func NewMulticallAggregator(
	caller ContractCaller,
	multicall *contracts.Contract,
	cfg config.MulticallConfig,
	registerer prometheus.Registerer,
) (*MulticallAggregator, error) {
	if caller == nil {
		return nil, ErrNilCaller
	}
	if multicall == nil || multicall.ABI == nil {
		return nil, ErrNilContract
	}
	if _, ok := multicall.ABI.Methods[tryAggregateMethod]; !ok {
		return nil, errors.Errorf("contract %s has no %s method", multicall, tryAggregateMethod)
	}

	maxBatchSize := cfg.MaxBatchSize
	if maxBatchSize <= 0 {
		maxBatchSize = 1
	}
	maxConcurrentChunks := cfg.MaxConcurrentChunks
	if maxConcurrentChunks <= 0 {
		maxConcurrentChunks = 1
	}

	return &MulticallAggregator{
		caller:              caller,
		multicall:           multicall,
		maxBatchSize:        maxBatchSize,
		maxConcurrentChunks: maxConcurrentChunks,
		metrics:             newMetrics(registerer),
	}, nil
}

// Batch returns exactly one ReadResult per call, in input order. A call that reverts or fails to
// decode only affects its own position. If any aggregated request fails, every position is marked
// unavailable and the returned error wraps ErrBatchUnavailable.
func (ma *MulticallAggregator) Batch(ctx context.Context, calls []ReadCall) ([]ReadResult, error) {
	results := make([]ReadResult, len(calls))
	if len(calls) == 0 {
		return results, nil
	}

	ma.metrics.batches.Inc()
	ma.metrics.calls.Add(float64(len(calls)))

	encoded := make([]multicallCall, 0, len(calls))
	positions := make([]int, 0, len(calls))
	for i, call := range calls {
		callData, err := call.encode()
		if err != nil {
			results[i] = ReadResult{Err: errors.Wrapf(ErrCallFailed, "encoding %s: %v", call, err)}
			ma.metrics.failedCalls.Inc()
			continue
		}
		encoded = append(encoded, multicallCall{
			Target:   call.Contract.Address,
			CallData: callData,
		})
		positions = append(positions, i)
	}
	if len(encoded) == 0 {
		return results, nil
	}

	replies, err := ma.aggregateChunks(ctx, encoded)
	if err != nil {
		unavailable := errors.Wrap(ErrBatchUnavailable, err.Error())
		for i := range results {
			results[i] = ReadResult{Err: unavailable}
		}
		ma.metrics.unavailableBatches.Inc()
		log.Warn("multicall batch unavailable",
			"calls", len(calls),
			"err", err.Error(),
		)
		return results, unavailable
	}

	for k, reply := range replies {
		i := positions[k]
		results[i] = decodeReply(calls[i], reply)
		if results[i].Err != nil {
			ma.metrics.failedCalls.Inc()
			log.Debug("multicall call failed",
				"call", calls[i].String(),
				"position", i,
				"err", results[i].Err.Error(),
			)
		}
	}

	return results, nil
}

func (ma *MulticallAggregator) aggregateChunks(ctx context.Context, encoded []multicallCall) ([]multicallResult, error) {
	replies := make([]multicallResult, len(encoded))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(ma.maxConcurrentChunks)
	for _, bounds := range ChunkBounds(len(encoded), ma.maxBatchSize) {
		low, high := bounds[0], bounds[1]
		eg.Go(func() error {
			chunkReplies, err := ma.aggregate(egCtx, encoded[low:high])
			if err != nil {
				return err
			}
			copy(replies[low:high], chunkReplies)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return replies, nil
}

func (ma *MulticallAggregator) aggregate(ctx context.Context, calls []multicallCall) ([]multicallResult, error) {
	input, err := ma.multicall.ABI.Pack(tryAggregateMethod, false, calls)
	if err != nil {
		return nil, errors.Wrap(err, "encoding aggregate request")
	}

	target := ma.multicall.Address
	raw, err := ma.caller.CallContract(ctx, ethereum.CallMsg{To: &target, Data: input}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "executing aggregate request")
	}

	out, err := ma.multicall.ABI.Unpack(tryAggregateMethod, raw)
	if err != nil {
		return nil, errors.Wrap(err, "decoding aggregate response")
	}
	if len(out) != 1 {
		return nil, errors.Wrapf(ErrResultCountMismatch, "got %d return values", len(out))
	}

	replies := *abi.ConvertType(out[0], new([]multicallResult)).(*[]multicallResult)
	if len(replies) != len(calls) {
		return nil, errors.Wrapf(ErrResultCountMismatch, "sent %d calls, got %d results", len(calls), len(replies))
	}

	return replies, nil
}

func decodeReply(call ReadCall, reply multicallResult) ReadResult {
	if !reply.Success {
		return ReadResult{Err: errors.Wrapf(ErrCallFailed, "%s reverted", call)}
	}

	values, err := call.Contract.ABI.Unpack(call.Method, reply.ReturnData)
	if err != nil {
		return ReadResult{Err: errors.Wrapf(ErrCallFailed, "decoding %s: %v", call, err)}
	}

	return ReadResult{Values: values}
}
