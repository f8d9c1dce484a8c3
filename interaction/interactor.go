package interaction

import (
	"context"
	"math/big"
	"time"

	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ironfinance/lottery-adapter/aggregator"
	"github.com/ironfinance/lottery-adapter/config"
	"github.com/pkg/errors"
)

var log = logger.GetOrCreate("interaction")

// Dial connects to the node at chainInfo.ProxyUrl and, when a chain id is configured, checks
// that the node serves that chain.
func Dial(ctx context.Context, chainInfo config.BlockchainInformation) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, chainInfo.ProxyUrl)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", chainInfo.ProxyUrl)
	}

	if chainInfo.ChainID == 0 {
		return client, nil
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "reading chain id")
	}
	if chainID.Uint64() != chainInfo.ChainID {
		client.Close()
		return nil, errors.Wrapf(ErrWrongChain, "expected %d, node serves %s", chainInfo.ChainID, chainID)
	}

	log.Info("connected to node",
		"url", chainInfo.ProxyUrl,
		"chainID", chainID.String(),
	)

	return client, nil
}

// TimeoutCaller bounds every eth_call with a deadline so that a stalled node surfaces as a
// request-level failure instead of a hung batch.
type TimeoutCaller struct {
	caller  aggregator.ContractCaller
	timeout time.Duration
}

func NewTimeoutCaller(caller aggregator.ContractCaller, timeout time.Duration) (*TimeoutCaller, error) {
	if caller == nil {
		return nil, aggregator.ErrNilCaller
	}
	return &TimeoutCaller{
		caller:  caller,
		timeout: timeout,
	}, nil
}

func (tc *TimeoutCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if tc.timeout <= 0 {
		return tc.caller.CallContract(ctx, call, blockNumber)
	}

	ctx, cancel := context.WithTimeout(ctx, tc.timeout)
	defer cancel()

	out, err := tc.caller.CallContract(ctx, call, blockNumber)
	if err != nil {
		log.Debug("eth_call failed", "timeout", tc.timeout, "err", err.Error())
		return nil, err
	}
	return out, nil
}
