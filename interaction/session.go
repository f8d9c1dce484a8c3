package interaction

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ironfinance/lottery-adapter/aggregator"
	"github.com/ironfinance/lottery-adapter/contracts"
	"github.com/pkg/errors"
)

const batchClaimRewardsMethod = "batchClaimRewards"

// TransactionSubmitter is the external collaborator that signs and broadcasts transactions.
type TransactionSubmitter interface {
	SubmitTransaction(ctx context.Context, from common.Address, to common.Address, data []byte) (common.Hash, error)
}

// Session is either a ReadOnlyContext or a SignedContext. Only the latter can write.
type Session interface {
	ReadOnly() *ReadOnlyContext
	session()
}

// ReadOnlyContext can read the chain, optionally on behalf of a known account.
type ReadOnlyContext struct {
	caller  aggregator.ContractCaller
	account *common.Address
}

func NewReadOnlyContext(caller aggregator.ContractCaller, account *common.Address) (*ReadOnlyContext, error) {
	if caller == nil {
		return nil, aggregator.ErrNilCaller
	}

	var owned *common.Address
	if account != nil {
		copied := *account
		owned = &copied
	}

	return &ReadOnlyContext{
		caller:  caller,
		account: owned,
	}, nil
}

func (roc *ReadOnlyContext) Caller() aggregator.ContractCaller {
	return roc.caller
}

// Account returns the session's account, if one is connected.
func (roc *ReadOnlyContext) Account() (common.Address, bool) {
	if roc.account == nil {
		return common.Address{}, false
	}
	return *roc.account, true
}

func (roc *ReadOnlyContext) ReadOnly() *ReadOnlyContext {
	return roc
}

func (roc *ReadOnlyContext) session() {}

// SignedContext adds the ability to hand lottery transactions to a TransactionSubmitter.
type SignedContext struct {
	ReadOnlyContext
	submitter TransactionSubmitter
	lottery   *contracts.Contract
	txMut     sync.Mutex
}

func NewSignedContext(
	caller aggregator.ContractCaller,
	account common.Address,
	submitter TransactionSubmitter,
	lottery *contracts.Contract,
) (*SignedContext, error) {
	if submitter == nil {
		return nil, ErrNilSubmitter
	}
	if lottery == nil || lottery.ABI == nil {
		return nil, aggregator.ErrNilContract
	}

	readOnly, err := NewReadOnlyContext(caller, &account)
	if err != nil {
		return nil, err
	}

	return &SignedContext{
		ReadOnlyContext: *readOnly,
		submitter:       submitter,
		lottery:         lottery,
	}, nil
}

func (sc *SignedContext) ReadOnly() *ReadOnlyContext {
	return &sc.ReadOnlyContext
}

// ClaimRewards submits batchClaimRewards(roundID, ticketIDs) from the session account.
func (sc *SignedContext) ClaimRewards(ctx context.Context, roundID uint64, ticketIDs []*big.Int) (common.Hash, error) {
	if len(ticketIDs) == 0 {
		return common.Hash{}, ErrNothingToClaim
	}

	data, err := sc.lottery.ABI.Pack(batchClaimRewardsMethod, new(big.Int).SetUint64(roundID), ticketIDs)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "encoding claim")
	}

	sc.txMut.Lock()
	defer sc.txMut.Unlock()

	from, _ := sc.Account()
	txHash, err := sc.submitter.SubmitTransaction(ctx, from, sc.lottery.Address, data)
	if err != nil {
		log.Debug("failed submitting claim", "round", roundID, "tickets", len(ticketIDs), "err", err.Error())
		return common.Hash{}, err
	}

	log.Info("claim submitted",
		"round", roundID,
		"tickets", len(ticketIDs),
		"tx", txHash.Hex(),
	)
	return txHash, nil
}

// AsSigned returns the signing capability of session, if it has one.
func AsSigned(session Session) (*SignedContext, bool) {
	signed, ok := session.(*SignedContext)
	return signed, ok
}
