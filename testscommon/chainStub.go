package testscommon

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ironfinance/lottery-adapter/contracts"
)

// Handler computes the return values of a contract method from its decoded arguments.
type Handler func(args []interface{}) ([]interface{}, error)

// RawHandler returns the raw ABI-encoded return data of a contract method.
type RawHandler func(args []interface{}) ([]byte, error)

type stubCall struct {
	Target   common.Address
	CallData []byte
}

type stubResult struct {
	Success    bool
	ReturnData []byte
}

// ChainStub emulates a node hosting a Multicall2 contract and a set of registered contract methods.
type ChainStub struct {
	multicall *contracts.Contract

	mut           sync.RWMutex
	contracts     map[common.Address]*contracts.Contract
	handlers      map[common.Address]map[string]RawHandler
	requestErr    error
	beforeRequest func(ctx context.Context) error

	requests int64
}

func NewChainStub(multicall *contracts.Contract) *ChainStub {
	return &ChainStub{
		multicall: multicall,
		contracts: make(map[common.Address]*contracts.Contract),
		handlers:  make(map[common.Address]map[string]RawHandler),
	}
}

// Register installs handler for contract.method, packing its return values with the method ABI.
func (cs *ChainStub) Register(contract *contracts.Contract, method string, handler Handler) {
	m, ok := contract.ABI.Methods[method]
	if !ok {
		panic(fmt.Sprintf("contract %s has no method %s", contract.Name, method))
	}

	cs.RegisterRaw(contract, method, func(args []interface{}) ([]byte, error) {
		out, err := handler(args)
		if err != nil {
			return nil, err
		}
		return m.Outputs.Pack(out...)
	})
}

func (cs *ChainStub) RegisterRaw(contract *contracts.Contract, method string, handler RawHandler) {
	cs.mut.Lock()
	defer cs.mut.Unlock()

	cs.contracts[contract.Address] = contract
	if cs.handlers[contract.Address] == nil {
		cs.handlers[contract.Address] = make(map[string]RawHandler)
	}
	cs.handlers[contract.Address][method] = handler
}

// SetRequestError makes every following request fail at the transport level.
func (cs *ChainStub) SetRequestError(err error) {
	cs.mut.Lock()
	cs.requestErr = err
	cs.mut.Unlock()
}

// SetBeforeRequest installs a hook run at the start of every request.
func (cs *ChainStub) SetBeforeRequest(hook func(ctx context.Context) error) {
	cs.mut.Lock()
	cs.beforeRequest = hook
	cs.mut.Unlock()
}

// Requests returns how many eth_call requests reached the stub.
func (cs *ChainStub) Requests() int {
	return int(atomic.LoadInt64(&cs.requests))
}

func (cs *ChainStub) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	atomic.AddInt64(&cs.requests, 1)

	cs.mut.RLock()
	requestErr := cs.requestErr
	hook := cs.beforeRequest
	cs.mut.RUnlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}
	if requestErr != nil {
		return nil, requestErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.To == nil || *msg.To != cs.multicall.Address {
		return nil, errors.New("call not addressed to the multicall contract")
	}
	if len(msg.Data) < 4 {
		return nil, errors.New("missing method selector")
	}

	method, err := cs.multicall.ABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("unexpected %s arguments", method.Name)
	}

	calls := *abi.ConvertType(args[1], new([]stubCall)).(*[]stubCall)
	results := make([]stubResult, len(calls))
	for i, call := range calls {
		results[i] = cs.execute(call)
	}

	return method.Outputs.Pack(results)
}

func (cs *ChainStub) execute(call stubCall) stubResult {
	cs.mut.RLock()
	contract := cs.contracts[call.Target]
	handlers := cs.handlers[call.Target]
	cs.mut.RUnlock()

	if contract == nil || len(call.CallData) < 4 {
		return stubResult{}
	}
	method, err := contract.ABI.MethodById(call.CallData[:4])
	if err != nil {
		return stubResult{}
	}
	handler := handlers[method.Name]
	if handler == nil {
		return stubResult{}
	}
	args, err := method.Inputs.Unpack(call.CallData[4:])
	if err != nil {
		return stubResult{}
	}
	out, err := handler(args)
	if err != nil {
		return stubResult{}
	}

	return stubResult{Success: true, ReturnData: out}
}
