package aggregator

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ironfinance/lottery-adapter/contracts"
)

// Status classifies a ReadResult.
type Status int

const (
	StatusOK Status = iota
	StatusCallFailed
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusCallFailed:
		return "call failed"
	case StatusUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ReadCall is one read-only contract call of a batch.
type ReadCall struct {
	Contract *contracts.Contract
	Method   string
	Params   []interface{}
}

func NewReadCall(contract *contracts.Contract, method string, params ...interface{}) ReadCall {
	return ReadCall{
		Contract: contract,
		Method:   method,
		Params:   params,
	}
}

func (rc ReadCall) String() string {
	if rc.Contract == nil {
		return rc.Method
	}
	return fmt.Sprintf("%s.%s", rc.Contract.Name, rc.Method)
}

func (rc ReadCall) encode() ([]byte, error) {
	if rc.Contract == nil || rc.Contract.ABI == nil {
		return nil, ErrNilContract
	}
	return rc.Contract.ABI.Pack(rc.Method, rc.Params...)
}

// ReadResult holds either the decoded return values of a ReadCall or the reason it has none.
type ReadResult struct {
	Values []interface{}
	Err    error
}

func (rr ReadResult) Status() Status {
	switch {
	case rr.Err == nil:
		return StatusOK
	case errors.Is(rr.Err, ErrBatchUnavailable):
		return StatusUnavailable
	default:
		return StatusCallFailed
	}
}

func (rr ReadResult) Ok() bool {
	return rr.Err == nil
}

func (rr ReadResult) value(index int) (interface{}, error) {
	if rr.Err != nil {
		return nil, rr.Err
	}
	if index < 0 || index >= len(rr.Values) {
		return nil, fmt.Errorf("%w: index %d of %d values", ErrUnexpectedType, index, len(rr.Values))
	}
	return rr.Values[index], nil
}

func (rr ReadResult) BigInt(index int) (*big.Int, error) {
	v, err := rr.value(index)
	if err != nil {
		return nil, err
	}
	n, ok := v.(*big.Int)
	if !ok || n == nil {
		return nil, fmt.Errorf("%w: want *big.Int, got %T", ErrUnexpectedType, v)
	}
	return new(big.Int).Set(n), nil
}

func (rr ReadResult) BigInts(index int) ([]*big.Int, error) {
	v, err := rr.value(index)
	if err != nil {
		return nil, err
	}
	ns, ok := v.([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: want []*big.Int, got %T", ErrUnexpectedType, v)
	}
	out := make([]*big.Int, len(ns))
	for i, n := range ns {
		out[i] = new(big.Int).Set(n)
	}
	return out, nil
}

func (rr ReadResult) Uint8(index int) (uint8, error) {
	v, err := rr.value(index)
	if err != nil {
		return 0, err
	}
	n, ok := v.(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: want uint8, got %T", ErrUnexpectedType, v)
	}
	return n, nil
}

func (rr ReadResult) Uint16(index int) (uint16, error) {
	v, err := rr.value(index)
	if err != nil {
		return 0, err
	}
	n, ok := v.(uint16)
	if !ok {
		return 0, fmt.Errorf("%w: want uint16, got %T", ErrUnexpectedType, v)
	}
	return n, nil
}

func (rr ReadResult) Uint16s(index int) ([]uint16, error) {
	v, err := rr.value(index)
	if err != nil {
		return nil, err
	}
	ns, ok := v.([]uint16)
	if !ok {
		return nil, fmt.Errorf("%w: want []uint16, got %T", ErrUnexpectedType, v)
	}
	return append([]uint16(nil), ns...), nil
}

func (rr ReadResult) Bool(index int) (bool, error) {
	v, err := rr.value(index)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: want bool, got %T", ErrUnexpectedType, v)
	}
	return b, nil
}
