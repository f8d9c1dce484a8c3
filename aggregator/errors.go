package aggregator

import "errors"

// ErrBatchUnavailable marks every result of a batch whose aggregated request could not complete.
var ErrBatchUnavailable = errors.New("batch unavailable")

// ErrCallFailed marks a single call that reverted or could not be encoded or decoded.
var ErrCallFailed = errors.New("call failed")

var ErrNilContract = errors.New("nil contract provided")

var ErrNilCaller = errors.New("nil contract caller provided")

var ErrUnexpectedType = errors.New("unexpected return value type")

var ErrResultCountMismatch = errors.New("aggregate result count mismatch")
